package main

import (
	"reflect"
	"testing"
)

func TestParseSweep(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantNames  []string
		wantRanges [][]float64
		wantErr    bool
	}{
		{
			name:       "two params",
			args:       []string{"viscosity=0,0.05", "pressure=1, 2 ,4"},
			wantNames:  []string{"viscosity", "pressure"},
			wantRanges: [][]float64{{0, 0.05}, {1, 2, 4}},
		},
		{name: "missing values", args: []string{"viscosity="}, wantErr: true},
		{name: "no equals", args: []string{"viscosity"}, wantErr: true},
		{name: "not a number", args: []string{"pressure=high"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, ranges, err := parseSweep(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(names, tt.wantNames) || !reflect.DeepEqual(ranges, tt.wantRanges) {
				t.Errorf("parseSweep() = %v %v, want %v %v", names, ranges, tt.wantNames, tt.wantRanges)
			}
		})
	}
}

func TestUniformSamples(t *testing.T) {
	// times as a run records them: dt summed once per step, sampled every
	// 10 steps
	accumulated := func(steps, every int) []float64 {
		var times []float64
		now := 0.0
		for step := 1; step <= steps; step++ {
			now += 0.005
			if step%every == 0 || step == steps {
				times = append(times, now)
			}
		}
		return times
	}

	tests := []struct {
		name  string
		times []float64
		keep  int
	}{
		{"on grid", accumulated(600, 10), 60},
		{"off-grid last sample", accumulated(605, 10), 60},
		{"exact", []float64{1, 2, 3, 4}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]float64, len(tt.times))
			dt, uniform := uniformSamples(tt.times, data)
			if len(uniform) != tt.keep {
				t.Errorf("kept %d of %d samples, want %d", len(uniform), len(data), tt.keep)
			}
			if want := tt.times[1] - tt.times[0]; dt != want {
				t.Errorf("sampleDt = %v, want %v", dt, want)
			}
		})
	}
}
