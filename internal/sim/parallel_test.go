package sim

import (
	"math"
	"sync/atomic"
	"testing"
)

func TestParallelFor(t *testing.T) {
	tests := []struct {
		name       string
		n, workers int
		maxCalls   int
	}{
		{"empty", 0, 4, 0},
		{"serial", 1000, 1, 1},
		{"below chunk", 50, 8, 1},
		{"four workers", 1000, 4, 4},
		{"more workers than chunks", 200, 16, 3},
		{"zero workers", 300, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			var calls atomic.Int32
			ParallelFor(tt.n, tt.workers, func(worker, start, end int) {
				calls.Add(1)
				if worker < 0 || (tt.workers > 0 && worker >= tt.workers) {
					t.Errorf("worker slot %d out of range", worker)
				}
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})

			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
			if got := int(calls.Load()); got > tt.maxCalls {
				t.Errorf("fn called %d times, want at most %d", got, tt.maxCalls)
			}
		})
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		valid  bool
	}{
		{"explicit defaults", func(*Params) {}, true},
		{"position-based defaults", func(p *Params) { *p = PositionBasedParams() }, true},
		{"zero width", func(p *Params) { p.Width = 0 }, false},
		{"negative radius", func(p *Params) { p.Radius = -1 }, false},
		{"zero rest density", func(p *Params) { p.RestDensity = 0 }, false},
		{"nan gravity", func(p *Params) { p.Gravity.Y = nan() }, false},
		{"margin too wide", func(p *Params) { p.Margin = 240 }, false},
		{"negative iterations", func(p *Params) { p.Iterations = -1 }, false},
		{"no capacity", func(p *Params) { p.MaxParticles = 0 }, false},
		{"negative clamp epsilon", func(p *Params) { p.ClampEpsilon = -0.1 }, false},
		{"zero lambda epsilon", func(p *Params) { p.LambdaEpsilon = 0 }, false},
		{"nan lambda epsilon", func(p *Params) { p.LambdaEpsilon = nan() }, false},
		{"zero lambda epsilon without iterations", func(p *Params) { p.Iterations, p.LambdaEpsilon = 0, 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func nan() float64 { return math.NaN() }
