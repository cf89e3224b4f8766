package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

type ExportData struct {
	Run       RunMetadata          `json:"run"`
	Times     []float64            `json:"times"`
	Series    map[string][]float64 `json:"series"`
	Particles []ParticleRecord     `json:"particles"`
}

type ParticleRecord struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Density  float64 `json:"density"`
	Pressure float64 `json:"pressure"`
}

// ExportJSON writes a stored run as one JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	ps, err := s.LoadParticles(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:       *meta,
		Times:     series.Times,
		Series:    series.Values,
		Particles: make([]ParticleRecord, len(ps)),
	}
	for i, p := range ps {
		data.Particles[i] = ParticleRecord{
			X: p.Pos.X, Y: p.Pos.Y, VX: p.Vel.X, VY: p.Vel.Y,
			Density: p.Density, Pressure: p.Pressure,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV copies one of a run's tables to w: "metrics" or "particles".
func (s *Store) ExportCSV(runID, table string, w io.Writer) error {
	name := metricsFile
	if table == "particles" {
		name = particlesFile
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
