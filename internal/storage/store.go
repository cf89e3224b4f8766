package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	metadataFile  = "metadata.json"
	metricsFile   = "metrics.csv"
	particlesFile = "particles.csv"
)

var particleHeader = []string{"x", "y", "vx", "vy", "density", "pressure"}

type Store struct {
	baseDir string
	logger  *log.Logger
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, logger: log.New(io.Discard)}
}

// WithLogger sets the logger and returns s.
func (s *Store) WithLogger(l *log.Logger) *Store {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Solver    string             `json:"solver"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Particles int                `json:"particles"`
	Rejected  int                `json:"rejected"`
	ElapsedMS int64              `json:"elapsed_ms"`
	Metrics   map[string]float64 `json:"metrics"`
	Config    *config.Config     `json:"config"`
}

// Save writes a run directory holding metadata, the metric series and the
// final particle state, and returns the run ID.
func (s *Store) Save(res *experiment.Result) (string, error) {
	now := time.Now()
	runID, runDir, err := s.makeRunDir(res.Solver, now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Solver:    res.Solver,
		Timestamp: now,
		Steps:     res.Steps,
		Particles: len(res.Final),
		Rejected:  res.Rejected,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Metrics:   make(map[string]float64, len(res.Metrics)),
		Config:    res.Config,
	}
	if res.Config != nil {
		meta.Dt = res.Config.Dt
	}
	for _, name := range res.Metrics {
		if v, ok := res.Last(name); ok {
			meta.Metrics[name] = v
		}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, metricsFile), func(w *csv.Writer) error {
		return writeSeries(w, res)
	}); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, particlesFile), func(w *csv.Writer) error {
		return writeParticles(w, res.Final)
	}); err != nil {
		return "", err
	}

	s.logger.Debug("run saved", "id", runID, "dir", runDir, "samples", len(res.Times))
	return runID, nil
}

func (s *Store) makeRunDir(solver string, now time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", solver, now.Unix())
	for n := 0; ; n++ {
		runID := base
		if n > 0 {
			runID = fmt.Sprintf("%s-%d", base, n)
		}
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, fill func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeSeries(w *csv.Writer, res *experiment.Result) error {
	header := append([]string{"time"}, res.Metrics...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, t := range res.Times {
		row := []string{formatFloat(t)}
		for _, name := range res.Metrics {
			v := 0.0
			if s := res.Series[name]; i < len(s) {
				v = s[i]
			}
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeParticles(w *csv.Writer, ps []sim.Particle) error {
	if err := w.Write(particleHeader); err != nil {
		return err
	}
	for _, p := range ps {
		row := []string{
			formatFloat(p.Pos.X), formatFloat(p.Pos.Y),
			formatFloat(p.Vel.X), formatFloat(p.Vel.Y),
			formatFloat(p.Density), formatFloat(p.Pressure),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			s.logger.Debug("skipping run", "dir", entry.Name(), "err", err)
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// Series is a stored metric table.
type Series struct {
	Names  []string
	Times  []float64
	Values map[string][]float64
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, metricsFile))
	if err != nil {
		return nil, err
	}

	out := &Series{Values: make(map[string][]float64)}
	if len(records) == 0 {
		return out, nil
	}
	out.Names = records[0][1:]

	for _, record := range records[1:] {
		if len(record) != len(out.Names)+1 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		out.Times = append(out.Times, t)
		for j, name := range out.Names {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				v = 0
			}
			out.Values[name] = append(out.Values[name], v)
		}
	}
	return out, nil
}

// LoadParticles restores the final particle state of a run. Only position,
// velocity, density and pressure are stored.
func (s *Store) LoadParticles(runID string) ([]sim.Particle, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, particlesFile))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Particle{}, nil
	}

	ps := make([]sim.Particle, 0, len(records)-1)
	for line, record := range records[1:] {
		if len(record) != len(particleHeader) {
			return nil, fmt.Errorf("run %s: particles line %d: %d fields", runID, line+2, len(record))
		}
		var v [6]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(record[j], 64); err != nil {
				return nil, fmt.Errorf("run %s: particles line %d: %w", runID, line+2, err)
			}
		}
		ps = append(ps, sim.Particle{
			Pos:      r2.Vec{X: v[0], Y: v[1]},
			Vel:      r2.Vec{X: v[2], Y: v[3]},
			Density:  v[4],
			Pressure: v[5],
		})
	}
	return ps, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
