// Package storage persists simulation runs under a data directory, one
// subdirectory per run: metadata.json plus a states.csv time series.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skysim/quadsim/internal/sim"
)

// Columns is the states.csv header. Loaders key on these names.
var Columns = []string{
	"time",
	"vx", "vy", "vz", "wyaw",
	"sp_x", "sp_y", "sp_z", "sp_yaw",
	"fx", "fy", "fz", "tz",
	"px", "py", "pz", "yaw",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one run and returns its id.
func (s *Store) Save(scenario string, cfg sim.Config, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", scenario, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scenario:  scenario,
		Timestamp: time.Now(),
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Metrics:   result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(Columns); err != nil {
		return "", err
	}
	for _, snap := range result.Snapshots {
		if err := w.Write(row(snap)); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func row(s sim.Snapshot) []string {
	vals := []float64{
		s.Time,
		s.LinVel.X, s.LinVel.Y, s.LinVel.Z, s.AngVel.Z,
		s.Setpoints.X, s.Setpoints.Y, s.Setpoints.Z, s.Setpoints.Yaw,
		s.Force.X, s.Force.Y, s.Force.Z, s.Torque.Z,
		s.Position.X, s.Position.Y, s.Position.Z, s.Yaw,
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return out
}

// List returns metadata for every run in the data directory.
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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	return runs, nil
}

// Load returns one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries returns the stored time series: the column header and one
// row of float64 values per tick.
func (s *Store) LoadSeries(runID string) ([]string, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("storage: empty series for %s", runID)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				// a skipped field would shift the row and misalign
				// every later column with the header
				return nil, nil, fmt.Errorf("storage: bad value %q in row %d of %s", field, i+1, runID)
			}
			vals[j] = v
		}
		rows = append(rows, vals)
	}

	return header, rows, nil
}
