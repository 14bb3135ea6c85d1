// Package session defines the persisted record of an exploration run and
// its storage on disk. Records are plain JSON files; the miner consumes
// them offline.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"reclaim/internal/logging"
	"reclaim/internal/transcript"
)

// Execution is one strategy's attempt history inside a run.
type Execution struct {
	Strategy   string              `json:"strategy"`
	SpaceFreed float64             `json:"space_freed"`
	Succeeded  bool                `json:"succeeded"`
	Attempts   int                 `json:"attempts"`
	Transcript []transcript.Tagged `json:"transcript"`
}

// Record is one full exploration run: the strategy-phase transcript plus
// every per-strategy execution and the aggregate space freed.
type Record struct {
	ID          string              `json:"id"`
	StartedAt   time.Time           `json:"started_at"`
	Exploration []transcript.Tagged `json:"exploration"`
	Executions  []Execution         `json:"executions"`
	SpaceFreed  float64             `json:"space_freed"`
}

// NewRecord starts a record with a fresh ID.
func NewRecord() *Record {
	return &Record{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// Store reads and writes records under a directory.
type Store struct {
	dir string
}

// NewStore ensures the directory exists and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("session: store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the record as an indented JSON file named by its ID.
func (s *Store) Save(r *Record) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("session: marshal record: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("run_%s.json", r.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("session: write record: %w", err)
	}

	logging.Get(logging.CategorySession).Infow("record saved",
		"path", path, "executions", len(r.Executions), "space_freed_mb", r.SpaceFreed)
	return path, nil
}

// LoadAll reads every record in the store, sorted by file name so downstream
// consumers see a deterministic order. A file that fails to parse is an
// error: malformed records should fail at the load boundary.
func (s *Store) LoadAll() ([]*Record, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "run_*.json"))
	if err != nil {
		return nil, fmt.Errorf("session: list records: %w", err)
	}
	sort.Strings(paths)

	records := make([]*Record, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("session: read %s: %w", path, err)
		}
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("session: parse %s: %w", path, err)
		}
		records = append(records, &r)
	}
	return records, nil
}
