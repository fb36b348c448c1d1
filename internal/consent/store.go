package consent

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Decision is the stored answer for one engine.
type Decision string

const (
	Granted    Decision = "granted"
	Refused    Decision = "denied"
	Restricted Decision = "restricted"
)

// Record holds the decisions of every engine the user has been asked about.
type Record struct {
	Engines map[string]Decision `json:"engines"`
}

type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// JSONStore persists the consent record in a single JSON file.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// DefaultPath returns the consent file under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "transcribe", "consent.json")
}

// Load reads the record or returns an empty one when the file is missing.
func (s *JSONStore) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{Engines: map[string]Decision{}}, nil
		}
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	if rec.Engines == nil {
		rec.Engines = map[string]Decision{}
	}
	return rec, nil
}

func (s *JSONStore) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}
