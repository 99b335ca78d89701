package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"chargedash/pkg/auth"
)

var (
	// ErrMissing indicates no cache file exists. Fatal in offline mode.
	ErrMissing = errors.New("no cached data")
	// ErrMalformed indicates the cache file exists but could not be parsed.
	// A corrupt cache aborts the run rather than falling back to a fetch.
	ErrMalformed = errors.New("malformed cache file")
)

// Snapshot is the entire contents of the cache file: the session token and
// the raw payloads from the last successful fetch.
type Snapshot struct {
	Token     *auth.Token     `json:"token,omitempty"`
	V1        json.RawMessage `json:"v1,omitempty"`
	V2        json.RawMessage `json:"v2,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// HasData reports whether the snapshot holds at least one payload.
func (s *Snapshot) HasData() bool {
	return len(s.V1) > 0 || len(s.V2) > 0
}

// Import reads a Snapshot previously written with [Snapshot.Export].
func Import(r io.Reader) (*Snapshot, error) {
	var snapshot Snapshot
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return &snapshot, nil
}

// ImportFromFile reads a Snapshot from disk. A missing file maps to
// ErrMissing, a file that fails to parse to ErrMalformed.
func ImportFromFile(filename string) (*Snapshot, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, filename)
		}
		return nil, err
	}
	defer file.Close()

	return Import(file)
}

// Export writes a serialized Snapshot to w.
func (s *Snapshot) Export(w io.Writer) error {
	return json.NewEncoder(w).Encode(s)
}

// ExportToFile writes a Snapshot to disk, replacing any existing file. The
// file contains the OAuth token, so it is not group or world readable.
func (s *Snapshot) ExportToFile(filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return s.Export(file)
}
