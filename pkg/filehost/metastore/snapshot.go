package metastore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tendant/simple-filehost/pkg/filehost"
)

// entry is one snapshot element. It is written as an [id, record] pair; a
// bare record object is also accepted on load.
type entry struct {
	ID     string
	Record filehost.Record
}

func (e entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.ID, e.Record})
}

func (e *entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("snapshot entry has %d elements, want 2", len(pair))
		}
		if err := json.Unmarshal(pair[0], &e.ID); err != nil {
			return fmt.Errorf("snapshot entry id: %w", err)
		}
		record, err := decodeRecord(pair[1])
		if err != nil {
			return err
		}
		e.Record = record
		return nil
	}

	record, err := decodeRecord(trimmed)
	if err != nil {
		return err
	}
	if record.ID == "" {
		return errors.New("snapshot record has no id")
	}
	e.ID = record.ID
	e.Record = record
	return nil
}

// storedRecord is the on-disk shape of a record. Dates stay strings here
// because edited records may hold a date-only value such as "2024-05-01".
type storedRecord struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
	Size       int64  `json:"size"`
	UploadDate string `json:"uploadDate"`
	EditDate   string `json:"editDate"`
}

func decodeRecord(data []byte) (filehost.Record, error) {
	var raw storedRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return filehost.Record{}, err
	}
	record := filehost.Record{
		ID:       raw.ID,
		Filename: raw.Filename,
		Filepath: raw.Filepath,
		Size:     raw.Size,
	}
	var err error
	if record.UploadDate, err = decodeDate(raw.UploadDate); err != nil {
		return filehost.Record{}, fmt.Errorf("uploadDate: %w", err)
	}
	if record.EditDate, err = decodeDate(raw.EditDate); err != nil {
		return filehost.Record{}, fmt.Errorf("editDate: %w", err)
	}
	return record, nil
}

func decodeDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return filehost.ParseDate(raw)
}

// Load replaces the contents with the snapshot on disk and returns the number
// of records restored. A missing, empty or unreadable snapshot leaves the
// store empty, and an unreadable entry is skipped; both are logged and never
// returned.
func (s *Store) Load() int {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("No metadata snapshot found, starting empty", "path", s.path)
		} else {
			s.logger.Error("Error loading metadata snapshot", "path", s.path, "error", err)
		}
		s.replace(nil)
		return 0
	}

	if len(bytes.TrimSpace(data)) == 0 {
		s.logger.Warn("Nothing to load from metadata snapshot", "path", s.path)
		s.replace(nil)
		return 0
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Error("Error parsing metadata snapshot", "path", s.path, "error", err)
		s.replace(nil)
		return 0
	}

	// One unreadable entry must not cost the rest of the file.
	entries := make([]entry, 0, len(items))
	for i, item := range items {
		var e entry
		if err := json.Unmarshal(item, &e); err != nil {
			s.logger.Warn("Skipping unreadable snapshot entry", "path", s.path, "index", i, "error", err)
			continue
		}
		entries = append(entries, e)
	}

	s.replace(entries)
	n := s.Len()
	s.logger.Info("Metadata snapshot loaded", "path", s.path, "records", n)
	return n
}

// writeSnapshot serializes the current contents and replaces the snapshot
// file through a rename so readers never see a half written file.
func (s *Store) writeSnapshot() error {
	data, err := json.Marshal(s.entries())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
