package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/riordanpawley/taskband/internal/domain"
)

// Month execution logs live at <dataDir>/logs/YYYY-MM.json as a mapping
// from date to that day's execution records.

// AppendExecution upserts a record into its month log, keyed by instance
// ID within the record's date. Writing the same occurrence twice (a
// re-stop after an edit) replaces the earlier record instead of
// duplicating it.
func (s *Store) AppendExecution(rec domain.ExecutionRecord) error {
	if len(rec.Date) < 7 {
		return &domain.VaultError{Op: "log", Err: fmt.Errorf("bad record date %q", rec.Date)}
	}

	path := s.monthLogPath(rec.Date)
	byDate, err := readMonthLog(path)
	if err != nil {
		return &domain.VaultError{Op: "log", Path: path, Err: err}
	}

	day := byDate[rec.Date]
	replaced := false
	for i := range day {
		if day[i].InstanceID == rec.InstanceID {
			day[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		day = append(day, rec)
	}
	byDate[rec.Date] = day

	if err := writeJSON(path, byDate); err != nil {
		return &domain.VaultError{Op: "log", Path: path, Err: err}
	}
	return nil
}

// ExecutionsFor returns the execution records stored for one date.
func (s *Store) ExecutionsFor(date string) ([]domain.ExecutionRecord, error) {
	if len(date) < 7 {
		return nil, &domain.VaultError{Op: "log", Err: fmt.Errorf("bad date %q", date)}
	}

	path := s.monthLogPath(date)
	byDate, err := readMonthLog(path)
	if err != nil {
		return nil, &domain.VaultError{Op: "log", Path: path, Err: err}
	}
	return byDate[date], nil
}

// MarkDeleted tombstones an occurrence so the day view stops recreating
// it. Keys are task paths or instance IDs; the deleted-set is external
// to the ordering core and only consulted at view build time.
func (s *Store) MarkDeleted(date, key string) error {
	path := s.deletedPath()
	byDate, err := readDeletedSet(path)
	if err != nil {
		return &domain.VaultError{Op: "tombstone", Path: path, Err: err}
	}

	for _, existing := range byDate[date] {
		if existing == key {
			return nil
		}
	}
	byDate[date] = append(byDate[date], key)

	if err := writeJSON(path, byDate); err != nil {
		return &domain.VaultError{Op: "tombstone", Path: path, Err: err}
	}
	return nil
}

// DeletedFor returns the tombstoned keys for one date as a set.
func (s *Store) DeletedFor(date string) (map[string]bool, error) {
	byDate, err := readDeletedSet(s.deletedPath())
	if err != nil {
		return nil, &domain.VaultError{Op: "tombstone", Path: s.deletedPath(), Err: err}
	}

	set := make(map[string]bool, len(byDate[date]))
	for _, key := range byDate[date] {
		set[key] = true
	}
	return set, nil
}

func (s *Store) monthLogPath(date string) string {
	return filepath.Join(s.dataDir, "logs", date[:7]+".json")
}

func (s *Store) deletedPath() string {
	return filepath.Join(s.dataDir, "deleted.json")
}

func readMonthLog(path string) (map[string][]domain.ExecutionRecord, error) {
	byDate := make(map[string][]domain.ExecutionRecord)
	if err := readJSON(path, &byDate); err != nil {
		return nil, err
	}
	return byDate, nil
}

func readDeletedSet(path string) (map[string][]string, error) {
	byDate := make(map[string][]string)
	if err := readJSON(path, &byDate); err != nil {
		return nil, err
	}
	return byDate, nil
}

// readJSON decodes path into v, treating a missing file as empty.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes v to path atomically as pretty-printed JSON.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return atomic.WriteFile(path, bytes.NewReader(data))
}
