package vault

import (
	"path/filepath"

	"github.com/riordanpawley/taskband/internal/services/tracker"
)

// SnapshotFile persists the running snapshot at <dataDir>/running.json.
// It satisfies tracker.SnapshotStore.
type SnapshotFile struct {
	path string
}

// Snapshot returns the store for this vault's running snapshot
func (s *Store) Snapshot() *SnapshotFile {
	return &SnapshotFile{path: filepath.Join(s.dataDir, "running.json")}
}

// Load reads the persisted running records; a missing file is an empty
// snapshot.
func (f *SnapshotFile) Load() ([]tracker.RunningRecord, error) {
	var records []tracker.RunningRecord
	if err := readJSON(f.path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Save writes the running records atomically.
func (f *SnapshotFile) Save(records []tracker.RunningRecord) error {
	if records == nil {
		records = []tracker.RunningRecord{}
	}
	return writeJSON(f.path, records)
}
