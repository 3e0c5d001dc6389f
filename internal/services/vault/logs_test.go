package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riordanpawley/taskband/internal/domain"
	"github.com/riordanpawley/taskband/internal/services/tracker"
)

func record(id, date string) domain.ExecutionRecord {
	return domain.ExecutionRecord{
		InstanceID: id,
		TaskPath:   "tasks/a.md",
		Title:      "A",
		Date:       date,
		StartTime:  date + "T09:00:00Z",
		StopTime:   date + "T09:25:00Z",
		SlotKey:    domain.SlotMorning,
		Order:      100,
	}
}

func TestAppendExecution_AndReadBack(t *testing.T) {
	store, _ := testStore(t)

	require.NoError(t, store.AppendExecution(record("i1", "2025-09-22")))
	require.NoError(t, store.AppendExecution(record("i2", "2025-09-22")))
	require.NoError(t, store.AppendExecution(record("i3", "2025-09-23")))

	day, err := store.ExecutionsFor("2025-09-22")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "i1", day[0].InstanceID)
	assert.Equal(t, "i2", day[1].InstanceID)

	other, err := store.ExecutionsFor("2025-09-23")
	require.NoError(t, err)
	require.Len(t, other, 1)

	empty, err := store.ExecutionsFor("2025-10-01")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAppendExecution_UpsertsByInstanceID(t *testing.T) {
	store, _ := testStore(t)

	rec := record("i1", "2025-09-22")
	require.NoError(t, store.AppendExecution(rec))

	rec.StopTime = "2025-09-22T10:00:00Z"
	require.NoError(t, store.AppendExecution(rec))

	day, err := store.ExecutionsFor("2025-09-22")
	require.NoError(t, err)
	require.Len(t, day, 1, "re-writing an occurrence replaces, not duplicates")
	assert.Equal(t, "2025-09-22T10:00:00Z", day[0].StopTime)
}

func TestAppendExecution_SplitsByMonth(t *testing.T) {
	store, _ := testStore(t)

	require.NoError(t, store.AppendExecution(record("sep", "2025-09-30")))
	require.NoError(t, store.AppendExecution(record("oct", "2025-10-01")))

	_, err := os.Stat(filepath.Join(store.dataDir, "logs", "2025-09.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(store.dataDir, "logs", "2025-10.json"))
	assert.NoError(t, err)
}

func TestAppendExecution_RejectsBadDate(t *testing.T) {
	store, _ := testStore(t)
	err := store.AppendExecution(record("i1", "nope"))
	require.Error(t, err)
}

func TestDeletedSet(t *testing.T) {
	store, _ := testStore(t)

	require.NoError(t, store.MarkDeleted("2025-09-22", "tasks/a.md"))
	require.NoError(t, store.MarkDeleted("2025-09-22", "tasks/a.md"), "idempotent")
	require.NoError(t, store.MarkDeleted("2025-09-22", "instance-7"))

	set, err := store.DeletedFor("2025-09-22")
	require.NoError(t, err)
	assert.True(t, set["tasks/a.md"])
	assert.True(t, set["instance-7"])
	assert.Len(t, set, 2)

	other, err := store.DeletedFor("2025-09-23")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSnapshotFile_RoundTrip(t *testing.T) {
	store, _ := testStore(t)
	snap := store.Snapshot()

	records, err := snap.Load()
	require.NoError(t, err)
	assert.Empty(t, records, "missing file is an empty snapshot")

	want := []tracker.RunningRecord{{
		TaskPath:        "tasks/a.md",
		StartTime:       "2025-09-22T09:00:00Z",
		SlotKey:         domain.SlotMorning,
		OriginalSlotKey: domain.SlotNone,
		InstanceID:      "i1",
	}}
	require.NoError(t, snap.Save(want))

	got, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, snap.Save(nil))
	got, err = snap.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}
