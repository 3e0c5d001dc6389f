package tracker

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riordanpawley/taskband/internal/domain"
)

// memSnapshot is an in-memory SnapshotStore
type memSnapshot struct {
	records []RunningRecord
}

func (m *memSnapshot) Load() ([]RunningRecord, error) {
	return append([]RunningRecord{}, m.records...), nil
}

func (m *memSnapshot) Save(records []RunningRecord) error {
	m.records = append([]RunningRecord{}, records...)
	return nil
}

func fixedClock(hour, minute int) domain.Clock {
	return func() time.Time {
		return time.Date(2025, 9, 22, hour, minute, 0, 0, time.Local)
	}
}

func newTestTracker(clock domain.Clock) (*Tracker, *memSnapshot) {
	snap := &memSnapshot{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(clock, snap, logger), snap
}

func idleInstance(id, path string, slot domain.SlotKey) *domain.TaskInstance {
	return &domain.TaskInstance{
		Task:       &domain.TaskDefinition{Title: id, Path: path},
		InstanceID: id,
		Date:       "2025-09-22",
		State:      domain.StateIdle,
		SlotKey:    slot,
		Order:      100,
	}
}

func TestStart_MovesInstanceToCurrentBand(t *testing.T) {
	tr, snap := newTestTracker(fixedClock(11, 0))
	inst := idleInstance("a", "tasks/a.md", domain.SlotNone)

	require.NoError(t, tr.Start(inst))

	assert.Equal(t, domain.StateRunning, inst.State)
	assert.Equal(t, domain.SlotMorning, inst.SlotKey)
	assert.Equal(t, domain.SlotNone, inst.OriginalSlotKey)
	require.NotNil(t, inst.StartTime)
	assert.Equal(t, 11, inst.StartTime.Hour())

	require.Len(t, snap.records, 1)
	assert.Equal(t, "tasks/a.md", snap.records[0].TaskPath)
	assert.Equal(t, domain.SlotMorning, snap.records[0].SlotKey)
	assert.Equal(t, domain.SlotNone, snap.records[0].OriginalSlotKey)
}

func TestStart_InCurrentBandKeepsSlot(t *testing.T) {
	tr, _ := newTestTracker(fixedClock(13, 30))
	inst := idleInstance("a", "tasks/a.md", domain.SlotAfternoon)

	require.NoError(t, tr.Start(inst))

	assert.Equal(t, domain.SlotAfternoon, inst.SlotKey)
	assert.Equal(t, domain.SlotKey(""), inst.OriginalSlotKey, "no relocation, no provenance")
}

func TestStart_StaleScheduledBandIsOverridden(t *testing.T) {
	tr, _ := newTestTracker(fixedClock(17, 0))
	// Scheduled for the morning, actually started in the evening.
	inst := idleInstance("a", "tasks/a.md", domain.SlotMorning)

	require.NoError(t, tr.Start(inst))

	assert.Equal(t, domain.SlotEvening, inst.SlotKey)
	assert.Equal(t, domain.SlotMorning, inst.OriginalSlotKey)
}

func TestStop_KeepsExecutionBand(t *testing.T) {
	tr, snap := newTestTracker(fixedClock(11, 0))
	inst := idleInstance("a", "tasks/a.md", domain.SlotNone)

	require.NoError(t, tr.Start(inst))
	require.NoError(t, tr.Stop(inst))

	assert.Equal(t, domain.StateDone, inst.State)
	assert.Equal(t, domain.SlotMorning, inst.SlotKey, "slot is not reverted on stop")
	assert.Equal(t, domain.SlotNone, inst.OriginalSlotKey, "provenance retained")
	require.NotNil(t, inst.StopTime)
	assert.Empty(t, snap.records, "stopped instance leaves the snapshot")
}

func TestReconcile_ExactBandMatchPromotedInPlace(t *testing.T) {
	tr, _ := newTestTracker(fixedClock(9, 0))
	inst := idleInstance("fresh", "tasks/a.md", domain.SlotMorning)

	tr.Reconcile([]*domain.TaskInstance{inst}, []RunningRecord{{
		TaskPath:        "tasks/a.md",
		StartTime:       "2025-09-22T08:30:00Z",
		SlotKey:         domain.SlotMorning,
		OriginalSlotKey: domain.SlotNone,
		InstanceID:      "old",
	}})

	assert.Equal(t, domain.StateRunning, inst.State)
	assert.Equal(t, domain.SlotMorning, inst.SlotKey)
	assert.Equal(t, domain.SlotNone, inst.OriginalSlotKey)
	require.NotNil(t, inst.StartTime)
	assert.Equal(t, "2025-09-22T08:30:00Z", inst.StartTime.Format(time.RFC3339))
}

func TestReconcile_FallbackForcesExecutionBand(t *testing.T) {
	tr, _ := newTestTracker(fixedClock(9, 0))
	// Rebuilt from the definition's natural schedule: afternoon. The
	// snapshot says execution was happening in the morning band.
	inst := idleInstance("fresh", "tasks/a.md", domain.SlotAfternoon)

	tr.Reconcile([]*domain.TaskInstance{inst}, []RunningRecord{{
		TaskPath:   "tasks/a.md",
		StartTime:  "2025-09-22T08:30:00Z",
		SlotKey:    domain.SlotMorning,
		InstanceID: "old",
	}})

	assert.Equal(t, domain.StateRunning, inst.State)
	assert.Equal(t, domain.SlotMorning, inst.SlotKey, "execution band wins over schedule")
	assert.Equal(t, domain.SlotMorning, inst.OriginalSlotKey,
		"missing snapshot provenance defaults to the execution band")
}

func TestReconcile_PrefersExactBandMatch(t *testing.T) {
	tr, _ := newTestTracker(fixedClock(9, 0))
	wrongBand := idleInstance("wrong", "tasks/a.md", domain.SlotEvening)
	rightBand := idleInstance("right", "tasks/a.md", domain.SlotMorning)

	tr.Reconcile([]*domain.TaskInstance{wrongBand, rightBand}, []RunningRecord{{
		TaskPath:   "tasks/a.md",
		StartTime:  "2025-09-22T08:30:00Z",
		SlotKey:    domain.SlotMorning,
		InstanceID: "old",
	}})

	assert.Equal(t, domain.StateRunning, rightBand.State)
	assert.Equal(t, domain.StateIdle, wrongBand.State)
	assert.Equal(t, domain.SlotEvening, wrongBand.SlotKey)
}

func TestReconcile_NoMatchFabricatesNothing(t *testing.T) {
	tr, _ := newTestTracker(fixedClock(9, 0))
	inst := idleInstance("fresh", "tasks/other.md", domain.SlotMorning)
	instances := []*domain.TaskInstance{inst}

	tr.Reconcile(instances, []RunningRecord{{
		TaskPath:   "tasks/deleted.md",
		StartTime:  "2025-09-22T08:30:00Z",
		SlotKey:    domain.SlotMorning,
		InstanceID: "old",
	}})

	assert.Equal(t, domain.StateIdle, inst.State)
	assert.Len(t, instances, 1)
}

func TestStart_UpsertsSnapshotByInstanceID(t *testing.T) {
	tr, snap := newTestTracker(fixedClock(11, 0))
	a := idleInstance("a", "tasks/a.md", domain.SlotNone)
	b := idleInstance("b", "tasks/b.md", domain.SlotNone)

	require.NoError(t, tr.Start(a))
	require.NoError(t, tr.Start(b))
	require.NoError(t, tr.Start(a)) // restart of the same occurrence

	require.Len(t, snap.records, 2)
	assert.Equal(t, "a", snap.records[0].InstanceID)
	assert.Equal(t, "b", snap.records[1].InstanceID)
}
