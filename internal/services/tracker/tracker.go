// Package tracker keeps an instance's band membership consistent with
// where execution actually happens, and restores in-flight instances
// after a process restart from a persisted running snapshot.
package tracker

import (
	"log/slog"
	"time"

	"github.com/riordanpawley/taskband/internal/domain"
)

// RunningRecord is one persisted in-flight instance, written when
// execution starts and removed when it stops.
type RunningRecord struct {
	TaskPath        string         `json:"taskPath"`
	StartTime       string         `json:"startTime"` // RFC 3339
	SlotKey         domain.SlotKey `json:"slotKey"`
	OriginalSlotKey domain.SlotKey `json:"originalSlotKey,omitempty"`
	InstanceID      string         `json:"instanceId"`
}

// SnapshotStore persists the running snapshot across restarts.
type SnapshotStore interface {
	Load() ([]RunningRecord, error)
	Save(records []RunningRecord) error
}

// Tracker mutates instance execution state. One mutator at a time by
// construction; every mutation sets all affected fields before returning
// so a subsequent sort always observes a consistent instance.
type Tracker struct {
	now    domain.Clock
	store  SnapshotStore
	logger *slog.Logger
}

// New creates a tracker with an injectable clock
func New(now domain.Clock, store SnapshotStore, logger *slog.Logger) *Tracker {
	return &Tracker{now: now, store: store, logger: logger}
}

// Start marks inst running in the band where execution is happening.
//
// If the instance sits in a different band than the live clock's - a
// real band, the "none" sentinel, or a stale band from a scheduled time
// - the current band is recorded over it and the previous value is kept
// as OriginalSlotKey provenance.
//
// The returned error is a snapshot persistence failure; the in-memory
// mutation has already fully happened.
func (t *Tracker) Start(inst *domain.TaskInstance) error {
	current := domain.CurrentSlot(t.now)
	if inst.SlotKey != current {
		inst.OriginalSlotKey = inst.SlotKey
		inst.SlotKey = current
	}

	now := t.now()
	inst.State = domain.StateRunning
	inst.StartTime = &now

	t.logger.Info("instance started",
		"task", taskPath(inst), "slot", inst.SlotKey, "from", inst.OriginalSlotKey)

	return t.persistRunning(inst)
}

// Stop marks inst done. The instance stays in the band where it was
// executed; OriginalSlotKey is retained as provenance, never reverted.
func (t *Tracker) Stop(inst *domain.TaskInstance) error {
	now := t.now()
	inst.State = domain.StateDone
	inst.StopTime = &now

	t.logger.Info("instance stopped", "task", taskPath(inst), "slot", inst.SlotKey)

	return t.removeRunning(inst.InstanceID)
}

// Reconcile restores running state onto freshly rebuilt idle instances
// after a restart.
//
// For each snapshot record it first looks for an idle instance whose
// task path matches and whose freshly computed band already equals the
// snapshot's; failing that, any idle instance with a matching path gets
// its band forced to the snapshot's. Either way the match is promoted
// back to running. An instance executing in band X before the restart is
// therefore still shown in band X, never silently reverted to its
// nominal scheduled band.
//
// A record with no matching idle instance is skipped: the occurrence is
// assumed completed or deleted, and nothing is fabricated.
func (t *Tracker) Reconcile(instances []*domain.TaskInstance, records []RunningRecord) {
	for _, rec := range records {
		inst := matchExactBand(instances, rec)
		if inst == nil {
			inst = matchAnyBand(instances, rec)
			if inst != nil {
				inst.SlotKey = rec.SlotKey
			}
		}
		if inst == nil {
			t.logger.Debug("no idle instance for running snapshot record, skipping",
				"task", rec.TaskPath, "slot", rec.SlotKey)
			continue
		}

		promote(inst, rec)
		t.logger.Info("restored running instance", "task", rec.TaskPath, "slot", rec.SlotKey)
	}
}

// LoadSnapshot reads the persisted running records. A load failure is
// logged and treated as an empty snapshot so the day view still builds.
func (t *Tracker) LoadSnapshot() []RunningRecord {
	records, err := t.store.Load()
	if err != nil {
		t.logger.Warn("running snapshot unreadable, starting clean", "error", err)
		return nil
	}
	return records
}

func matchExactBand(instances []*domain.TaskInstance, rec RunningRecord) *domain.TaskInstance {
	for _, inst := range instances {
		if inst.State == domain.StateIdle && taskPath(inst) == rec.TaskPath && inst.SlotKey == rec.SlotKey {
			return inst
		}
	}
	return nil
}

func matchAnyBand(instances []*domain.TaskInstance, rec RunningRecord) *domain.TaskInstance {
	for _, inst := range instances {
		if inst.State == domain.StateIdle && taskPath(inst) == rec.TaskPath {
			return inst
		}
	}
	return nil
}

func promote(inst *domain.TaskInstance, rec RunningRecord) {
	inst.State = domain.StateRunning
	if start, err := time.Parse(time.RFC3339, rec.StartTime); err == nil {
		inst.StartTime = &start
	}
	if rec.OriginalSlotKey != "" {
		inst.OriginalSlotKey = rec.OriginalSlotKey
	} else {
		inst.OriginalSlotKey = rec.SlotKey
	}
}

// persistRunning upserts inst's record in the snapshot by instance ID.
func (t *Tracker) persistRunning(inst *domain.TaskInstance) error {
	records := t.LoadSnapshot()

	rec := RunningRecord{
		TaskPath:        taskPath(inst),
		StartTime:       inst.StartTime.Format(time.RFC3339),
		SlotKey:         inst.SlotKey,
		OriginalSlotKey: inst.OriginalSlotKey,
		InstanceID:      inst.InstanceID,
	}

	replaced := false
	for i := range records {
		if records[i].InstanceID == rec.InstanceID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	return t.store.Save(records)
}

func (t *Tracker) removeRunning(instanceID string) error {
	records := t.LoadSnapshot()

	kept := records[:0]
	for _, rec := range records {
		if rec.InstanceID != instanceID {
			kept = append(kept, rec)
		}
	}
	return t.store.Save(kept)
}

func taskPath(inst *domain.TaskInstance) string {
	if inst.Task == nil {
		return ""
	}
	return inst.Task.Path
}
