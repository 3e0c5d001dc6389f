// Package dayview builds one calendar day's ordered instance list from
// the vault, the recurrence engine, the alias resolver, and the running
// snapshot.
package dayview

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/riordanpawley/taskband/internal/domain"
	"github.com/riordanpawley/taskband/internal/services/routine"
	"github.com/riordanpawley/taskband/internal/services/tracker"
)

// NoteStore is the slice of the vault the builder needs.
type NoteStore interface {
	LoadDefinitions() ([]*domain.TaskDefinition, error)
	ExecutionsFor(date string) ([]domain.ExecutionRecord, error)
	AppendExecution(rec domain.ExecutionRecord) error
	MarkDeleted(date, key string) error
	DeletedFor(date string) (map[string]bool, error)
}

// NameResolver resolves historical task names to current ones.
type NameResolver interface {
	CurrentName(oldName string) (string, bool)
}

// Builder assembles the per-day view. It owns no state between calls;
// every Build reads current disk state, so a rebuild after midnight
// naturally rolls the day over.
type Builder struct {
	notes   NoteStore
	routine *routine.Engine
	aliases NameResolver
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// NewBuilder wires a day-view builder
func NewBuilder(notes NoteStore, eng *routine.Engine, aliases NameResolver, tr *tracker.Tracker, logger *slog.Logger) *Builder {
	return &Builder{
		notes:   notes,
		routine: eng,
		aliases: aliases,
		tracker: tr,
		logger:  logger,
	}
}

// Build returns the ordered instances for date ("YYYY-MM-DD").
//
// Flow: executed instances are recreated from the month log (reattached
// to current definitions through the alias chains), routine and plain
// tasks due on the date get virtual idle instances, order keys are
// allocated per band, the running snapshot is reconciled, and the whole
// set is sorted for display.
func (b *Builder) Build(date string) ([]*domain.TaskInstance, error) {
	defs, err := b.notes.LoadDefinitions()
	if err != nil {
		return nil, err
	}

	records, err := b.notes.ExecutionsFor(date)
	if err != nil {
		b.logger.Warn("month log unreadable, building without history", "date", date, "error", err)
	}
	deleted, err := b.notes.DeletedFor(date)
	if err != nil {
		b.logger.Warn("deleted-set unreadable", "date", date, "error", err)
		deleted = map[string]bool{}
	}

	byPath := make(map[string]*domain.TaskDefinition, len(defs))
	byTitle := make(map[string]*domain.TaskDefinition, len(defs))
	for _, def := range defs {
		byPath[def.Path] = def
		byTitle[def.Title] = def
	}

	var instances []*domain.TaskInstance
	executed := make(map[string]bool)

	for _, rec := range records {
		if deleted[rec.InstanceID] || deleted[rec.TaskPath] {
			continue
		}
		inst := b.instanceFromRecord(date, rec, byPath, byTitle)
		instances = append(instances, inst)
		executed[inst.Task.Path] = true
	}

	var fresh []*domain.TaskInstance
	for _, def := range defs {
		if !b.dueOn(date, def) || executed[def.Path] || deleted[def.Path] {
			continue
		}

		slot := domain.SlotNone
		if def.ScheduledTime != "" {
			slot = domain.ClassifySlot(def.ScheduledTime)
		}
		fresh = append(fresh, &domain.TaskInstance{
			Task:       def,
			InstanceID: uuid.NewString(),
			Date:       date,
			State:      domain.StateIdle,
			SlotKey:    slot,
		})
	}

	instances = append(instances, assignOrders(instances, fresh)...)

	b.tracker.Reconcile(instances, b.tracker.LoadSnapshot())

	return domain.SortInstances(instances, domain.SlotKeys()), nil
}

// instanceFromRecord rebuilds a done instance from its month-log record.
// The record carries the title active at execution time; the alias
// chains route it to the definition that owns the task today.
func (b *Builder) instanceFromRecord(date string, rec domain.ExecutionRecord, byPath, byTitle map[string]*domain.TaskDefinition) *domain.TaskInstance {
	def := byPath[rec.TaskPath]
	if def == nil {
		if current, ok := b.aliases.CurrentName(rec.Title); ok {
			def = byTitle[current]
		}
	}
	if def == nil {
		// Definition gone entirely; show the record under its stored name.
		def = &domain.TaskDefinition{Title: rec.Title, Path: rec.TaskPath}
	}

	slot := rec.SlotKey
	if slot == "" {
		slot = domain.SlotNone
	}

	inst := &domain.TaskInstance{
		Task:            def,
		InstanceID:      rec.InstanceID,
		Date:            date,
		State:           domain.StateDone,
		SlotKey:         slot,
		OriginalSlotKey: rec.OriginalSlotKey,
		Order:           rec.Order,
	}
	if t, err := time.Parse(time.RFC3339, rec.StartTime); err == nil {
		inst.StartTime = &t
	}
	if t, err := time.Parse(time.RFC3339, rec.StopTime); err == nil {
		inst.StopTime = &t
	}
	return inst
}

func (b *Builder) dueOn(date string, def *domain.TaskDefinition) bool {
	if !def.IsRoutine {
		return true
	}
	if def.Routine == nil {
		return false
	}
	return b.routine.IsDue(date, *def.Routine)
}

// assignOrders gives fresh instances order keys after any persisted
// siblings, in scheduled-time order (unscheduled last, then by title so
// builds are deterministic).
func assignOrders(existing, fresh []*domain.TaskInstance) []*domain.TaskInstance {
	sort.SliceStable(fresh, func(i, j int) bool {
		si, sj := fresh[i].Task.ScheduledTime, fresh[j].Task.ScheduledTime
		if si != sj {
			if si == "" {
				return false
			}
			if sj == "" {
				return true
			}
			return si < sj
		}
		return fresh[i].Task.Title < fresh[j].Task.Title
	})

	bands := make(map[domain.SlotKey][]*domain.TaskInstance)
	for _, key := range append([]domain.SlotKey{domain.SlotNone}, domain.SlotKeys()...) {
		bands[key] = domain.BandInstances(existing, key)
	}

	for _, inst := range fresh {
		siblings := bands[inst.SlotKey]
		order, _ := domain.AllocateOrder(len(siblings), siblings)
		inst.Order = order
		bands[inst.SlotKey] = append(siblings, inst)
	}
	return fresh
}

// Move relocates inst to targetIndex within the target band, allocating
// a fresh order key. When the key space at the insertion point is
// exhausted the band is renormalized and the allocation retried.
//
// Moving off the natural band records provenance in OriginalSlotKey;
// moving back home clears it again.
func (b *Builder) Move(instances []*domain.TaskInstance, inst *domain.TaskInstance, target domain.SlotKey, targetIndex int) {
	var siblings []*domain.TaskInstance
	for _, other := range domain.BandInstances(instances, target) {
		if other != inst {
			siblings = append(siblings, other)
		}
	}

	order, exhausted := domain.AllocateOrder(targetIndex, siblings)
	if exhausted {
		b.logger.Debug("order keys exhausted, renormalizing band", "band", target)
		domain.RenormalizeOrders(siblings)
		order, _ = domain.AllocateOrder(targetIndex, siblings)
	}

	if target != inst.SlotKey {
		switch {
		case inst.OriginalSlotKey == "":
			inst.OriginalSlotKey = inst.SlotKey
		case inst.OriginalSlotKey == target:
			inst.OriginalSlotKey = ""
		}
	}

	inst.SlotKey = target
	inst.Order = order
	inst.ManuallyPositioned = true
}

// RecordExecution writes inst's completed run into the month log.
func (b *Builder) RecordExecution(inst *domain.TaskInstance) error {
	rec := domain.ExecutionRecord{
		InstanceID:      inst.InstanceID,
		TaskPath:        inst.Task.Path,
		Title:           inst.Task.Title,
		Date:            inst.Date,
		SlotKey:         inst.SlotKey,
		OriginalSlotKey: inst.OriginalSlotKey,
		Order:           inst.Order,
	}
	if inst.StartTime != nil {
		rec.StartTime = inst.StartTime.Format(time.RFC3339)
	}
	if inst.StopTime != nil {
		rec.StopTime = inst.StopTime.Format(time.RFC3339)
	}
	return b.notes.AppendExecution(rec)
}

// Delete tombstones an occurrence. Executed instances carry stable IDs
// and are tombstoned by instance; virtual ones get fresh IDs every
// build, so their task path is tombstoned for the day instead.
func (b *Builder) Delete(inst *domain.TaskInstance) error {
	key := inst.Task.Path
	if inst.State == domain.StateDone {
		key = inst.InstanceID
	}
	return b.notes.MarkDeleted(inst.Date, key)
}
