package app

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riordanpawley/taskband/internal/config"
	"github.com/riordanpawley/taskband/internal/domain"
	"github.com/riordanpawley/taskband/internal/types"
)

type fakeDay struct {
	instances []*domain.TaskInstance
	buildErr  error

	moveCalls []moveCall
	recorded  []*domain.TaskInstance
	deleted   []*domain.TaskInstance
}

type moveCall struct {
	inst   *domain.TaskInstance
	target domain.SlotKey
	index  int
}

func (f *fakeDay) Build(date string) ([]*domain.TaskInstance, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return f.instances, nil
}

func (f *fakeDay) Move(instances []*domain.TaskInstance, inst *domain.TaskInstance, target domain.SlotKey, targetIndex int) {
	f.moveCalls = append(f.moveCalls, moveCall{inst: inst, target: target, index: targetIndex})
	inst.SlotKey = target
	inst.Order = float64(targetIndex)*100 + 150
}

func (f *fakeDay) RecordExecution(inst *domain.TaskInstance) error {
	f.recorded = append(f.recorded, inst)
	return nil
}

func (f *fakeDay) Delete(inst *domain.TaskInstance) error {
	f.deleted = append(f.deleted, inst)
	return nil
}

type fakeTracker struct {
	startErr error
	stopped  []*domain.TaskInstance
}

func (f *fakeTracker) Start(inst *domain.TaskInstance) error {
	if f.startErr != nil {
		return f.startErr
	}
	now := time.Now()
	inst.State = domain.StateRunning
	inst.StartTime = &now
	return nil
}

func (f *fakeTracker) Stop(inst *domain.TaskInstance) error {
	now := time.Now()
	inst.State = domain.StateDone
	inst.StopTime = &now
	f.stopped = append(f.stopped, inst)
	return nil
}

type fakeNotes struct {
	created  []string
	renamed  map[string]string
	deferred map[string]string
}

func (f *fakeNotes) Create(title, scheduled string) (string, error) {
	f.created = append(f.created, title)
	return "/vault/" + title + ".md", nil
}

func (f *fakeNotes) Rename(oldPath, newTitle string) (string, error) {
	if f.renamed == nil {
		f.renamed = make(map[string]string)
	}
	f.renamed[oldPath] = newTitle
	return "/vault/" + newTitle + ".md", nil
}

func (f *fakeNotes) SetMovedTargetDate(path, date string) error {
	if f.deferred == nil {
		f.deferred = make(map[string]string)
	}
	f.deferred[path] = date
	return nil
}

type fakeAliases struct {
	addErr error
	added  [][2]string
}

func (f *fakeAliases) AddAlias(newName, oldName string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, [2]string{newName, oldName})
	return nil
}

func testClock() domain.Clock {
	return func() time.Time {
		return time.Date(2025, 9, 22, 10, 0, 0, 0, time.Local)
	}
}

func testInstance(title string, slot domain.SlotKey, order float64) *domain.TaskInstance {
	return &domain.TaskInstance{
		Task:       &domain.TaskDefinition{Title: title, Path: "/vault/" + title + ".md"},
		InstanceID: "id-" + title,
		Date:       "2025-09-22",
		State:      domain.StateIdle,
		SlotKey:    slot,
		Order:      order,
	}
}

// newTestModel builds a sized model with the day already loaded.
func newTestModel(t *testing.T, day *fakeDay, tracker *fakeTracker) Model {
	t.Helper()

	cfg := config.DefaultConfig()
	m := New(cfg, Deps{
		Day:     day,
		Tracker: tracker,
		Notes:   &fakeNotes{},
		Aliases: &fakeAliases{},
		Clock:   testClock(),
		Logger:  slog.Default(),
	})

	result, cmd := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = result.(Model)
	require.NotNil(t, cmd, "first resize should trigger a day build")

	result, _ = m.Update(cmd())
	return result.(Model)
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestInitialBuildPopulatesBands(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("write report", domain.SlotMorning, 100),
		testInstance("review notes", domain.SlotMorning, 200),
		testInstance("inbox zero", domain.SlotNone, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})

	// Unplaced column plus the four bands
	require.Len(t, m.bands, 5)
	assert.Equal(t, domain.SlotNone, m.bands[0].Key)
	assert.Len(t, m.bands[0].Instances, 1)

	view := m.View()
	assert.Contains(t, view, "write report")
	assert.Contains(t, view, "Unplaced")
}

func TestBuildErrorShowsToast(t *testing.T) {
	day := &fakeDay{buildErr: errors.New("vault unreadable")}
	m := newTestModel(t, day, &fakeTracker{})

	require.Len(t, m.toasts, 1)
	assert.Equal(t, types.ToastError, m.toasts[0].Level)
}

func TestNavigationKeys(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
		testInstance("b", domain.SlotMorning, 200),
		testInstance("c", domain.SlotAfternoon, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})

	// No unplaced column; morning band is index 1 of [early morning afternoon evening]
	require.Len(t, m.bands, 4)
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('j'))
	m = result.(Model)
	assert.Equal(t, 1, m.cursor.Instance)

	result, _ = m.handleNormalMode(key('k'))
	m = result.(Model)
	assert.Equal(t, 0, m.cursor.Instance)

	result, _ = m.handleNormalMode(key('l'))
	m = result.(Model)
	assert.Equal(t, 2, m.cursor.Band)

	result, _ = m.handleNormalMode(key('h'))
	m = result.(Model)
	assert.Equal(t, 1, m.cursor.Band)
}

func TestStartSelected(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
		testInstance("b", domain.SlotMorning, 200),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('s'))
	m = result.(Model)

	require.NotNil(t, m.runningInstance())
	assert.Equal(t, "a", m.runningInstance().Task.Title)

	// A second start on another task warns instead of starting
	m.cursorOn(day.instances[1])
	result, _ = m.handleNormalMode(key('s'))
	m = result.(Model)
	assert.Equal(t, domain.StateIdle, day.instances[1].State)

	found := false
	for _, toast := range m.toasts {
		if toast.Level == types.ToastWarning {
			found = true
		}
	}
	assert.True(t, found, "expected a warning toast")
}

func TestStopRecordsExecution(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
	}}
	tracker := &fakeTracker{}
	m := newTestModel(t, day, tracker)
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('s'))
	m = result.(Model)
	result, _ = m.handleNormalMode(key('S'))
	m = result.(Model)

	require.Len(t, tracker.stopped, 1)
	require.Len(t, day.recorded, 1)
	assert.Equal(t, domain.StateDone, day.instances[0].State)
}

func TestStopWithNothingRunning(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
	}}
	tracker := &fakeTracker{}
	m := newTestModel(t, day, tracker)

	result, _ := m.handleNormalMode(key('S'))
	m = result.(Model)

	assert.Empty(t, tracker.stopped)
	require.Len(t, m.toasts, 1)
	assert.Equal(t, types.ToastInfo, m.toasts[0].Level)
}

func TestDragWithinBand(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
		testInstance("b", domain.SlotMorning, 200),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('J'))
	m = result.(Model)

	require.Len(t, day.moveCalls, 1)
	assert.Equal(t, "a", day.moveCalls[0].inst.Task.Title)
	assert.Equal(t, domain.SlotMorning, day.moveCalls[0].target)
	assert.Equal(t, 1, day.moveCalls[0].index)

	// Cursor follows the moved instance
	assert.Equal(t, 1, m.cursor.Instance)
}

func TestDragAcrossBands(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
		testInstance("b", domain.SlotAfternoon, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('L'))
	m = result.(Model)

	require.Len(t, day.moveCalls, 1)
	assert.Equal(t, domain.SlotAfternoon, day.moveCalls[0].target)
	assert.Equal(t, 2, m.cursor.Band)
}

func TestDeleteSelected(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	m.cursor.Band = 1

	result, cmd := m.handleNormalMode(key('x'))
	m = result.(Model)

	require.Len(t, day.deleted, 1)
	require.NotNil(t, cmd, "delete should trigger a rebuild")
}

func TestNewTaskFlow(t *testing.T) {
	day := &fakeDay{}
	m := newTestModel(t, day, &fakeTracker{})
	notes := &fakeNotes{}
	m.notes = notes

	result, _ := m.handleNormalMode(key('n'))
	m = result.(Model)
	require.Equal(t, types.ModeNewTask, m.mode)

	m.input.SetValue("plan sprint")
	result, cmd := m.handleInputMode(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)

	assert.Equal(t, types.ModeNormal, m.mode)
	require.Len(t, notes.created, 1)
	assert.Equal(t, "plan sprint", notes.created[0])
	require.NotNil(t, cmd)
}

func TestRenameFlowRecordsAlias(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("old name", domain.SlotMorning, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	notes := &fakeNotes{}
	aliases := &fakeAliases{}
	m.notes = notes
	m.aliases = aliases
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('r'))
	m = result.(Model)
	require.Equal(t, types.ModeRename, m.mode)
	assert.Equal(t, "old name", m.input.Value())

	m.input.SetValue("new name")
	result, _ = m.handleInputMode(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)

	assert.Equal(t, "new name", notes.renamed["/vault/old name.md"])
	require.Len(t, aliases.added, 1)
	assert.Equal(t, [2]string{"new name", "old name"}, aliases.added[0])
}

func TestRenameAliasFailureWarnsButRenames(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("old name", domain.SlotMorning, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	notes := &fakeNotes{}
	m.notes = notes
	m.aliases = &fakeAliases{addErr: errors.New("disk full")}
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('r'))
	m = result.(Model)
	m.input.SetValue("new name")
	result, _ = m.handleInputMode(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)

	assert.Equal(t, "new name", notes.renamed["/vault/old name.md"])

	found := false
	for _, toast := range m.toasts {
		if toast.Level == types.ToastWarning {
			found = true
		}
	}
	assert.True(t, found, "expected a warning toast")
}

func TestRenameEscCancels(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("old name", domain.SlotMorning, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	notes := &fakeNotes{}
	m.notes = notes
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('r'))
	m = result.(Model)
	result, _ = m.handleInputMode(tea.KeyMsg{Type: tea.KeyEsc})
	m = result.(Model)

	assert.Equal(t, types.ModeNormal, m.mode)
	assert.Empty(t, notes.renamed)
}

func TestDeferRoutine(t *testing.T) {
	inst := testInstance("water plants", domain.SlotMorning, 100)
	inst.Task.IsRoutine = true
	day := &fakeDay{instances: []*domain.TaskInstance{inst}}
	m := newTestModel(t, day, &fakeTracker{})
	notes := &fakeNotes{}
	m.notes = notes
	m.cursor.Band = 1

	result, cmd := m.handleNormalMode(key('m'))
	m = result.(Model)

	assert.Equal(t, "2025-09-23", notes.deferred["/vault/water plants.md"])
	require.NotNil(t, cmd, "defer should trigger a rebuild")
}

func TestDeferNonRoutineRefused(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("one-off", domain.SlotMorning, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	notes := &fakeNotes{}
	m.notes = notes
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(key('m'))
	m = result.(Model)

	assert.Empty(t, notes.deferred)
	require.Len(t, m.toasts, 1)
	assert.Equal(t, types.ToastInfo, m.toasts[0].Level)
}

func TestDayNavigation(t *testing.T) {
	day := &fakeDay{}
	m := newTestModel(t, day, &fakeTracker{})
	require.Equal(t, "2025-09-22", m.date)
	require.True(t, m.followToday)

	result, cmd := m.handleNormalMode(key(']'))
	m = result.(Model)
	assert.Equal(t, "2025-09-23", m.date)
	assert.False(t, m.followToday)
	require.NotNil(t, cmd)

	result, _ = m.handleNormalMode(key('['))
	m = result.(Model)
	result, _ = m.handleNormalMode(key('['))
	m = result.(Model)
	assert.Equal(t, "2025-09-21", m.date)

	result, _ = m.handleNormalMode(key('t'))
	m = result.(Model)
	assert.Equal(t, "2025-09-22", m.date)
	assert.True(t, m.followToday)
}

func TestStaleBuildIgnored(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
	}}
	m := newTestModel(t, day, &fakeTracker{})

	// A build result for a day the user has already left is dropped
	result, _ := m.Update(dayBuiltMsg{date: "2025-09-20", instances: nil})
	m = result.(Model)
	assert.Len(t, m.instances, 1)
}

func TestVaultChangeTriggersRebuild(t *testing.T) {
	day := &fakeDay{}
	m := newTestModel(t, day, &fakeTracker{})
	day.instances = []*domain.TaskInstance{
		testInstance("fresh", domain.SlotMorning, 100),
	}

	result, cmd := m.Update(vaultChangedMsg{})
	m = result.(Model)
	require.NotNil(t, cmd)

	result, _ = m.Update(m.buildDayCmd()())
	m = result.(Model)
	assert.Len(t, m.instances, 1)
}

func TestGrabModeDragsWithJK(t *testing.T) {
	day := &fakeDay{instances: []*domain.TaskInstance{
		testInstance("a", domain.SlotMorning, 100),
		testInstance("b", domain.SlotMorning, 200),
	}}
	m := newTestModel(t, day, &fakeTracker{})
	m.cursor.Band = 1

	result, _ := m.handleNormalMode(tea.KeyMsg{Type: tea.KeySpace})
	m = result.(Model)
	require.True(t, m.grabbed)

	result, _ = m.handleNormalMode(key('j'))
	m = result.(Model)
	require.Len(t, day.moveCalls, 1)

	result, _ = m.handleNormalMode(tea.KeyMsg{Type: tea.KeyEsc})
	m = result.(Model)
	assert.False(t, m.grabbed)
}
