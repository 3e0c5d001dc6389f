// Package app contains the main application model and TEA implementation.
package app

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/riordanpawley/taskband/internal/config"
	"github.com/riordanpawley/taskband/internal/domain"
	"github.com/riordanpawley/taskband/internal/services/routine"
	"github.com/riordanpawley/taskband/internal/types"
	"github.com/riordanpawley/taskband/internal/ui/board"
	"github.com/riordanpawley/taskband/internal/ui/styles"
	"github.com/riordanpawley/taskband/internal/ui/toast"
)

const toastLifetime = 4 * time.Second

// DayService builds and mutates one day's instance list.
type DayService interface {
	Build(date string) ([]*domain.TaskInstance, error)
	Move(instances []*domain.TaskInstance, inst *domain.TaskInstance, target domain.SlotKey, targetIndex int)
	RecordExecution(inst *domain.TaskInstance) error
	Delete(inst *domain.TaskInstance) error
}

// ExecutionTracker starts and stops instance execution.
type ExecutionTracker interface {
	Start(inst *domain.TaskInstance) error
	Stop(inst *domain.TaskInstance) error
}

// NoteWriter covers the vault mutations the UI triggers.
type NoteWriter interface {
	Create(title, scheduled string) (string, error)
	Rename(oldPath, newTitle string) (string, error)
	SetMovedTargetDate(path, date string) error
}

// AliasRecorder records rename history.
type AliasRecorder interface {
	AddAlias(newName, oldName string) error
}

// Model is the main application state
type Model struct {
	// Services
	day     DayService
	tracker ExecutionTracker
	notes   NoteWriter
	aliases AliasRecorder

	// Core data
	date      string
	instances []*domain.TaskInstance
	bands     []board.Band

	// Navigation
	cursor  board.Cursor
	grabbed bool

	// Whether the view rolls over to the new date at midnight
	followToday bool

	// Input state
	mode         types.Mode
	input        textinput.Model
	renameTarget *domain.TaskInstance

	// Toasts
	toasts []types.Toast

	// Vault change notifications, nil when watching is disabled
	vaultEvents <-chan struct{}

	// Terminal size
	width  int
	height int

	// Styles and rendering
	styles    *styles.Styles
	toastView *toast.Renderer

	// Configuration
	cfg *config.Config

	// Clock, injectable for tests
	clock domain.Clock

	// Logger
	logger *slog.Logger
}

// Deps bundles the services the model drives.
type Deps struct {
	Day         DayService
	Tracker     ExecutionTracker
	Notes       NoteWriter
	Aliases     AliasRecorder
	VaultEvents <-chan struct{}
	Clock       domain.Clock
	Logger      *slog.Logger

	// Date opens the view on a specific day instead of today.
	Date string
}

// New creates the application model showing today
func New(cfg *config.Config, deps Deps) Model {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	input := textinput.New()
	input.CharLimit = 120
	input.Width = 40

	today := deps.Clock().Format(routine.DateLayout)
	date := deps.Date
	if date == "" {
		date = today
	}

	s := styles.New()
	return Model{
		day:         deps.Day,
		tracker:     deps.Tracker,
		notes:       deps.Notes,
		aliases:     deps.Aliases,
		vaultEvents: deps.VaultEvents,
		date:        date,
		followToday: date == today,
		mode:        types.ModeNormal,
		input:       input,
		styles:      s,
		toastView:   toast.New(s),
		cfg:         cfg,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.vaultEvents != nil {
		cmds = append(cmds, waitForVaultChange(m.vaultEvents))
	}
	return tea.Batch(cmds...)
}

// refreshBands regroups the current instances into rendered columns.
func (m *Model) refreshBands() {
	visible := m.instances
	if !m.cfg.View.ShowDone {
		visible = make([]*domain.TaskInstance, 0, len(m.instances))
		for _, inst := range m.instances {
			if inst.State != domain.StateDone {
				visible = append(visible, inst)
			}
		}
	}
	m.bands = board.BuildBands(visible, false)
	m.clampCursor()
}

// refreshLocal re-sorts after an in-memory mutation (move, start,
// stop) and keeps the cursor on the touched instance.
func (m *Model) refreshLocal(inst *domain.TaskInstance) {
	m.instances = domain.SortInstances(m.instances, domain.SlotKeys())
	m.refreshBands()
	m.cursorOn(inst)
}

// selected returns the instance under the cursor, nil on empty bands.
func (m *Model) selected() *domain.TaskInstance {
	if m.cursor.Band >= len(m.bands) {
		return nil
	}
	band := m.bands[m.cursor.Band]
	if m.cursor.Instance >= len(band.Instances) {
		return nil
	}
	return band.Instances[m.cursor.Instance]
}

// runningInstance returns the instance currently executing, if any.
func (m *Model) runningInstance() *domain.TaskInstance {
	for _, inst := range m.instances {
		if inst.State == domain.StateRunning {
			return inst
		}
	}
	return nil
}

func (m *Model) clampCursor() {
	if len(m.bands) == 0 {
		m.cursor = board.Cursor{}
		return
	}
	if m.cursor.Band >= len(m.bands) {
		m.cursor.Band = len(m.bands) - 1
	}
	if m.cursor.Band < 0 {
		m.cursor.Band = 0
	}
	n := len(m.bands[m.cursor.Band].Instances)
	if m.cursor.Instance >= n {
		m.cursor.Instance = n - 1
	}
	if m.cursor.Instance < 0 {
		m.cursor.Instance = 0
	}
}

func (m *Model) pushToast(level types.ToastLevel, message string) {
	m.toasts = append(m.toasts, types.Toast{
		Level:   level,
		Message: message,
		Expires: m.clock().Add(toastLifetime),
	})
}

func (m *Model) expireToasts() {
	now := m.clock()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// cursorOn moves the cursor to inst after a rebuild or reorder.
func (m *Model) cursorOn(inst *domain.TaskInstance) {
	for bi, band := range m.bands {
		for ii, candidate := range band.Instances {
			if candidate.InstanceID == inst.InstanceID {
				m.cursor = board.Cursor{Band: bi, Instance: ii}
				return
			}
		}
	}
	m.clampCursor()
}
