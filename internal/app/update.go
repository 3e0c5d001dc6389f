package app

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/riordanpawley/taskband/internal/domain"
	"github.com/riordanpawley/taskband/internal/services/routine"
	"github.com/riordanpawley/taskband/internal/types"
	"github.com/riordanpawley/taskband/internal/ui/board"
)

// Message types

type tickMsg time.Time

type vaultChangedMsg struct{}

type dayBuiltMsg struct {
	date      string
	instances []*domain.TaskInstance
	err       error
}

// Commands

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForVaultChange(events <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return vaultChangedMsg{}
	}
}

// buildDayCmd reloads the viewed day from the vault.
func (m Model) buildDayCmd() tea.Cmd {
	date := m.date
	return func() tea.Msg {
		instances, err := m.day.Build(date)
		return dayBuiltMsg{date: date, instances: instances, err: err}
	}
}

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.instances == nil {
			return m, m.buildDayCmd()
		}
		return m, nil

	case dayBuiltMsg:
		if msg.date != m.date {
			// Stale build from before a day switch
			return m, nil
		}
		if msg.err != nil {
			m.logger.Error("day view build failed", "date", msg.date, "error", msg.err)
			m.pushToast(types.ToastError, msg.err.Error())
			return m, nil
		}
		m.instances = msg.instances
		m.refreshBands()
		return m, nil

	case vaultChangedMsg:
		cmds := []tea.Cmd{m.buildDayCmd()}
		if m.vaultEvents != nil {
			cmds = append(cmds, waitForVaultChange(m.vaultEvents))
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		m.expireToasts()
		if today := m.clock().Format(routine.DateLayout); m.followToday && m.date != today {
			m.date = today
			return m, tea.Batch(m.buildDayCmd(), tickCmd())
		}
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey processes keyboard input based on current mode
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case types.ModeNewTask, types.ModeRename:
		return m.handleInputMode(msg)
	default:
		return m.handleNormalMode(msg)
	}
}

// handleNormalMode processes keyboard input in normal mode
func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "esc":
		m.grabbed = false
		return m, nil

	// Band navigation
	case "h", "left":
		if m.grabbed {
			return m.dragAcross(-1), nil
		}
		if m.cursor.Band > 0 {
			m.cursor.Band--
			m.cursor.Instance = 0
			m.clampCursor()
		}
		return m, nil

	case "l", "right":
		if m.grabbed {
			return m.dragAcross(1), nil
		}
		if m.cursor.Band < len(m.bands)-1 {
			m.cursor.Band++
			m.cursor.Instance = 0
			m.clampCursor()
		}
		return m, nil

	// Instance navigation
	case "j", "down":
		if m.grabbed {
			return m.dragWithin(1), nil
		}
		if m.cursor.Band < len(m.bands) && m.cursor.Instance < len(m.bands[m.cursor.Band].Instances)-1 {
			m.cursor.Instance++
		}
		return m, nil

	case "k", "up":
		if m.grabbed {
			return m.dragWithin(-1), nil
		}
		if m.cursor.Instance > 0 {
			m.cursor.Instance--
		}
		return m, nil

	// Drag
	case " ":
		if m.selected() != nil {
			m.grabbed = !m.grabbed
		}
		return m, nil

	case "J":
		return m.dragWithin(1), nil

	case "K":
		return m.dragWithin(-1), nil

	case "H":
		return m.dragAcross(-1), nil

	case "L":
		return m.dragAcross(1), nil

	// Execution
	case "s":
		return m.startSelected()

	case "S":
		return m.stopRunning()

	case "x":
		return m.deleteSelected()

	case "m":
		return m.deferSelected()

	// Task editing
	case "n":
		m.mode = types.ModeNewTask
		m.input.SetValue("")
		m.input.Placeholder = "task title"
		m.input.Focus()
		return m, nil

	case "r":
		inst := m.selected()
		if inst == nil {
			return m, nil
		}
		m.mode = types.ModeRename
		m.renameTarget = inst
		m.input.SetValue(inst.Task.Title)
		m.input.Placeholder = ""
		m.input.Focus()
		m.input.CursorEnd()
		return m, nil

	// Day navigation
	case "[":
		return m.gotoDay(m.shiftDate(-1))

	case "]":
		return m.gotoDay(m.shiftDate(1))

	case "t":
		return m.gotoDay(m.clock().Format(routine.DateLayout))
	}

	return m, nil
}

// handleInputMode processes keyboard input while the text overlay is open
func (m Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeInput(), nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		target := m.renameTarget
		next := m.closeInput()
		if value == "" {
			return next, nil
		}
		switch mode {
		case types.ModeNewTask:
			return next.createTask(value)
		case types.ModeRename:
			return next.renameTask(target, value)
		}
		return next, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) closeInput() Model {
	m.mode = types.ModeNormal
	m.renameTarget = nil
	m.input.Blur()
	m.input.SetValue("")
	return m
}

// dragWithin moves the selected instance one step within its band.
func (m Model) dragWithin(delta int) Model {
	inst := m.selected()
	if inst == nil {
		return m
	}

	band := m.bands[m.cursor.Band]
	target := m.cursor.Instance + delta
	if target < 0 || target >= len(band.Instances) {
		return m
	}

	// The target index is relative to the band without the moving
	// instance, which works out to the displayed target position.
	m.day.Move(m.instances, inst, band.Key, target)
	m.refreshLocal(inst)
	return m
}

// dragAcross moves the selected instance to an adjacent band, keeping
// its row where possible.
func (m Model) dragAcross(delta int) Model {
	inst := m.selected()
	if inst == nil {
		return m
	}

	targetBand := m.cursor.Band + delta
	if targetBand < 0 || targetBand >= len(m.bands) {
		return m
	}

	band := m.bands[targetBand]
	index := m.cursor.Instance
	if index > len(band.Instances) {
		index = len(band.Instances)
	}
	m.day.Move(m.instances, inst, band.Key, index)
	m.refreshLocal(inst)
	return m
}

func (m Model) startSelected() (tea.Model, tea.Cmd) {
	inst := m.selected()
	if inst == nil {
		return m, nil
	}
	if inst.State == domain.StateDone {
		m.pushToast(types.ToastWarning, "task already completed")
		return m, nil
	}
	if running := m.runningInstance(); running != nil && running != inst {
		m.pushToast(types.ToastWarning, fmt.Sprintf("already running: %s", running.Task.Title))
		return m, nil
	}

	if err := m.tracker.Start(inst); err != nil {
		m.pushToast(types.ToastError, fmt.Sprintf("start failed: %v", err))
		return m, nil
	}
	m.pushToast(types.ToastSuccess, fmt.Sprintf("started: %s", inst.Task.Title))
	m.refreshLocal(inst)
	return m, nil
}

func (m Model) stopRunning() (tea.Model, tea.Cmd) {
	inst := m.runningInstance()
	if inst == nil {
		m.pushToast(types.ToastInfo, "nothing running")
		return m, nil
	}

	if err := m.tracker.Stop(inst); err != nil {
		m.pushToast(types.ToastError, fmt.Sprintf("stop failed: %v", err))
		return m, nil
	}
	if err := m.day.RecordExecution(inst); err != nil {
		m.pushToast(types.ToastWarning, fmt.Sprintf("history not saved: %v", err))
	} else {
		m.pushToast(types.ToastSuccess, fmt.Sprintf("completed: %s", inst.Task.Title))
	}
	m.refreshLocal(inst)
	return m, nil
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	inst := m.selected()
	if inst == nil {
		return m, nil
	}

	if err := m.day.Delete(inst); err != nil {
		m.pushToast(types.ToastError, fmt.Sprintf("delete failed: %v", err))
		return m, nil
	}
	m.pushToast(types.ToastInfo, fmt.Sprintf("removed for today: %s", inst.Task.Title))
	return m, m.buildDayCmd()
}

// deferSelected pushes the selected routine occurrence to the next
// day via the note's moved-date override.
func (m Model) deferSelected() (tea.Model, tea.Cmd) {
	inst := m.selected()
	if inst == nil {
		return m, nil
	}
	if !inst.Task.IsRoutine {
		m.pushToast(types.ToastInfo, "only routine tasks can be deferred")
		return m, nil
	}
	if inst.State != domain.StateIdle {
		m.pushToast(types.ToastWarning, "cannot defer a started task")
		return m, nil
	}

	day, ok := routine.ParseDate(m.date)
	if !ok {
		return m, nil
	}
	target := day.AddDate(0, 0, 1).Format(routine.DateLayout)
	if err := m.notes.SetMovedTargetDate(inst.Task.Path, target); err != nil {
		m.pushToast(types.ToastError, fmt.Sprintf("defer failed: %v", err))
		return m, nil
	}
	m.pushToast(types.ToastSuccess, fmt.Sprintf("moved to %s: %s", target, inst.Task.Title))
	return m, m.buildDayCmd()
}

func (m Model) createTask(title string) (tea.Model, tea.Cmd) {
	if _, err := m.notes.Create(title, ""); err != nil {
		m.pushToast(types.ToastError, fmt.Sprintf("create failed: %v", err))
		return m, nil
	}
	m.pushToast(types.ToastSuccess, fmt.Sprintf("created: %s", title))
	return m, m.buildDayCmd()
}

func (m Model) renameTask(inst *domain.TaskInstance, newTitle string) (tea.Model, tea.Cmd) {
	if inst == nil {
		return m, nil
	}
	oldTitle := inst.Task.Title
	if newTitle == oldTitle {
		return m, nil
	}

	if _, err := m.notes.Rename(inst.Task.Path, newTitle); err != nil {
		m.pushToast(types.ToastError, fmt.Sprintf("rename failed: %v", err))
		return m, nil
	}
	// The note is renamed either way; a failed alias write only means
	// older history entries will not follow the new name.
	if err := m.aliases.AddAlias(newTitle, oldTitle); err != nil {
		m.logger.Warn("alias save failed", "old", oldTitle, "new", newTitle, "error", err)
		m.pushToast(types.ToastWarning, "renamed, but history link not saved")
	} else {
		m.pushToast(types.ToastSuccess, fmt.Sprintf("renamed to: %s", newTitle))
	}
	return m, m.buildDayCmd()
}

func (m Model) gotoDay(date string) (tea.Model, tea.Cmd) {
	m.date = date
	m.followToday = date == m.clock().Format(routine.DateLayout)
	m.grabbed = false
	m.cursor = board.Cursor{}
	return m, m.buildDayCmd()
}

// shiftDate returns the viewed date moved by days, falling back to
// today when the current value does not parse.
func (m Model) shiftDate(days int) string {
	day, ok := routine.ParseDate(m.date)
	if !ok {
		return m.clock().Format(routine.DateLayout)
	}
	return day.AddDate(0, 0, days).Format(routine.DateLayout)
}
