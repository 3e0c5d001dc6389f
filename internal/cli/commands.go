// Package cli implements the non-interactive commands, for scripting
// the vault without opening the TUI.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/riordanpawley/taskband/internal/domain"
)

// DayBuilder builds one day's ordered instance list.
type DayBuilder interface {
	Build(date string) ([]*domain.TaskInstance, error)
}

// Dependencies holds the services needed for CLI commands
type Dependencies struct {
	Day    DayBuilder
	Logger *slog.Logger
}

// ListCommand prints the given day's tasks as a table, in the same
// band-by-band order the TUI shows.
func ListCommand(deps *Dependencies, date string) error {
	deps.Logger.Info("listing day", "date", date)

	instances, err := deps.Day.Build(date)
	if err != nil {
		return fmt.Errorf("failed to build day view: %w", err)
	}

	if len(instances) == 0 {
		fmt.Printf("No tasks for %s\n", date)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BAND\tSTATE\tTIME\tTITLE\tPROJECT")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			bandLabel(inst.SlotKey),
			inst.State,
			timeLabel(inst),
			inst.Task.Title,
			inst.Task.Project,
		)
	}
	return w.Flush()
}

// StatusCommand prints the currently running task, if any. It prints
// nothing when idle, so scripts can embed it in prompts.
func StatusCommand(deps *Dependencies, date string, now time.Time) error {
	instances, err := deps.Day.Build(date)
	if err != nil {
		return fmt.Errorf("failed to build day view: %w", err)
	}

	for _, inst := range instances {
		if inst.State == domain.StateRunning && inst.StartTime != nil {
			elapsed := now.Sub(*inst.StartTime).Round(time.Minute)
			fmt.Printf("%s (%s)\n", inst.Task.Title, elapsed)
			return nil
		}
	}
	return nil
}

func bandLabel(key domain.SlotKey) string {
	if key == domain.SlotNone {
		return "unplaced"
	}
	return string(key)
}

// timeLabel shows the actual execution window when there is one, the
// scheduled time otherwise.
func timeLabel(inst *domain.TaskInstance) string {
	if inst.StartTime != nil {
		start := inst.StartTime.Format("15:04")
		if inst.StopTime != nil {
			return start + "-" + inst.StopTime.Format("15:04")
		}
		return start + "-"
	}
	return inst.Task.ScheduledTime
}
