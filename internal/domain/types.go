// Package domain contains core business types for the taskband application.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SlotKey identifies one of the four fixed daily time bands, or the
// SlotNone sentinel for instances that have no band yet.
type SlotKey string

const (
	SlotNone      SlotKey = "none"
	SlotEarly     SlotKey = "0:00-8:00"
	SlotMorning   SlotKey = "8:00-12:00"
	SlotAfternoon SlotKey = "12:00-16:00"
	SlotEvening   SlotKey = "16:00-0:00"
)

// SlotKeys returns the four bands in display order. SlotNone is not
// included; it always renders ahead of the first band.
func SlotKeys() []SlotKey {
	return []SlotKey{SlotEarly, SlotMorning, SlotAfternoon, SlotEvening}
}

// IsBand reports whether k is one of the four real bands.
func (k SlotKey) IsBand() bool {
	switch k {
	case SlotEarly, SlotMorning, SlotAfternoon, SlotEvening:
		return true
	default:
		return false
	}
}

func (k SlotKey) String() string {
	return string(k)
}

// InstanceState represents the execution state of a task instance
type InstanceState string

const (
	StateIdle    InstanceState = "idle"
	StateRunning InstanceState = "running"
	StateDone    InstanceState = "done"
)

// Priority returns the sort priority within a band. Done instances sort
// first, then running, then idle; unknown states sort after idle.
func (s InstanceState) Priority() int {
	switch s {
	case StateDone:
		return 0
	case StateRunning:
		return 1
	case StateIdle:
		return 2
	default:
		return 3
	}
}

func (s InstanceState) String() string {
	return string(s)
}

// RoutineType selects the recurrence shape of a routine rule
type RoutineType string

const (
	RoutineDaily   RoutineType = "daily"
	RoutineWeekly  RoutineType = "weekly"
	RoutineMonthly RoutineType = "monthly"
)

// WeekdayUnset marks a rule whose weekday was never configured.
const WeekdayUnset = -1

// MonthOrdinal selects which occurrence of a weekday within a month a
// monthly rule fires on: 1 through 5, or OrdinalLast for the final one.
// The zero value means unset.
type MonthOrdinal int

// OrdinalLast selects the last occurrence of the weekday in the month.
const OrdinalLast MonthOrdinal = -1

func (o MonthOrdinal) String() string {
	if o == OrdinalLast {
		return "last"
	}
	return strconv.Itoa(int(o))
}

// MarshalJSON writes ordinals as numbers and OrdinalLast as "last",
// matching the persisted document shape.
func (o MonthOrdinal) MarshalJSON() ([]byte, error) {
	if o == OrdinalLast {
		return json.Marshal("last")
	}
	return json.Marshal(int(o))
}

// UnmarshalJSON accepts either a number or the string "last".
func (o *MonthOrdinal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return o.fromString(s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("month ordinal: %w", err)
	}
	*o = MonthOrdinal(n)
	return nil
}

// UnmarshalYAML accepts either a number or the string "last" in note
// frontmatter.
func (o *MonthOrdinal) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		return o.fromString(s)
	}
	var n int
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("month ordinal: %w", err)
	}
	*o = MonthOrdinal(n)
	return nil
}

func (o *MonthOrdinal) fromString(s string) error {
	if s == "last" {
		*o = OrdinalLast
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("month ordinal: %q is neither a number nor \"last\"", s)
	}
	*o = MonthOrdinal(n)
	return nil
}

// RoutineRule is the recurrence specification attached to a routine task.
// Start is the rule's epoch as a "YYYY-MM-DD" date string; all elapsed
// arithmetic is measured from it.
type RoutineRule struct {
	Type     RoutineType `json:"type"`
	Interval int         `json:"interval"`
	Start    string      `json:"start"`
	Enabled  bool        `json:"enabled"`

	// Weekday applies to weekly and monthly rules (0 = Sunday).
	// WeekdayUnset when not configured.
	Weekday int `json:"weekday,omitempty"`

	// Week applies to monthly rules only.
	Week MonthOrdinal `json:"week,omitempty"`

	// MovedTargetDate pins one occurrence to an explicit date. While set,
	// the rule is due on exactly that date and dormant everywhere else.
	MovedTargetDate string `json:"movedTargetDate,omitempty"`
}

// Validate reports whether the rule is usable by the recurrence engine.
// The engine itself treats unusable rules as never-due; validation at
// note-load time is what surfaces the misconfiguration to the user.
func (r *RoutineRule) Validate() error {
	if r.MovedTargetDate != "" {
		if _, err := time.Parse("2006-01-02", r.MovedTargetDate); err != nil {
			return fmt.Errorf("%w: moved date %q is not YYYY-MM-DD", ErrInvalidRule, r.MovedTargetDate)
		}
		// A pinned occurrence fires regardless of the other fields.
		return nil
	}
	if _, err := time.Parse("2006-01-02", r.Start); err != nil {
		return fmt.Errorf("%w: start %q is not YYYY-MM-DD", ErrInvalidRule, r.Start)
	}

	switch r.Type {
	case RoutineDaily:
	case RoutineWeekly:
		if r.Weekday < 0 || r.Weekday > 6 {
			return fmt.Errorf("%w: weekly rule needs weekday 0-6, got %d", ErrInvalidRule, r.Weekday)
		}
	case RoutineMonthly:
		if r.Weekday < 0 || r.Weekday > 6 {
			return fmt.Errorf("%w: monthly rule needs weekday 0-6, got %d", ErrInvalidRule, r.Weekday)
		}
		if r.Week != OrdinalLast && (r.Week < 1 || r.Week > 5) {
			return fmt.Errorf("%w: monthly rule needs week 1-5 or \"last\", got %s", ErrInvalidRule, r.Week)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRule, r.Type)
	}
	return nil
}

// TaskDefinition is the host-owned identity of a task. Path is the stable
// identity key; Title changes across renames.
type TaskDefinition struct {
	Title         string
	Path          string
	Project       string
	IsRoutine     bool
	ScheduledTime string // "HH:MM", empty when unscheduled
	Routine       *RoutineRule
}

// TaskInstance is one occurrence of a task on one date.
//
// Invariant: exactly one SlotKey at any time; OriginalSlotKey is set iff
// the instance was relocated away from its natural band.
type TaskInstance struct {
	Task       *TaskDefinition
	InstanceID string
	Date       string // "YYYY-MM-DD"

	State     InstanceState
	StartTime *time.Time
	StopTime  *time.Time

	SlotKey         SlotKey
	OriginalSlotKey SlotKey
	Order           float64

	// ManuallyPositioned is a legacy placement flag. It is parsed and
	// persisted for round-trip fidelity but never consulted by the sorter;
	// the Order key alone encodes placement.
	ManuallyPositioned bool
}

// ExecutionRecord is one persisted execution of a task, stored in the
// month log under the name the task had at execution time.
type ExecutionRecord struct {
	InstanceID      string  `json:"instanceId"`
	TaskPath        string  `json:"taskPath"`
	Title           string  `json:"title"`
	Date            string  `json:"date"`
	StartTime       string  `json:"startTime,omitempty"`
	StopTime        string  `json:"stopTime,omitempty"`
	SlotKey         SlotKey `json:"slotKey"`
	OriginalSlotKey SlotKey `json:"originalSlotKey,omitempty"`
	Order           float64 `json:"order"`
}
