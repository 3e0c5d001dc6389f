package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMonthOrdinal_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		ordinal MonthOrdinal
		want    string
	}{
		{"third week", 3, "3"},
		{"last week", OrdinalLast, `"last"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ordinal)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			var back MonthOrdinal
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if back != tt.ordinal {
				t.Errorf("round trip = %v, want %v", back, tt.ordinal)
			}
		})
	}
}

func TestMonthOrdinal_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MonthOrdinal
		wantErr bool
	}{
		{"number", "2", 2, false},
		{"last keyword", "last", OrdinalLast, false},
		{"quoted last", `"last"`, OrdinalLast, false},
		{"garbage", "sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got MonthOrdinal
			err := yaml.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInstanceState_Priority(t *testing.T) {
	if !(StateDone.Priority() < StateRunning.Priority() &&
		StateRunning.Priority() < StateIdle.Priority() &&
		StateIdle.Priority() < InstanceState("bogus").Priority()) {
		t.Error("state priorities out of order: want done < running < idle < unknown")
	}
}

func TestRoutineRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    RoutineRule
		wantErr bool
	}{
		{"daily", RoutineRule{Type: RoutineDaily, Start: "2025-09-01"}, false},
		{"weekly", RoutineRule{Type: RoutineWeekly, Start: "2025-09-01", Weekday: 1}, false},
		{"monthly last", RoutineRule{Type: RoutineMonthly, Start: "2025-01-01", Weekday: 5, Week: OrdinalLast}, false},
		{"moved date overrides missing start", RoutineRule{Type: RoutineDaily, MovedTargetDate: "2025-09-24"}, false},
		{"weekly weekday unset", RoutineRule{Type: RoutineWeekly, Start: "2025-09-01", Weekday: WeekdayUnset}, true},
		{"weekly weekday out of range", RoutineRule{Type: RoutineWeekly, Start: "2025-09-01", Weekday: 9}, true},
		{"monthly week unset", RoutineRule{Type: RoutineMonthly, Start: "2025-01-01", Weekday: 2}, true},
		{"monthly week out of range", RoutineRule{Type: RoutineMonthly, Start: "2025-01-01", Weekday: 2, Week: 6}, true},
		{"bad start", RoutineRule{Type: RoutineDaily, Start: "next tuesday"}, true},
		{"bad moved date", RoutineRule{Type: RoutineDaily, Start: "2025-09-01", MovedTargetDate: "tomorrow"}, true},
		{"unknown type", RoutineRule{Type: "fortnightly", Start: "2025-09-01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRule) {
					t.Fatalf("Validate() = %v, want ErrInvalidRule", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}
