package domain

import (
	"strconv"
	"strings"
	"time"
)

// Clock supplies the current wall time. Injected so tests can pin it.
type Clock func() time.Time

// Band boundaries in minutes from midnight. The four bands are half-open
// on the hour and partition the 24-hour day: [0,8) [8,12) [12,16) [16,24).
const (
	earlyEnd     = 8 * 60
	morningEnd   = 12 * 60
	afternoonEnd = 16 * 60
)

// ClassifySlot maps a "HH:MM" clock time to its band. Malformed input is
// a caller error and is not defended here; unparseable components read
// as zero.
func ClassifySlot(hhmm string) SlotKey {
	hh, mm, _ := strings.Cut(hhmm, ":")
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	return classifyMinutes(h*60 + m)
}

// CurrentSlot classifies the live clock.
func CurrentSlot(now Clock) SlotKey {
	t := now()
	return classifyMinutes(t.Hour()*60 + t.Minute())
}

func classifyMinutes(total int) SlotKey {
	switch {
	case total < earlyEnd:
		return SlotEarly
	case total < morningEnd:
		return SlotMorning
	case total < afternoonEnd:
		return SlotAfternoon
	default:
		return SlotEvening
	}
}
