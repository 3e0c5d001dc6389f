package types

import "time"

// Toast represents a transient notification message
type Toast struct {
	Level   ToastLevel
	Message string
	Expires time.Time
}

// Expired reports whether the toast should no longer render
func (t Toast) Expired(now time.Time) bool {
	return now.After(t.Expires)
}

// ToastLevel indicates the severity of a toast
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastError
)
