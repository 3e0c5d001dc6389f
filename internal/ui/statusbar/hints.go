package statusbar

import "github.com/riordanpawley/taskband/internal/types"

// Hints returns the keybinding hints for the given mode
func Hints(mode types.Mode) string {
	switch mode {
	case types.ModeNormal:
		return "h/l: bands  j/k: tasks  J/K: drag  s: start  S: stop  [/]: day  q: quit"
	case types.ModeNewTask:
		return "Enter: create  Esc: cancel"
	case types.ModeRename:
		return "Enter: rename  Esc: cancel"
	default:
		return ""
	}
}
