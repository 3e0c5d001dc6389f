package vault

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_CoalescesBurstIntoOneEvent(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := NewWatcher(dir, 50*time.Millisecond, logger)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "note.md"), []byte("x"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-w.Events:
	case <-time.After(2 * time.Second):
		t.Fatal("no event after vault writes")
	}

	// The burst was debounced; no second event should trail it.
	select {
	case <-w.Events:
		t.Fatal("burst produced more than one event")
	case <-time.After(150 * time.Millisecond):
	}
}
