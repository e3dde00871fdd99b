package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppscan/internal/logging"
)

func TestRunDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "a.c")
	other := filepath.Join(dir, "b.c")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []string{watched}, 50*time.Millisecond, logging.Discard(), func(path string) {
			calls <- path
		})
	}()

	// let the watcher register
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte("int x;"), 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))

	select {
	case path := <-calls:
		assert.Equal(t, watched, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case path := <-calls:
		t.Fatalf("unexpected second call for %s", path)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "a.c")
	err := Run(context.Background(), []string{missing}, time.Millisecond, logging.Discard(), func(string) {})
	assert.Error(t, err)
}
