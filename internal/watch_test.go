package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/tverify/internal/types"
)

func TestWatcher(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t, "watch_test")
	engine := newTestEngine(t, &stubTransport{})

	type result struct {
		filename string
		reports  []tt.Report
	}
	results := make(chan result, 16)
	w, err := NewWatcher(engine, []string{dir}, func(filename string, reports []tt.Report) {
		results <- result{filename, reports}
	})
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	path := filepath.Join(dir, "counter.go")
	ignored := filepath.Join(dir, "notes.txt")

	// the watch may not be registered yet, so keep writing until it fires
	var got result
	require.Eventually(t, func() bool {
		_ = os.WriteFile(ignored, []byte("todo"), 0o644)
		_ = os.WriteFile(path, []byte(counterSource), 0o644)
		select {
		case got = <-results:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, path, got.filename)
	assert.Len(t, got.reports, 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestHasSourceExtension(t *testing.T) {
	t.Parallel()
	assert.True(t, hasSourceExtension("a/b.go"))
	assert.True(t, hasSourceExtension("b.gno"))
	assert.False(t, hasSourceExtension("go.mod"))
	assert.False(t, hasSourceExtension("notes.txt"))
}
