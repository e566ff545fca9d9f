package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/tverify/internal/types"
)

// stubTransport answers a query with the response of the first rule whose
// key occurs in it, and "unsat" otherwise.
type stubTransport struct {
	mu      sync.Mutex
	rules   map[string]string
	err     error
	queries []string
}

func (s *stubTransport) Submit(ctx context.Context, query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return "", s.err
	}
	for key, response := range s.rules {
		if strings.Contains(query, key) {
			return response, nil
		}
	}
	return "unsat\n", nil
}

func (s *stubTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

// createTempDir creates a temporary directory and returns its path.
// It also registers a cleanup function to remove the directory after the test.
func createTempDir(t testing.TB, prefix string) string {
	tempDir, err := os.MkdirTemp("", prefix)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return tempDir
}

const counterSource = `package counter

func inc(n int) int {
	requires(n > 0)
	ensures(result > n)
	return n + 1
}

func dec(n int) int {
	ensures(result > n)
	return n - 1
}
`

func newTestEngine(t *testing.T, transport *stubTransport) *Engine {
	t.Helper()
	engine, err := NewEngine(Options{Transport: transport, Concurrency: 2})
	require.NoError(t, err)
	return engine
}

func TestNewEngineRequiresTransport(t *testing.T) {
	t.Parallel()
	_, err := NewEngine(Options{})
	assert.ErrorIs(t, err, errNoTransport)
}

func TestRunSource(t *testing.T) {
	t.Parallel()
	transport := &stubTransport{rules: map[string]string{
		"(_sub n (VInt 1))": "sat\n((n (VInt 0)))\n",
	}}
	engine := newTestEngine(t, transport)

	reports, err := engine.RunSource(context.Background(), "counter.go", []byte(counterSource))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "inc: result > n", reports[0].Label)
	assert.Equal(t, tt.StatusProved, reports[0].Status)
	assert.Equal(t, "postcondition", reports[0].Kind)
	assert.Equal(t, 5, reports[0].Start.Line)
	assert.Equal(t, "counter.go", reports[0].Filename)

	assert.Equal(t, "dec: result > n", reports[1].Label)
	assert.Equal(t, tt.StatusRefuted, reports[1].Status)
	assert.Equal(t, map[string]any{"n": int64(0)}, reports[1].Model)

	assert.Equal(t, 2, transport.count())
}

func TestRunSourceFailuresAreIsolated(t *testing.T) {
	t.Parallel()
	src := `package p

func f(x int) int {
	ensures(result == 0)
	y := g(x)
	return y
}

func h(x int) {
	assert(1, 2)
	assert(x == x)
}

func k(x int) {
	assert(x > 0)
}
`
	transport := &stubTransport{rules: map[string]string{
		"(_gt x (VInt 0))": "(error \"line 1: unknown\")",
	}}
	engine := newTestEngine(t, transport)

	reports, err := engine.RunSource(context.Background(), "p.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, reports, 4)

	assert.Equal(t, tt.StatusMalformed, reports[0].Status)
	assert.Equal(t, "assert", reports[0].Kind)
	assert.Equal(t, 10, reports[0].Start.Line)

	assert.Equal(t, tt.StatusUnsupported, reports[1].Status)
	assert.Contains(t, reports[1].Message, "g(x)")

	assert.Equal(t, "assert: x == x", reports[2].Label)
	assert.Equal(t, tt.StatusProved, reports[2].Status)

	assert.Equal(t, tt.StatusError, reports[3].Status)
	assert.NotEmpty(t, reports[3].Message)

	// the unsupported obligation never reaches the solver
	assert.Equal(t, 2, transport.count())
}

func TestRunSourceTransportError(t *testing.T) {
	t.Parallel()
	transport := &stubTransport{err: errors.New("connection refused")}
	engine := newTestEngine(t, transport)

	reports, err := engine.RunSource(context.Background(), "counter.go", []byte(counterSource))
	require.NoError(t, err)
	for _, r := range reports {
		assert.Equal(t, tt.StatusError, r.Status)
		assert.Contains(t, r.Message, "connection refused")
	}
}

func TestRunSourceParseError(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, &stubTransport{})
	_, err := engine.RunSource(context.Background(), "", []byte("package p\nfunc {"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<source>")
}

func TestRunFile(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t, "engine_test")
	path := filepath.Join(dir, "counter.gno")
	require.NoError(t, os.WriteFile(path, []byte(counterSource), 0o644))

	transport := &stubTransport{}
	engine := newTestEngine(t, transport)

	reports, err := engine.Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, path, reports[0].Filename)

	_, err = engine.Run(context.Background(), filepath.Join(dir, "missing.go"))
	assert.Error(t, err)
}

func TestIgnorePath(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t, "engine_ignore")
	path := filepath.Join(dir, "vendor", "counter.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(counterSource), 0o644))

	transport := &stubTransport{}
	engine := newTestEngine(t, transport)
	engine.IgnorePath(filepath.Join(dir, "vendor"))
	engine.IgnorePath("*_test.go")

	reports, err := engine.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.True(t, engine.isIgnored("pkg/counter_test.go"))
	assert.False(t, engine.isIgnored("pkg/counter.go"))
	assert.Zero(t, transport.count())
}

type deadlineTransport struct {
	hasDeadline bool
}

func (d *deadlineTransport) Submit(ctx context.Context, query string) (string, error) {
	_, d.hasDeadline = ctx.Deadline()
	return "unsat", nil
}

func TestQueryTimeout(t *testing.T) {
	t.Parallel()
	transport := &deadlineTransport{}
	engine, err := NewEngine(Options{Transport: transport, QueryTimeout: time.Minute, Concurrency: 1})
	require.NoError(t, err)

	reports, err := engine.RunSource(context.Background(), "", []byte("package p\n\nfunc f(x int) { assert(x == x) }\n"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, transport.hasDeadline)
}

func TestPrepare(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, &stubTransport{})
	unit, err := engine.Prepare("counter.go", []byte(counterSource))
	require.NoError(t, err)
	require.Len(t, unit.Theorems, 2)
	assert.Empty(t, unit.Diagnostics)

	query, err := unit.Theorems[0].Encode()
	require.NoError(t, err)
	assert.Contains(t, query, "(check-sat)")
}
