package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal"
	tt "github.com/gnolang/tverify/internal/types"
	"github.com/gnolang/tverify/verify"
)

type mockVerifyEngine struct {
	mock.Mock
}

func (m *mockVerifyEngine) Run(ctx context.Context, filePath string) ([]tt.Report, error) {
	args := m.Called(ctx, filePath)
	return args.Get(0).([]tt.Report), args.Error(1)
}

func (m *mockVerifyEngine) RunSource(ctx context.Context, filename string, source []byte) ([]tt.Report, error) {
	args := m.Called(ctx, filename, source)
	return args.Get(0).([]tt.Report), args.Error(1)
}

func (m *mockVerifyEngine) IgnorePath(path string) {
	m.Called(path)
}

type unusedTransport struct{}

func (unusedTransport) Submit(ctx context.Context, query string) (string, error) {
	panic("the solver must not be called")
}

const source = `package p

func inc(n int) int {
	requires(n > 0)
	ensures(result > n)
	return n + 1
}

func twice(n int) int {
	assert(n == n)
	return n * 2
}
`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "p.go")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestInitConfigurationFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")

	written, err := initConfigurationFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	config, err := verify.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, verify.DefaultConfig(), config)
}

func TestRunVerifyProcess(t *testing.T) {
	t.Parallel()
	path := writeSource(t)
	proved := tt.Report{Filename: path, Label: "inc: result > n", Status: tt.StatusProved, Start: token.Position{Line: 5, Column: 2}}
	refuted := tt.Report{
		Filename: path,
		Label:    "assert: n == n",
		Kind:     "assert",
		Status:   tt.StatusRefuted,
		Start:    token.Position{Line: 10, Column: 2},
		Model:    map[string]any{"n": int64(1)},
	}

	tests := []struct {
		name     string
		reports  []tt.Report
		opts     printOptions
		code     int
		contains []string
		excludes []string
	}{
		{
			name:     "all proved",
			reports:  []tt.Report{proved},
			code:     0,
			contains: []string{"1 obligation: 1 proved"},
			excludes: []string{"proved: inc"},
		},
		{
			name:     "show proved",
			reports:  []tt.Report{proved},
			opts:     printOptions{proved: true},
			code:     0,
			contains: []string{"proved: inc: result > n"},
		},
		{
			name:    "refuted",
			reports: []tt.Report{proved, refuted},
			code:    1,
			contains: []string{
				"refuted: assert: n == n",
				"10 | assert(n == n)",
				"= counterexample: n = 1",
				"2 obligations: 1 proved, 1 refuted",
			},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			engine := new(mockVerifyEngine)
			engine.On("Run", mock.Anything, path).Return(tc.reports, nil)

			var out bytes.Buffer
			code := runVerifyProcess(context.Background(), zap.NewNop(), engine, []string{path}, &out, tc.opts)

			assert.Equal(t, tc.code, code)
			for _, s := range tc.contains {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tc.excludes {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestRunVerifyProcessMissingPath(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	code := runVerifyProcess(context.Background(), zap.NewNop(), new(mockVerifyEngine), []string{"does/not/exist.go"}, &out, printOptions{})
	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
}

func TestPrintReportsJSON(t *testing.T) {
	t.Parallel()
	reports := []tt.Report{
		{Filename: "a.go", Label: "f: result > 0", Status: tt.StatusProved},
		{Filename: "b.go", Label: "assert: x > 0", Status: tt.StatusRefuted, Model: map[string]any{"x": int64(0)}},
	}

	var out bytes.Buffer
	printReports(zap.NewNop(), &out, reports, printOptions{json: true})

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded["a.go"], 1)
	assert.Equal(t, "PROVED", decoded["a.go"][0]["status"])
	assert.Equal(t, "REFUTED", decoded["b.go"][0]["status"])
	assert.Equal(t, map[string]any{"x": float64(0)}, decoded["b.go"][0]["model"])

	path := filepath.Join(t.TempDir(), "out.json")
	out.Reset()
	printReports(zap.NewNop(), &out, reports, printOptions{json: true, output: path})
	assert.Empty(t, out.String())
	assert.FileExists(t, path)
}

func TestPrintQueries(t *testing.T) {
	t.Parallel()
	path := writeSource(t)
	engine, err := internal.NewEngine(internal.Options{Transport: unusedTransport{}})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printQueries(engine, path, "inc", &out))
	assert.True(t, strings.HasPrefix(out.String(), "; inc: result > n\n"))
	assert.Equal(t, 1, strings.Count(out.String(), "(check-sat)"))

	out.Reset()
	require.NoError(t, printQueries(engine, path, "", &out))
	assert.Equal(t, 2, strings.Count(out.String(), "(check-sat)"))
	assert.Contains(t, out.String(), "; assert: n == n\n")

	assert.Error(t, printQueries(engine, path, "missing", &out))
}
