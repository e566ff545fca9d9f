package normalize

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fset = token.NewFileSet()

func parseBody(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	file, err := parser.ParseFile(fset, "x.go", "package p\nfunc f() {\n"+src+"\n}\n", 0)
	require.NoError(t, err)
	return file.Decls[0].(*ast.FuncDecl).Body.List
}

func render(t *testing.T, stmts []ast.Stmt) string {
	t.Helper()
	var buf bytes.Buffer
	for _, st := range stmts {
		require.NoError(t, format.Node(&buf, fset, st))
		buf.WriteByte('\n')
	}
	return buf.String()
}

func TestBody(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{
			name:     "integer folding",
			src:      "x := 2 * 3 + 1",
			expected: "x := 7\n",
		},
		{
			name:     "negative result",
			src:      "x := 1 - 4",
			expected: "x := -3\n",
		},
		{
			name:     "truncating division",
			src:      "x := -7 / 2",
			expected: "x := -3\n",
		},
		{
			name:     "division by zero is kept",
			src:      "x := 1 / 0",
			expected: "x := 1 / 0\n",
		},
		{
			name:     "boolean identities",
			src:      "b := true && y\nc := y || false\nd := !!y",
			expected: "b := y\nc := y\nd := y\n",
		},
		{
			name:     "constant comparison",
			src:      "b := 3 < 2",
			expected: "b := false\n",
		},
		{
			name:     "if true keeps then branch",
			src:      "if 1 < 2 { x = 1 } else { x = 2 }",
			expected: "x = 1\n",
		},
		{
			name:     "if false without else disappears",
			src:      "if false { x = 1 }\ny = 2",
			expected: "y = 2\n",
		},
		{
			name:     "nested blocks are flattened",
			src:      "{ x = 1; { y = 2 } };;",
			expected: "x = 1\ny = 2\n",
		},
		{
			name:     "loop bodies are normalized in place",
			src:      "for i < 2+2 { if true { i++ } }",
			expected: "for i < 4 {\n\ti++\n}\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Body(parseBody(t, tt.src))
			assert.Equal(t, tt.expected, render(t, got))
		})
	}
}

func TestBodyDoesNotModifyInput(t *testing.T) {
	t.Parallel()
	stmts := parseBody(t, "x := 1 + 2\nif true { y = x }")
	before := render(t, stmts)

	_ = Body(stmts)

	assert.Equal(t, before, render(t, stmts))
}
