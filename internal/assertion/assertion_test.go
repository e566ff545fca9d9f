package assertion

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseBody(t *testing.T, src string) (*token.FileSet, []ast.Stmt) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "test.go", "package main\nfunc f() {\n"+src+"\n}\n", 0)
	require.NoError(t, err)
	return fset, f.Decls[0].(*ast.FuncDecl).Body.List
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		src       string
		isAssert  bool
		kind      Kind
		malformed bool
	}{
		{name: "assert", src: "assert(x > 0)", isAssert: true, kind: Assert},
		{name: "requires", src: "requires(n >= 0)", isAssert: true, kind: Requires},
		{name: "ensures", src: "ensures(result > n)", isAssert: true, kind: Ensures},
		{name: "invariant", src: "invariant(i <= n)", isAssert: true, kind: Invariant},
		{name: "blank var form", src: "var _ = invariant(x == 1)", isAssert: true, kind: Invariant},
		{name: "plain call", src: "println(x)", isAssert: false},
		{name: "assignment", src: "x := 1", isAssert: false},
		{name: "selector call", src: "t.assert(x)", isAssert: false},
		{name: "no argument", src: "assert()", isAssert: true, kind: Assert, malformed: true},
		{name: "two arguments", src: "requires(a, b)", isAssert: true, kind: Requires, malformed: true},
		{name: "variadic", src: "ensures(xs...)", isAssert: true, kind: Ensures, malformed: true},
		{name: "function argument", src: "ensures(func() bool { return true })", isAssert: true, kind: Ensures, malformed: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fset, body := parseBody(t, tt.src)
			require.Len(t, body, 1)

			a, ok, err := Classify(fset, body[0])
			assert.Equal(t, tt.isAssert, ok)
			assert.Equal(t, tt.isAssert, IsAssertionLike(body[0]))
			if tt.malformed {
				var merr *MalformedError
				require.True(t, errors.As(err, &merr))
				assert.Equal(t, tt.kind, merr.Kind)
				assert.Equal(t, 3, merr.Pos.Line)
				return
			}
			require.NoError(t, err)
			if tt.isAssert {
				assert.Equal(t, tt.kind, a.Kind)
				assert.NotNil(t, a.Arg)
				assert.Equal(t, body[0], a.Node)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "assert", Assert.String())
	assert.Equal(t, "requires", Requires.String())
	assert.Equal(t, "ensures", Ensures.String())
	assert.Equal(t, "invariant", Invariant.String())
}
