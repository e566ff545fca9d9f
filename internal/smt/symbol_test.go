package smt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbol(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		expected string
	}{
		{"x", "x"},
		{"count2", "count2"},
		{"a.balance", "a.balance"},
		{"and", "|and#|"},
		{"_lt", "|_lt#|"},
		{"result!", "result!"},
		{"größe", "|größe|"},
		{"x@1", "x@1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sym := Symbol(tt.name)
			assert.Equal(t, tt.expected, sym)
			assert.Equal(t, tt.name, Name(sym))
		})
	}
}

func TestStringLiteral(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in       string
		expected string
	}{
		{"plain", `"plain"`},
		{`a"b`, `"a""b"`},
		{`back\slash`, `"back\u{5c}slash"`},
		{"tab\there", `"tab\u{9}here"`},
		{"(paren)", `"(paren)"`},
		{"é", `"\u{e9}"`},
	}

	for _, tt := range tests {
		lit := StringLiteral(tt.in)
		assert.Equal(t, tt.expected, lit)

		back, err := UnquoteString(lit)
		require.NoError(t, err)
		assert.Equal(t, tt.in, back)
	}
}

func TestUnquoteStringErrors(t *testing.T) {
	t.Parallel()
	_, err := UnquoteString("abc")
	assert.Error(t, err)

	_, err = UnquoteString(`"a"b"`)
	assert.Error(t, err)
}

func TestPreambleDeclaresHelpers(t *testing.T) {
	t.Parallel()
	for _, helper := range []string{"_truthy", "_add", "_div", "_rem", "_lt", "_eq", "_not", "_len"} {
		assert.True(t, strings.Contains(Preamble, "(define-fun "+helper+" "), helper)
		assert.True(t, reserved[helper], helper)
	}
}

func TestParseAllNesting(t *testing.T) {
	t.Parallel()
	terms, err := ParseAll(`; comment ( ignored
(a (b "c)" |d e|) :key 1.5)`)
	require.NoError(t, err)
	require.Len(t, terms, 1)

	root := terms[0]
	require.True(t, root.IsList)
	require.Len(t, root.List, 4)
	assert.Equal(t, `(b "c)" |d e|)`, root.List[1].String())
	assert.Equal(t, TokenKeyword, root.List[2].Atom.Type)
	assert.Equal(t, TokenDecimal, root.List[3].Atom.Type)
}
