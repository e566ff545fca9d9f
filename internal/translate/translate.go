// Package translate encodes Go expressions and statements as SMT-LIB terms
// over the opaque value sort declared by the preamble.
//
// Statements are translated in single-assignment form: every assignment
// declares a fresh version of the assigned name, so a theorem's goal reads
// the state reached after its body while its assumptions read the initial
// state.
package translate

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/gnolang/tverify/internal/normalize"
	"github.com/gnolang/tverify/internal/smt"
	"github.com/gnolang/tverify/internal/theorem"
)

// ResultVar is the name bound to a function's returned value. It cannot
// clash with a Go identifier.
const ResultVar = "result!"

// UnsupportedError reports a construct the translator has no encoding for.
type UnsupportedError struct {
	Pos  token.Position
	What string
}

func (e *UnsupportedError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: unsupported %s", e.Pos, e.What)
	}
	return "unsupported " + e.What
}

// Options tunes translation.
type Options struct {
	// Normalize simplifies bodies before translating them.
	Normalize bool
	// LoopInvariants holds, by the position of the loop statement, every
	// invariant a loop must maintain, including those of enclosing scopes.
	// A loop missing from the map is summarized by the invariants written
	// in its own body.
	LoopInvariants map[token.Pos][]ast.Expr
}

// valueKind is the primitive kind a name is known to hold.
type valueKind int

const (
	kindUnknown valueKind = iota
	kindInt
	kindUint
	kindBool
	kindString
	kindConflict
)

// Translator holds the per-file knowledge shared by all sessions: the
// primitive types of declared names.
type Translator struct {
	fset  *token.FileSet
	opts  Options
	kinds map[string]valueKind
}

var _ theorem.Translator = (*Translator)(nil)

// New creates a translator for file. Both fset and file may be nil.
func New(fset *token.FileSet, file *ast.File, opts Options) *Translator {
	t := &Translator{
		fset:  fset,
		opts:  opts,
		kinds: make(map[string]valueKind),
	}
	if file != nil {
		t.collectKinds(file)
	}
	return t
}

func (t *Translator) NewSession(vars []string) theorem.Session {
	return newSession(t, vars)
}

func (t *Translator) position(pos token.Pos) token.Position {
	if t.fset == nil || !pos.IsValid() {
		return token.Position{}
	}
	return t.fset.Position(pos)
}

func (t *Translator) unsupported(node ast.Node, format string, args ...any) error {
	var pos token.Pos
	if node != nil {
		pos = node.Pos()
	}
	return &UnsupportedError{Pos: t.position(pos), What: fmt.Sprintf(format, args...)}
}

func (t *Translator) prepare(stmts []ast.Stmt) []ast.Stmt {
	if t.opts.Normalize {
		return normalize.Body(stmts)
	}
	return stmts
}

// guard returns the sort constraint for a declared name, or "".
func (t *Translator) guard(name, sym string) string {
	switch t.kinds[name] {
	case kindInt:
		return fmt.Sprintf(smt.GuardInt, sym)
	case kindUint:
		return fmt.Sprintf("(and %s (>= (ival %s) 0))", fmt.Sprintf(smt.GuardInt, sym), sym)
	case kindBool:
		return fmt.Sprintf(smt.GuardBool, sym)
	case kindString:
		return fmt.Sprintf(smt.GuardString, sym)
	}
	return ""
}

func (t *Translator) setKind(name string, k valueKind) {
	if name == "" || name == "_" || k == kindUnknown {
		return
	}
	if prev, ok := t.kinds[name]; ok && prev != k {
		t.kinds[name] = kindConflict
		return
	}
	t.kinds[name] = k
}

func kindOf(typ ast.Expr) valueKind {
	ident, ok := typ.(*ast.Ident)
	if !ok {
		return kindUnknown
	}
	switch ident.Name {
	case "int", "int8", "int16", "int32", "int64", "rune":
		return kindInt
	case "uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte":
		return kindUint
	case "bool":
		return kindBool
	case "string":
		return kindString
	}
	return kindUnknown
}

// collectKinds records the primitive types of parameters, variables and
// the fields reachable through struct-typed receivers and parameters.
func (t *Translator) collectKinds(file *ast.File) {
	structs := make(map[string]map[string]valueKind)
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			fields := make(map[string]valueKind)
			for _, f := range st.Fields.List {
				for _, n := range f.Names {
					fields[n.Name] = kindOf(f.Type)
				}
			}
			structs[ts.Name.Name] = fields
		}
	}

	addFields := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, f := range fl.List {
			k := kindOf(f.Type)
			typ := f.Type
			if star, ok := typ.(*ast.StarExpr); ok {
				typ = star.X
			}
			var fields map[string]valueKind
			if ident, ok := typ.(*ast.Ident); ok {
				fields = structs[ident.Name]
			}
			for _, n := range f.Names {
				t.setKind(n.Name, k)
				for field, fk := range fields {
					t.setKind(n.Name+"."+field, fk)
				}
			}
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncDecl:
			addFields(node.Recv)
			addFields(node.Type.Params)
		case *ast.FuncLit:
			addFields(node.Type.Params)
		case *ast.ValueSpec:
			if node.Type != nil {
				k := kindOf(node.Type)
				for _, name := range node.Names {
					t.setKind(name.Name, k)
				}
			}
		}
		return true
	})
}
