// Package assertion recognises the contract annotations of a verified
// program: calls to assert, requires, ensures and invariant written as
// statements.
package assertion

import (
	"fmt"
	"go/ast"
	"go/token"
)

// Kind is the closed set of annotation kinds.
type Kind int

const (
	Assert Kind = iota + 1
	Requires
	Ensures
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Assert:
		return "assert"
	case Requires:
		return "requires"
	case Ensures:
		return "ensures"
	case Invariant:
		return "invariant"
	default:
		return "?"
	}
}

var kindByName = map[string]Kind{
	"assert":    Assert,
	"requires":  Requires,
	"ensures":   Ensures,
	"invariant": Invariant,
}

// Assertion is a classified annotation. Node is the statement it was
// extracted from, or nil for annotations coming from comment directives.
type Assertion struct {
	Kind Kind
	Arg  ast.Expr
	Node ast.Node
	Pos  token.Pos
}

// MalformedError reports an annotation call with the wrong shape.
type MalformedError struct {
	Kind Kind
	Pos  token.Position
	Msg  string
}

func (e *MalformedError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: malformed %s: %s", e.Pos, e.Kind, e.Msg)
	}
	return fmt.Sprintf("malformed %s: %s", e.Kind, e.Msg)
}

// callOf returns the annotation call carried by stmt, if any. Both
// `assert(e)` and the package-level form `var _ = assert(e)` are accepted.
func callOf(stmt ast.Node) (*ast.CallExpr, Kind) {
	var expr ast.Expr
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		expr = s.X
	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		if !ok {
			return nil, 0
		}
		expr = blankVarValue(gd)
	case *ast.GenDecl:
		expr = blankVarValue(s)
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil, 0
	}
	ident, ok := call.Fun.(*ast.Ident)
	if !ok {
		return nil, 0
	}
	kind, ok := kindByName[ident.Name]
	if !ok {
		return nil, 0
	}
	return call, kind
}

// blankVarValue returns e for a declaration of the form `var _ = e`.
func blankVarValue(gd *ast.GenDecl) ast.Expr {
	if gd.Tok != token.VAR || len(gd.Specs) != 1 {
		return nil
	}
	vs, ok := gd.Specs[0].(*ast.ValueSpec)
	if !ok || len(vs.Names) != 1 || vs.Names[0].Name != "_" || len(vs.Values) != 1 {
		return nil
	}
	return vs.Values[0]
}

// IsAssertionLike reports whether stmt is an annotation call, well formed
// or not.
func IsAssertionLike(stmt ast.Node) bool {
	call, _ := callOf(stmt)
	return call != nil
}

// Classify extracts the annotation carried by stmt. The boolean is false
// for ordinary statements. A malformed annotation returns a *MalformedError
// and true, so callers can still keep it out of executable code.
func Classify(fset *token.FileSet, stmt ast.Node) (Assertion, bool, error) {
	call, kind := callOf(stmt)
	if call == nil {
		return Assertion{}, false, nil
	}

	malformed := func(msg string) error {
		err := &MalformedError{Kind: kind, Msg: msg}
		if fset != nil {
			err.Pos = fset.Position(call.Pos())
		}
		return err
	}
	if call.Ellipsis.IsValid() {
		return Assertion{}, true, malformed("variadic argument")
	}
	if len(call.Args) != 1 {
		return Assertion{}, true, malformed(fmt.Sprintf("expected 1 argument, got %d", len(call.Args)))
	}
	if _, ok := call.Args[0].(*ast.FuncLit); ok {
		return Assertion{}, true, malformed("argument must be an expression, not a function")
	}

	return Assertion{
		Kind: kind,
		Arg:  call.Args[0],
		Node: stmt,
		Pos:  call.Args[0].Pos(),
	}, true, nil
}

// FromDirective builds an annotation that was written in a comment.
func FromDirective(kind Kind, arg ast.Expr, pos token.Pos) Assertion {
	return Assertion{Kind: kind, Arg: arg, Pos: pos}
}
