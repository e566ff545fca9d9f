// Package scope models the nested regions of a verified file: the file
// itself, type groups, functions and loops. Each region knows what it may
// assume on entry, what it must establish at exit and what its enclosing
// region must establish before entering it.
package scope

import (
	"go/ast"
	"go/token"

	"github.com/gnolang/tverify/internal/assertion"
	"github.com/gnolang/tverify/internal/theorem"
	"github.com/gnolang/tverify/internal/translate"
)

type Kind int

const (
	TopLevel Kind = iota + 1
	Function
	Loop
	ClassGroup
)

func (k Kind) String() string {
	switch k {
	case TopLevel:
		return "top level"
	case Function:
		return "function"
	case Loop:
		return "loop"
	case ClassGroup:
		return "type"
	default:
		return "?"
	}
}

// check is an assert together with the code executed before it.
type check struct {
	assertion assertion.Assertion
	prefix    []ast.Stmt
}

// Node is one scope. Nodes are built once by Build and are read-only
// afterwards.
type Node struct {
	kind     Kind
	parent   *Node
	children []*Node
	pos      token.Pos

	items      []ast.Stmt
	statements []ast.Stmt
	assertions []assertion.Assertion
	checks     []check
	// entry is the code the parent runs before entering this scope.
	entry []ast.Stmt

	// own invariants, and those accumulated by the ancestors
	own       []assertion.Assertion
	inherited []assertion.Assertion

	locals []string
	vars   []string

	name   string
	params []string
	// receiver is a method's receiver name, if it has one.
	receiver string
	// result replaces the result identifier in postconditions.
	result ast.Expr
	guard  ast.Expr
}

func (n *Node) Kind() Kind { return n.kind }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) Children() []*Node { return n.children }
func (n *Node) Pos() token.Pos { return n.pos }
func (n *Node) Items() []ast.Stmt { return n.items }
func (n *Node) Name() string { return n.name }
func (n *Node) Params() []string { return n.params }
func (n *Node) Guard() ast.Expr { return n.guard }
func (n *Node) LocalNames() []string { return n.locals }

// Vars returns the names visible in the scope: its own locals and those of
// every ancestor.
func (n *Node) Vars() []string { return n.vars }

// Statements returns the executable items of the body, in order.
func (n *Node) Statements() []ast.Stmt { return n.statements }

// Assertions returns the well formed annotations written directly in the
// body.
func (n *Node) Assertions() []assertion.Assertion { return n.assertions }

// EntryBody returns the code the parent executes before entering n.
func (n *Node) EntryBody() []ast.Stmt { return n.entry }

// Invariants returns the accumulated invariants: the ancestors' followed by
// the scope's own.
func (n *Node) Invariants() []ast.Expr {
	return args(n.accumulated())
}

func (n *Node) accumulated() []assertion.Assertion {
	out := make([]assertion.Assertion, 0, len(n.inherited)+len(n.own))
	out = append(out, n.inherited...)
	return append(out, n.own...)
}

func (n *Node) ofKind(kind assertion.Kind) []assertion.Assertion {
	var out []assertion.Assertion
	for _, a := range n.assertions {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Preconditions returns the arguments of the requires annotations.
func (n *Node) Preconditions() []ast.Expr {
	return args(n.ofKind(assertion.Requires))
}

// AssumedOnEntry returns the expressions taken as true when the scope is
// entered.
func (n *Node) AssumedOnEntry() []ast.Expr {
	switch n.kind {
	case Function:
		return append(n.Preconditions(), args(n.inherited)...)
	case Loop:
		assumed := n.Invariants()
		if n.guard != nil {
			assumed = append(assumed, n.guard)
		}
		return assumed
	case ClassGroup:
		return args(n.inherited)
	}
	return nil
}

// ProvedAtExit returns the expressions the scope must establish after its
// body has run once.
func (n *Node) ProvedAtExit() []ast.Expr {
	obligations := n.mainObligations()
	out := make([]ast.Expr, len(obligations))
	for i, ob := range obligations {
		out[i] = ob.goal
	}
	return out
}

// RequiredOfCaller returns what the parent must establish before entering
// the scope. Only loops impose such obligations: a function's
// preconditions are assumed by its body and never checked at call sites.
func (n *Node) RequiredOfCaller() []ast.Expr {
	if n.kind == Loop {
		return n.Invariants()
	}
	return nil
}

// EntryLabel names the obligations the scope imposes on its parent.
func (n *Node) EntryLabel() string {
	switch n.kind {
	case TopLevel:
		return "initially"
	case Function:
		return n.name
	case Loop:
		return "loop entry"
	}
	if n.parent != nil {
		return n.parent.EntryLabel()
	}
	return n.name
}

// Describe labels a goal proved at the scope's exit.
func (n *Node) Describe(goal ast.Expr) string {
	switch n.kind {
	case TopLevel:
		return "initially: " + translate.Render(goal)
	case Function:
		return n.name + ": " + translate.Render(goal)
	case Loop:
		return "loop invariant: " + translate.Render(goal)
	}
	if n.parent != nil {
		return n.parent.Describe(goal)
	}
	return translate.Render(goal)
}

// obligation is a goal proved at the scope's exit.
type obligation struct {
	goal  ast.Expr
	label string
	kind  theorem.Kind
	pos   token.Pos
}

func (n *Node) mainObligations() []obligation {
	invariants := n.accumulated()
	if n.kind == ClassGroup {
		invariants = n.inherited
	}

	var out []obligation
	for _, a := range invariants {
		out = append(out, obligation{goal: a.Arg, label: n.Describe(a.Arg), kind: invariantKind(n, a), pos: a.Pos})
	}
	if n.kind != Function {
		return out
	}
	for _, a := range n.ofKind(assertion.Ensures) {
		out = append(out, obligation{
			goal:  n.substituteResult(a.Arg),
			label: n.Describe(a.Arg),
			kind:  theorem.Postcondition,
			pos:   a.Pos,
		})
	}
	return out
}

func (n *Node) substituteResult(post ast.Expr) ast.Expr {
	switch {
	case n.result != nil:
		return translate.SubstituteResult(post, n.result)
	case translate.MentionsResult(post):
		return translate.SubstituteResult(post, translate.ResultIdent(post.Pos()))
	}
	return post
}

func invariantKind(n *Node, a assertion.Assertion) theorem.Kind {
	switch {
	case n.kind == TopLevel:
		return theorem.Initially
	case n.kind == Loop:
		return theorem.LoopInvariant
	case a.Node == nil:
		// declared by a directive on a type
		return theorem.GroupInvariant
	}
	return theorem.Invariant
}

func args(as []assertion.Assertion) []ast.Expr {
	out := make([]ast.Expr, len(as))
	for i, a := range as {
		out[i] = a.Arg
	}
	return out
}
