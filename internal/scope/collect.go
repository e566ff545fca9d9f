package scope

import (
	"go/ast"
	"go/token"

	"github.com/gnolang/tverify/internal/theorem"
	"github.com/gnolang/tverify/internal/translate"
)

// Obligations flattens the tree rooted at n into theorem specifications.
// For each scope, in order: the goals proved at its exit, its asserts,
// the entry requirements of its direct children, and then the obligations
// of every child, depth first in source order.
func (n *Node) Obligations() []theorem.Spec {
	var out []theorem.Spec
	n.collect(&out)
	return out
}

// Theorems returns one theorem per obligation.
func (n *Node) Theorems(cfg theorem.Config) []*theorem.Theorem {
	specs := n.Obligations()
	out := make([]*theorem.Theorem, len(specs))
	for i, spec := range specs {
		out[i] = theorem.New(spec, cfg)
	}
	return out
}

func (n *Node) collect(out *[]theorem.Spec) {
	assumed := n.AssumedOnEntry()

	// a type group runs no code of its own, so its exit goals are
	// exactly its assumptions
	if n.kind != ClassGroup {
		for _, ob := range n.mainObligations() {
			*out = append(*out, theorem.Spec{
				Vars:        n.vars,
				Assumptions: assumed,
				Body:        n.statements,
				Goal:        ob.goal,
				Label:       ob.label,
				Kind:        ob.kind,
				Pos:         ob.pos,
			})
		}
	}

	for _, c := range n.checks {
		*out = append(*out, theorem.Spec{
			Vars:        n.vars,
			Assumptions: assumed,
			Body:        c.prefix,
			Goal:        c.assertion.Arg,
			Label:       "assert: " + translate.Render(c.assertion.Arg),
			Kind:        theorem.Assert,
			Pos:         c.assertion.Pos,
		})
	}

	for _, child := range n.children {
		for _, req := range child.RequiredOfCaller() {
			*out = append(*out, theorem.Spec{
				Vars:        n.vars,
				Assumptions: assumed,
				Body:        child.entry,
				Goal:        req,
				Label:       child.EntryLabel() + ": " + translate.Render(req),
				Kind:        theorem.EntryRequirement,
				Pos:         child.pos,
			})
		}
	}

	for _, child := range n.children {
		child.collect(out)
	}
}

// LoopInvariants maps the position of every loop in the tree to its
// accumulated invariants, the ones a translation of the loop may assume
// once it has run.
func (n *Node) LoopInvariants() map[token.Pos][]ast.Expr {
	out := make(map[token.Pos][]ast.Expr)
	var visit func(*Node)
	visit = func(x *Node) {
		if x.kind == Loop {
			out[x.pos] = x.Invariants()
		}
		for _, c := range x.children {
			visit(c)
		}
	}
	visit(n)
	return out
}

// Find returns the first scope in the tree, in source order, for which
// match returns true.
func (n *Node) Find(match func(*Node) bool) *Node {
	if match(n) {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}
