package translate

import (
	"go/ast"
	"go/token"

	"github.com/gnolang/tverify/internal/assertion"
)

func (s *session) stmts(list []ast.Stmt) error {
	for _, st := range list {
		if err := s.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

// assumeFunc is the callee of statements built by Assume.
const assumeFunc = "assume!"

// Assume returns a statement that restricts the paths reaching it to those
// on which cond holds.
func Assume(cond ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun:    &ast.Ident{NamePos: cond.Pos(), Name: assumeFunc},
		Lparen: cond.Pos(),
		Args:   []ast.Expr{cond},
		Rparen: cond.End(),
	}}
}

// Negate returns the expression !(cond).
func Negate(cond ast.Expr) ast.Expr {
	return &ast.UnaryExpr{OpPos: cond.Pos(), Op: token.NOT, X: &ast.ParenExpr{Lparen: cond.Pos(), X: cond, Rparen: cond.End()}}
}

func assumed(st ast.Stmt) (ast.Expr, bool) {
	es, ok := st.(*ast.ExprStmt)
	if !ok {
		return nil, false
	}
	call, ok := es.X.(*ast.CallExpr)
	if !ok || len(call.Args) != 1 {
		return nil, false
	}
	if fun, ok := call.Fun.(*ast.Ident); ok && fun.Name == assumeFunc {
		return call.Args[0], true
	}
	return nil, false
}

func (s *session) stmt(st ast.Stmt) error {
	if assertion.IsAssertionLike(st) {
		return nil
	}
	if cond, ok := assumed(st); ok {
		term, err := s.Truthy(cond)
		if err != nil {
			return err
		}
		s.assume(term)
		return nil
	}

	switch x := st.(type) {
	case *ast.EmptyStmt:
		return nil

	case *ast.LabeledStmt:
		return s.stmt(x.Stmt)

	case *ast.BlockStmt:
		return s.stmts(x.List)

	case *ast.ExprStmt:
		if call, ok := x.X.(*ast.CallExpr); ok {
			if fun, ok := call.Fun.(*ast.Ident); ok && (fun.Name == "print" || fun.Name == "println") {
				return nil
			}
		}
		return s.t.unsupported(x, "statement %s", Render(x))

	case *ast.AssignStmt:
		return s.assignStmt(x)

	case *ast.IncDecStmt:
		name, ok := FlatName(x.X)
		if !ok {
			return s.t.unsupported(x, "assignment to %s", Render(x.X))
		}
		helper := "_add"
		if x.Tok == token.DEC {
			helper = "_sub"
		}
		s.assign(name, "("+helper+" "+s.ref(name)+" (VInt 1))")
		return nil

	case *ast.DeclStmt:
		return s.declStmt(x)

	case *ast.IfStmt:
		return s.ifStmt(x)

	case *ast.ReturnStmt:
		return s.returnStmt(x)

	case *ast.ForStmt:
		if x.Init != nil {
			if err := s.stmt(x.Init); err != nil {
				return err
			}
		}
		return s.loop(x, x.Cond, x.Body, x.Post)

	case *ast.RangeStmt:
		if _, err := s.expr(x.X); err != nil {
			return err
		}
		return s.loop(x, nil, x.Body, nil)
	}
	return s.t.unsupported(st, "statement %s", Render(st))
}

func (s *session) assignStmt(x *ast.AssignStmt) error {
	if op, ok := assignOps[x.Tok]; ok {
		if len(x.Lhs) != 1 || len(x.Rhs) != 1 {
			return s.t.unsupported(x, "assignment %s", Render(x))
		}
		name, ok := FlatName(x.Lhs[0])
		if !ok {
			return s.t.unsupported(x, "assignment to %s", Render(x.Lhs[0]))
		}
		value, err := s.expr(&ast.BinaryExpr{X: x.Lhs[0], Op: op, Y: x.Rhs[0], OpPos: x.TokPos})
		if err != nil {
			return err
		}
		s.assign(name, value)
		return nil
	}
	if x.Tok != token.ASSIGN && x.Tok != token.DEFINE {
		return s.t.unsupported(x, "assignment operator %s", x.Tok)
	}
	if len(x.Lhs) != len(x.Rhs) {
		return s.t.unsupported(x, "multi-value assignment %s", Render(x))
	}

	// every right-hand side is read before any name is rebound
	names := make([]string, len(x.Lhs))
	values := make([]string, len(x.Rhs))
	for i, lhs := range x.Lhs {
		name, ok := FlatName(lhs)
		if !ok {
			return s.t.unsupported(x, "assignment to %s", Render(lhs))
		}
		names[i] = name
		if _, isFunc := x.Rhs[i].(*ast.FuncLit); isFunc {
			continue
		}
		value, err := s.expr(x.Rhs[i])
		if err != nil {
			return err
		}
		values[i] = value
	}
	for i, name := range names {
		switch {
		case name == "_":
		case values[i] == "":
			s.havoc(name)
		default:
			s.assign(name, values[i])
		}
	}
	return nil
}

func (s *session) declStmt(x *ast.DeclStmt) error {
	gd, ok := x.Decl.(*ast.GenDecl)
	if !ok {
		return s.t.unsupported(x, "declaration %s", Render(x))
	}
	if gd.Tok == token.TYPE || gd.Tok == token.IMPORT {
		return nil
	}
	for _, spec := range gd.Specs {
		vs := spec.(*ast.ValueSpec)
		switch {
		case len(vs.Values) == 0:
			zero := zeroValue(vs.Type)
			for _, n := range vs.Names {
				if n.Name != "_" {
					s.assign(n.Name, zero)
				}
			}
		case len(vs.Values) == len(vs.Names):
			values := make([]string, len(vs.Values))
			for i, v := range vs.Values {
				if _, isFunc := v.(*ast.FuncLit); isFunc {
					continue
				}
				term, err := s.expr(v)
				if err != nil {
					return err
				}
				values[i] = term
			}
			for i, n := range vs.Names {
				switch {
				case n.Name == "_":
				case values[i] == "":
					s.havoc(n.Name)
				default:
					s.assign(n.Name, values[i])
				}
			}
		default:
			return s.t.unsupported(vs, "multi-value declaration")
		}
	}
	return nil
}

func zeroValue(typ ast.Expr) string {
	switch kindOf(typ) {
	case kindInt, kindUint:
		return "(VInt 0)"
	case kindBool:
		return "(VBool false)"
	case kindString:
		return `(VStr "")`
	}
	return "VNil"
}

func (s *session) ifStmt(x *ast.IfStmt) error {
	if x.Init != nil {
		if err := s.stmt(x.Init); err != nil {
			return err
		}
	}
	cond, err := s.Truthy(x.Cond)
	if err != nil {
		return err
	}

	base := s.cur
	s.cur = base.clone()
	if err := s.inBranch(cond, func() error { return s.stmts(x.Body.List) }); err != nil {
		return err
	}
	then := s.cur

	s.cur = base.clone()
	if x.Else != nil {
		if err := s.inBranch(not(cond), func() error { return s.stmt(x.Else) }); err != nil {
			return err
		}
	}
	els := s.cur

	s.merge(cond, then, els)
	return nil
}

func (s *session) inBranch(cond string, fn func() error) error {
	s.path = append(s.path, cond)
	defer func() { s.path = s.path[:len(s.path)-1] }()
	return fn()
}

func (s *session) returnStmt(x *ast.ReturnStmt) error {
	switch len(x.Results) {
	case 0:
	case 1:
		value, err := s.expr(x.Results[0])
		if err != nil {
			return err
		}
		s.assign(ResultVar, value)
	default:
		return s.t.unsupported(x, "multiple return values")
	}
	s.cur.done = termTrue
	return nil
}

// loop summarizes a loop by its invariants: the names it assigns take
// arbitrary values that satisfy the invariants and falsify the guard.
// Checking that the invariants hold is left to the loop's own obligations,
// which cover inherited invariants as well as the loop's own.
func (s *session) loop(node ast.Node, guard ast.Expr, body *ast.BlockStmt, post ast.Stmt) error {
	if bad := escapingBranch(body); bad != nil {
		return s.t.unsupported(bad, "%s inside a loop", Render(bad))
	}

	stmts := body.List
	if post != nil {
		stmts = append(append([]ast.Stmt(nil), stmts...), post)
	}
	assigned := AssignedNames(stmts)
	if rng, ok := node.(*ast.RangeStmt); ok {
		assigned = appendNames(assigned, rng.Key, rng.Value)
	}
	for _, name := range assigned {
		s.havoc(name)
	}

	invariants, ok := s.t.opts.LoopInvariants[node.Pos()]
	if !ok {
		invariants = bodyInvariants(body)
	}
	for _, expr := range invariants {
		inv, err := s.Truthy(expr)
		if err != nil {
			return err
		}
		s.assume(inv)
	}

	if guard == nil {
		if _, isRange := node.(*ast.RangeStmt); !isRange {
			// a loop without a guard is only left through a branch
			s.assume(termFalse)
		}
		return nil
	}
	cond, err := s.Truthy(guard)
	if err != nil {
		return err
	}
	s.assume(not(cond))
	return nil
}

func bodyInvariants(body *ast.BlockStmt) []ast.Expr {
	var out []ast.Expr
	for _, st := range body.List {
		a, ok, err := assertion.Classify(nil, st)
		if err == nil && ok && a.Kind == assertion.Invariant {
			out = append(out, a.Arg)
		}
	}
	return out
}

func appendNames(names []string, exprs ...ast.Expr) []string {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if name, ok := FlatName(e); ok && name != "_" && !contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// escapingBranch returns the first statement in body that leaves the loop
// other than through its guard.
func escapingBranch(body *ast.BlockStmt) ast.Node {
	var found ast.Node
	depth := 0
	var visit func(n ast.Node) bool
	visit = func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.ReturnStmt:
			found = x
		case *ast.BranchStmt:
			switch {
			case x.Label != nil && x.Tok != token.CONTINUE:
				found = x
			case x.Tok == token.GOTO:
				found = x
			case x.Tok == token.BREAK && depth == 0:
				found = x
			}
		case *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			depth++
			ast.Inspect(childBody(x), visit)
			depth--
			return false
		}
		return found == nil
	}
	ast.Inspect(body, visit)
	return found
}

func childBody(n ast.Node) ast.Node {
	switch x := n.(type) {
	case *ast.ForStmt:
		return x.Body
	case *ast.RangeStmt:
		return x.Body
	case *ast.SwitchStmt:
		return x.Body
	case *ast.TypeSwitchStmt:
		return x.Body
	case *ast.SelectStmt:
		return x.Body
	}
	return nil
}
