package scope

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/gnolang/tverify/internal/assertion"
	"github.com/gnolang/tverify/internal/directive"
	"github.com/gnolang/tverify/internal/translate"
)

type builder struct {
	fset   *token.FileSet
	dirs   *directive.Manager
	groups map[string]*Node
	errs   []error
}

// Build creates the scope tree of file in a single top-down walk.
// Malformed or misplaced annotations are reported and skipped; the rest of
// the tree is still built. Functions marked with a skip directive are left
// out.
func Build(fset *token.FileSet, file *ast.File) (*Node, []error) {
	dirs, errs := directive.ParseComments(file, fset)
	b := &builder{
		fset:   fset,
		dirs:   dirs,
		groups: make(map[string]*Node),
		errs:   errs,
	}

	root := &Node{kind: TopLevel, pos: file.Package}
	if dirs.FileSkipped() {
		return root, b.errs
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			switch d.Tok {
			case token.VAR, token.CONST:
				// one item per spec, so `var _ = invariant(e)` inside a
				// group is recognised
				for _, spec := range d.Specs {
					b.item(root, &ast.DeclStmt{Decl: &ast.GenDecl{
						Doc:    d.Doc,
						TokPos: spec.Pos(),
						Tok:    d.Tok,
						Specs:  []ast.Spec{spec},
					}})
				}
			case token.TYPE:
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					if invs := dirs.TypeInvariants(ts.Name.Name); len(invs) > 0 {
						g := b.group(root, ts.Name.Name, ts.Pos())
						g.own = append(g.own, invs...)
					}
				}
			}
		case *ast.FuncDecl:
			if d.Body == nil || dirs.IsSkipped(fset.Position(d.Pos())) {
				continue
			}
			parent, name := root, d.Name.Name
			if typeName := receiverType(d.Recv); typeName != "" {
				parent = b.group(root, typeName, d.Pos())
				name = typeName + "." + name
			}
			b.function(parent, name, d.Recv, d.Type, d.Body, d.Pos())
		}
	}
	root.locals = translate.DefinedNames(root.statements)

	resolve(root, nil, nil)
	return root, b.errs
}

// resolve passes the accumulated invariants and visible names down the
// tree once, so no node ever walks up to its ancestors.
func resolve(n *Node, inherited []assertion.Assertion, vars []string) {
	if n.receiver != "" {
		inherited = rebind(inherited, n.receiver)
	}
	n.inherited = inherited
	n.vars = union(vars, n.locals)
	for _, c := range n.children {
		resolve(c, n.accumulated(), n.vars)
	}
}

// rebind renames the receiver of type invariants declared by directives to
// the name a method gives its receiver.
func rebind(invs []assertion.Assertion, receiver string) []assertion.Assertion {
	out := make([]assertion.Assertion, len(invs))
	for i, a := range invs {
		out[i] = a
		if a.Node != nil {
			continue
		}
		if roots := translate.SelectorRoots(a.Arg); len(roots) == 1 && roots[0] != receiver {
			out[i].Arg = translate.RenameIdent(a.Arg, roots[0], receiver)
		}
	}
	return out
}

func (b *builder) report(err error) {
	b.errs = append(b.errs, err)
}

func (b *builder) misplaced(a assertion.Assertion, msg string) {
	b.report(&assertion.MalformedError{Kind: a.Kind, Pos: b.fset.Position(a.Pos), Msg: msg})
}

func newChild(parent *Node, kind Kind, pos token.Pos) *Node {
	n := &Node{kind: kind, parent: parent, pos: pos}
	parent.children = append(parent.children, n)
	return n
}

func (b *builder) group(root *Node, name string, pos token.Pos) *Node {
	if g, ok := b.groups[name]; ok {
		return g
	}
	g := newChild(root, ClassGroup, pos)
	g.name = name
	b.groups[name] = g
	return g
}

func receiverType(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	typ := recv.List[0].Type
	for {
		switch t := typ.(type) {
		case *ast.StarExpr:
			typ = t.X
		case *ast.ParenExpr:
			typ = t.X
		case *ast.IndexExpr:
			typ = t.X
		case *ast.IndexListExpr:
			typ = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

func (b *builder) function(parent *Node, name string, recv *ast.FieldList, typ *ast.FuncType, body *ast.BlockStmt, pos token.Pos) *Node {
	n := newChild(parent, Function, pos)
	n.name = name
	n.params = append(append(fieldNames(recv), fieldNames(typ.Params)...), fieldNames(typ.Results)...)
	if names := fieldNames(recv); len(names) > 0 {
		n.receiver = names[0]
	}

	items := body.List
	if ret := trailingReturn(body); ret != nil {
		n.result = ret.Results[0]
		items = items[:len(items)-1]
	}
	for _, st := range items {
		b.item(n, st)
	}
	if n.result != nil {
		n.items = body.List
	}
	n.locals = union(n.params, translate.DefinedNames(n.statements))
	return n
}

// trailingReturn returns the last statement of body when it is the body's
// only return and returns a single value.
func trailingReturn(body *ast.BlockStmt) *ast.ReturnStmt {
	if len(body.List) == 0 {
		return nil
	}
	last, ok := body.List[len(body.List)-1].(*ast.ReturnStmt)
	if !ok || len(last.Results) != 1 {
		return nil
	}
	returns := 0
	ast.Inspect(body, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.ReturnStmt:
			returns++
		}
		return true
	})
	if returns != 1 {
		return nil
	}
	return last
}

func fieldNames(fl *ast.FieldList) []string {
	if fl == nil {
		return nil
	}
	var names []string
	for _, f := range fl.List {
		for _, n := range f.Names {
			if n.Name != "_" {
				names = append(names, n.Name)
			}
		}
	}
	return names
}

func (b *builder) loop(parent *Node, node ast.Stmt, guard ast.Expr, body *ast.BlockStmt, post ast.Stmt, entry []ast.Stmt) *Node {
	n := newChild(parent, Loop, node.Pos())
	n.guard = guard
	n.entry = entry
	for _, st := range body.List {
		b.item(n, st)
	}
	if post != nil {
		n.statements = append(n.statements, post)
	}

	n.locals = translate.DefinedNames(n.statements)
	if rng, ok := node.(*ast.RangeStmt); ok && rng.Tok == token.DEFINE {
		var defined []string
		for _, e := range []ast.Expr{rng.Key, rng.Value} {
			if id, ok := e.(*ast.Ident); ok && id.Name != "_" {
				defined = append(defined, id.Name)
			}
		}
		n.locals = union(defined, n.locals)
	}
	return n
}

// item processes a statement written directly in n's body.
func (b *builder) item(n *Node, st ast.Stmt) {
	n.items = append(n.items, st)

	a, ok, err := assertion.Classify(b.fset, st)
	if ok {
		if err != nil {
			b.report(err)
			return
		}
		b.annotation(n, a)
		return
	}

	b.walk(n, st, n.prefix())
	n.statements = append(n.statements, st)
}

func (n *Node) prefix() []ast.Stmt {
	return append([]ast.Stmt(nil), n.statements...)
}

func (b *builder) annotation(n *Node, a assertion.Assertion) {
	switch a.Kind {
	case assertion.Assert:
		n.checks = append(n.checks, check{assertion: a, prefix: n.prefix()})
	case assertion.Invariant:
		n.own = append(n.own, a)
	case assertion.Requires, assertion.Ensures:
		if n.kind != Function {
			b.misplaced(a, "only allowed in a function body")
			return
		}
	}
	n.assertions = append(n.assertions, a)
}

// walk looks for scopes and asserts nested in st. prefix is the code that
// runs before st, with the branch conditions leading to it turned into
// assumptions.
func (b *builder) walk(n *Node, st ast.Stmt, prefix []ast.Stmt) {
	switch x := st.(type) {
	case *ast.ForStmt:
		entry := prefix
		if x.Init != nil {
			b.funcLits(n, x.Init)
			entry = with(prefix, x.Init)
		}
		b.loop(n, x, x.Cond, x.Body, x.Post, entry)

	case *ast.RangeStmt:
		b.funcLits(n, x.X)
		b.loop(n, x, nil, x.Body, nil, prefix)

	case *ast.LabeledStmt:
		b.walk(n, x.Stmt, prefix)

	case *ast.BlockStmt:
		b.block(n, x.List, prefix)

	case *ast.IfStmt:
		base := prefix
		if x.Init != nil {
			b.walk(n, x.Init, prefix)
			base = with(prefix, x.Init)
		}
		b.funcLits(n, x.Cond)
		b.block(n, x.Body.List, with(base, translate.Assume(x.Cond)))
		if x.Else != nil {
			b.block(n, []ast.Stmt{x.Else}, with(base, translate.Assume(translate.Negate(x.Cond))))
		}

	case *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
		// which clause runs is not tracked; code nested in a clause is
		// preceded by the whole statement
		var clauses []ast.Stmt
		switch s := x.(type) {
		case *ast.SwitchStmt:
			clauses = s.Body.List
		case *ast.TypeSwitchStmt:
			clauses = s.Body.List
		case *ast.SelectStmt:
			clauses = s.Body.List
		}
		inside := with(prefix, st)
		for _, c := range clauses {
			switch cl := c.(type) {
			case *ast.CaseClause:
				b.block(n, cl.Body, inside)
			case *ast.CommClause:
				b.block(n, cl.Body, inside)
			}
		}

	default:
		b.funcLits(n, st)
	}
}

// block walks a nested statement list. Only asserts may appear in it.
func (b *builder) block(n *Node, stmts []ast.Stmt, prefix []ast.Stmt) {
	cur := prefix
	for _, st := range stmts {
		a, ok, err := assertion.Classify(b.fset, st)
		if !ok {
			b.walk(n, st, cur)
			cur = with(cur, st)
			continue
		}
		switch {
		case err != nil:
			b.report(err)
		case a.Kind == assertion.Assert:
			n.checks = append(n.checks, check{assertion: a, prefix: cur})
		default:
			b.misplaced(a, "must be written directly in a function or loop body")
		}
	}
}

// funcLits adds a function scope for every function literal in node.
func (b *builder) funcLits(n *Node, node ast.Node) {
	names := literalNames(node)
	ast.Inspect(node, func(x ast.Node) bool {
		lit, ok := x.(*ast.FuncLit)
		if !ok {
			return true
		}
		name, ok := names[lit]
		if !ok {
			name = fmt.Sprintf("func literal (line %d)", b.fset.Position(lit.Pos()).Line)
		}
		b.function(n, name, nil, lit.Type, lit.Body, lit.Pos())
		return false
	})
}

// literalNames maps the function literals assigned to names to those names.
func literalNames(node ast.Node) map[*ast.FuncLit]string {
	names := make(map[*ast.FuncLit]string)
	bind := func(lhs []ast.Expr, rhs []ast.Expr) {
		if len(lhs) != len(rhs) {
			return
		}
		for i, r := range rhs {
			lit, ok := r.(*ast.FuncLit)
			if !ok {
				continue
			}
			if name, ok := translate.FlatName(lhs[i]); ok && name != "_" {
				names[lit] = name
			}
		}
	}
	switch x := node.(type) {
	case *ast.AssignStmt:
		bind(x.Lhs, x.Rhs)
	case *ast.DeclStmt:
		if gd, ok := x.Decl.(*ast.GenDecl); ok {
			for _, spec := range gd.Specs {
				if vs, ok := spec.(*ast.ValueSpec); ok {
					lhs := make([]ast.Expr, len(vs.Names))
					for i, id := range vs.Names {
						lhs[i] = id
					}
					bind(lhs, vs.Values)
				}
			}
		}
	}
	return names
}

func with(prefix []ast.Stmt, st ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(prefix)+1)
	out = append(out, prefix...)
	return append(out, st)
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, name := range list {
			if name == "" || name == "_" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
