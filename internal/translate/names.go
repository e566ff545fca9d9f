package translate

import (
	"go/ast"
	"go/token"
)

// DefinedNames returns the names a list of statements defines, in order
// of first definition. Nested blocks are included; loop bodies and
// function literals are separate scopes and are not, though a for
// statement's init clause is.
func DefinedNames(stmts []ast.Stmt) []string {
	var names []string
	add := func(name string) {
		if name != "_" && !contains(names, name) {
			names = append(names, name)
		}
	}

	var walk func(st ast.Stmt)
	walk = func(st ast.Stmt) {
		switch x := st.(type) {
		case *ast.AssignStmt:
			if x.Tok == token.DEFINE {
				for _, lhs := range x.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						add(id.Name)
					}
				}
			}
		case *ast.DeclStmt:
			gd, ok := x.Decl.(*ast.GenDecl)
			if !ok || (gd.Tok != token.VAR && gd.Tok != token.CONST) {
				return
			}
			for _, spec := range gd.Specs {
				for _, n := range spec.(*ast.ValueSpec).Names {
					add(n.Name)
				}
			}
		case *ast.BlockStmt:
			for _, s := range x.List {
				walk(s)
			}
		case *ast.LabeledStmt:
			walk(x.Stmt)
		case *ast.IfStmt:
			if x.Init != nil {
				walk(x.Init)
			}
			walk(x.Body)
			if x.Else != nil {
				walk(x.Else)
			}
		case *ast.ForStmt:
			if x.Init != nil {
				walk(x.Init)
			}
		case *ast.SwitchStmt:
			if x.Init != nil {
				walk(x.Init)
			}
			for _, c := range x.Body.List {
				for _, s := range c.(*ast.CaseClause).Body {
					walk(s)
				}
			}
		}
	}
	for _, st := range stmts {
		walk(st)
	}
	return names
}

// AssignedNames returns every name the statements may change, including
// inside nested loops but not inside function literals.
func AssignedNames(stmts []ast.Stmt) []string {
	var names []string
	add := func(e ast.Expr) {
		if e == nil {
			return
		}
		if name, ok := FlatName(e); ok && name != "_" && !contains(names, name) {
			names = append(names, name)
		}
	}

	visit := func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.AssignStmt:
			for _, lhs := range x.Lhs {
				add(lhs)
			}
		case *ast.IncDecStmt:
			add(x.X)
		case *ast.RangeStmt:
			add(x.Key)
			add(x.Value)
		case *ast.ValueSpec:
			for _, n := range x.Names {
				add(n)
			}
		}
		return true
	}
	for _, st := range stmts {
		ast.Inspect(st, visit)
	}
	return names
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
