// Package normalize simplifies function bodies before they are translated
// to solver terms.
//
// It folds constant integer and boolean expressions, prunes branches whose
// condition is constant, flattens nested blocks and drops empty statements.
// Input trees are never modified: changed nodes are rebuilt and unchanged
// subtrees are shared.
package normalize

import (
	"go/ast"
	"go/token"
	"math/big"
)

// Body returns the normalized form of stmts.
func Body(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, st := range stmts {
		out = append(out, Stmt(st)...)
	}
	return out
}

// Stmt normalizes a single statement. It may expand to zero or more
// statements.
func Stmt(st ast.Stmt) []ast.Stmt {
	switch s := st.(type) {
	case nil, *ast.EmptyStmt:
		return nil

	case *ast.BlockStmt:
		return Body(s.List)

	case *ast.LabeledStmt:
		inner := Stmt(s.Stmt)
		if len(inner) != 1 {
			// only loops are branch targets, and they never expand
			return inner
		}
		return []ast.Stmt{&ast.LabeledStmt{Label: s.Label, Colon: s.Colon, Stmt: inner[0]}}

	case *ast.ExprStmt:
		return []ast.Stmt{&ast.ExprStmt{X: Expr(s.X)}}

	case *ast.AssignStmt:
		rhs := make([]ast.Expr, len(s.Rhs))
		for i, e := range s.Rhs {
			rhs[i] = Expr(e)
		}
		return []ast.Stmt{&ast.AssignStmt{Lhs: s.Lhs, TokPos: s.TokPos, Tok: s.Tok, Rhs: rhs}}

	case *ast.ReturnStmt:
		results := make([]ast.Expr, len(s.Results))
		for i, e := range s.Results {
			results[i] = Expr(e)
		}
		return []ast.Stmt{&ast.ReturnStmt{Return: s.Return, Results: results}}

	case *ast.DeclStmt:
		return []ast.Stmt{&ast.DeclStmt{Decl: decl(s.Decl)}}

	case *ast.IfStmt:
		return ifStmt(s)

	case *ast.ForStmt:
		var cond ast.Expr
		if s.Cond != nil {
			cond = Expr(s.Cond)
		}
		return []ast.Stmt{&ast.ForStmt{
			For:  s.For,
			Init: s.Init,
			Cond: cond,
			Post: s.Post,
			Body: block(s.Body),
		}}

	case *ast.RangeStmt:
		return []ast.Stmt{&ast.RangeStmt{
			For:    s.For,
			Key:    s.Key,
			Value:  s.Value,
			TokPos: s.TokPos,
			Tok:    s.Tok,
			Range:  s.Range,
			X:      Expr(s.X),
			Body:   block(s.Body),
		}}
	}
	return []ast.Stmt{st}
}

func block(b *ast.BlockStmt) *ast.BlockStmt {
	return &ast.BlockStmt{Lbrace: b.Lbrace, List: Body(b.List), Rbrace: b.Rbrace}
}

func decl(d ast.Decl) ast.Decl {
	gd, ok := d.(*ast.GenDecl)
	if !ok || (gd.Tok != token.VAR && gd.Tok != token.CONST) {
		return d
	}
	specs := make([]ast.Spec, len(gd.Specs))
	for i, spec := range gd.Specs {
		vs := spec.(*ast.ValueSpec)
		values := make([]ast.Expr, len(vs.Values))
		for j, v := range vs.Values {
			values[j] = Expr(v)
		}
		specs[i] = &ast.ValueSpec{Doc: vs.Doc, Names: vs.Names, Type: vs.Type, Values: values, Comment: vs.Comment}
	}
	return &ast.GenDecl{Doc: gd.Doc, TokPos: gd.TokPos, Tok: gd.Tok, Lparen: gd.Lparen, Specs: specs, Rparen: gd.Rparen}
}

func ifStmt(s *ast.IfStmt) []ast.Stmt {
	var init []ast.Stmt
	if s.Init != nil {
		init = Stmt(s.Init)
	}
	cond := Expr(s.Cond)

	if b, ok := boolValue(cond); ok {
		// if true { S1 } else { S2 } => S1, if false { S1 } else { S2 } => S2
		if b {
			return append(init, Body(s.Body.List)...)
		}
		if s.Else != nil {
			return append(init, Stmt(s.Else)...)
		}
		return init
	}

	var els ast.Stmt
	if s.Else != nil {
		switch e := s.Else.(type) {
		case *ast.BlockStmt:
			els = block(e)
		default:
			// an else-if may fold into a plain block
			stmts := Stmt(e)
			if len(stmts) == 1 {
				if nested, ok := stmts[0].(*ast.IfStmt); ok {
					els = nested
					break
				}
			}
			els = &ast.BlockStmt{Lbrace: e.Pos(), List: stmts, Rbrace: e.End()}
		}
	}

	var initStmt ast.Stmt
	if len(init) == 1 {
		initStmt = init[0]
	} else if len(init) > 1 {
		return append(init[:len(init):len(init)], &ast.IfStmt{If: s.If, Cond: cond, Body: block(s.Body), Else: els})
	}
	return []ast.Stmt{&ast.IfStmt{If: s.If, Init: initStmt, Cond: cond, Body: block(s.Body), Else: els}}
}

// Expr folds constant subexpressions of e.
func Expr(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.ParenExpr:
		inner := Expr(x.X)
		if isConst(inner) {
			return inner
		}
		return &ast.ParenExpr{Lparen: x.Lparen, X: inner, Rparen: x.Rparen}

	case *ast.UnaryExpr:
		operand := Expr(x.X)
		switch x.Op {
		case token.NOT:
			if b, ok := boolValue(operand); ok {
				return boolLit(!b, x.Pos())
			}
			// !!x => x
			if inner, ok := unparen(operand).(*ast.UnaryExpr); ok && inner.Op == token.NOT {
				return inner.X
			}
		case token.SUB:
			if n, ok := intValue(operand); ok {
				return intLit(new(big.Int).Neg(n), x.Pos())
			}
		case token.ADD:
			if _, ok := intValue(operand); ok {
				return operand
			}
		}
		return &ast.UnaryExpr{OpPos: x.OpPos, Op: x.Op, X: operand}

	case *ast.BinaryExpr:
		left, right := Expr(x.X), Expr(x.Y)
		if folded := foldBinary(x.Op, left, right, x.Pos()); folded != nil {
			return folded
		}
		return &ast.BinaryExpr{X: left, OpPos: x.OpPos, Op: x.Op, Y: right}

	case *ast.CallExpr:
		args := make([]ast.Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = Expr(a)
		}
		return &ast.CallExpr{Fun: x.Fun, Lparen: x.Lparen, Args: args, Ellipsis: x.Ellipsis, Rparen: x.Rparen}
	}
	return e
}

func foldBinary(op token.Token, left, right ast.Expr, pos token.Pos) ast.Expr {
	if l, ok := intValue(left); ok {
		if r, ok := intValue(right); ok {
			return foldInts(op, l, r, pos)
		}
	}

	lb, lok := boolValue(left)
	rb, rok := boolValue(right)
	switch op {
	case token.LAND:
		switch {
		case lok && !lb, rok && !rb:
			return boolLit(false, pos)
		case lok && lb:
			return right
		case rok && rb:
			return left
		}
	case token.LOR:
		switch {
		case lok && lb, rok && rb:
			return boolLit(true, pos)
		case lok && !lb:
			return right
		case rok && !rb:
			return left
		}
	case token.EQL:
		if lok && rok {
			return boolLit(lb == rb, pos)
		}
	case token.NEQ:
		if lok && rok {
			return boolLit(lb != rb, pos)
		}
	}
	return nil
}

func foldInts(op token.Token, l, r *big.Int, pos token.Pos) ast.Expr {
	switch op {
	case token.ADD:
		return intLit(new(big.Int).Add(l, r), pos)
	case token.SUB:
		return intLit(new(big.Int).Sub(l, r), pos)
	case token.MUL:
		return intLit(new(big.Int).Mul(l, r), pos)
	case token.QUO:
		if r.Sign() != 0 {
			return intLit(new(big.Int).Quo(l, r), pos)
		}
	case token.REM:
		if r.Sign() != 0 {
			return intLit(new(big.Int).Rem(l, r), pos)
		}
	case token.EQL:
		return boolLit(l.Cmp(r) == 0, pos)
	case token.NEQ:
		return boolLit(l.Cmp(r) != 0, pos)
	case token.LSS:
		return boolLit(l.Cmp(r) < 0, pos)
	case token.LEQ:
		return boolLit(l.Cmp(r) <= 0, pos)
	case token.GTR:
		return boolLit(l.Cmp(r) > 0, pos)
	case token.GEQ:
		return boolLit(l.Cmp(r) >= 0, pos)
	}
	return nil
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

func isConst(e ast.Expr) bool {
	if _, ok := intValue(e); ok {
		return true
	}
	_, ok := boolValue(e)
	return ok
}

func intValue(e ast.Expr) (*big.Int, bool) {
	switch x := unparen(e).(type) {
	case *ast.BasicLit:
		if x.Kind != token.INT {
			return nil, false
		}
		return new(big.Int).SetString(x.Value, 0)
	case *ast.UnaryExpr:
		if x.Op != token.SUB {
			return nil, false
		}
		if lit, ok := unparen(x.X).(*ast.BasicLit); ok && lit.Kind == token.INT {
			n, ok := new(big.Int).SetString(lit.Value, 0)
			if !ok {
				return nil, false
			}
			return n.Neg(n), true
		}
	}
	return nil, false
}

func boolValue(e ast.Expr) (bool, bool) {
	id, ok := unparen(e).(*ast.Ident)
	if !ok {
		return false, false
	}
	switch id.Name {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func intLit(n *big.Int, pos token.Pos) ast.Expr {
	if n.Sign() < 0 {
		return &ast.UnaryExpr{
			OpPos: pos,
			Op:    token.SUB,
			X:     &ast.BasicLit{ValuePos: pos, Kind: token.INT, Value: new(big.Int).Neg(n).String()},
		}
	}
	return &ast.BasicLit{ValuePos: pos, Kind: token.INT, Value: n.String()}
}

func boolLit(b bool, pos token.Pos) ast.Expr {
	name := "false"
	if b {
		name = "true"
	}
	return &ast.Ident{NamePos: pos, Name: name}
}
