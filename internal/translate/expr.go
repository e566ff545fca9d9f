package translate

import (
	"go/ast"
	"go/token"
	"math/big"
	"strconv"

	"github.com/gnolang/tverify/internal/smt"
)

var binaryHelpers = map[token.Token]string{
	token.ADD:  "_add",
	token.SUB:  "_sub",
	token.MUL:  "_mul",
	token.QUO:  "_div",
	token.REM:  "_rem",
	token.EQL:  "_eq",
	token.NEQ:  "_neq",
	token.LSS:  "_lt",
	token.LEQ:  "_le",
	token.GTR:  "_gt",
	token.GEQ:  "_ge",
	token.LAND: "_and",
	token.LOR:  "_or",
}

// assignOps maps compound assignment tokens to their binary operator.
var assignOps = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
	token.QUO_ASSIGN: token.QUO,
	token.REM_ASSIGN: token.REM,
}

// expr returns a Val term for e in the current state.
func (s *session) expr(e ast.Expr) (string, error) {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return s.expr(x.X)

	case *ast.BasicLit:
		return s.literal(x)

	case *ast.Ident:
		switch x.Name {
		case "true", "false":
			return "(VBool " + x.Name + ")", nil
		case "nil":
			return "VNil", nil
		}
		return s.ref(x.Name), nil

	case *ast.SelectorExpr:
		name, ok := FlatName(x)
		if !ok {
			return "", s.t.unsupported(x, "selector %s", Render(x))
		}
		return s.ref(name), nil

	case *ast.UnaryExpr:
		operand, err := s.expr(x.X)
		if err != nil {
			return "", err
		}
		switch x.Op {
		case token.SUB:
			return "(_neg " + operand + ")", nil
		case token.NOT:
			return "(_not " + operand + ")", nil
		case token.ADD:
			return operand, nil
		}
		return "", s.t.unsupported(x, "unary operator %s", x.Op)

	case *ast.BinaryExpr:
		helper, ok := binaryHelpers[x.Op]
		if !ok {
			return "", s.t.unsupported(x, "binary operator %s", x.Op)
		}
		left, err := s.expr(x.X)
		if err != nil {
			return "", err
		}
		right, err := s.expr(x.Y)
		if err != nil {
			return "", err
		}
		return "(" + helper + " " + left + " " + right + ")", nil

	case *ast.CallExpr:
		return s.call(x)
	}
	return "", s.t.unsupported(e, "expression %s", Render(e))
}

func (s *session) literal(lit *ast.BasicLit) (string, error) {
	switch lit.Kind {
	case token.INT:
		n, ok := new(big.Int).SetString(lit.Value, 0)
		if !ok {
			return "", s.t.unsupported(lit, "integer literal %s", lit.Value)
		}
		return intTerm(n), nil
	case token.CHAR:
		v, err := strconv.Unquote(lit.Value)
		if err != nil {
			return "", s.t.unsupported(lit, "character literal %s", lit.Value)
		}
		r := []rune(v)
		if len(r) != 1 {
			return "", s.t.unsupported(lit, "character literal %s", lit.Value)
		}
		return intTerm(big.NewInt(int64(r[0]))), nil
	case token.STRING:
		v, err := strconv.Unquote(lit.Value)
		if err != nil {
			return "", s.t.unsupported(lit, "string literal %s", lit.Value)
		}
		return "(VStr " + smt.StringLiteral(v) + ")", nil
	}
	return "", s.t.unsupported(lit, "%s literal", lit.Kind)
}

func intTerm(n *big.Int) string {
	if n.Sign() < 0 {
		return "(VInt (- " + new(big.Int).Neg(n).String() + "))"
	}
	return "(VInt " + n.String() + ")"
}

var intConversions = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true, "rune": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "byte": true,
}

func (s *session) call(c *ast.CallExpr) (string, error) {
	fun, ok := c.Fun.(*ast.Ident)
	if !ok || c.Ellipsis.IsValid() || len(c.Args) != 1 {
		return "", s.t.unsupported(c, "call %s", Render(c))
	}
	arg, err := s.expr(c.Args[0])
	if err != nil {
		return "", err
	}
	switch {
	case fun.Name == "len":
		return "(_len " + arg + ")", nil
	case intConversions[fun.Name]:
		// integers are unbounded, so conversions between them are the identity
		return arg, nil
	}
	return "", s.t.unsupported(c, "call %s", Render(c))
}

// FlatName returns the dotted name of a selector chain rooted at an
// identifier, such as "a.b.c".
func FlatName(e ast.Expr) (string, bool) {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name, true
	case *ast.SelectorExpr:
		base, ok := FlatName(x.X)
		if !ok {
			return "", false
		}
		return base + "." + x.Sel.Name, true
	case *ast.ParenExpr:
		return FlatName(x.X)
	case *ast.StarExpr:
		return FlatName(x.X)
	}
	return "", false
}
