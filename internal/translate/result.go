package translate

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"reflect"

	"golang.org/x/tools/go/ast/astutil"
)

// ResultName is the identifier postconditions use for the returned value.
const ResultName = "result"

// SubstituteResult returns a copy of expr in which every reference to
// result is replaced by a copy of replacement. expr is not modified.
func SubstituteResult(expr, replacement ast.Expr) ast.Expr {
	out := astutil.Apply(Clone(expr), func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *ast.FuncLit:
			return false
		case *ast.Ident:
			if n.Name != ResultName {
				return true
			}
			if _, isSel := c.Parent().(*ast.SelectorExpr); isSel && c.Name() == "Sel" {
				return true
			}
			if _, isKey := c.Parent().(*ast.KeyValueExpr); isKey && c.Name() == "Key" {
				return true
			}
			c.Replace(Clone(replacement))
		}
		return true
	}, nil)
	return out.(ast.Expr)
}

// RenameIdent returns a copy of expr in which every identifier named from
// is renamed to. Field and key names are left alone. expr is not modified.
func RenameIdent(expr ast.Expr, from, to string) ast.Expr {
	out := astutil.Apply(Clone(expr), func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *ast.FuncLit:
			return false
		case *ast.Ident:
			if n.Name != from {
				return true
			}
			if _, isSel := c.Parent().(*ast.SelectorExpr); isSel && c.Name() == "Sel" {
				return true
			}
			if _, isKey := c.Parent().(*ast.KeyValueExpr); isKey && c.Name() == "Key" {
				return true
			}
			c.Replace(&ast.Ident{NamePos: n.NamePos, Name: to})
		}
		return true
	}, nil)
	return out.(ast.Expr)
}

// SelectorRoots returns the distinct identifiers that selector chains in
// expr start from, in order of appearance: a for both a.b and a.b.c.
func SelectorRoots(expr ast.Expr) []string {
	var roots []string
	var visit func(n ast.Node) bool
	visit = func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		x := sel.X
		for {
			inner, ok := x.(*ast.SelectorExpr)
			if !ok {
				break
			}
			x = inner.X
		}
		if id, ok := x.(*ast.Ident); ok {
			if !contains(roots, id.Name) {
				roots = append(roots, id.Name)
			}
			return false
		}
		ast.Inspect(x, visit)
		return false
	}
	ast.Inspect(expr, visit)
	return roots
}

// ResultIdent is the expression standing for a function's returned value
// when it cannot be written in terms of a returned expression.
func ResultIdent(pos token.Pos) *ast.Ident {
	return &ast.Ident{NamePos: pos, Name: ResultVar}
}

// MentionsResult reports whether expr refers to result.
func MentionsResult(expr ast.Expr) bool {
	found := false
	ast.Inspect(expr, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SelectorExpr:
			ast.Inspect(x.X, func(n ast.Node) bool {
				if id, ok := n.(*ast.Ident); ok && id.Name == ResultName {
					found = true
				}
				return !found
			})
			return false
		case *ast.Ident:
			if x.Name == ResultName {
				found = true
			}
		}
		return !found
	})
	return found
}

// Clone deep-copies a syntax tree, keeping positions. Identifier objects
// and scopes are shared with the original.
func Clone[N ast.Node](node N) N {
	v := reflect.ValueOf(node)
	if !v.IsValid() {
		return node
	}
	return cloneValue(v).Interface().(N)
}

var (
	objectType = reflect.TypeOf((*ast.Object)(nil))
	scopeType  = reflect.TypeOf((*ast.Scope)(nil))
)

func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || v.Type() == objectType || v.Type() == scopeType {
			return v
		}
		c := reflect.New(v.Type().Elem())
		c.Elem().Set(cloneValue(v.Elem()))
		return c
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		c := reflect.New(v.Type()).Elem()
		c.Set(cloneValue(v.Elem()))
		return c
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(cloneValue(v.Index(i)))
		}
		return c
	case reflect.Struct:
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if c.Field(i).CanSet() {
				c.Field(i).Set(cloneValue(v.Field(i)))
			}
		}
		return c
	}
	return v
}

// Render prints a syntax tree as Go source.
func Render(node ast.Node) string {
	if node == nil || reflect.ValueOf(node).IsNil() {
		return ""
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, token.NewFileSet(), node); err != nil {
		return fmt.Sprintf("<%T>", node)
	}
	return buf.String()
}
