// Package directive reads the verifier's comment directives:
//
//	//verify:skip             excludes the next function, or the whole file
//	                          when written before the package clause
//	//verify:invariant <expr> attaches an invariant to the type it documents
//
// An invariant names the receiver through the root of its selectors, as in
// a.Balance >= 0; each method reads it with its own receiver name.
package directive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/gnolang/tverify/internal/assertion"
	"github.com/gnolang/tverify/internal/translate"
)

const (
	skipPrefix      = "//verify:skip"
	invariantPrefix = "//verify:invariant"
)

// Manager holds the directives of one file.
type Manager struct {
	fileSkipped bool
	// skips holds the line ranges excluded from verification.
	skips      []lineRange
	invariants map[string][]assertion.Assertion
}

type lineRange struct {
	start, end int
}

// ParseComments collects the directives of f. Invariants that do not parse
// as Go expressions are reported and left out.
func ParseComments(f *ast.File, fset *token.FileSet) (*Manager, []error) {
	m := &Manager{invariants: make(map[string][]assertion.Assertion)}
	packageLine := fset.Position(f.Package).Line

	for _, cg := range f.Comments {
		for _, comment := range cg.List {
			if !isDirective(comment.Text, skipPrefix) {
				continue
			}
			line := fset.Position(comment.Slash).Line
			if line < packageLine {
				m.fileSkipped = true
				continue
			}
			m.skips = append(m.skips, skipRange(fset, f, line))
		}
	}

	var errs []error
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			invs, invErrs := parseInvariants(fset, doc)
			errs = append(errs, invErrs...)
			if len(invs) > 0 {
				m.invariants[ts.Name.Name] = append(m.invariants[ts.Name.Name], invs...)
			}
		}
	}
	return m, errs
}

func isDirective(text, prefix string) bool {
	if !strings.HasPrefix(text, prefix) {
		return false
	}
	rest := text[len(prefix):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// skipRange applies a skip directive to the function declared right after
// it, or to the comment line alone.
func skipRange(fset *token.FileSet, f *ast.File, line int) lineRange {
	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		start := fset.Position(fd.Pos()).Line
		if fd.Doc != nil {
			start = fset.Position(fd.Doc.Pos()).Line
		}
		end := fset.Position(fd.End()).Line
		if line >= start && line <= end || start == line+1 {
			return lineRange{start: min(start, line), end: end}
		}
	}
	return lineRange{start: line, end: line}
}

func parseInvariants(fset *token.FileSet, doc *ast.CommentGroup) ([]assertion.Assertion, []error) {
	if doc == nil {
		return nil, nil
	}
	var (
		invs []assertion.Assertion
		errs []error
	)
	for _, c := range doc.List {
		if !isDirective(c.Text, invariantPrefix) {
			continue
		}
		src := strings.TrimSpace(c.Text[len(invariantPrefix):])
		pos := fset.Position(c.Slash)
		if src == "" {
			errs = append(errs, &assertion.MalformedError{Kind: assertion.Invariant, Pos: pos, Msg: "missing expression"})
			continue
		}
		name := fmt.Sprintf("%s:%d (directive)", pos.Filename, pos.Line)
		expr, err := parser.ParseExprFrom(fset, name, src, 0)
		if err != nil {
			errs = append(errs, &assertion.MalformedError{Kind: assertion.Invariant, Pos: pos, Msg: err.Error()})
			continue
		}
		// the root of the expression's selectors stands for the receiver,
		// renamed to each method's own receiver name
		if roots := translate.SelectorRoots(expr); len(roots) > 1 {
			msg := fmt.Sprintf("refers to more than one receiver (%s)", strings.Join(roots, ", "))
			errs = append(errs, &assertion.MalformedError{Kind: assertion.Invariant, Pos: pos, Msg: msg})
			continue
		}
		invs = append(invs, assertion.FromDirective(assertion.Invariant, expr, c.Slash))
	}
	return invs, errs
}

// FileSkipped reports whether the whole file is excluded.
func (m *Manager) FileSkipped() bool {
	return m.fileSkipped
}

// IsSkipped reports whether pos lies in a skipped region.
func (m *Manager) IsSkipped(pos token.Position) bool {
	if m.fileSkipped {
		return true
	}
	for _, r := range m.skips {
		if pos.Line >= r.start && pos.Line <= r.end {
			return true
		}
	}
	return false
}

// TypeInvariants returns the invariants declared on the named type.
func (m *Manager) TypeInvariants(typeName string) []assertion.Assertion {
	return m.invariants[typeName]
}
