package translate

import (
	"fmt"
	"go/ast"
	"sort"
	"strings"

	"github.com/gnolang/tverify/internal/smt"
)

const (
	termTrue  = "true"
	termFalse = "false"
	// doneVar names the Bool constants recording that a return was taken.
	// The leading '!' keeps them apart from program names.
	doneVar = "!done"
)

// state is the part of a session that forks at branches.
type state struct {
	// env maps a program name to the unquoted symbol holding its current
	// value.
	env map[string]string
	// done is a Bool term, true once the current path has returned.
	done string
}

func (st state) clone() state {
	env := make(map[string]string, len(st.env))
	for k, v := range st.env {
		env[k] = v
	}
	return state{env: env, done: st.done}
}

type session struct {
	t *Translator

	cur      state
	versions map[string]int
	// path holds the branch conditions enclosing the statement being
	// translated.
	path []string

	free     []string
	freeSeen map[string]bool
	lines    []string
}

func newSession(t *Translator, vars []string) *session {
	s := &session{
		t:        t,
		cur:      state{env: make(map[string]string, len(vars)), done: termFalse},
		versions: make(map[string]int),
		freeSeen: make(map[string]bool),
	}
	for _, v := range vars {
		s.cur.env[v] = v
	}
	return s
}

func (s *session) Declare(name string) string {
	sym := smt.Symbol(name)
	decl := "(declare-const " + sym + " Val)"
	if g := s.t.guard(name, sym); g != "" {
		decl += "\n(assert " + g + ")"
	}
	return decl
}

func (s *session) Truthy(expr ast.Expr) (string, error) {
	term, err := s.expr(expr)
	if err != nil {
		return "", err
	}
	return truthy(term), nil
}

func (s *session) Body(stmts []ast.Stmt) (string, string, error) {
	if err := s.stmts(s.t.prepare(stmts)); err != nil {
		return "", "", err
	}
	var result string
	if sym, ok := s.cur.env[ResultVar]; ok {
		result = smt.Symbol(sym)
	}
	return strings.Join(s.lines, "\n"), result, nil
}

func (s *session) Free() []string {
	out := make([]string, len(s.free))
	copy(out, s.free)
	return out
}

func (s *session) Current(name string) string {
	if sym, ok := s.cur.env[name]; ok {
		return smt.Symbol(sym)
	}
	return smt.Symbol(name)
}

func (s *session) Done() string {
	return s.cur.done
}

func (s *session) emit(format string, args ...any) {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

// ref returns the symbol holding name's current value. Names never
// declared nor assigned become free constants.
func (s *session) ref(name string) string {
	if sym, ok := s.cur.env[name]; ok {
		return smt.Symbol(sym)
	}
	if !s.freeSeen[name] {
		s.freeSeen[name] = true
		s.free = append(s.free, name)
	}
	s.cur.env[name] = name
	return smt.Symbol(name)
}

// fresh allocates the next version of name without binding it.
func (s *session) fresh(name string) string {
	s.versions[name]++
	return fmt.Sprintf("%s@%d", name, s.versions[name])
}

// assign binds name to a new version holding value. Once the path may have
// returned, the new version keeps the old value on returned paths.
func (s *session) assign(name, value string) {
	if s.cur.done != termFalse {
		value = ite(s.cur.done, s.ref(name), value)
	}
	version := s.fresh(name)
	s.emit("(define-fun %s () Val %s)", smt.Symbol(version), value)
	s.cur.env[name] = version
}

// havoc binds name to a new unconstrained version.
func (s *session) havoc(name string) {
	old := ""
	if s.cur.done != termFalse {
		old = s.ref(name)
	}
	version := s.fresh(name)
	sym := smt.Symbol(version)
	s.emit("(declare-const %s Val)", sym)
	if g := s.t.guard(name, sym); g != "" {
		s.emit("(assert %s)", g)
	}
	if old != "" {
		s.emit("(assert (=> %s (= %s %s)))", s.cur.done, sym, old)
	}
	s.cur.env[name] = version
}

// assume asserts cond on the paths reaching the current statement.
func (s *session) assume(cond string) {
	guards := append([]string(nil), s.path...)
	if s.cur.done != termFalse {
		guards = append(guards, "(not "+s.cur.done+")")
	}
	switch len(guards) {
	case 0:
		s.emit("(assert %s)", cond)
	case 1:
		s.emit("(assert (=> %s %s))", guards[0], cond)
	default:
		s.emit("(assert (=> (and %s) %s))", strings.Join(guards, " "), cond)
	}
}

// merge joins the states reached by the two arms of a branch on cond.
func (s *session) merge(cond string, then, els state) {
	merged := state{env: make(map[string]string, len(then.env))}
	names := make([]string, 0, len(then.env))
	for name := range then.env {
		names = append(names, name)
	}
	for name := range els.env {
		if _, ok := then.env[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		a, inThen := then.env[name]
		b, inElse := els.env[name]
		switch {
		case inThen && inElse && a == b:
			merged.env[name] = a
			continue
		case inThen && inElse:
		case name == ResultVar:
			// a path that does not return leaves no result
		default:
			// declared inside a single arm
			continue
		}
		aTerm, bTerm := "VNil", "VNil"
		if inThen {
			aTerm = smt.Symbol(a)
		}
		if inElse {
			bTerm = smt.Symbol(b)
		}
		version := s.fresh(name)
		s.emit("(define-fun %s () Val %s)", smt.Symbol(version), ite(cond, aTerm, bTerm))
		merged.env[name] = version
	}

	switch {
	case then.done == els.done:
		merged.done = then.done
	default:
		version := s.fresh(doneVar)
		s.emit("(define-fun %s () Bool %s)", smt.Symbol(version), ite(cond, then.done, els.done))
		merged.done = smt.Symbol(version)
	}
	s.cur = merged
}

func truthy(term string) string {
	return "(_truthy " + term + ")"
}

func ite(cond, a, b string) string {
	switch cond {
	case termTrue:
		return a
	case termFalse:
		return b
	}
	if a == b {
		return a
	}
	return "(ite " + cond + " " + a + " " + b + ")"
}

func not(cond string) string {
	switch cond {
	case termTrue:
		return termFalse
	case termFalse:
		return termTrue
	}
	return "(not " + cond + ")"
}
