// Package theorem encodes verification conditions as solver queries and
// interprets the solver's answers.
//
// A theorem states that its goal follows from its assumptions after
// executing its body. It is checked by refutation: the query asserts the
// assumptions, the body and the negated goal, so an unsatisfiable query
// proves the theorem and a satisfiable one yields a counterexample.
package theorem

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/gnolang/tverify/internal/smt"
)

// Kind classifies where an obligation comes from.
type Kind int

const (
	Postcondition Kind = iota + 1
	Invariant
	LoopInvariant
	Initially
	GroupInvariant
	Assert
	EntryRequirement
)

func (k Kind) String() string {
	switch k {
	case Postcondition:
		return "postcondition"
	case Invariant:
		return "invariant"
	case LoopInvariant:
		return "loop invariant"
	case Initially:
		return "initially"
	case GroupInvariant:
		return "type invariant"
	case Assert:
		return "assert"
	case EntryRequirement:
		return "loop entry"
	default:
		return "?"
	}
}

// Spec holds the immutable inputs of a theorem.
type Spec struct {
	Vars        []string
	Assumptions []ast.Expr
	Body        []ast.Stmt
	Goal        ast.Expr
	Label       string
	Kind        Kind
	// Pos locates the goal in the source, for reporting only.
	Pos token.Pos
}

// Translator turns program fragments into solver terms. A Session carries
// the per-theorem state, so assumptions are read in the initial state and
// the goal in the state reached after the body.
type Translator interface {
	NewSession(vars []string) Session
}

type Session interface {
	// Declare returns the declaration of a program name as an opaque value.
	Declare(name string) string
	// Truthy returns a Bool term for the truthiness of expr in the current state.
	Truthy(expr ast.Expr) (string, error)
	// Body translates stmts, advancing the current state. The second result
	// is the symbol bound to the returned value, if the body returns one.
	Body(stmts []ast.Stmt) (string, string, error)
	// Free lists names referenced so far that were neither declared nor
	// assigned.
	Free() []string
	// Current returns the symbol holding name's value in the current state.
	Current(name string) string
	// Done returns a Bool term that holds on the paths that have already
	// returned.
	Done() string
}

// Transport delivers a query to a solver and returns its raw response.
type Transport interface {
	Submit(ctx context.Context, query string) (string, error)
}

// Config wires a theorem to its collaborators.
type Config struct {
	Translator Translator
	Transport  Transport
	// Preamble defaults to smt.Preamble.
	Preamble string
}

var (
	errNoTranslator = errors.New("theorem: no translator configured")
	errNoTransport  = errors.New("theorem: no solver transport configured")
)

type encoding struct {
	text string
	// names maps the unquoted symbols of the value request to the program
	// names reported in a model.
	names map[string]string
	// asked reports whether the query requests any value.
	asked bool
}

// checkpoint reports whether the goal of kind is checked in the middle of
// a body, where paths that returned earlier never reach it.
func checkpoint(kind Kind) bool {
	return kind == Assert || kind == EntryRequirement
}

// Theorem is one (variables, assumptions, body, goal) tuple. Its query,
// raw result and model are each computed at most once.
type Theorem struct {
	spec Spec
	cfg  Config

	query cell[encoding]
	raw   cell[string]
	model cell[smt.Model]
}

func New(spec Spec, cfg Config) *Theorem {
	return &Theorem{spec: spec, cfg: cfg}
}

func (t *Theorem) Spec() Spec { return t.spec }

// Description returns the human readable label.
func (t *Theorem) Description() string { return t.spec.Label }

// Encode returns the solver input for the theorem.
func (t *Theorem) Encode() (string, error) {
	enc, err := t.query.fill(t.encode)
	if err != nil {
		return "", err
	}
	return enc.text, nil
}

func (t *Theorem) encode() (encoding, error) {
	if t.cfg.Translator == nil {
		return encoding{}, errNoTranslator
	}
	preamble := t.cfg.Preamble
	if preamble == "" {
		preamble = smt.Preamble
	}

	vars := dedupe(t.spec.Vars)
	session := t.cfg.Translator.NewSession(vars)

	requirements := make([]string, 0, len(t.spec.Assumptions))
	for _, a := range t.spec.Assumptions {
		term, err := session.Truthy(a)
		if err != nil {
			return encoding{}, fmt.Errorf("assumption: %w", err)
		}
		requirements = append(requirements, "(assert "+term+")")
	}

	body, result, err := session.Body(t.spec.Body)
	if err != nil {
		return encoding{}, fmt.Errorf("body: %w", err)
	}

	goal, err := session.Truthy(t.spec.Goal)
	if err != nil {
		return encoding{}, fmt.Errorf("goal: %w", err)
	}

	declared := append(append([]string(nil), vars...), session.Free()...)
	params := make([]string, 0, len(declared))
	asked := make([]string, 0, len(declared)+1)
	names := make(map[string]string, len(declared)+1)
	for _, name := range declared {
		params = append(params, session.Declare(name))
		// report every name by the value it holds when the goal is checked
		sym := session.Current(name)
		asked = append(asked, sym)
		names[smt.Name(sym)] = name
	}
	if result != "" {
		asked = append(asked, result)
		names[smt.Name(result)] = "result"
	}

	negated := "(not " + goal + ")"
	if done := session.Done(); checkpoint(t.spec.Kind) && done != "false" {
		negated = "(and (not " + done + ") " + negated + ")"
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n; parameters\n")
	writeLines(&b, params)
	b.WriteString("\n; requirements\n")
	writeLines(&b, requirements)
	b.WriteString("\n; body\n")
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	b.WriteString("\n; post condition\n")
	b.WriteString("(assert " + negated + ")\n\n")
	b.WriteString("(check-sat)\n")
	if len(asked) > 0 {
		b.WriteString("(get-value (" + strings.Join(asked, " ") + "))\n")
	}

	return encoding{text: b.String(), names: names, asked: len(asked) > 0}, nil
}

// Solve submits the query once and caches the raw response. Later calls
// return the cached response without contacting the solver.
func (t *Theorem) Solve(ctx context.Context) (string, error) {
	if raw, ok := t.raw.get(); ok {
		return raw, nil
	}
	if t.cfg.Transport == nil {
		return "", errNoTransport
	}
	query, err := t.Encode()
	if err != nil {
		return "", err
	}
	return t.raw.fill(func() (string, error) {
		return t.cfg.Transport.Submit(ctx, query)
	})
}

// Raw returns the cached solver response, or "" before Solve succeeded.
func (t *Theorem) Raw() string {
	raw, _ := t.raw.get()
	return raw
}

// Verdict classifies the cached response. It is Unknown before Solve.
func (t *Theorem) Verdict() (smt.Verdict, error) {
	return smt.ParseVerdict(t.Raw())
}

// Model decodes the counterexample of a refuted theorem. Values are keyed
// by program name; the returned value of a function is reported under the
// name "result".
func (t *Theorem) Model() (smt.Model, error) {
	return t.model.fill(func() (smt.Model, error) {
		verdict, err := t.Verdict()
		if err != nil {
			return nil, err
		}
		if verdict != smt.Refuted {
			return nil, &smt.DecodeError{Msg: "no model available: verdict is " + verdict.String()}
		}

		enc, _ := t.query.get()
		if !enc.asked {
			return smt.Model{}, nil
		}
		decoded, err := smt.DecodeModel(t.Raw())
		if err != nil {
			return nil, err
		}
		model := make(smt.Model, len(decoded))
		for sym, value := range decoded {
			name, ok := enc.names[sym]
			if !ok {
				name = sym
			}
			model[name] = value
		}
		return model, nil
	})
}

func writeLines(b *strings.Builder, lines []string) {
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || n == "_" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
