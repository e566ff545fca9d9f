package smt

import (
	"strings"
)

// Verdict is the tri-state outcome of solving a theorem.
type Verdict int

const (
	// Unknown means no solver response has been received yet.
	Unknown Verdict = iota
	// Proved means the negated goal is unsatisfiable.
	Proved
	// Refuted means the negated goal is satisfiable and a model exists.
	Refuted
)

func (v Verdict) String() string {
	switch v {
	case Unknown:
		return "unknown"
	case Proved:
		return "proved"
	case Refuted:
		return "refuted"
	default:
		return "?"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

const (
	markerSat   = "sat"
	markerUnsat = "unsat"
)

// Model maps program names to the values of a counterexample.
type Model map[string]any

// ParseVerdict classifies a raw solver response by its leading marker.
// An empty response is Unknown; anything other than sat/unsat is a
// ProtocolError.
func ParseVerdict(raw string) (Verdict, error) {
	if raw == "" {
		return Unknown, nil
	}
	switch leadingMarker(raw) {
	case markerUnsat:
		return Proved, nil
	case markerSat:
		return Refuted, nil
	default:
		return Unknown, &ProtocolError{Response: raw}
	}
}

// leadingMarker returns the first whitespace-delimited word of the response.
func leadingMarker(raw string) string {
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	end := strings.IndexAny(trimmed, " \t\r\n(")
	if end < 0 {
		return trimmed
	}
	return trimmed[:end]
}

// DecodeModel decodes the get-value section of a sat response into a
// name/value assignment. Names are returned as the solver printed them,
// with symbol quoting removed.
func DecodeModel(raw string) (Model, error) {
	verdict, err := ParseVerdict(raw)
	if err != nil {
		return nil, err
	}
	if verdict != Refuted {
		return nil, &DecodeError{Msg: "no model available: verdict is " + verdict.String()}
	}

	body := strings.TrimLeft(raw, " \t\r\n")[len(markerSat):]
	terms, err := ParseAll(body)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, &DecodeError{Msg: "missing value list after sat"}
	}
	if len(terms) > 1 {
		return nil, &DecodeError{Msg: "unexpected trailing output: " + terms[1].String(), Offset: terms[1].Position}
	}

	pairs := terms[0]
	if !pairs.IsList {
		return nil, unexpected(pairs, "a parenthesized value list")
	}

	model := make(Model, len(pairs.List))
	for _, pair := range pairs.List {
		if !pair.IsList {
			return nil, unexpected(pair, "a (name value) pair")
		}
		if len(pair.List) == 0 {
			continue
		}
		if len(pair.List) != 2 {
			return nil, unexpected(pair, "a (name value) pair")
		}
		name := pair.List[0]
		if name.IsList || name.Atom.Type != TokenSymbol {
			return nil, unexpected(name, "a symbol")
		}
		value, err := DecodeValue(pair.List[1])
		if err != nil {
			return nil, err
		}
		model[Name(name.Atom.Value)] = value
	}
	return model, nil
}
