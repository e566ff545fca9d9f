package smt

import (
	"math/big"
	"strconv"
)

// Term is a value the decoder has no native representation for; it keeps
// the solver's own text.
type Term string

// DecodeValue converts a solver value term into a native Go value:
// int64 (or *big.Int when out of range), float64, bool, string, nil for
// VNil, or Term for anything else.
func DecodeValue(s *Sexp) (any, error) {
	if !s.IsList {
		return decodeAtom(s)
	}
	if len(s.List) == 0 {
		return nil, unexpected(s, "a value")
	}

	head := s.List[0]
	args := s.List[1:]
	switch {
	case head.IsSymbol("-") && len(args) == 1:
		v, err := DecodeValue(args[0])
		if err != nil {
			return nil, err
		}
		return negate(v), nil
	case head.IsSymbol("/") && len(args) == 2:
		num, err := DecodeValue(args[0])
		if err != nil {
			return nil, err
		}
		den, err := DecodeValue(args[1])
		if err != nil {
			return nil, err
		}
		n, nok := toFloat(num)
		d, dok := toFloat(den)
		if !nok || !dok || d == 0 {
			return Term(s.String()), nil
		}
		return n / d, nil
	case (head.IsSymbol("VInt") || head.IsSymbol("VBool") || head.IsSymbol("VStr")) && len(args) == 1:
		return DecodeValue(args[0])
	case head.IsSymbol("VNil") && len(args) == 0:
		return nil, nil
	}
	return Term(s.String()), nil
}

func decodeAtom(s *Sexp) (any, error) {
	text := s.Atom.Value
	switch s.Atom.Type {
	case TokenNumeral:
		return parseInteger(text), nil
	case TokenDecimal:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &DecodeError{Msg: "bad decimal " + text, Offset: s.Position}
		}
		return f, nil
	case TokenString:
		return UnquoteString(text)
	case TokenSymbol:
		switch Name(text) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "VNil":
			return nil, nil
		}
		if _, err := strconv.ParseInt(text, 10, 64); err == nil {
			return parseInteger(text), nil
		}
	}
	return Term(text), nil
}

func parseInteger(text string) any {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return Term(text)
	}
	return n
}

func negate(v any) any {
	switch x := v.(type) {
	case int64:
		if x == -x && x != 0 {
			// math.MinInt64 has no int64 negation
			return new(big.Int).Neg(big.NewInt(x))
		}
		return -x
	case *big.Int:
		n := new(big.Int).Neg(x)
		if n.IsInt64() {
			return n.Int64()
		}
		return n
	case float64:
		return -x
	default:
		return Term("(- " + toText(v) + ")")
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	}
	return 0, false
}

func toText(v any) string {
	switch x := v.(type) {
	case Term:
		return string(x)
	case string:
		return StringLiteral(x)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "VNil"
	}
	return "?"
}
