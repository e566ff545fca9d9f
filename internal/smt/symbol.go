package smt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// reserved holds names that cannot be declared as constants as-is: SMT-LIB
// reserved words, core theory functions and the helpers of the preamble.
// A Go identifier colliding with one of them is declared with a trailing '#'.
var reserved = map[string]bool{
	"!": true, "_": true, "as": true, "exists": true, "forall": true, "let": true,
	"match": true, "par": true, "BINARY": true, "DECIMAL": true, "HEXADECIMAL": true,
	"NUMERAL": true, "STRING": true,
	"true": true, "false": true, "not": true, "and": true, "or": true, "xor": true,
	"ite": true, "distinct": true, "div": true, "mod": true, "abs": true,
	"select": true, "store": true, "Int": true, "Bool": true, "String": true, "Real": true,
	"Val": true, "VInt": true, "VBool": true, "VStr": true, "VNil": true,
	"ival": true, "bval": true, "sval": true,
	"_truthy": true, "_isint2": true, "_isstr2": true, "_abs": true, "_tdiv": true,
	"_add": true, "_sub": true, "_mul": true, "_div": true, "_rem": true, "_neg": true,
	"_lt": true, "_le": true, "_gt": true, "_ge": true, "_eq": true, "_neq": true,
	"_not": true, "_and": true, "_or": true, "_len": true,
}

const reservedMark = "#"

func isSymbolChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("~!@$%^&*_-+=<>.?/", c) >= 0
}

func isSimpleSymbol(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isSymbolChar(s[i]) {
			return false
		}
	}
	return true
}

// Symbol returns the SMT-LIB symbol used to declare the program name.
func Symbol(name string) string {
	if reserved[name] {
		return "|" + name + reservedMark + "|"
	}
	if isSimpleSymbol(name) {
		return name
	}
	return "|" + name + "|"
}

// Name is the inverse of Symbol. It also accepts symbols as printed back by
// the solver, which may or may not keep the quoting bars.
func Name(sym string) string {
	if len(sym) >= 2 && sym[0] == '|' && sym[len(sym)-1] == '|' {
		sym = sym[1 : len(sym)-1]
	}
	if base := strings.TrimSuffix(sym, reservedMark); base != sym && reserved[base] {
		return base
	}
	return sym
}

// StringLiteral encodes s as an SMT-LIB 2.6 string literal. Double quotes are
// doubled; backslashes and runes outside printable ASCII are written as
// \u{..} escapes so the solver never reinterprets them.
func StringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`""`)
		case r == '\\' || r < 0x20 || r > 0x7e:
			if r == utf8.RuneError {
				r = 0xfffd
			}
			fmt.Fprintf(&b, `\u{%x}`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// UnquoteString decodes a string literal as printed by the solver.
func UnquoteString(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return "", &DecodeError{Msg: fmt.Sprintf("not a string literal: %s", lit)}
	}
	body := lit[1 : len(lit)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '"':
			if i+1 >= len(body) || body[i+1] != '"' {
				return "", &DecodeError{Msg: fmt.Sprintf("unescaped quote in %s", lit)}
			}
			b.WriteByte('"')
			i++
		case c == '\\' && i+1 < len(body) && body[i+1] == 'u':
			r, n, ok := parseUnicodeEscape(body[i:])
			if !ok {
				b.WriteByte(c)
				continue
			}
			b.WriteRune(r)
			i += n - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// parseUnicodeEscape reads \u{h..h} or \uhhhh at the start of s and returns
// the rune with the number of bytes consumed.
func parseUnicodeEscape(s string) (rune, int, bool) {
	if len(s) < 3 || s[0] != '\\' || s[1] != 'u' {
		return 0, 0, false
	}
	if s[2] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 4 || end > 8 {
			return 0, 0, false
		}
		r, ok := parseHex(s[3:end])
		return r, end + 1, ok
	}
	if len(s) < 6 {
		return 0, 0, false
	}
	r, ok := parseHex(s[2:6])
	return r, 6, ok
}

func parseHex(s string) (rune, bool) {
	var r rune
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		r = r<<4 | rune(d)
	}
	return r, s != ""
}
