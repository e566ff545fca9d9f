package smt

import (
	"fmt"
	"strings"
)

// TokenType defines the lexical classes of the solver's output language.
type TokenType int

const (
	TokenLParen  TokenType = iota // '('
	TokenRParen                   // ')'
	TokenSymbol                   // simple or |quoted| symbol
	TokenString                   // "..." with "" escapes
	TokenNumeral                  // 42
	TokenDecimal                  // 4.2
	TokenKeyword                  // :name
	TokenEOF
)

// Token is a single lexical token with its offset in the input.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

// Lexer splits solver output into tokens. Strings and quoted symbols are
// scanned as a whole, so parentheses inside them never affect nesting.
type Lexer struct {
	input    string
	position int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next token or a DecodeError for an unterminated literal.
func (l *Lexer) Next() (Token, error) {
	l.skipSpaceAndComments()
	if l.position >= len(l.input) {
		return Token{Type: TokenEOF, Position: l.position}, nil
	}

	start := l.position
	switch c := l.input[l.position]; {
	case c == '(':
		l.position++
		return Token{Type: TokenLParen, Value: "(", Position: start}, nil
	case c == ')':
		l.position++
		return Token{Type: TokenRParen, Value: ")", Position: start}, nil
	case c == '"':
		return l.lexString()
	case c == '|':
		end := strings.IndexByte(l.input[start+1:], '|')
		if end < 0 {
			return Token{}, &DecodeError{Msg: "unterminated quoted symbol", Offset: start}
		}
		l.position = start + end + 2
		return Token{Type: TokenSymbol, Value: l.input[start:l.position], Position: start}, nil
	case c == ':':
		l.position++
		l.scanAtom()
		return Token{Type: TokenKeyword, Value: l.input[start:l.position], Position: start}, nil
	case c >= '0' && c <= '9':
		l.scanAtom()
		text := l.input[start:l.position]
		if strings.Contains(text, ".") {
			return Token{Type: TokenDecimal, Value: text, Position: start}, nil
		}
		return Token{Type: TokenNumeral, Value: text, Position: start}, nil
	default:
		l.scanAtom()
		if l.position == start {
			// a character that cannot start any token; consume it as a symbol
			l.position++
		}
		return Token{Type: TokenSymbol, Value: l.input[start:l.position], Position: start}, nil
	}
}

func (l *Lexer) lexString() (Token, error) {
	start := l.position
	i := start + 1
	for i < len(l.input) {
		if l.input[i] == '"' {
			// "" is an escaped quote inside the literal
			if i+1 < len(l.input) && l.input[i+1] == '"' {
				i += 2
				continue
			}
			l.position = i + 1
			return Token{Type: TokenString, Value: l.input[start:l.position], Position: start}, nil
		}
		i++
	}
	return Token{}, &DecodeError{Msg: "unterminated string literal", Offset: start}
}

func (l *Lexer) scanAtom() {
	for l.position < len(l.input) {
		c := l.input[l.position]
		if isWhitespace(c) || c == '(' || c == ')' || c == '"' || c == '|' || c == ';' {
			return
		}
		l.position++
	}
}

func (l *Lexer) skipSpaceAndComments() {
	for l.position < len(l.input) {
		c := l.input[l.position]
		switch {
		case isWhitespace(c):
			l.position++
		case c == ';':
			for l.position < len(l.input) && l.input[l.position] != '\n' {
				l.position++
			}
		default:
			return
		}
	}
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Sexp is a parsed term: either an atom or a list.
type Sexp struct {
	Atom     Token
	List     []*Sexp
	IsList   bool
	Position int
}

// IsSymbol reports whether the term is the symbol name (quoting ignored).
func (s *Sexp) IsSymbol(name string) bool {
	return !s.IsList && s.Atom.Type == TokenSymbol && Name(s.Atom.Value) == name
}

func (s *Sexp) String() string {
	if !s.IsList {
		return s.Atom.Value
	}
	parts := make([]string, len(s.List))
	for i, e := range s.List {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Parser is a recursive-descent parser over the lexer's tokens.
type Parser struct {
	lexer *Lexer
	tok   Token
}

func NewParser(input string) (*Parser, error) {
	p := &Parser{lexer: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lexer.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// AtEOF reports whether all input was consumed.
func (p *Parser) AtEOF() bool {
	return p.tok.Type == TokenEOF
}

// Parse reads one complete term.
func (p *Parser) Parse() (*Sexp, error) {
	switch p.tok.Type {
	case TokenEOF:
		return nil, &DecodeError{Msg: "unexpected end of input", Offset: p.tok.Position}
	case TokenRParen:
		return nil, &DecodeError{Msg: "unbalanced ')'", Offset: p.tok.Position}
	case TokenLParen:
		start := p.tok.Position
		if err := p.advance(); err != nil {
			return nil, err
		}
		list := &Sexp{IsList: true, Position: start}
		for p.tok.Type != TokenRParen {
			if p.tok.Type == TokenEOF {
				return nil, &DecodeError{Msg: "missing ')'", Offset: start}
			}
			elem, err := p.Parse()
			if err != nil {
				return nil, err
			}
			list.List = append(list.List, elem)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		atom := &Sexp{Atom: p.tok, Position: p.tok.Position}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return atom, nil
	}
}

// ParseAll parses every term of input.
func ParseAll(input string) ([]*Sexp, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}
	var terms []*Sexp
	for !p.AtEOF() {
		term, err := p.Parse()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func unexpected(s *Sexp, want string) error {
	return &DecodeError{Msg: fmt.Sprintf("expected %s, got %s", want, s), Offset: s.Position}
}
