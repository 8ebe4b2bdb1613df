package formula

import (
	"fmt"
	"unicode"
)

// TokenType identifies the lexical class of a Token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenFieldRef
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLeftParen
	TokenRightParen
)

func (t TokenType) isOperator() bool {
	return t == TokenPlus || t == TokenMinus || t == TokenStar || t == TokenSlash
}

// Token is a lexical token with its rune offset in the formula text.
// For TokenFieldRef, Value holds the key without braces.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// describe renders the token for error messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of formula"
	case TokenNumber:
		return fmt.Sprintf("number '%s'", t.Value)
	case TokenFieldRef:
		return fmt.Sprintf("field reference '{%s}'", t.Value)
	case TokenPlus, TokenMinus, TokenStar, TokenSlash:
		return fmt.Sprintf("operator '%s'", t.Value)
	default:
		return fmt.Sprintf("'%s'", t.Value)
	}
}

// lexer produces tokens on demand so that the parser always reports the
// leftmost problem, whether it is lexical or grammatical.
type lexer struct {
	runes []rune
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{runes: []rune(input)}
}

func (l *lexer) current() rune {
	if l.pos >= len(l.runes) {
		return 0
	}
	return l.runes[l.pos]
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.runes) && unicode.IsSpace(l.runes[l.pos]) {
		l.pos++
	}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isKeyRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

// next returns the next non-whitespace token.
func (l *lexer) next() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	if l.pos >= len(l.runes) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	ch := l.current()
	switch ch {
	case '+':
		l.pos++
		return Token{Type: TokenPlus, Value: "+", Pos: start}, nil
	case '-':
		l.pos++
		return Token{Type: TokenMinus, Value: "-", Pos: start}, nil
	case '*':
		l.pos++
		return Token{Type: TokenStar, Value: "*", Pos: start}, nil
	case '/':
		l.pos++
		return Token{Type: TokenSlash, Value: "/", Pos: start}, nil
	case '(':
		l.pos++
		return Token{Type: TokenLeftParen, Value: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRightParen, Value: ")", Pos: start}, nil
	case '{':
		return l.scanFieldRef()
	}

	if isDigit(ch) {
		return l.scanNumber(), nil
	}

	return Token{}, newSyntaxError(start, fmt.Sprintf("Unexpected character '%c'", ch))
}

// scanNumber reads digits, an optional single '.', and optional trailing digits.
func (l *lexer) scanNumber() Token {
	start := l.pos
	for isDigit(l.current()) {
		l.pos++
	}
	if l.current() == '.' {
		l.pos++
		for isDigit(l.current()) {
			l.pos++
		}
	}
	return Token{Type: TokenNumber, Value: string(l.runes[start:l.pos]), Pos: start}
}

// scanFieldRef reads a complete `{key}` reference. Whitespace and nested
// braces are not allowed between the braces.
func (l *lexer) scanFieldRef() (Token, error) {
	start := l.pos
	l.pos++ // consume '{'

	keyStart := l.pos
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == '}' {
			if l.pos == keyStart {
				return Token{}, newSyntaxError(start, "Empty field reference")
			}
			key := string(l.runes[keyStart:l.pos])
			l.pos++ // consume '}'
			return Token{Type: TokenFieldRef, Value: key, Pos: start}, nil
		}
		if !isKeyRune(ch) {
			return Token{}, newSyntaxError(l.pos, fmt.Sprintf("Invalid character '%c' in field reference", ch))
		}
		l.pos++
	}

	return Token{}, newSyntaxError(start, "Unterminated field reference")
}
