package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// parser is a recursive-descent parser over the fixed grammar
//
//	expr   := term (('+' | '-') term)*
//	term   := factor (('*' | '/') factor)*
//	factor := '-' factor | '(' expr ')' | number | '{' identifier '}'
type parser struct {
	lex  *lexer
	tok  Token
	prev Token
	// open holds the positions of the currently unclosed '(' tokens.
	open []int
}

// Parse turns formula text into an expression tree. It either returns a
// complete tree or a *SyntaxError; there is no partial result.
func Parse(text string) (Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newSyntaxError(0, "Formula is empty")
	}

	p := &parser{lex: newLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.tok.Type != TokenEOF {
		return nil, p.unexpected()
	}
	return root, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.prev = p.tok
	p.tok = tok
	return nil
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.tok.Type == TokenPlus || p.tok.Type == TokenMinus {
		opTok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: Operator(opTok.Value[0]), Left: left, Right: right, Position: opTok.Pos}
	}
	return left, nil
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for p.tok.Type == TokenStar || p.tok.Type == TokenSlash {
		opTok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: Operator(opTok.Value[0]), Left: left, Right: right, Position: opTok.Pos}
	}
	return left, nil
}

func (p *parser) parseFactor() (Node, error) {
	tok := p.tok

	switch tok.Type {
	case TokenMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryMinus{Operand: operand, Position: tok.Pos}, nil

	case TokenLeftParen:
		p.open = append(p.open, tok.Pos)
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.Type != TokenRightParen {
			if p.tok.Type == TokenEOF {
				return nil, newSyntaxError(tok.Pos, "Unmatched '('")
			}
			return nil, p.unexpected()
		}
		p.open = p.open[:len(p.open)-1]
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenNumber:
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, newSyntaxError(tok.Pos, fmt.Sprintf("Number '%s' is out of range", tok.Value))
			}
			return nil, newSyntaxError(tok.Pos, fmt.Sprintf("Invalid number '%s'", tok.Value))
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Number{Value: value, Position: tok.Pos}, nil

	case TokenFieldRef:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &FieldRef{Key: tok.Value, Position: tok.Pos}, nil

	case TokenEOF:
		// Input ended where an operand was required: blame whatever left
		// the operand dangling.
		switch {
		case p.prev.Type.isOperator():
			return nil, newSyntaxError(p.prev.Pos, fmt.Sprintf("Missing operand after operator '%s'", p.prev.Value))
		case p.prev.Type == TokenLeftParen:
			return nil, newSyntaxError(p.prev.Pos, "Unmatched '('")
		}
	}

	return nil, p.unexpected()
}

// unexpected builds the error for the current token appearing where it
// is not allowed.
func (p *parser) unexpected() error {
	tok := p.tok
	switch {
	case tok.Type == TokenRightParen && len(p.open) == 0:
		return newSyntaxError(tok.Pos, "Unmatched ')'")
	case tok.Type == TokenRightParen && p.prev.Type == TokenLeftParen:
		return newSyntaxError(p.prev.Pos, "Empty parentheses")
	case tok.Type == TokenEOF:
		return newSyntaxError(tok.Pos, "Unexpected end of formula")
	}
	return newSyntaxError(tok.Pos, "Unexpected "+tok.describe())
}
