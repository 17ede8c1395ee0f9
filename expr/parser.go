package expr

import (
	"errors"
	"fmt"
	"strconv"
)

// Parse scans and parses input into a restricted syntax tree.
//
// Precedence, loosest to tightest: add/subtract, then multiply/divide/
// modulo/floor-divide (all left-associative), then power (right-
// associative), then unary minus, then literals and parentheses.
func Parse(input string) (Node, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", tok.text, tok.pos)
	}
	return node, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.peek().kind {
		case tokPlus:
			op = OpAdd
		case tokMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.peek().kind {
		case tokStar:
			op = OpMul
		case tokSlash:
			op = OpDiv
		case tokPercent:
			op = OpMod
		case tokSlashSlash:
			op = OpFloorDiv
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// parsePower handles **, which is right-associative and binds looser than
// unary minus on its left operand: -2**2 is (-2)**2.
func (p *parser) parsePower() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokStarStar {
		return left, nil
	}
	p.advance()
	right, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: OpPow, Left: left, Right: right}, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().kind == tokMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNeg, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	switch tok := p.peek(); tok.kind {
	case tokNumber:
		p.advance()
		value, err := parseLiteral(tok.text)
		if err != nil {
			return nil, fmt.Errorf("bad literal %q at offset %d: %w", tok.text, tok.pos, err)
		}
		return &Literal{Value: value}, nil
	case tokLParen:
		p.advance()
		node, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis at offset %d", closing.pos)
		}
		return node, nil
	case tokEOF:
		return nil, errors.New("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", tok.text, tok.pos)
	}
}

// parseLiteral keeps plain integers integral and falls back to a float for
// decimals, exponent forms, and integers beyond the int64 range.
func parseLiteral(text string) (Value, error) {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return IntValue(i), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, err
	}
	return FloatValue(f), nil
}
