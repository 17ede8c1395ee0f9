package expr

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokStarStar
	tokSlashSlash
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex scans the input into tokens. Anything outside numbers, the arithmetic
// operator set, and parentheses is a lex error, so identifiers, strings, and
// every other construct are unrepresentable before parsing even starts.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c >= '0' && c <= '9' || c == '.':
			tok, next, err := scanNumber(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case c == '+':
			tokens = append(tokens, token{kind: tokPlus, text: "+", pos: i})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokMinus, text: "-", pos: i})
			i++
		case c == '*':
			if i+1 < len(input) && input[i+1] == '*' {
				tokens = append(tokens, token{kind: tokStarStar, text: "**", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokStar, text: "*", pos: i})
				i++
			}
		case c == '/':
			if i+1 < len(input) && input[i+1] == '/' {
				tokens = append(tokens, token{kind: tokSlashSlash, text: "//", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokSlash, text: "/", pos: i})
				i++
			}
		case c == '%':
			tokens = append(tokens, token{kind: tokPercent, text: "%", pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(input)})
	return tokens, nil
}

// scanNumber consumes an integer or decimal literal, optionally with an
// exponent part (1e3, 2.5E-4).
func scanNumber(input string, start int) (token, int, error) {
	i := start
	sawDigit := false
	sawDot := false
	for i < len(input) {
		c := input[i]
		if c >= '0' && c <= '9' {
			sawDigit = true
			i++
			continue
		}
		if c == '.' && !sawDot {
			sawDot = true
			i++
			continue
		}
		break
	}
	if !sawDigit {
		return token{}, 0, fmt.Errorf("malformed number at offset %d", start)
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		expDigits := false
		for j < len(input) && input[j] >= '0' && input[j] <= '9' {
			expDigits = true
			j++
		}
		if !expDigits {
			return token{}, 0, fmt.Errorf("malformed exponent at offset %d", i)
		}
		i = j
	}
	return token{kind: tokNumber, text: input[start:i], pos: start}, i, nil
}
