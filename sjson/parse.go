package sjson

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ErrParse tags every tokenizer or structure error produced by Parse. Wrapped
// errors carry the line of the offending token's first byte.
var ErrParse = errors.New("sjson: parse error")

// Parse tokenizes data and validates its structure. The top level must be a
// single object; anything after its closing brace may only be wsc material.
func Parse(data []byte) (*Document, error) {
	lx := &lexer{src: data, line: 1}
	doc := &Document{}
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			break
		}
		doc.Tokens = append(doc.Tokens, tok)
	}

	// Structural validation: decode and discard. This keeps every later
	// walker free to assume balanced brackets and key/colon/value shape.
	i := SkipWSC(doc.Tokens, 0)
	if i >= len(doc.Tokens) || doc.Tokens[i].Kind != KindObjectOpen {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrParse)
	}
	_, end, err := decodeValue(doc.Tokens, i)
	if err != nil {
		return nil, err
	}
	if end = SkipWSC(doc.Tokens, end); end != len(doc.Tokens) {
		return nil, fmt.Errorf("%w: trailing content after top-level object", ErrParse)
	}
	return doc, nil
}

type lexer struct {
	src  []byte
	pos  int
	line int
}

func (lx *lexer) errf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrParse, lx.line, fmt.Sprintf(format, args...))
}

// next returns the next token, or nil at end of input.
func (lx *lexer) next() (*Token, error) {
	if wsc, err := lx.scanWSC(); err != nil {
		return nil, err
	} else if wsc != nil {
		return wsc, nil
	}
	if lx.pos >= len(lx.src) {
		return nil, nil
	}

	c := lx.src[lx.pos]
	switch {
	case c == '{':
		lx.pos++
		return NewDelim(KindObjectOpen), nil
	case c == '}':
		lx.pos++
		return NewDelim(KindObjectClose), nil
	case c == '[':
		lx.pos++
		return NewDelim(KindArrayOpen), nil
	case c == ']':
		lx.pos++
		return NewDelim(KindArrayClose), nil
	case c == ':':
		lx.pos++
		return NewDelim(KindColon), nil
	case c == '"':
		return lx.scanString()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return lx.scanNumber()
	case c == 't' || c == 'f':
		return lx.scanBool()
	default:
		return nil, lx.errf("unexpected character %q", c)
	}
}

// scanWSC consumes the maximal run of whitespace, commas and comments.
// Returns nil when the run is empty.
func (lx *lexer) scanWSC() (*Token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			lx.pos++
		case c == '\n':
			lx.line++
			lx.pos++
		case c == '/':
			if lx.pos+1 >= len(lx.src) {
				return nil, lx.errf("stray '/'")
			}
			switch lx.src[lx.pos+1] {
			case '/':
				lx.pos += 2
				for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
					lx.pos++
				}
			case '*':
				lx.pos += 2
				for {
					if lx.pos+1 >= len(lx.src) {
						return nil, lx.errf("unterminated block comment")
					}
					if lx.src[lx.pos] == '*' && lx.src[lx.pos+1] == '/' {
						lx.pos += 2
						break
					}
					if lx.src[lx.pos] == '\n' {
						lx.line++
					}
					lx.pos++
				}
			default:
				return nil, lx.errf("stray '/'")
			}
		default:
			goto done
		}
	}
done:
	if lx.pos == start {
		return nil, nil
	}
	return NewWSC(string(lx.src[start:lx.pos])), nil
}

func (lx *lexer) scanString() (*Token, error) {
	start := lx.pos
	lx.pos++ // opening quote
	var val strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return nil, lx.errf("unterminated string")
		}
		c := lx.src[lx.pos]
		switch {
		case c == '"':
			lx.pos++
			return &Token{
				Kind: KindString,
				Raw:  string(lx.src[start:lx.pos]),
				Str:  val.String(),
			}, nil
		case c == '\n':
			return nil, lx.errf("newline in string")
		case c == '\\':
			r, err := lx.scanEscape()
			if err != nil {
				return nil, err
			}
			val.WriteRune(r)
		default:
			val.WriteByte(c)
			lx.pos++
		}
	}
}

func (lx *lexer) scanEscape() (rune, error) {
	if lx.pos+1 >= len(lx.src) {
		return 0, lx.errf("unterminated escape")
	}
	lx.pos++ // backslash
	c := lx.src[lx.pos]
	lx.pos++
	switch c {
	case '"':
		return '"', nil
	case '\\':
		return '\\', nil
	case '/':
		return '/', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		r, err := lx.scanHex4()
		if err != nil {
			return 0, err
		}
		if utf16.IsSurrogate(r) && lx.pos+1 < len(lx.src) && lx.src[lx.pos] == '\\' && lx.src[lx.pos+1] == 'u' {
			lx.pos += 2
			r2, err := lx.scanHex4()
			if err != nil {
				return 0, err
			}
			if dec := utf16.DecodeRune(r, r2); dec != 0xFFFD {
				return dec, nil
			}
			return 0xFFFD, nil
		}
		return r, nil
	default:
		return 0, lx.errf("invalid escape \\%c", c)
	}
}

func (lx *lexer) scanHex4() (rune, error) {
	if lx.pos+4 > len(lx.src) {
		return 0, lx.errf("truncated \\u escape")
	}
	n, err := strconv.ParseUint(string(lx.src[lx.pos:lx.pos+4]), 16, 32)
	if err != nil {
		return 0, lx.errf("invalid \\u escape")
	}
	lx.pos += 4
	return rune(n), nil
}

func (lx *lexer) scanNumber() (*Token, error) {
	start := lx.pos
	if c := lx.src[lx.pos]; c == '-' || c == '+' {
		lx.pos++
	}
	digits := 0
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
		digits++
	}
	prec := 0
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		lx.pos++
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
			digits++
			prec++
		}
	}
	if digits == 0 {
		return nil, lx.errf("malformed number")
	}
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		lx.pos++
		if lx.pos < len(lx.src) && (lx.src[lx.pos] == '-' || lx.src[lx.pos] == '+') {
			lx.pos++
		}
		expDigits := 0
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
			expDigits++
		}
		if expDigits == 0 {
			return nil, lx.errf("malformed exponent")
		}
	}
	raw := string(lx.src[start:lx.pos])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, lx.errf("malformed number %q", raw)
	}
	return &Token{Kind: KindNumber, Raw: raw, Num: v, Prec: prec}, nil
}

func (lx *lexer) scanBool() (*Token, error) {
	rest := lx.src[lx.pos:]
	if len(rest) >= 4 && string(rest[:4]) == "true" && !isWordByte(rest, 4) {
		lx.pos += 4
		return &Token{Kind: KindBool, Raw: "true", Bool: true}, nil
	}
	if len(rest) >= 5 && string(rest[:5]) == "false" && !isWordByte(rest, 5) {
		lx.pos += 5
		return &Token{Kind: KindBool, Raw: "false", Bool: false}, nil
	}
	return nil, lx.errf("unexpected word (only true/false literals are supported)")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isWordByte reports whether rest[i] continues an identifier-like word, which
// would make a true/false prefix part of a longer (invalid) literal.
func isWordByte(rest []byte, i int) bool {
	if i >= len(rest) {
		return false
	}
	c := rest[i]
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// SkipWSC returns the index of the first non-wsc token at or after i.
func SkipWSC(toks []*Token, i int) int {
	for i < len(toks) && toks[i].Kind == KindWSC {
		i++
	}
	return i
}
