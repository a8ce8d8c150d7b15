// Package sjson implements a round-trip codec for the relaxed JSON dialect
// used by JBeam part files: unordered key/value pairs, optional and trailing
// commas, and // or /* */ comments.
//
// Parse produces a flat, order-preserving token sequence (a Document) in
// which every byte of the source — including whitespace, commas and comments —
// is owned by exactly one token, so Marshal(Parse(text)) reproduces text
// byte-for-byte. Commas are not structural in this dialect; they live inside
// whitespace-or-comment (wsc) tokens, which is what makes the dialect's comma
// rules flexible in the first place.
//
// The Document is a plain mutable slice. A rope or gap buffer would make
// repeated mid-document splices cheaper than the O(n) shift a slice costs,
// but at editor-file scale (thousands of lines) the slice wins on simplicity.
package sjson

import (
	"strconv"
	"strings"
)

// Kind is the lexical class of a Token.
type Kind uint8

const (
	// KindWSC is a run of whitespace, commas and comments. Never structural,
	// preserved verbatim unless an edit deliberately touches it.
	KindWSC Kind = iota
	KindObjectOpen
	KindObjectClose
	KindArrayOpen
	KindArrayClose
	KindColon
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindWSC:
		return "wsc"
	case KindObjectOpen:
		return "{"
	case KindObjectClose:
		return "}"
	case KindArrayOpen:
		return "["
	case KindArrayClose:
		return "]"
	case KindColon:
		return ":"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	}
	return "invalid"
}

// Token is one lexical unit of a Document. Raw always holds the exact bytes
// that Marshal will emit. For numbers, Prec records how many decimal digits
// the source (or the last rewrite) carried, so comparisons can be made at the
// precision the text actually expresses.
type Token struct {
	Kind Kind
	Raw  string

	Str  string  // decoded value when Kind == KindString
	Num  float64 // decoded value when Kind == KindNumber
	Prec int     // decimal digits in Raw when Kind == KindNumber
	Bool bool    // value when Kind == KindBool
}

// maxRewritePrec caps the precision used when a number token is rewritten
// with a new value.
const maxRewritePrec = 4

// SetNumber rewrites the token in place with v, re-deriving Raw at the
// value's natural decimal length capped at four digits.
func (t *Token) SetNumber(v float64) {
	p := NaturalPrec(v)
	if p > maxRewritePrec {
		p = maxRewritePrec
	}
	t.Kind = KindNumber
	t.Num = v
	t.Prec = p
	t.Raw = FormatNumber(v, p)
	t.Str = ""
}

// SetString rewrites the token in place with the (unquoted) string s.
func (t *Token) SetString(s string) {
	t.Kind = KindString
	t.Str = s
	t.Raw = Quote(s)
	t.Num = 0
	t.Prec = 0
}

// SetBool rewrites the token in place with b.
func (t *Token) SetBool(b bool) {
	t.Kind = KindBool
	t.Bool = b
	if b {
		t.Raw = "true"
	} else {
		t.Raw = "false"
	}
	t.Str = ""
	t.Num = 0
	t.Prec = 0
}

// Clone returns an independent copy of the token.
func (t *Token) Clone() *Token {
	c := *t
	return &c
}

// NewNumber builds a number token at the value's natural precision (capped).
func NewNumber(v float64) *Token {
	t := &Token{}
	t.SetNumber(v)
	return t
}

// NewString builds a string token for the unquoted value s.
func NewString(s string) *Token {
	t := &Token{}
	t.SetString(s)
	return t
}

// NewBool builds a bool token.
func NewBool(b bool) *Token {
	t := &Token{}
	t.SetBool(b)
	return t
}

// NewWSC builds a whitespace-or-comment token holding raw verbatim. The
// caller is responsible for raw being pure wsc material (whitespace, commas,
// comments); nothing re-checks it.
func NewWSC(raw string) *Token {
	return &Token{Kind: KindWSC, Raw: raw}
}

// NewDelim builds a structural delimiter token for k, which must be one of
// the open/close/colon kinds.
func NewDelim(k Kind) *Token {
	return &Token{Kind: k, Raw: k.String()}
}

// Document is the flat token sequence for one SJSON text.
type Document struct {
	Tokens []*Token
}

// Marshal renders the document back to text by concatenating every token's
// raw bytes. For a document that has not been mutated since Parse, the result
// is byte-identical to the input.
func (d *Document) Marshal() []byte {
	var b strings.Builder
	n := 0
	for _, t := range d.Tokens {
		n += len(t.Raw)
	}
	b.Grow(n)
	for _, t := range d.Tokens {
		b.WriteString(t.Raw)
	}
	return []byte(b.String())
}

// Clone returns a deep copy: mutating the clone's tokens leaves d untouched.
func (d *Document) Clone() *Document {
	c := &Document{Tokens: make([]*Token, len(d.Tokens))}
	for i, t := range d.Tokens {
		c.Tokens[i] = t.Clone()
	}
	return c
}

// Splice replaces the token range [start, end) with repl.
func (d *Document) Splice(start, end int, repl ...*Token) {
	out := make([]*Token, 0, len(d.Tokens)-(end-start)+len(repl))
	out = append(out, d.Tokens[:start]...)
	out = append(out, repl...)
	out = append(out, d.Tokens[end:]...)
	d.Tokens = out
}

// FormatNumber renders v with exactly prec digits after the decimal point
// (none when prec is zero). Values that round to zero render without a sign.
func FormatNumber(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if len(s) > 1 && s[0] == '-' {
		zero := true
		for _, c := range s[1:] {
			if c != '0' && c != '.' {
				zero = false
				break
			}
		}
		if zero {
			return s[1:]
		}
	}
	return s
}

// NaturalPrec returns the number of decimal digits in the shortest plain
// rendering of v.
func NaturalPrec(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// Quote renders s as a double-quoted SJSON string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
