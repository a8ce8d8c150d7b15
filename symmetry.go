package jbeamsync

import (
	"fmt"
	"strings"
)

// SymmetryScheme is a parsed left/right affix pair. Counterpart derivation is
// an involution: applying it twice yields the original id.
type SymmetryScheme struct {
	Left  string
	Right string
}

// DefaultSymmetryScheme is the fallback pair used when the configured scheme
// cannot be parsed.
func DefaultSymmetryScheme() SymmetryScheme {
	return SymmetryScheme{Left: "l", Right: "r"}
}

// ParseSymmetryScheme parses a "left/right" affix specification. Both affixes
// must be non-empty and distinct, and neither may contain the separator.
func ParseSymmetryScheme(spec string) (SymmetryScheme, error) {
	parts := strings.Split(spec, "/")
	if len(parts) != 2 {
		return SymmetryScheme{}, fmt.Errorf("%w: %q (want \"left/right\")", ErrInvalidSymmetryScheme, spec)
	}
	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	if left == "" || right == "" {
		return SymmetryScheme{}, fmt.Errorf("%w: %q (empty affix)", ErrInvalidSymmetryScheme, spec)
	}
	if left == right {
		return SymmetryScheme{}, fmt.Errorf("%w: %q (affixes must differ)", ErrInvalidSymmetryScheme, spec)
	}
	// Overlapping affixes break the involution property of Counterpart.
	if strings.HasPrefix(left, right) || strings.HasPrefix(right, left) ||
		strings.HasSuffix(left, right) || strings.HasSuffix(right, left) {
		return SymmetryScheme{}, fmt.Errorf("%w: %q (affixes overlap)", ErrInvalidSymmetryScheme, spec)
	}
	return SymmetryScheme{Left: left, Right: right}, nil
}

// Counterpart derives the mirrored id for id. Suffix matches win over prefix
// matches so "t1l" maps to "t1r" before any prefix rule fires. The second
// return is false when no affix of the scheme occurs at either end of id.
func (s SymmetryScheme) Counterpart(id string) (string, bool) {
	switch {
	case strings.HasSuffix(id, s.Left):
		return id[:len(id)-len(s.Left)] + s.Right, true
	case strings.HasSuffix(id, s.Right):
		return id[:len(id)-len(s.Right)] + s.Left, true
	case strings.HasPrefix(id, s.Left):
		return s.Right + id[len(s.Left):], true
	case strings.HasPrefix(id, s.Right):
		return s.Left + id[len(s.Right):], true
	}
	return "", false
}
