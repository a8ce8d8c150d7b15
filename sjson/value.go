package sjson

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Value is one node of a decoded SJSON tree. The concrete types are Object,
// Array, Number, String and Bool; consumers switch exhaustively over them
// rather than duck-typing, so a wrong-container path error is always explicit.
type Value interface{ isValue() }

// Object is an unordered key/value mapping. Ordering of the underlying text
// lives in the Document's token sequence, not here.
type Object map[string]Value

// Array is an ordered value list.
type Array []Value

// Number is a numeric leaf.
type Number float64

// String is a string leaf.
type String string

// Bool is a boolean leaf.
type Bool bool

func (Object) isValue() {}
func (Array) isValue()  {}
func (Number) isValue() {}
func (String) isValue() {}
func (Bool) isValue()   {}

// Path resolution errors. ErrAbsent means the container exists but lacks the
// key or index; ErrStructuralMismatch means a step addressed the wrong
// container kind (an object step into an array, a step through a leaf, ...).
var (
	ErrAbsent             = errors.New("sjson: path not present")
	ErrStructuralMismatch = errors.New("sjson: structural mismatch")
)

// PathStep is one frame of a structural path: a key into an object or an
// index into an array.
type PathStep struct {
	Key      string
	Index    int
	InObject bool
}

// AtKey builds an object step.
func AtKey(k string) PathStep { return PathStep{Key: k, InObject: true} }

// AtIndex builds an array step.
func AtIndex(i int) PathStep { return PathStep{Index: i} }

func (s PathStep) String() string {
	if s.InObject {
		return s.Key
	}
	return fmt.Sprintf("[%d]", s.Index)
}

// Resolve walks path from root and returns the value it addresses.
func Resolve(root Value, path []PathStep) (Value, error) {
	cur := root
	for _, step := range path {
		switch c := cur.(type) {
		case Object:
			if !step.InObject {
				return nil, fmt.Errorf("%w: array step %s into object", ErrStructuralMismatch, step)
			}
			v, ok := c[step.Key]
			if !ok {
				return nil, fmt.Errorf("%w: key %q", ErrAbsent, step.Key)
			}
			cur = v
		case Array:
			if step.InObject {
				return nil, fmt.Errorf("%w: object step %q into array", ErrStructuralMismatch, step.Key)
			}
			if step.Index < 0 || step.Index >= len(c) {
				return nil, fmt.Errorf("%w: index %d", ErrAbsent, step.Index)
			}
			cur = c[step.Index]
		case Number, String, Bool:
			return nil, fmt.Errorf("%w: step %s through a leaf", ErrStructuralMismatch, step)
		default:
			return nil, fmt.Errorf("%w: nil value at %s", ErrStructuralMismatch, step)
		}
	}
	return cur, nil
}

// Decode builds the value tree for the whole document. The document must have
// passed Parse; Decode re-checks structure anyway and reports the same class
// of errors.
func (d *Document) Decode() (Value, error) {
	i := SkipWSC(d.Tokens, 0)
	if i >= len(d.Tokens) {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}
	v, end, err := decodeValue(d.Tokens, i)
	if err != nil {
		return nil, err
	}
	if end = SkipWSC(d.Tokens, end); end != len(d.Tokens) {
		return nil, fmt.Errorf("%w: trailing content after top-level value", ErrParse)
	}
	return v, nil
}

// decodeValue decodes the value starting at the non-wsc token index i and
// returns it with the index just past its last token.
func decodeValue(toks []*Token, i int) (Value, int, error) {
	switch t := toks[i]; t.Kind {
	case KindObjectOpen:
		obj := Object{}
		i++
		for {
			i = SkipWSC(toks, i)
			if i >= len(toks) {
				return nil, i, fmt.Errorf("%w: unclosed object", ErrParse)
			}
			if toks[i].Kind == KindObjectClose {
				return obj, i + 1, nil
			}
			if toks[i].Kind != KindString {
				return nil, i, fmt.Errorf("%w: object key must be a string, got %s", ErrParse, toks[i].Kind)
			}
			key := toks[i].Str
			i = SkipWSC(toks, i+1)
			if i >= len(toks) || toks[i].Kind != KindColon {
				return nil, i, fmt.Errorf("%w: missing ':' after key %q", ErrParse, key)
			}
			i = SkipWSC(toks, i+1)
			if i >= len(toks) {
				return nil, i, fmt.Errorf("%w: missing value for key %q", ErrParse, key)
			}
			v, next, err := decodeValue(toks, i)
			if err != nil {
				return nil, next, err
			}
			obj[key] = v
			i = next
		}
	case KindArrayOpen:
		arr := Array{}
		i++
		for {
			i = SkipWSC(toks, i)
			if i >= len(toks) {
				return nil, i, fmt.Errorf("%w: unclosed array", ErrParse)
			}
			if toks[i].Kind == KindArrayClose {
				return arr, i + 1, nil
			}
			v, next, err := decodeValue(toks, i)
			if err != nil {
				return nil, next, err
			}
			arr = append(arr, v)
			i = next
		}
	case KindString:
		return String(t.Str), i + 1, nil
	case KindNumber:
		return Number(t.Num), i + 1, nil
	case KindBool:
		return Bool(t.Bool), i + 1, nil
	default:
		return nil, i, fmt.Errorf("%w: unexpected %s", ErrParse, t.Kind)
	}
}

// ToJSON renders a value tree as canonical JSON, for interchange with hosts
// that speak JSON Patch.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toAny(v))
}

func toAny(v Value) any {
	switch c := v.(type) {
	case Object:
		m := make(map[string]any, len(c))
		for k, e := range c {
			m[k] = toAny(e)
		}
		return m
	case Array:
		s := make([]any, len(c))
		for i, e := range c {
			s[i] = toAny(e)
		}
		return s
	case Number:
		return float64(c)
	case String:
		return string(c)
	case Bool:
		return bool(c)
	}
	return nil
}

// FromJSON decodes JSON into a value tree. JSON null has no SJSON
// counterpart and is rejected.
func FromJSON(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("sjson: invalid JSON: %w", err)
	}
	return fromAny(raw)
}

func fromAny(raw any) (Value, error) {
	switch c := raw.(type) {
	case map[string]any:
		obj := make(Object, len(c))
		for k, e := range c {
			v, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			obj[k] = v
		}
		return obj, nil
	case []any:
		arr := make(Array, len(c))
		for i, e := range c {
			v, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case float64:
		return Number(c), nil
	case string:
		return String(c), nil
	case bool:
		return Bool(c), nil
	case nil:
		return nil, errors.New("sjson: JSON null has no SJSON equivalent")
	default:
		return nil, fmt.Errorf("sjson: unsupported JSON value %T", raw)
	}
}
