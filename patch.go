package jbeamsync

import (
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/jbeamtools/jbeamsync/sjson"
)

// walkFrame is one level of the structural path rebuilt while scanning the
// token list. For object frames expectKey flips between key and value
// position; for array frames index counts children as they start.
type walkFrame struct {
	inObject  bool
	key       string
	index     int
	expectKey bool
}

// PatchLeaves walks every scalar token of doc, resolves its structural path
// against the last-synchronized tree and the editor's current tree, and
// rewrites tokens whose current value diverged. Only token contents change;
// the token count never does, so all formatting survives untouched. Returns
// the number of rewritten tokens.
func PatchLeaves(doc *sjson.Document, original, current sjson.Value, log *slog.Logger) int {
	if log == nil {
		log = NopLogger()
	}
	changed := 0
	var stack []walkFrame

	enterValue := func() {
		if n := len(stack); n > 0 && !stack[n-1].inObject {
			stack[n-1].index++
		}
	}
	leaveValue := func() {
		if n := len(stack); n > 0 && stack[n-1].inObject {
			stack[n-1].expectKey = true
		}
	}

	for _, tok := range doc.Tokens {
		switch tok.Kind {
		case sjson.KindWSC, sjson.KindColon:
			continue
		case sjson.KindObjectOpen:
			enterValue()
			stack = append(stack, walkFrame{inObject: true, expectKey: true})
		case sjson.KindArrayOpen:
			enterValue()
			stack = append(stack, walkFrame{index: -1})
		case sjson.KindObjectClose, sjson.KindArrayClose:
			stack = stack[:len(stack)-1]
			leaveValue()
		case sjson.KindString:
			if n := len(stack); n > 0 && stack[n-1].inObject && stack[n-1].expectKey {
				stack[n-1].key = tok.Str
				stack[n-1].expectKey = false
				continue
			}
			enterValue()
			if patchToken(original, current, buildPath(stack), tok, log) {
				changed++
			}
			leaveValue()
		case sjson.KindNumber, sjson.KindBool:
			enterValue()
			if patchToken(original, current, buildPath(stack), tok, log) {
				changed++
			}
			leaveValue()
		}
	}
	return changed
}

func buildPath(stack []walkFrame) []sjson.PathStep {
	path := make([]sjson.PathStep, len(stack))
	for i, f := range stack {
		if f.inObject {
			path[i] = sjson.AtKey(f.key)
		} else {
			path[i] = sjson.AtIndex(f.index)
		}
	}
	return path
}

// patchToken applies the current tree's value at path to a single scalar
// token. Absence from the current tree means the surrounding structure is
// being edited elsewhere and the token stays; a wrong-kind resolution is
// tolerated as structural drift between cycles and also leaves the token
// alone.
func patchToken(original, current sjson.Value, path []sjson.PathStep, tok *sjson.Token, log *slog.Logger) bool {
	curV, err := sjson.Resolve(current, path)
	if err != nil {
		if errors.Is(err, sjson.ErrStructuralMismatch) {
			log.Debug("leaf patch skipped", "path", pathString(path), "reason", err.Error())
		}
		return false
	}
	switch curV.(type) {
	case sjson.Object, sjson.Array:
		log.Debug("leaf patch skipped", "path", pathString(path), "reason", "scalar token vs container value")
		return false
	}

	origV, oerr := sjson.Resolve(original, path)
	if oerr == nil && leafEqual(origV, curV, tok.Prec) {
		return false
	}
	return setTokenValue(tok, curV)
}

// leafEqual compares two leaves, numbers at the precision the text carries:
// a difference smaller than half the last printed digit is not a difference.
func leafEqual(a, b sjson.Value, prec int) bool {
	switch av := a.(type) {
	case sjson.Number:
		bv, ok := b.(sjson.Number)
		if !ok {
			return false
		}
		eps := 0.5 * math.Pow(10, -float64(prec))
		return math.Abs(float64(av)-float64(bv)) < eps
	case sjson.String:
		bv, ok := b.(sjson.String)
		return ok && av == bv
	case sjson.Bool:
		bv, ok := b.(sjson.Bool)
		return ok && av == bv
	}
	return false
}

func setTokenValue(tok *sjson.Token, v sjson.Value) bool {
	switch cv := v.(type) {
	case sjson.Number:
		tok.SetNumber(float64(cv))
	case sjson.String:
		tok.SetString(string(cv))
	case sjson.Bool:
		tok.SetBool(bool(cv))
	default:
		return false
	}
	return true
}

func pathString(path []sjson.PathStep) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}
