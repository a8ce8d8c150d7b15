package jbeamsync

import (
	"fmt"

	"github.com/jbeamtools/jbeamsync/sjson"
)

// Token locators. Every splice invalidates token indexes, so callers
// re-locate through these after each mutation instead of caching ranges.

// topObject returns the token index of the document's top-level open brace.
func topObject(doc *sjson.Document) int {
	return sjson.SkipWSC(doc.Tokens, 0)
}

// findValueTokens resolves a structural path to the token range
// [start, end) of the value it addresses. Duplicate object keys resolve to
// the last occurrence, matching Decode.
func findValueTokens(doc *sjson.Document, path []sjson.PathStep) (int, int, error) {
	toks := doc.Tokens
	start := topObject(doc)
	if start >= len(toks) || toks[start].Kind != sjson.KindObjectOpen {
		return 0, 0, fmt.Errorf("%w: no top-level object", sjson.ErrStructuralMismatch)
	}
	end := sjson.ValueSpan(toks, start)
	for _, step := range path {
		switch toks[start].Kind {
		case sjson.KindObjectOpen:
			if !step.InObject {
				return 0, 0, fmt.Errorf("%w: array step %s into object", sjson.ErrStructuralMismatch, step)
			}
			found := false
			for _, e := range sjson.ObjectEntries(toks, start) {
				if e.Key == step.Key {
					start, end = e.ValStart, e.ValEnd
					found = true
				}
			}
			if !found {
				return 0, 0, fmt.Errorf("%w: key %q", sjson.ErrAbsent, step.Key)
			}
		case sjson.KindArrayOpen:
			if step.InObject {
				return 0, 0, fmt.Errorf("%w: object step %q into array", sjson.ErrStructuralMismatch, step.Key)
			}
			children := sjson.ArrayChildren(toks, start)
			if step.Index < 0 || step.Index >= len(children) {
				return 0, 0, fmt.Errorf("%w: index %d", sjson.ErrAbsent, step.Index)
			}
			start, end = children[step.Index].Start, children[step.Index].End
		default:
			return 0, 0, fmt.Errorf("%w: step %s through a leaf", sjson.ErrStructuralMismatch, step)
		}
	}
	return start, end, nil
}

// partRange locates the object value of a top-level part entry.
func partRange(doc *sjson.Document, part string) (int, int, error) {
	toks := doc.Tokens
	top := topObject(doc)
	if top >= len(toks) || toks[top].Kind != sjson.KindObjectOpen {
		return 0, 0, fmt.Errorf("%w: no top-level object", sjson.ErrStructuralMismatch)
	}
	open, end := -1, -1
	for _, e := range sjson.ObjectEntries(toks, top) {
		if e.Key == part {
			open, end = e.ValStart, e.ValEnd
		}
	}
	if open == -1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrPartNotFound, part)
	}
	if toks[open].Kind != sjson.KindObjectOpen {
		return 0, 0, fmt.Errorf("%w: part %q is not an object", ErrMalformedSection, part)
	}
	return open, end, nil
}

// sectionRange locates the array value of a geometry table inside a part.
// Absence is reported as sjson.ErrAbsent so callers can branch into section
// synthesis.
func sectionRange(doc *sjson.Document, part, table string) (int, int, error) {
	toks := doc.Tokens
	pOpen, _, err := partRange(doc, part)
	if err != nil {
		return 0, 0, err
	}
	open, end := -1, -1
	for _, e := range sjson.ObjectEntries(toks, pOpen) {
		if e.Key == table {
			open, end = e.ValStart, e.ValEnd
		}
	}
	if open == -1 {
		return 0, 0, fmt.Errorf("%w: part %q has no %q section", sjson.ErrAbsent, part, table)
	}
	if toks[open].Kind != sjson.KindArrayOpen {
		return 0, 0, fmt.Errorf("%w: %s/%s is not an array", ErrMalformedSection, part, table)
	}
	return open, end, nil
}

// rowSpan is one array-typed child of a section: the token range plus the
// child's position among ALL children, which is what value-tree paths index
// by.
type rowSpan struct {
	start    int
	end      int
	childIdx int
}

// sectionRows splits a section into its header row and 1-based data rows.
// rows[0] is data row 1. Inline object children (per-row modifiers) get no
// row number. header is nil for an empty section.
func sectionRows(doc *sjson.Document, part, table string) (header *rowSpan, rows []rowSpan, err error) {
	toks := doc.Tokens
	open, _, err := sectionRange(doc, part, table)
	if err != nil {
		return nil, nil, err
	}
	for ci, c := range sjson.ArrayChildren(toks, open) {
		if toks[c.Start].Kind != sjson.KindArrayOpen {
			continue
		}
		span := rowSpan{start: c.Start, end: c.End, childIdx: ci}
		if header == nil {
			h := span
			header = &h
			continue
		}
		rows = append(rows, span)
	}
	return header, rows, nil
}

// rowCells returns the cell values of a row, one Child per cell, counting
// inline objects as cells.
func rowCells(toks []*sjson.Token, rowOpen int) []sjson.Child {
	return sjson.ArrayChildren(toks, rowOpen)
}
