package jbeamsync

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// seqIDGen hands out n01, n02, ... so tests get stable generated ids.
type seqIDGen struct{ n int }

func (g *seqIDGen) NewID(prefix string, taken func(string) bool) string {
	for {
		g.n++
		id := fmt.Sprintf("%s%02d", prefix, g.n)
		if taken == nil || !taken(id) {
			return id
		}
	}
}

func containsLine(text, line string) bool {
	for _, ln := range strings.Split(text, "\n") {
		if ln == line {
			return true
		}
	}
	return false
}

func unifiedDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}
