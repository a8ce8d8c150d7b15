package jbeamsync

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffText renders a line-oriented diff of the document before and after a
// cycle, the way the CLI shows it with --diff. Unchanged runs collapse to a
// count so an edit in a large part file stays readable.
func DiffText(before, after string) string {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var b strings.Builder
	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if len(lines) > 2 {
				b.WriteString("  " + lines[0] + "\n")
				if len(lines) > 3 {
					b.WriteString("  ...\n")
				}
				b.WriteString("  " + lines[len(lines)-1] + "\n")
				continue
			}
			for _, ln := range lines {
				b.WriteString("  " + ln + "\n")
			}
		case diffmatchpatch.DiffDelete:
			for _, ln := range lines {
				b.WriteString("- " + ln + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, ln := range lines {
				b.WriteString("+ " + ln + "\n")
			}
		}
	}
	return b.String()
}

// DiffStats counts added and removed lines between two texts.
func DiffStats(before, after string) (adds, removes int) {
	for _, ln := range strings.Split(DiffText(before, after), "\n") {
		switch {
		case strings.HasPrefix(ln, "+ "):
			adds++
		case strings.HasPrefix(ln, "- "):
			removes++
		}
	}
	return adds, removes
}
