package jbeamsync

import (
	"strings"
	"testing"
)

func TestDiffTextMarksChangedLines(t *testing.T) {
	before := "a\nb\nc\n"
	after := "a\nB\nc\n"
	out := DiffText(before, after)
	if !strings.Contains(out, "- b\n") || !strings.Contains(out, "+ B\n") {
		t.Fatalf("diff missing change markers:\n%s", out)
	}
}

func TestDiffTextCollapsesLongEqualRuns(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("same line\n")
	}
	before := b.String() + "old\n"
	after := b.String() + "new\n"
	out := DiffText(before, after)
	if !strings.Contains(out, "  ...\n") {
		t.Fatalf("long unchanged run not collapsed:\n%s", out)
	}
	if strings.Count(out, "same line") > 4 {
		t.Fatalf("unchanged run not collapsed enough:\n%s", out)
	}
}

func TestDiffStats(t *testing.T) {
	adds, removes := DiffStats("a\nb\n", "a\nc\nd\n")
	if adds != 2 || removes != 1 {
		t.Fatalf("adds=%d removes=%d, want 2/1", adds, removes)
	}
}
