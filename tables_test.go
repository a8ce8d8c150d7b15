package jbeamsync

import (
	"errors"
	"strings"
	"testing"

	"github.com/jbeamtools/jbeamsync/sjson"
)

const tableFixture = `{
    "fender": {
        "information":{
            "name":"Fender", // display name
        }
        "nodes": [
            ["id", "posX", "posY", "posZ"],
            ["a", 0.0, 0.0, 0.0],
            ["b", 1.0, 0.0, 0.0],
            ["t1l", -0.50, 1.23, 0.30],
        ],
        "beams": [
            ["id1:","id2:"],
            ["a","b"],
            ["t2l","t1l"],
        ],
    }
}
`

func newTestEditor(t *testing.T, text string) (*tableEditor, *sjson.Document) {
	t.Helper()
	doc, err := sjson.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return newTableEditor(doc, DefaultConfig(), DefaultSymmetryScheme(), 4, nil), doc
}

func applyActions(t *testing.T, te *tableEditor, mutate func(*PartActions)) {
	t.Helper()
	actions := EntityActions{}
	mutate(actions.Part("fender"))
	if err := te.Apply(actions); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func TestDeleteMiddleNodeRow(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.NodesToDelete["b"] = true
	})
	want := strings.Replace(tableFixture, "            [\"b\", 1.0, 0.0, 0.0],\n", "", 1)
	if got := string(doc.Marshal()); got != want {
		t.Fatalf("unexpected result:\n%s", unifiedDiff(want, got))
	}
}

func TestDeleteLastNodeRowCollapsesCleanly(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.NodesToDelete["t1l"] = true
	})
	want := strings.Replace(tableFixture, "            [\"t1l\", -0.50, 1.23, 0.30],\n", "", 1)
	if got := string(doc.Marshal()); got != want {
		t.Fatalf("blank line or indent left behind:\n%s", unifiedDiff(want, got))
	}
}

func TestDeleteBeamRowByIndex(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.BeamsToDelete[1] = true // ["a","b"]
	})
	want := strings.Replace(tableFixture, "            [\"a\",\"b\"],\n", "", 1)
	if got := string(doc.Marshal()); got != want {
		t.Fatalf("unexpected result:\n%s", unifiedDiff(want, got))
	}
}

func TestAppendNodeRowAddsMarkerOnce(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.NodesToAdd["n01"] = Vec3{2, 0, 0}
	})
	// Second cycle on the same document: the marker must not repeat.
	te2 := newTableEditor(doc, DefaultConfig(), DefaultSymmetryScheme(), 4, nil)
	actions := EntityActions{}
	actions.Part("fender").NodesToAdd["n02"] = Vec3{3, 0, 0}
	if err := te2.Apply(actions); err != nil {
		t.Fatalf("Apply (second): %v", err)
	}

	got := string(doc.Marshal())
	want := strings.Replace(tableFixture,
		"            [\"t1l\", -0.50, 1.23, 0.30],\n",
		"            [\"t1l\", -0.50, 1.23, 0.30],\n"+
			"            // added by editor\n"+
			"            [\"n01\", 2, 0, 0],\n"+
			"            [\"n02\", 3, 0, 0],\n", 1)
	if got != want {
		t.Fatalf("unexpected result:\n%s", unifiedDiff(want, got))
	}
	if n := strings.Count(got, "// added by editor"); n != 1 {
		t.Fatalf("marker appears %d times, want 1", n)
	}
}

func TestRenameNodeCascadesIntoBeams(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.NodesToRename["b"] = "b2"
	})
	got := string(doc.Marshal())
	if !containsLine(got, `            ["b2", 1.0, 0.0, 0.0],`) {
		t.Fatalf("node id cell not renamed:\n%s", got)
	}
	if !containsLine(got, `            ["a","b2"],`) {
		t.Fatalf("beam reference not renamed:\n%s", got)
	}
}

func TestRenameNodeWithoutReferenceCascade(t *testing.T) {
	doc, err := sjson.Parse([]byte(tableFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.AffectNodeReferences = false
	te := newTableEditor(doc, cfg, DefaultSymmetryScheme(), 4, nil)
	actions := EntityActions{}
	actions.Part("fender").NodesToRename["b"] = "b2"
	if err := te.Apply(actions); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := string(doc.Marshal())
	if !containsLine(got, `            ["b2", 1.0, 0.0, 0.0],`) {
		t.Fatalf("node id cell not renamed:\n%s", got)
	}
	if !containsLine(got, `            ["a","b"],`) {
		t.Fatalf("beam row should be untouched:\n%s", got)
	}
}

func TestMoveNodeRewritesPositionCells(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.NodesToMove["a"] = Vec3{0.1, 0.2, 0.3}
	})
	got := string(doc.Marshal())
	if !containsLine(got, `            ["a", 0.1, 0.2, 0.3],`) {
		t.Fatalf("position cells not rewritten:\n%s", got)
	}
}

func TestSymmetricAddInsertsAfterMirrorRow(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.NodesToAddSymmetrically["t1r"] = SymAdd{MirrorID: "t1l", Pos: Vec3{0.5, 1.23, 0.3}}
	})
	got := string(doc.Marshal())
	want := strings.Replace(tableFixture,
		"            [\"t1l\", -0.50, 1.23, 0.30],\n",
		"            [\"t1l\", -0.50, 1.23, 0.30],\n"+
			"            [\"t1r\", 0.5, 1.23, 0.3],\n", 1)
	if got != want {
		t.Fatalf("mirrored row not adjacent to source:\n%s", unifiedDiff(want, got))
	}
}

func TestBeamAddInsertsNextToMirroredRow(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.BeamsToAdd = append(pa.BeamsToAdd, [2]string{"t2r", "t1r"})
	})
	got := string(doc.Marshal())
	want := strings.Replace(tableFixture,
		"            [\"t2l\",\"t1l\"],\n",
		"            [\"t2l\",\"t1l\"],\n"+
			"            [\"t2r\",\"t1r\"],\n", 1)
	if got != want {
		t.Fatalf("mirrored beam not adjacent:\n%s", unifiedDiff(want, got))
	}
}

func TestAddSynthesizesMissingSection(t *testing.T) {
	te, doc := newTestEditor(t, tableFixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.TrisToAdd = append(pa.TrisToAdd, [3]string{"a", "b", "t1l"})
	})
	got := string(doc.Marshal())
	for _, line := range []string{
		`        "triangles": [`,
		`            ["id1:","id2:","id3:"],`,
		`            // added by editor`,
		`            ["a","b","t1l"],`,
	} {
		if !containsLine(got, line) {
			t.Fatalf("missing %q in synthesized section:\n%s", line, got)
		}
	}
	// Round-trip the result: synthesis must produce a valid document.
	if _, err := sjson.Parse([]byte(got)); err != nil {
		t.Fatalf("synthesized document does not parse: %v", err)
	}
}

func TestFlipReversesWinding(t *testing.T) {
	fixture := strings.Replace(tableFixture,
		"        \"beams\": [",
		"        \"triangles\": [\n"+
			"            [\"id1:\",\"id2:\",\"id3:\"],\n"+
			"            [\"a\",\"b\",\"t1l\"],\n"+
			"        ],\n"+
			"        \"beams\": [", 1)
	te, doc := newTestEditor(t, fixture)
	applyActions(t, te, func(pa *PartActions) {
		pa.TrisFlipped[1] = true
	})
	got := string(doc.Marshal())
	if !containsLine(got, `            ["t1l","b","a"],`) {
		t.Fatalf("winding not flipped:\n%s", got)
	}
}

func TestApplyAbortsOnMalformedSection(t *testing.T) {
	te, _ := newTestEditor(t, `{"fender": {"nodes": 5}}`)
	actions := EntityActions{}
	actions.Part("fender").NodesToAdd["n01"] = Vec3{1, 2, 3}
	if err := te.Apply(actions); !errors.Is(err, ErrMalformedSection) {
		t.Fatalf("err = %v, want ErrMalformedSection", err)
	}
}

func TestApplyMissingPartAborts(t *testing.T) {
	te, _ := newTestEditor(t, tableFixture)
	actions := EntityActions{}
	actions.Part("hood").NodesToAdd["n01"] = Vec3{1, 2, 3}
	if err := te.Apply(actions); !errors.Is(err, ErrPartNotFound) {
		t.Fatalf("err = %v, want ErrPartNotFound", err)
	}
}
