package jbeamsync

import (
	"testing"

	"github.com/jbeamtools/jbeamsync/sjson"
)

const patchFixture = `{
    "fender": {
        "information":{
            "name":"Fender", // display name
            "value": 150,
        }
        "flexbodies": [
            ["mesh", "[group]:"],
            ["fender_mesh", ["fender"]],
        ],
        "scale": 0.50, /* keep */
        "enabled": true,
    }
}
`

func parseFixture(t *testing.T, text string) (*sjson.Document, sjson.Value) {
	t.Helper()
	doc, err := sjson.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tree, err := doc.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc, tree
}

func TestPatchLeavesNoChangeIsByteIdentical(t *testing.T) {
	doc, tree := parseFixture(t, patchFixture)
	if n := PatchLeaves(doc, tree, tree, nil); n != 0 {
		t.Fatalf("unchanged tree rewrote %d tokens", n)
	}
	if got := string(doc.Marshal()); got != patchFixture {
		t.Fatalf("document changed:\n%s", unifiedDiff(patchFixture, got))
	}
}

func TestPatchLeavesRewritesOnlyChangedScalar(t *testing.T) {
	doc, baseline := parseFixture(t, patchFixture)
	_, current := parseFixture(t, patchFixture)

	part := current.(sjson.Object)["fender"].(sjson.Object)
	part["scale"] = sjson.Number(0.75)

	if n := PatchLeaves(doc, baseline, current, nil); n != 1 {
		t.Fatalf("changed %d tokens, want 1", n)
	}
	got := string(doc.Marshal())
	want := `        "scale": 0.75, /* keep */`
	if !containsLine(got, want) {
		t.Fatalf("scale line not rewritten:\n%s", got)
	}
	// Everything else, comments included, is untouched.
	if !containsLine(got, `            "name":"Fender", // display name`) {
		t.Fatalf("unrelated line disturbed:\n%s", got)
	}
}

func TestPatchLeavesPrecisionAvoidsFalseDiffs(t *testing.T) {
	doc, baseline := parseFixture(t, patchFixture)
	_, current := parseFixture(t, patchFixture)

	// 0.504 rounds into "0.50" at the two digits the text carries; within
	// half the last printed digit is not a change.
	part := current.(sjson.Object)["fender"].(sjson.Object)
	part["scale"] = sjson.Number(0.504)

	if n := PatchLeaves(doc, baseline, current, nil); n != 0 {
		t.Fatalf("formatting-only difference rewrote %d tokens", n)
	}
	if got := string(doc.Marshal()); got != patchFixture {
		t.Fatalf("document changed:\n%s", unifiedDiff(patchFixture, got))
	}
}

func TestPatchLeavesAbsentPathLeavesTokenAlone(t *testing.T) {
	doc, baseline := parseFixture(t, patchFixture)
	_, current := parseFixture(t, patchFixture)

	// The table editor owns structural removal; a path missing from the
	// current tree must not touch the token.
	part := current.(sjson.Object)["fender"].(sjson.Object)
	delete(part["information"].(sjson.Object), "value")

	if n := PatchLeaves(doc, baseline, current, nil); n != 0 {
		t.Fatalf("absent path rewrote %d tokens", n)
	}
	if got := string(doc.Marshal()); got != patchFixture {
		t.Fatalf("document changed:\n%s", unifiedDiff(patchFixture, got))
	}
}

func TestPatchLeavesStructuralMismatchRecovered(t *testing.T) {
	doc, baseline := parseFixture(t, patchFixture)

	// The current tree replaced an object with an array: structural drift.
	// Leaves under it resolve with the wrong container kind and are skipped,
	// not fatal.
	_, current := parseFixture(t, patchFixture)
	part := current.(sjson.Object)["fender"].(sjson.Object)
	part["information"] = sjson.Array{sjson.Number(1)}

	if n := PatchLeaves(doc, baseline, current, nil); n != 0 {
		t.Fatalf("mismatched paths rewrote %d tokens", n)
	}
	if got := string(doc.Marshal()); got != patchFixture {
		t.Fatalf("document changed:\n%s", unifiedDiff(patchFixture, got))
	}
}

func TestPatchLeavesInstallsValueAbsentFromBaseline(t *testing.T) {
	// The token exists in the text but the baseline tree lacks the path:
	// treat the current value as authoritative and install it.
	doc, _ := parseFixture(t, patchFixture)
	_, current := parseFixture(t, patchFixture)
	part := current.(sjson.Object)["fender"].(sjson.Object)
	part["enabled"] = sjson.Bool(false)

	baseline := sjson.Object{} // empty: every path is absent

	if n := PatchLeaves(doc, baseline, current, nil); n == 0 {
		t.Fatalf("no tokens installed")
	}
	if !containsLine(string(doc.Marshal()), `        "enabled": false,`) {
		t.Fatalf("enabled not installed:\n%s", doc.Marshal())
	}
}

func TestPatchLeavesTypeChange(t *testing.T) {
	doc, baseline := parseFixture(t, patchFixture)
	_, current := parseFixture(t, patchFixture)
	part := current.(sjson.Object)["fender"].(sjson.Object)
	part["enabled"] = sjson.String("maybe")

	if n := PatchLeaves(doc, baseline, current, nil); n != 1 {
		t.Fatalf("changed %d tokens, want 1", n)
	}
	if !containsLine(string(doc.Marshal()), `        "enabled": "maybe",`) {
		t.Fatalf("bool not rewritten to string:\n%s", doc.Marshal())
	}
}
