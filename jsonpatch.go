package jbeamsync

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/jbeamtools/jbeamsync/sjson"
)

// JSON Patch (RFC-6902) ingestion
// --------------------------------------------------------------------------
// Hosts that track model edits as JSON Patch documents can fold them into
// the current value tree before an export cycle, instead of rebuilding the
// whole tree themselves. The patch runs on the JSON rendering of the tree;
// the result feeds the leaf patcher, so text formatting is still preserved
// for every path the patch does not touch.

// ApplyModelPatchBytes applies a JSON Patch (raw JSON) to an SJSON value
// tree and returns the patched tree. The input tree is not modified.
func ApplyModelPatchBytes(tree sjson.Value, patchJSON []byte) (sjson.Value, error) {
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: invalid JSON patch: %w", err)
	}
	return ApplyModelPatch(tree, patch)
}

// ApplyModelPatch applies a decoded github.com/evanphx/json-patch/v5 Patch
// to an SJSON value tree.
func ApplyModelPatch(tree sjson.Value, patch jsonpatch.Patch) (sjson.Value, error) {
	doc, err := sjson.ToJSON(tree)
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: cannot render tree as JSON: %w", err)
	}
	patched, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: apply JSON patch: %w", err)
	}
	out, err := sjson.FromJSON(patched)
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: patched model is not valid SJSON: %w", err)
	}
	return out, nil
}
