package jbeamsync

import (
	"fmt"

	gyaml "github.com/goccy/go-yaml"
)

// InspectYAML renders the parsed per-part tables as YAML in file order, for
// humans checking what the engine actually sees in a document. MapSlice
// keeps part and node ordering as parsed; a plain map would shuffle it.
func InspectYAML(od *OriginalEntityData) ([]byte, error) {
	if od == nil {
		return nil, ErrNotLoaded
	}
	out := gyaml.MapSlice{}
	for _, part := range od.PartOrder {
		pd := od.Parts[part]
		out = append(out, gyaml.MapItem{Key: part, Value: partSlice(pd)})
	}
	data, err := gyaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: render inspection: %w", err)
	}
	return data, nil
}

func partSlice(pd *PartData) gyaml.MapSlice {
	nodes := gyaml.MapSlice{}
	for _, id := range pd.NodeOrder {
		ni := pd.Nodes[id]
		if ni.Expr {
			nodes = append(nodes, gyaml.MapItem{Key: id, Value: "(expression)"})
			continue
		}
		nodes = append(nodes, gyaml.MapItem{Key: id, Value: []float64{ni.Pos[0], ni.Pos[1], ni.Pos[2]}})
	}

	beams := make([][]string, 0, len(pd.Beams))
	for _, b := range pd.Beams {
		beams = append(beams, []string{b.IDs[0], b.IDs[1]})
	}
	tris := make([][]string, 0, len(pd.Tris))
	for _, f := range pd.Tris {
		tris = append(tris, []string{f.IDs[0], f.IDs[1], f.IDs[2]})
	}
	quads := make([][]string, 0, len(pd.Quads))
	for _, f := range pd.Quads {
		quads = append(quads, []string{f.IDs[0], f.IDs[1], f.IDs[2], f.IDs[3]})
	}

	ps := gyaml.MapSlice{gyaml.MapItem{Key: "nodes", Value: nodes}}
	if len(beams) > 0 {
		ps = append(ps, gyaml.MapItem{Key: "beams", Value: beams})
	}
	if len(tris) > 0 {
		ps = append(ps, gyaml.MapItem{Key: "triangles", Value: tris})
	}
	if len(quads) > 0 {
		ps = append(ps, gyaml.MapItem{Key: "quads", Value: quads})
	}
	return ps
}
