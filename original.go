package jbeamsync

import (
	"log/slog"

	"github.com/jbeamtools/jbeamsync/sjson"
)

// NodeInfo is one row of a nodes table. Row is the 1-based data row number.
// Expr marks a node whose position cells hold expression strings instead of
// literals; such nodes keep their text untouched by moves.
type NodeInfo struct {
	ID   string
	Pos  Vec3
	Row  int
	Expr bool
}

// BeamInfo is one row of a beams table.
type BeamInfo struct {
	IDs [2]string
	Row int
}

// TriInfo is one row of a triangles table.
type TriInfo struct {
	IDs [3]string
	Row int
}

// QuadInfo is one row of a quads table.
type QuadInfo struct {
	IDs [4]string
	Row int
}

// PartData holds the geometry tables of one part.
type PartData struct {
	Nodes     map[string]*NodeInfo
	NodeOrder []string
	Beams     []BeamInfo
	Tris      []TriInfo
	Quads     []QuadInfo
}

// OriginalEntityData is the per-part geometry parsed from the
// last-synchronized text. It is rebuilt from the document after every
// successful commit and never mutated in between.
type OriginalEntityData struct {
	Parts     map[string]*PartData
	PartOrder []string
}

// Part returns the tables for a part, or nil.
func (od *OriginalEntityData) Part(name string) *PartData {
	if od == nil {
		return nil
	}
	return od.Parts[name]
}

// headerCols maps header cell names to cell positions. Falls back to the
// conventional layout when a name is missing.
func headerCols(toks []*sjson.Token, header *rowSpan, names []string) map[string]int {
	cols := map[string]int{}
	for i, name := range names {
		cols[name] = i
	}
	if header == nil {
		return cols
	}
	for i, c := range rowCells(toks, header.start) {
		t := toks[c.Start]
		if t.Kind != sjson.KindString {
			continue
		}
		for _, name := range names {
			if t.Str == name {
				cols[name] = i
			}
		}
	}
	return cols
}

var (
	nodeHeaderNames = []string{"id", "posX", "posY", "posZ"}
	beamHeaderNames = []string{"id1:", "id2:"}
	triHeaderNames  = []string{"id1:", "id2:", "id3:"}
	quadHeaderNames = []string{"id1:", "id2:", "id3:", "id4:"}
)

// BuildOriginalData parses every part's geometry tables out of the document.
// Rows that do not follow the table convention are skipped, not fatal; the
// surrounding text machinery preserves them regardless.
func BuildOriginalData(doc *sjson.Document, log *slog.Logger) *OriginalEntityData {
	if log == nil {
		log = NopLogger()
	}
	od := &OriginalEntityData{Parts: map[string]*PartData{}}
	toks := doc.Tokens
	top := topObject(doc)
	if top >= len(toks) || toks[top].Kind != sjson.KindObjectOpen {
		return od
	}
	for _, e := range sjson.ObjectEntries(toks, top) {
		if toks[e.ValStart].Kind != sjson.KindObjectOpen {
			continue
		}
		if _, seen := od.Parts[e.Key]; seen {
			continue
		}
		pd := &PartData{Nodes: map[string]*NodeInfo{}}
		od.Parts[e.Key] = pd
		od.PartOrder = append(od.PartOrder, e.Key)
		buildPartData(doc, e.Key, pd, log)
	}
	return od
}

func buildPartData(doc *sjson.Document, part string, pd *PartData, log *slog.Logger) {
	toks := doc.Tokens

	if header, rows, err := sectionRows(doc, part, TableNodes); err == nil {
		cols := headerCols(toks, header, nodeHeaderNames)
		for i, r := range rows {
			ni, ok := parseNodeRow(toks, r, cols, i+1)
			if !ok {
				log.Debug("unparsable node row", "part", part, "row", i+1)
				continue
			}
			if _, dup := pd.Nodes[ni.ID]; !dup {
				pd.NodeOrder = append(pd.NodeOrder, ni.ID)
			}
			pd.Nodes[ni.ID] = ni
		}
	}

	if header, rows, err := sectionRows(doc, part, TableBeams); err == nil {
		cols := headerCols(toks, header, beamHeaderNames)
		for i, r := range rows {
			ids, ok := refCells(toks, r, cols, beamHeaderNames)
			if !ok {
				log.Debug("unparsable beam row", "part", part, "row", i+1)
				continue
			}
			pd.Beams = append(pd.Beams, BeamInfo{IDs: [2]string{ids[0], ids[1]}, Row: i + 1})
		}
	}

	if header, rows, err := sectionRows(doc, part, TableTriangles); err == nil {
		cols := headerCols(toks, header, triHeaderNames)
		for i, r := range rows {
			ids, ok := refCells(toks, r, cols, triHeaderNames)
			if !ok {
				log.Debug("unparsable triangle row", "part", part, "row", i+1)
				continue
			}
			pd.Tris = append(pd.Tris, TriInfo{IDs: [3]string{ids[0], ids[1], ids[2]}, Row: i + 1})
		}
	}

	if header, rows, err := sectionRows(doc, part, TableQuads); err == nil {
		cols := headerCols(toks, header, quadHeaderNames)
		for i, r := range rows {
			ids, ok := refCells(toks, r, cols, quadHeaderNames)
			if !ok {
				log.Debug("unparsable quad row", "part", part, "row", i+1)
				continue
			}
			pd.Quads = append(pd.Quads, QuadInfo{IDs: [4]string{ids[0], ids[1], ids[2], ids[3]}, Row: i + 1})
		}
	}
}

func parseNodeRow(toks []*sjson.Token, r rowSpan, cols map[string]int, row int) (*NodeInfo, bool) {
	cells := rowCells(toks, r.start)
	idCol := cols["id"]
	if idCol >= len(cells) || toks[cells[idCol].Start].Kind != sjson.KindString {
		return nil, false
	}
	ni := &NodeInfo{ID: toks[cells[idCol].Start].Str, Row: row}
	for axis, name := range []string{"posX", "posY", "posZ"} {
		col := cols[name]
		if col >= len(cells) {
			ni.Expr = true
			continue
		}
		t := toks[cells[col].Start]
		switch t.Kind {
		case sjson.KindNumber:
			ni.Pos[axis] = t.Num
		default:
			// Expression or otherwise non-literal position.
			ni.Expr = true
		}
	}
	return ni, true
}

// refCells extracts the id columns of a beam/tri/quad row.
func refCells(toks []*sjson.Token, r rowSpan, cols map[string]int, names []string) ([]string, bool) {
	cells := rowCells(toks, r.start)
	ids := make([]string, len(names))
	for i, name := range names {
		col := cols[name]
		if col >= len(cells) || toks[cells[col].Start].Kind != sjson.KindString {
			return nil, false
		}
		ids[i] = toks[cells[col].Start].Str
	}
	return ids, true
}
