package jbeamsync

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Table names recognized inside a part.
const (
	TableNodes     = "nodes"
	TableBeams     = "beams"
	TableTriangles = "triangles"
	TableQuads     = "quads"
)

// SnapshotVertex is one vertex of the editor mesh. A placeholder is a vertex
// created during this editing session that has no durable id yet; everything
// else must name the original row it came from.
type SnapshotVertex struct {
	CurrentID     string `json:"current_id"`
	OriginalID    string `json:"original_id"`
	IsPlaceholder bool   `json:"is_placeholder"`
	OriginTable   string `json:"origin_table"`
	Part          string `json:"part,omitempty"`
	Position      Vec3   `json:"position"`

	// Fake marks a vertex held back by an unresolved duplicate-position
	// confirmation. Never set on the wire.
	Fake bool `json:"-"`
}

// SnapshotEdge connects two vertices by index into the snapshot's vertex
// list. RowIndices is the wire encoding: comma-joined 1-based row numbers,
// "-1" for an edge created this session, or empty for an edge that is not
// tracked in the text at all.
type SnapshotEdge struct {
	V1          int    `json:"v1"`
	V2          int    `json:"v2"`
	OriginTable string `json:"origin_table"`
	RowIndices  string `json:"row_indices"`

	Rows    []int `json:"-"`
	IsNew   bool  `json:"-"`
	Tracked bool  `json:"-"`
}

// SnapshotFace is a triangle or quad by vertex index. RowIndex 0 means the
// face has no row in the text, -1 means created this session, anything else
// is the 1-based row it reproduces.
type SnapshotFace struct {
	Verts       []int  `json:"verts"`
	RowIndex    int    `json:"row_index"`
	OriginTable string `json:"origin_table"`
	FlipFlag    bool   `json:"flip_flag"`
}

// GeometrySnapshot is the mesh state the editor hands over once per export
// cycle. Part names the part being edited; individual vertices may override
// it when a snapshot spans parts.
type GeometrySnapshot struct {
	Part     string           `json:"part,omitempty"`
	Vertices []SnapshotVertex `json:"vertices"`
	Edges    []SnapshotEdge   `json:"edges"`
	Faces    []SnapshotFace   `json:"faces"`
}

// DecodeSnapshot parses and validates the wire form. Vertex part attribution
// is normalized here so later passes never consult the snapshot-level
// default.
func DecodeSnapshot(data []byte) (*GeometrySnapshot, error) {
	var s GeometrySnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *GeometrySnapshot) normalize() error {
	for i := range s.Vertices {
		v := &s.Vertices[i]
		if v.Part == "" {
			v.Part = s.Part
		}
		if v.Part == "" {
			return fmt.Errorf("%w: vertex %d has no part attribution", ErrSnapshot, i)
		}
		if v.OriginTable == "" {
			v.OriginTable = TableNodes
		}
		if !v.IsPlaceholder && v.OriginalID == "" {
			return fmt.Errorf("%w: vertex %d is not a placeholder but has no original id", ErrSnapshot, i)
		}
	}
	for i := range s.Edges {
		e := &s.Edges[i]
		if e.V1 < 0 || e.V1 >= len(s.Vertices) || e.V2 < 0 || e.V2 >= len(s.Vertices) {
			return fmt.Errorf("%w: edge %d references vertex out of range", ErrSnapshot, i)
		}
		if e.OriginTable == "" {
			e.OriginTable = TableBeams
		}
		rows, isNew, tracked, err := parseRowIndices(e.RowIndices)
		if err != nil {
			return fmt.Errorf("%w: edge %d: %v", ErrSnapshot, i, err)
		}
		e.Rows, e.IsNew, e.Tracked = rows, isNew, tracked
	}
	for i := range s.Faces {
		f := &s.Faces[i]
		switch f.OriginTable {
		case TableTriangles:
			if len(f.Verts) != 3 {
				return fmt.Errorf("%w: face %d: triangle with %d vertices", ErrSnapshot, i, len(f.Verts))
			}
		case TableQuads:
			if len(f.Verts) != 4 {
				return fmt.Errorf("%w: face %d: quad with %d vertices", ErrSnapshot, i, len(f.Verts))
			}
		default:
			return fmt.Errorf("%w: face %d: unknown table %q", ErrSnapshot, i, f.OriginTable)
		}
		for _, vi := range f.Verts {
			if vi < 0 || vi >= len(s.Vertices) {
				return fmt.Errorf("%w: face %d references vertex out of range", ErrSnapshot, i)
			}
		}
	}
	return nil
}

// parseRowIndices decodes the wire encoding of an edge's row attribution.
func parseRowIndices(raw string) (rows []int, isNew, tracked bool, err error) {
	if raw == "" {
		return nil, false, false, nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		n, perr := strconv.Atoi(strings.TrimSpace(p))
		if perr != nil {
			return nil, false, false, fmt.Errorf("bad row index %q", p)
		}
		rows = append(rows, n)
	}
	if len(rows) == 1 && rows[0] == -1 {
		return nil, true, true, nil
	}
	return rows, false, true, nil
}

// Clone deep-copies the snapshot so gate resolution can rewrite it without
// touching the caller's copy.
func (s *GeometrySnapshot) Clone() *GeometrySnapshot {
	cp := &GeometrySnapshot{Part: s.Part}
	cp.Vertices = append([]SnapshotVertex(nil), s.Vertices...)
	cp.Edges = make([]SnapshotEdge, len(s.Edges))
	for i, e := range s.Edges {
		e.Rows = append([]int(nil), e.Rows...)
		cp.Edges[i] = e
	}
	cp.Faces = make([]SnapshotFace, len(s.Faces))
	for i, f := range s.Faces {
		f.Verts = append([]int(nil), f.Verts...)
		cp.Faces[i] = f
	}
	return cp
}

// VertexIndexByCurrentID returns the index of the vertex whose current id is
// id, or -1.
func (s *GeometrySnapshot) VertexIndexByCurrentID(id string) int {
	for i := range s.Vertices {
		if s.Vertices[i].CurrentID == id {
			return i
		}
	}
	return -1
}

// ReplaceVertexRefs rewires every edge and face endpoint from index from to
// index to, marking the touched rows as new so the next reconcile pass
// re-evaluates them. Edges that would degenerate to a self-loop are dropped.
func (s *GeometrySnapshot) ReplaceVertexRefs(from, to int) {
	edges := s.Edges[:0]
	for _, e := range s.Edges {
		touched := false
		if e.V1 == from {
			e.V1 = to
			touched = true
		}
		if e.V2 == from {
			e.V2 = to
			touched = true
		}
		if e.V1 == e.V2 {
			continue
		}
		if touched {
			e.Rows, e.IsNew, e.Tracked = nil, true, true
			e.RowIndices = "-1"
		}
		edges = append(edges, e)
	}
	s.Edges = edges

	for i := range s.Faces {
		f := &s.Faces[i]
		touched := false
		for j, vi := range f.Verts {
			if vi == from {
				f.Verts[j] = to
				touched = true
			}
		}
		if touched {
			f.RowIndex = -1
		}
	}
}

// RemoveVertex deletes the vertex at index i and renumbers all edge and face
// references above it. The caller must have rewired references to i first.
func (s *GeometrySnapshot) RemoveVertex(i int) {
	s.Vertices = append(s.Vertices[:i], s.Vertices[i+1:]...)
	for j := range s.Edges {
		if s.Edges[j].V1 > i {
			s.Edges[j].V1--
		}
		if s.Edges[j].V2 > i {
			s.Edges[j].V2--
		}
	}
	for j := range s.Faces {
		for k, vi := range s.Faces[j].Verts {
			if vi > i {
				s.Faces[j].Verts[k] = vi - 1
			}
		}
	}
}
