package jbeamsync

import (
	"log/slog"
	"strings"
)

// Collision is one duplicate-position conflict handed to the confirmation
// gate. PlaceholderID is the internally assigned generated id; DisplayName is
// what the editor currently shows for the vertex; ExistingID is the final
// (post-rename) id of the node the placeholder landed on.
type Collision struct {
	Part          string
	PlaceholderID string
	DisplayName   string
	Pos           Vec3
	ExistingID    string
	VertexIndex   int
}

// reconcileResult is everything one reconcile pass produces. Assigned maps a
// placeholder's editor-visible id to the durable id it received; Remap maps
// a collided placeholder's generated id to the existing id its connectivity
// was credited to; Finals holds the per-vertex final id (post-rename,
// post-remap) in snapshot order.
type reconcileResult struct {
	Actions    EntityActions
	Collisions []Collision
	Assigned   map[string]string
	Remap      map[string]string
	Finals     []string
}

// reconciler derives entity actions from a geometry snapshot against the
// last-synchronized tables. It never touches the document.
type reconciler struct {
	od        *OriginalEntityData
	cfg       Config
	scheme    SymmetryScheme
	idgen     IDGenerator
	log       *slog.Logger
	confirmed map[string]bool
}

func newReconciler(od *OriginalEntityData, cfg Config, scheme SymmetryScheme, idgen IDGenerator, confirmed map[string]bool, log *slog.Logger) *reconciler {
	if log == nil {
		log = NopLogger()
	}
	if idgen == nil {
		idgen = NewUUIDGenerator()
	}
	return &reconciler{od: od, cfg: cfg, scheme: scheme, idgen: idgen, log: log, confirmed: confirmed}
}

// partState is the per-part working set of one reconcile pass.
type partState struct {
	claimed  map[string]bool
	renames  map[string]string
	assigned map[string]bool
	consumed map[string]bool
}

func (rc *reconciler) Reconcile(snap *GeometrySnapshot) *reconcileResult {
	res := &reconcileResult{
		Actions:  EntityActions{},
		Assigned: map[string]string{},
		Remap:    map[string]string{},
	}
	tol := rc.cfg.PositionTolerance

	// Claim prepass. Knowing every claimed original up front is what lets
	// the mirror lookup and the collision check skip rows that this very
	// cycle is about to delete, regardless of mesh order.
	states := map[string]*partState{}
	stateOf := func(part string) *partState {
		st, ok := states[part]
		if !ok {
			st = &partState{
				claimed:  map[string]bool{},
				renames:  map[string]string{},
				assigned: map[string]bool{},
				consumed: map[string]bool{},
			}
			states[part] = st
		}
		return st
	}
	for i := range snap.Vertices {
		v := &snap.Vertices[i]
		if v.IsPlaceholder {
			stateOf(v.Part)
			continue
		}
		pd := rc.od.Part(v.Part)
		st := stateOf(v.Part)
		if pd == nil {
			continue
		}
		if _, ok := pd.Nodes[v.OriginalID]; !ok {
			continue
		}
		st.claimed[v.OriginalID] = true
		if v.CurrentID != v.OriginalID {
			st.renames[v.OriginalID] = v.CurrentID
		}
	}

	finalID := func(st *partState, id string) string {
		if to, ok := st.renames[id]; ok {
			return to
		}
		return id
	}
	taken := func(pd *PartData, st *partState, name string) bool {
		if st.assigned[name] {
			return true
		}
		if pd != nil {
			if _, ok := pd.Nodes[name]; ok {
				return true
			}
		}
		for _, to := range st.renames {
			if to == name {
				return true
			}
		}
		return false
	}

	// Committed placeholders, for the placeholder-vs-placeholder half of the
	// collision check.
	type placed struct {
		id  string
		pos Vec3
	}
	processed := map[string][]placed{}

	vertexFinal := make([]string, len(snap.Vertices))

	for i := range snap.Vertices {
		v := &snap.Vertices[i]
		pd := rc.od.Part(v.Part)
		st := stateOf(v.Part)
		if pd == nil {
			rc.log.Warn("vertex in unknown part, skipped", "part", v.Part, "id", v.CurrentID)
			continue
		}
		pa := res.Actions.Part(v.Part)

		if !v.IsPlaceholder {
			ni, ok := pd.Nodes[v.OriginalID]
			if !ok {
				rc.log.Warn("vertex claims unknown original id, skipped", "part", v.Part, "id", v.OriginalID)
				vertexFinal[i] = v.CurrentID
				continue
			}
			final := finalID(st, v.OriginalID)
			vertexFinal[i] = final
			if v.CurrentID != v.OriginalID {
				pa.NodesToRename[v.OriginalID] = v.CurrentID
			}
			if ni.Expr {
				if !v.Position.ApproxEqual(ni.Pos, tol) {
					rc.log.Debug("expression-positioned node changed, text untouched", "part", v.Part, "id", v.OriginalID)
				}
				continue
			}
			if v.Position.ApproxEqual(ni.Pos, tol) {
				continue
			}
			// A vertex sitting exactly on the mirror of its own original
			// position was symmetrized: materialize the counterpart row
			// instead of dragging the original id across the plane.
			if v.Position.ApproxEqual(ni.Pos.Mirrored(), tol) {
				if cp, ok := rc.scheme.Counterpart(final); ok && !taken(pd, st, cp) {
					pa.NodesToAddSymmetrically[cp] = SymAdd{MirrorID: final, Pos: v.Position}
					st.assigned[cp] = true
					vertexFinal[i] = cp
					res.Assigned[v.CurrentID] = cp
					continue
				}
			}
			pa.NodesToMove[v.OriginalID] = v.Position
			continue
		}

		// Placeholder path.
		mirrorOrig, mirrorFinal := "", ""
		for _, mid := range pd.NodeOrder {
			ni := pd.Nodes[mid]
			if ni.Expr || !st.claimed[mid] || st.consumed[mid] {
				continue
			}
			if ni.Pos.Mirrored().ApproxEqual(v.Position, tol) {
				mirrorOrig, mirrorFinal = mid, finalID(st, mid)
				break
			}
		}

		name := ""
		if mirrorFinal != "" {
			if cp, ok := rc.scheme.Counterpart(mirrorFinal); ok && !taken(pd, st, cp) {
				name = cp
			}
		}
		if name == "" {
			name = rc.idgen.NewID(rc.cfg.NewNodePrefix, func(n string) bool { return taken(pd, st, n) })
		}

		collidedID := ""
		if !rc.confirmed[v.CurrentID] {
			for _, mid := range pd.NodeOrder {
				ni := pd.Nodes[mid]
				if ni.Expr || !st.claimed[mid] {
					continue
				}
				if ni.Pos.ApproxEqual(v.Position, tol) {
					collidedID = finalID(st, mid)
					break
				}
			}
			if collidedID == "" {
				for _, pp := range processed[v.Part] {
					if pp.pos.ApproxEqual(v.Position, tol) {
						collidedID = pp.id
						break
					}
				}
			}
		}

		if collidedID != "" {
			genID := rc.idgen.NewID(rc.cfg.NewNodePrefix, func(n string) bool { return taken(pd, st, n) })
			st.assigned[genID] = true
			res.Remap[genID] = collidedID
			res.Collisions = append(res.Collisions, Collision{
				Part:          v.Part,
				PlaceholderID: genID,
				DisplayName:   v.CurrentID,
				Pos:           v.Position,
				ExistingID:    collidedID,
				VertexIndex:   i,
			})
			vertexFinal[i] = collidedID
			continue
		}

		st.assigned[name] = true
		vertexFinal[i] = name
		res.Assigned[v.CurrentID] = name
		if mirrorFinal != "" {
			pa.NodesToAddSymmetrically[name] = SymAdd{MirrorID: mirrorFinal, Pos: v.Position}
			st.consumed[mirrorOrig] = true
		} else {
			pa.NodesToAdd[name] = v.Position
		}
		processed[v.Part] = append(processed[v.Part], placed{id: name, pos: v.Position})
	}

	// Unclaimed originals lost their backing vertex. Only parts the snapshot
	// actually covers are reconciled; other parts are out of scope for this
	// cycle.
	for part, st := range states {
		pd := rc.od.Part(part)
		if pd == nil {
			continue
		}
		pa := res.Actions.Part(part)
		for _, id := range pd.NodeOrder {
			if !st.claimed[id] {
				pa.NodesToDelete[id] = true
			}
		}
	}

	rc.reconcileEdges(snap, states, vertexFinal, res)
	rc.reconcileFaces(snap, states, vertexFinal, res)
	res.Finals = vertexFinal
	return res
}

// reconcileEdges runs the beam set-difference: snapshot edges keyed by their
// sorted final-id pair against original rows keyed the same way.
func (rc *reconciler) reconcileEdges(snap *GeometrySnapshot, states map[string]*partState, vertexFinal []string, res *reconcileResult) {
	present := map[string]map[string]bool{}
	for _, e := range snap.Edges {
		if !e.Tracked {
			continue
		}
		v1, v2 := &snap.Vertices[e.V1], &snap.Vertices[e.V2]
		if v1.Part != v2.Part {
			rc.log.Warn("edge spans parts, skipped", "part1", v1.Part, "part2", v2.Part)
			continue
		}
		a, b := vertexFinal[e.V1], vertexFinal[e.V2]
		if a == "" || b == "" || a == b {
			continue
		}
		part := v1.Part
		if present[part] == nil {
			present[part] = map[string]bool{}
		}
		key := tupleKey(a, b)
		if !present[part][key] {
			present[part][key] = true
			pd := rc.od.Part(part)
			if pd != nil && !originalHasBeam(pd, states[part], key) {
				res.Actions.Part(part).BeamsToAdd = append(res.Actions.Part(part).BeamsToAdd, [2]string{a, b})
			}
		}
	}

	for part, st := range states {
		pd := rc.od.Part(part)
		if pd == nil {
			continue
		}
		pa := res.Actions.Part(part)
		for _, beam := range pd.Beams {
			if !rc.rowDeletable(pd, st, present[part], beam.IDs[:], "beam", beam.Row, part) {
				continue
			}
			pa.BeamsToDelete[beam.Row] = true
		}
	}
}

func originalHasBeam(pd *PartData, st *partState, key string) bool {
	for _, beam := range pd.Beams {
		if beamKey(st, beam) == key {
			return true
		}
	}
	return false
}

func beamKey(st *partState, beam BeamInfo) string {
	a, b := beam.IDs[0], beam.IDs[1]
	if st != nil {
		if to, ok := st.renames[a]; ok {
			a = to
		}
		if to, ok := st.renames[b]; ok {
			b = to
		}
	}
	return tupleKey(a, b)
}

// rowDeletable decides whether an unreproduced connectivity row goes. Rows
// with a deletion-queued endpoint follow the affect-references setting; rows
// referencing ids outside the nodes table are never auto-deleted.
func (rc *reconciler) rowDeletable(pd *PartData, st *partState, present map[string]bool, ids []string, kind string, row int, part string) bool {
	finals := make([]string, len(ids))
	anyQueued := false
	for i, id := range ids {
		finals[i] = id
		if to, ok := st.renames[id]; ok {
			finals[i] = to
		}
		if _, known := pd.Nodes[id]; !known {
			rc.log.Debug("row references id outside nodes table, kept", "part", part, "kind", kind, "row", row, "id", id)
			return false
		}
		if !st.claimed[id] {
			anyQueued = true
		}
	}
	if present[tupleKey(finals...)] {
		return false
	}
	if anyQueued && !rc.cfg.AffectNodeReferences {
		rc.log.Warn("row would dangle, kept", "part", part, "kind", kind, "row", row)
		return false
	}
	return true
}

// reconcileFaces runs the same set-difference for triangles and quads, plus
// winding flips for surviving rows whose flip flag is set.
func (rc *reconciler) reconcileFaces(snap *GeometrySnapshot, states map[string]*partState, vertexFinal []string, res *reconcileResult) {
	present := map[string]map[string]map[string]bool{
		TableTriangles: {},
		TableQuads:     {},
	}
	for _, f := range snap.Faces {
		if f.RowIndex == 0 {
			continue
		}
		part := snap.Vertices[f.Verts[0]].Part
		ids := make([]string, len(f.Verts))
		ok := true
		for i, vi := range f.Verts {
			if snap.Vertices[vi].Part != part {
				ok = false
				break
			}
			ids[i] = vertexFinal[vi]
			if ids[i] == "" {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if degenerate(ids) {
			continue
		}
		if present[f.OriginTable][part] == nil {
			present[f.OriginTable][part] = map[string]bool{}
		}
		key := tupleKey(ids...)
		pa := res.Actions.Part(part)
		if f.FlipFlag && f.RowIndex > 0 {
			switch f.OriginTable {
			case TableTriangles:
				pa.TrisFlipped[f.RowIndex] = true
			case TableQuads:
				pa.QuadsFlipped[f.RowIndex] = true
			}
		}
		if present[f.OriginTable][part][key] {
			continue
		}
		present[f.OriginTable][part][key] = true

		pd := rc.od.Part(part)
		if pd == nil {
			continue
		}
		st := states[part]
		switch f.OriginTable {
		case TableTriangles:
			if !originalHasTri(pd, st, key) {
				pa.TrisToAdd = append(pa.TrisToAdd, [3]string{ids[0], ids[1], ids[2]})
			}
		case TableQuads:
			if !originalHasQuad(pd, st, key) {
				pa.QuadsToAdd = append(pa.QuadsToAdd, [4]string{ids[0], ids[1], ids[2], ids[3]})
			}
		}
	}

	for part, st := range states {
		pd := rc.od.Part(part)
		if pd == nil {
			continue
		}
		pa := res.Actions.Part(part)
		for _, tri := range pd.Tris {
			if pa.TrisFlipped[tri.Row] {
				continue
			}
			if !rc.rowDeletable(pd, st, present[TableTriangles][part], tri.IDs[:], "triangle", tri.Row, part) {
				continue
			}
			pa.TrisToDelete[tri.Row] = true
		}
		for _, quad := range pd.Quads {
			if pa.QuadsFlipped[quad.Row] {
				continue
			}
			if !rc.rowDeletable(pd, st, present[TableQuads][part], quad.IDs[:], "quad", quad.Row, part) {
				continue
			}
			pa.QuadsToDelete[quad.Row] = true
		}
	}
}

func originalHasTri(pd *PartData, st *partState, key string) bool {
	for _, tri := range pd.Tris {
		ids := tri.IDs
		if renameKey(st, ids[:]) == key {
			return true
		}
	}
	return false
}

func originalHasQuad(pd *PartData, st *partState, key string) bool {
	for _, quad := range pd.Quads {
		ids := quad.IDs
		if renameKey(st, ids[:]) == key {
			return true
		}
	}
	return false
}

func renameKey(st *partState, ids []string) string {
	finals := make([]string, len(ids))
	for i, id := range ids {
		finals[i] = id
		if st != nil {
			if to, ok := st.renames[id]; ok {
				finals[i] = to
			}
		}
	}
	return tupleKey(finals...)
}

func degenerate(ids []string) bool {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				return true
			}
		}
	}
	return false
}

// tupleKey builds an order-insensitive map key from an id tuple.
func tupleKey(ids ...string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return strings.Join(sorted, "\x00")
}
