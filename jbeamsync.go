// Package jbeamsync keeps a comment-and-whitespace-rich JBeam (SJSON) text
// synchronized with the structural model a visual editor mutates. Each export
// cycle reconciles a geometry snapshot against the last-synchronized tables,
// derives the minimal add/delete/rename/move action sets, and applies them to
// the token stream so every byte the edit does not touch survives verbatim.
//
// A cycle either commits fully or leaves the document untouched. The one
// deliberate suspension point is the duplicate-position confirmation: when a
// new vertex lands exactly on an existing node, the cycle parks with zero
// document mutation until the caller resolves the batch.
package jbeamsync

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jbeamtools/jbeamsync/sjson"
)

// EditorContext is the caller-owned state of one editing session on one
// document. There is no module-level state; everything a cycle reads or
// updates lives here.
//
// The mutex only guards against accidental cross-goroutine use; the engine
// itself is single-threaded and cooperative.
type EditorContext struct {
	mu sync.Mutex

	cfg    Config
	scheme SymmetryScheme
	idgen  IDGenerator
	log    *slog.Logger

	doc      *sjson.Document
	baseline sjson.Value
	original *OriginalEntityData
	unit     int

	gate gateState

	// confirmed holds editor-visible vertex ids whose duplicate position was
	// explicitly kept. The collision check skips them until they commit.
	confirmed map[string]bool
}

// NewEditorContext builds a session from cfg. An unparsable symmetry scheme
// falls back to the built-in left/right pair with a warning.
func NewEditorContext(cfg Config, log *slog.Logger) *EditorContext {
	if log == nil {
		log = NopLogger()
	}
	scheme, err := ParseSymmetryScheme(cfg.SymmetryScheme)
	if err != nil {
		log.Warn("falling back to default symmetry scheme", "scheme", cfg.SymmetryScheme, "err", err.Error())
		scheme = DefaultSymmetryScheme()
	}
	return &EditorContext{
		cfg:       cfg,
		scheme:    scheme,
		idgen:     NewUUIDGenerator(),
		log:       log,
		confirmed: map[string]bool{},
	}
}

// SetIDGenerator swaps the generator used for new vertex ids. Tests use this
// for deterministic names; calling it mid-session is fine, new ids simply
// come from the new generator.
func (ec *EditorContext) SetIDGenerator(g IDGenerator) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if g != nil {
		ec.idgen = g
	}
}

// Load parses text and makes it the session's committed state: the document,
// its value tree, and the entity tables all come from this exact text. Any
// pending confirmation is cleared; it referred to a document that no longer
// exists.
func (ec *EditorContext) Load(text []byte) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	doc, err := sjson.Parse(text)
	if err != nil {
		return err
	}
	baseline, err := doc.Decode()
	if err != nil {
		return err
	}
	ec.doc = doc
	ec.baseline = baseline
	ec.original = BuildOriginalData(doc, ec.log)
	ec.unit = ec.cfg.IndentUnit
	if ec.unit <= 0 {
		ec.unit = sjson.DetectIndent(text)
	}
	ec.gate = gateState{}
	ec.confirmed = map[string]bool{}
	return nil
}

// Text returns the committed document's bytes, or nil before Load.
func (ec *EditorContext) Text() []byte {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.doc == nil {
		return nil
	}
	return ec.doc.Marshal()
}

// OriginalData returns the committed per-part tables.
func (ec *EditorContext) OriginalData() *OriginalEntityData {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.original
}

// Pending returns the unresolved collision batch, or nil when no
// confirmation is outstanding.
func (ec *EditorContext) Pending() []Collision {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if !ec.gate.pending {
		return nil
	}
	out := make([]Collision, len(ec.gate.collisions))
	copy(out, ec.gate.collisions)
	return out
}

// CycleResult reports one committed or suspended export cycle.
type CycleResult struct {
	// Text is the committed document. Nil while the cycle is suspended on a
	// confirmation.
	Text []byte

	// Changed reports whether the commit altered any byte.
	Changed bool

	// LeafChanges counts scalar tokens rewritten by the value diff.
	LeafChanges int

	// Actions is the structural edit set the cycle applied.
	Actions EntityActions

	// AssignedIDs maps each new vertex's editor-visible id to the durable id
	// written to the text. The editor must adopt these before the next
	// snapshot.
	AssignedIDs map[string]string

	// Collisions is the confirmation batch when the cycle suspended.
	Collisions []Collision
}

// Pending reports whether the cycle suspended on a confirmation instead of
// committing.
func (r *CycleResult) Pending() bool { return len(r.Collisions) > 0 }

// ExportCycle runs one reconcile-and-patch pass. snap is copied before any
// work, so the caller's snapshot is never written to. current is the
// editor's freshly recomputed value tree for scalar diffs; nil means no
// scalar edits this cycle.
//
// If any new vertex sits exactly on an existing node the cycle suspends:
// the returned result carries the collision batch, the document is not
// touched, and further cycles fail with ErrConfirmationPending until
// Resolve is called.
func (ec *EditorContext) ExportCycle(snap *GeometrySnapshot, current sjson.Value) (*CycleResult, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if ec.doc == nil {
		return nil, ErrNotLoaded
	}
	if ec.gate.pending {
		return nil, ErrConfirmationPending
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrSnapshot)
	}
	return ec.runCycle(snap.Clone(), current)
}

// runCycle does the work on private copies; ec.mu must be held.
func (ec *EditorContext) runCycle(snap *GeometrySnapshot, current sjson.Value) (*CycleResult, error) {
	if current == nil {
		current = ec.baseline
	}

	rc := newReconciler(ec.original, ec.cfg, ec.scheme, ec.idgen, ec.confirmed, ec.log)
	res := rc.Reconcile(snap)

	if len(res.Collisions) > 0 {
		for _, c := range res.Collisions {
			snap.Vertices[c.VertexIndex].Fake = true
		}
		ec.gate.arm(res.Collisions, snap, current, res.Finals)
		ec.log.Info("cycle suspended on duplicate-position confirmation", "collisions", len(res.Collisions))
		out := &CycleResult{Collisions: make([]Collision, len(res.Collisions))}
		copy(out.Collisions, res.Collisions)
		return out, nil
	}

	work := ec.doc.Clone()
	leaf := PatchLeaves(work, ec.baseline, current, ec.log)
	te := newTableEditor(work, ec.cfg, ec.scheme, ec.unit, ec.log)
	if err := te.Apply(res.Actions); err != nil {
		return nil, err
	}

	// Commit. The fresh tables come from the text just written, so the next
	// cycle reconciles against exactly what is on disk.
	text := work.Marshal()
	baseline, err := work.Decode()
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: patched document no longer decodes: %w", err)
	}
	ec.doc = work
	ec.baseline = baseline
	ec.original = BuildOriginalData(work, ec.log)
	for editorID := range res.Assigned {
		delete(ec.confirmed, editorID)
	}

	return &CycleResult{
		Text:        text,
		Changed:     leaf > 0 || !res.Actions.Empty(),
		LeafChanges: leaf,
		Actions:     res.Actions,
		AssignedIDs: res.Assigned,
	}, nil
}

// Resolve answers the pending confirmation batch with d and finishes the
// suspended cycle.
//
// DecisionDelete reconnects every edge and face of each held-back vertex to
// the node it collided with, drops the vertex, and re-runs the cycle so the
// reconnected rows are written. DecisionCancel keeps each vertex; the re-run
// treats it as a deliberate duplicate and adds it normally.
func (ec *EditorContext) Resolve(d Decision) (*CycleResult, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if !ec.gate.pending {
		return nil, ErrNoPendingConfirmation
	}
	if d != DecisionDelete && d != DecisionCancel {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDecision, int(d))
	}

	collisions, snap, current, finals := ec.gate.disarm()

	switch d {
	case DecisionDelete:
		// Highest vertex index first, so each removal leaves the indexes of
		// the collisions still to process valid.
		for i := len(collisions) - 1; i >= 0; i-- {
			c := collisions[i]
			target := -1
			for j, id := range finals {
				if j != c.VertexIndex && id == c.ExistingID {
					target = j
					break
				}
			}
			if target >= 0 {
				snap.ReplaceVertexRefs(c.VertexIndex, target)
			} else {
				ec.log.Warn("collision target vertex not in snapshot, dropping placeholder only", "id", c.ExistingID)
			}
			snap.RemoveVertex(c.VertexIndex)
			finals = append(finals[:c.VertexIndex], finals[c.VertexIndex+1:]...)
		}
	case DecisionCancel:
		for _, c := range collisions {
			snap.Vertices[c.VertexIndex].Fake = false
			ec.confirmed[c.DisplayName] = true
		}
	}

	ec.log.Info("confirmation resolved", "decision", d.String(), "collisions", len(collisions))
	return ec.runCycle(snap, current)
}
