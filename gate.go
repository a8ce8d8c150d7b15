package jbeamsync

import "github.com/jbeamtools/jbeamsync/sjson"

// Decision is the user's answer to a duplicate-position confirmation. It
// applies uniformly to every collision in the pending batch.
type Decision int

const (
	// DecisionDelete merges each held-back vertex into the node it landed
	// on: its edges and faces are reconnected to the existing node and the
	// vertex itself is dropped.
	DecisionDelete Decision = iota

	// DecisionCancel keeps each held-back vertex. The next cycle treats it
	// as a deliberate duplicate and adds it as a normal new node.
	DecisionCancel
)

func (d Decision) String() string {
	switch d {
	case DecisionDelete:
		return "delete"
	case DecisionCancel:
		return "cancel"
	}
	return "unknown"
}

// gateState is the confirmation gate. While a batch is pending every further
// export cycle is refused, so the document cannot change under the dialog.
// The inputs of the suspended cycle are parked here so resolution can finish
// exactly that cycle, and the finals list lets Delete locate each collision's
// surviving vertex by id.
type gateState struct {
	pending    bool
	collisions []Collision
	snapshot   *GeometrySnapshot
	current    sjson.Value
	finals     []string
}

func (g *gateState) arm(collisions []Collision, snap *GeometrySnapshot, current sjson.Value, finals []string) {
	g.pending = true
	g.collisions = collisions
	g.snapshot = snap
	g.current = current
	g.finals = finals
}

func (g *gateState) disarm() (collisions []Collision, snap *GeometrySnapshot, current sjson.Value, finals []string) {
	collisions, snap, current, finals = g.collisions, g.snapshot, g.current, g.finals
	*g = gateState{}
	return collisions, snap, current, finals
}
