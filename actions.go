package jbeamsync

import (
	"fmt"
	"math"
)

// Vec3 is a position in the editor's coordinate space. X is the symmetry
// axis: a mirrored position negates X and keeps Y and Z.
type Vec3 [3]float64

// Mirrored returns the position reflected across the X=0 plane.
func (v Vec3) Mirrored() Vec3 { return Vec3{-v[0], v[1], v[2]} }

// ApproxEqual reports whether every axis of v and o differs by less than tol.
func (v Vec3) ApproxEqual(o Vec3, tol float64) bool {
	return math.Abs(v[0]-o[0]) < tol &&
		math.Abs(v[1]-o[1]) < tol &&
		math.Abs(v[2]-o[2]) < tol
}

func (v Vec3) String() string {
	return fmt.Sprintf("[%g, %g, %g]", v[0], v[1], v[2])
}

// SymAdd describes a node added as the mirror of an existing node. The new
// row is cloned from the mirror source's row so per-row attributes carry
// over.
type SymAdd struct {
	MirrorID string
	Pos      Vec3
}

// PartActions is the full edit set for one part, produced by a reconcile
// pass and consumed by the table editor. Row index sets are 1-based (the
// header row of a section is row 0 and is never addressed).
type PartActions struct {
	NodesToAdd              map[string]Vec3
	NodesToAddSymmetrically map[string]SymAdd
	NodesToDelete           map[string]bool
	NodesToRename           map[string]string
	NodesToMove             map[string]Vec3

	BeamsToAdd    [][2]string
	BeamsToDelete map[int]bool

	TrisToAdd     [][3]string
	TrisToDelete  map[int]bool
	TrisFlipped   map[int]bool
	QuadsToAdd    [][4]string
	QuadsToDelete map[int]bool
	QuadsFlipped  map[int]bool
}

// NewPartActions returns an action set with every map allocated.
func NewPartActions() *PartActions {
	return &PartActions{
		NodesToAdd:              map[string]Vec3{},
		NodesToAddSymmetrically: map[string]SymAdd{},
		NodesToDelete:           map[string]bool{},
		NodesToRename:           map[string]string{},
		NodesToMove:             map[string]Vec3{},
		BeamsToDelete:           map[int]bool{},
		TrisToDelete:            map[int]bool{},
		TrisFlipped:             map[int]bool{},
		QuadsToDelete:           map[int]bool{},
		QuadsFlipped:            map[int]bool{},
	}
}

// Empty reports whether the set would change nothing.
func (a *PartActions) Empty() bool {
	return len(a.NodesToAdd) == 0 &&
		len(a.NodesToAddSymmetrically) == 0 &&
		len(a.NodesToDelete) == 0 &&
		len(a.NodesToRename) == 0 &&
		len(a.NodesToMove) == 0 &&
		len(a.BeamsToAdd) == 0 &&
		len(a.BeamsToDelete) == 0 &&
		len(a.TrisToAdd) == 0 &&
		len(a.TrisToDelete) == 0 &&
		len(a.TrisFlipped) == 0 &&
		len(a.QuadsToAdd) == 0 &&
		len(a.QuadsToDelete) == 0 &&
		len(a.QuadsFlipped) == 0
}

// EntityActions maps part name to that part's edit set.
type EntityActions map[string]*PartActions

// Part returns the action set for a part, creating it on first use.
func (ea EntityActions) Part(name string) *PartActions {
	pa, ok := ea[name]
	if !ok {
		pa = NewPartActions()
		ea[name] = pa
	}
	return pa
}

// Empty reports whether no part has any pending edit.
func (ea EntityActions) Empty() bool {
	for _, pa := range ea {
		if !pa.Empty() {
			return false
		}
	}
	return true
}
