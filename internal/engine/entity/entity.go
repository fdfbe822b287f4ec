// Package entity implements the scene graph node, the shared-asset factory
// that creates nodes, and the draw-order keys used to batch them.
package entity

import (
	gomath "math"

	"github.com/Faultbox/follower-catcher/internal/engine/asset"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

// Deadband is the distance to MoveTo under which Advance stops moving.
const Deadband = 1.0

// Entity is a positionable node. It may own a single child whose transform
// is relative to it.
type Entity struct {
	transform math.Mat4
	bounds    math.BBox
	model     *asset.Model

	child  *Entity
	parent *Entity

	// MoveTo is the world position Advance steers towards.
	MoveTo math.Vec3

	Texture  *asset.Texture
	Lightmap *asset.Texture

	Collidable bool
	Pickable   bool
	Rotates    bool
	// RestoreMatrix makes the draw pass render with DrawTransform and put
	// the authoritative transform back afterwards.
	RestoreMatrix bool
	DrawTransform math.Mat4
	// EffectDelay offsets the spin and bob animation per entity.
	EffectDelay float32
}

// New returns an entity at the origin.
func New(model *asset.Model, texture *asset.Texture) *Entity {
	e := &Entity{
		transform: math.Identity(),
		model:     model,
		Texture:   texture,
	}
	e.refreshBounds()
	return e
}

// Model returns the shared model, which may be nil.
func (e *Entity) Model() *asset.Model { return e.model }

// Child returns the owned child or nil.
func (e *Entity) Child() *Entity { return e.child }

// Parent returns the owning entity or nil.
func (e *Entity) Parent() *Entity { return e.parent }

// Transform returns the local transform.
func (e *Entity) Transform() math.Mat4 { return e.transform }

// Bounds returns the cached world-space bounding box.
func (e *Entity) Bounds() math.BBox { return e.bounds }

// SetTransform replaces the local transform. Setting a bit-identical value
// does nothing; otherwise the world bounds of e and its descendants are
// recomputed.
func (e *Entity) SetTransform(m math.Mat4) {
	if sameBits(&e.transform, &m) {
		return
	}
	e.transform = m
	e.refreshBounds()
}

// EffectiveTransform returns the local transform composed with every
// ancestor's, root last.
func (e *Entity) EffectiveTransform() math.Mat4 {
	if e.parent == nil {
		return e.transform
	}
	return e.parent.EffectiveTransform().Mul(e.transform)
}

// Position returns the world-space translation.
func (e *Entity) Position() math.Vec3 {
	return e.EffectiveTransform().Translation()
}

// SetChild makes child owned by e, replacing any previous child.
// A nil child detaches the current one.
func (e *Entity) SetChild(child *Entity) {
	if e.child != nil {
		e.child.parent = nil
		e.child.refreshBounds()
	}
	e.child = child
	if child != nil {
		if child.parent != nil && child.parent != e {
			child.parent.child = nil
		}
		child.parent = e
		child.refreshBounds()
	}
}

// Advance steers towards MoveTo. Farther than Deadband it moves dt*d/2
// along the direction to the target, so it slows as it closes in; within
// the deadband MoveTo collapses to the current position.
//
// The step is computed in world space and applied to the local transform,
// so Advance is only meaningful for root entities.
func (e *Entity) Advance(dt float32) {
	pos := e.Position()
	delta := e.MoveTo.Sub(pos)
	d := delta.Length()
	if d <= Deadband {
		e.MoveTo = pos
		return
	}
	step := delta.Scale(1 / d).Scale(dt * d / 2)
	e.SetTransform(math.Translate(step.X, step.Y, step.Z).Mul(e.transform))
}

// Walk calls fn for e and each descendant, parent first.
func (e *Entity) Walk(fn func(*Entity)) {
	for n := e; n != nil; n = n.child {
		fn(n)
	}
}

func (e *Entity) refreshBounds() {
	if e.model != nil {
		e.bounds = e.model.Bounds().Transform(e.EffectiveTransform())
	}
	if e.child != nil {
		e.child.refreshBounds()
	}
}

func sameBits(a, b *math.Mat4) bool {
	for i := range a {
		if gomath.Float32bits(a[i]) != gomath.Float32bits(b[i]) {
			return false
		}
	}
	return true
}
