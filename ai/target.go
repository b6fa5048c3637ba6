package ai

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/survivor/ecs"
)

// DamageSource is whoever dealt damage. Targets read its position to work
// out which way to get knocked back.
type DamageSource interface {
	Entity() ecs.Entity
	Position() cp.Vector
}

// Targetable is anything an agent may pick as a target. Entity must return
// the handle of the target's current life: a recycled instance reports a new
// generation, which invalidates handles taken before the recycle.
type Targetable interface {
	DamageSource
	IsDead() bool
	TakeDamage(amount int, source DamageSource)
}

// SpatialQuery returns the candidates within radius of center whose layer is
// in layer. The order of the result carries no meaning.
type SpatialQuery interface {
	QueryRadius(center cp.Vector, radius float64, layer ecs.Layer) []Targetable
}

// Body is the velocity writer of an agent. *cp.Body satisfies it.
type Body interface {
	Position() cp.Vector
	Velocity() cp.Vector
	SetVelocityVector(v cp.Vector)
}
