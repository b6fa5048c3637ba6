package obj

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/survivor/ai"
	"github.com/milk9111/survivor/ecs"
	"github.com/milk9111/survivor/prefabs"
)

// Unit is a pooled enemy or ally. Its index is fixed for the lifetime of the
// instance; its generation changes with every activation, so handles taken
// in an earlier life go stale.
type Unit struct {
	arena     *Arena
	typeIndex int
	index     uint32
	gen       uint32

	active bool
	health int
	spec   prefabs.UnitSpec

	body  *cp.Body
	agent *ai.Agent
}

func newUnit(a *Arena, typeIndex int) *Unit {
	spec := a.spec.Units[typeIndex]
	u := &Unit{
		arena:     a,
		typeIndex: typeIndex,
		index:     a.ids.Next(),
		spec:      spec,
	}
	u.body = a.physics.NewBody(u, spec.Role.Layer(), spec.Radius, spec.Mass)
	u.agent = ai.NewAgent(spec.AI.AgentConfig(), ai.Deps{
		Owner: u,
		Body:  u.body,
		Query: a,
		Clock: a.world.Scheduler(),
	})
	return u
}

func (u *Unit) Active() bool {
	return u.active
}

// Activate starts a new life with the arena's current spec for this type.
func (u *Unit) Activate() {
	u.gen++
	u.active = true
	u.spec = u.arena.spec.Units[u.typeIndex]
	u.health = u.spec.Health

	u.arena.physics.Attach(u.body)
	u.agent.Configure(u.spec.AI.AgentConfig())
	// a config error disables the agent and is logged there; the unit still
	// lives and can be hit
	_ = u.agent.Activate()

	u.arena.world.Events().Push(ecs.Event{Kind: ecs.EventSpawned, Entity: u.Entity()})
}

// Deactivate returns the unit to its pool.
func (u *Unit) Deactivate() {
	if !u.active {
		return
	}
	u.active = false
	u.agent.Deactivate()
	u.arena.physics.Detach(u.body)
}

func (u *Unit) Entity() ecs.Entity {
	return ecs.NewEntity(u.index, u.gen)
}

func (u *Unit) Position() cp.Vector {
	return u.body.Position()
}

// Place teleports the unit.
func (u *Unit) Place(pos cp.Vector) {
	u.arena.physics.Place(u.body, pos)
}

func (u *Unit) IsDead() bool {
	return !u.active || u.health <= 0
}

func (u *Unit) Health() int {
	return u.health
}

func (u *Unit) TypeIndex() int {
	return u.typeIndex
}

func (u *Unit) Spec() prefabs.UnitSpec {
	return u.spec
}

func (u *Unit) Agent() *ai.Agent {
	return u.agent
}

func (u *Unit) Radius() float64 {
	return u.arena.physics.Radius(u.body)
}

// TakeDamage lowers health and pushes the unit away from source. A unit
// whose health runs out goes back to its pool immediately.
func (u *Unit) TakeDamage(amount int, source ai.DamageSource) {
	if u.IsDead() || amount <= 0 {
		return
	}
	var from ecs.Entity
	if source != nil {
		from = source.Entity()
	}

	u.health -= amount
	events := u.arena.world.Events()
	events.Push(ecs.Event{Kind: ecs.EventDamaged, Entity: u.Entity(), Source: from, Amount: amount})
	if u.health <= 0 {
		events.Push(ecs.Event{Kind: ecs.EventDied, Entity: u.Entity(), Source: from})
		u.Deactivate()
		return
	}

	kb := u.spec.Knockback
	if source == nil || kb.Power <= 0 || kb.Duration <= 0 {
		return
	}
	away := u.Position().Sub(source.Position())
	if away.LengthSq() == 0 {
		return
	}
	u.agent.ApplyKnockback(away.Normalize(), kb.Power, kb.Duration)
}
