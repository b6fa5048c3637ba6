package obj

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/survivor/ai"
	"github.com/milk9111/survivor/ecs"
	"github.com/milk9111/survivor/prefabs"
)

// Input reports the direction the player wants to move in. Any length is
// accepted; the player normalizes it.
type Input interface {
	Direction() cp.Vector
}

// Player is the input-driven target enemies hunt.
type Player struct {
	arena  *Arena
	input  Input
	index  uint32
	gen    uint32
	speed  float64
	health int
	max    int
	body   *cp.Body
}

func newPlayer(a *Arena, spec prefabs.PlayerSpec, input Input) *Player {
	p := &Player{
		arena: a,
		input: input,
		index: a.ids.Next(),
	}
	p.body = a.physics.NewBody(p, ecs.LayerPlayer, spec.Radius, 1)
	p.apply(spec)
	p.respawn(cp.Vector{})
	return p
}

func (p *Player) apply(spec prefabs.PlayerSpec) {
	p.speed = spec.Speed
	p.max = spec.Health
}

func (p *Player) respawn(pos cp.Vector) {
	p.gen++
	p.health = p.max
	p.arena.physics.Attach(p.body)
	p.arena.physics.Place(p.body, pos)
	p.body.SetVelocityVector(cp.Vector{})
}

func (p *Player) Entity() ecs.Entity {
	return ecs.NewEntity(p.index, p.gen)
}

func (p *Player) Position() cp.Vector {
	return p.body.Position()
}

func (p *Player) IsDead() bool {
	return p.health <= 0
}

func (p *Player) Health() int {
	return p.health
}

func (p *Player) MaxHealth() int {
	return p.max
}

func (p *Player) TakeDamage(amount int, source ai.DamageSource) {
	if p.IsDead() || amount <= 0 {
		return
	}
	var from ecs.Entity
	if source != nil {
		from = source.Entity()
	}
	p.health -= amount
	events := p.arena.world.Events()
	events.Push(ecs.Event{Kind: ecs.EventDamaged, Entity: p.Entity(), Source: from, Amount: amount})
	if p.health <= 0 {
		p.health = 0
		events.Push(ecs.Event{Kind: ecs.EventDied, Entity: p.Entity(), Source: from})
		p.arena.physics.Detach(p.body)
	}
}

// Update turns input into velocity.
func (p *Player) Update(w *ecs.World) {
	if p.IsDead() || p.input == nil {
		return
	}
	dir := p.input.Direction()
	if dir.LengthSq() == 0 {
		p.body.SetVelocityVector(cp.Vector{})
		return
	}
	p.body.SetVelocityVector(dir.Normalize().Mult(p.speed))
}
