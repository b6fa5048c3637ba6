package obj

import (
	"errors"
	"fmt"
	"log"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/survivor/ai"
	"github.com/milk9111/survivor/ecs"
	"github.com/milk9111/survivor/prefabs"
)

var (
	ErrCapReached       = errors.New("arena: active cap reached")
	ErrIncompatibleSpec = errors.New("arena: incompatible spec")
)

// Arena wires a survival spec into a running world: the unit pool, the
// player, the physics space and the systems, in update order.
type Arena struct {
	spec    *prefabs.SurvivalSpec
	world   *ecs.World
	physics *ecs.PhysicsWorld
	pool    *ecs.Pool[*Unit]
	ids     ecs.EntityAllocator

	player  *Player
	spawner *Spawner
	wrap    *WrapSystem
}

// NewArena builds an arena from spec. The spawner is created but not
// started.
func NewArena(spec *prefabs.SurvivalSpec, input Input) (*Arena, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}

	a := &Arena{
		spec:    spec,
		world:   ecs.NewWorld(spec.Step()),
		physics: ecs.NewPhysicsWorld(),
	}
	a.world.SetPhysicsWorld(a.physics)

	prototypes := make([]func() *Unit, len(spec.Units))
	for i := range spec.Units {
		typeIndex := i
		prototypes[i] = func() *Unit { return newUnit(a, typeIndex) }
	}
	a.pool = ecs.NewPool(prototypes...)

	a.player = newPlayer(a, spec.Player, input)

	spawner, err := NewSpawner(a, spec.Spawner, spec.Seed)
	if err != nil {
		return nil, err
	}
	a.spawner = spawner
	a.wrap = &WrapSystem{arena: a, Distance: spec.World.WrapDistance}

	a.world.AddSystem(a.player)
	a.world.AddSystem(agentSystem{arena: a})
	a.world.AddSystem(a.physics)
	a.world.AddSystem(contactSystem{arena: a})
	a.world.AddSystem(a.wrap)
	return a, nil
}

func (a *Arena) World() *ecs.World {
	return a.world
}

func (a *Arena) Physics() *ecs.PhysicsWorld {
	return a.physics
}

func (a *Arena) Pool() *ecs.Pool[*Unit] {
	return a.pool
}

func (a *Arena) Player() *Player {
	return a.player
}

func (a *Arena) Spawner() *Spawner {
	return a.spawner
}

func (a *Arena) Spec() *prefabs.SurvivalSpec {
	return a.spec
}

// Update runs one fixed step.
func (a *Arena) Update() {
	a.world.Update()
}

// ActiveUnits returns the active units in pool order.
func (a *Arena) ActiveUnits() []*Unit {
	var out []*Unit
	a.pool.Each(func(_ int, u *Unit) {
		out = append(out, u)
	})
	return out
}

// Spawn takes a unit of typeIndex from the pool and places it at pos.
func (a *Arena) Spawn(typeIndex int, pos cp.Vector) (*Unit, error) {
	if typeIndex >= 0 && typeIndex < len(a.spec.Units) {
		if limit := a.spec.Units[typeIndex].MaxActive; limit > 0 && a.pool.ActiveCount(typeIndex) >= limit {
			return nil, fmt.Errorf("%w: %s at %d", ErrCapReached, a.spec.Units[typeIndex].Name, limit)
		}
		if limit := a.spec.Spawner.MaxActive; limit > 0 && a.activeTotal() >= limit {
			return nil, fmt.Errorf("%w: %d units", ErrCapReached, limit)
		}
	}

	before := a.pool.Len(typeIndex)
	u, err := a.pool.Get(typeIndex)
	if err != nil {
		return nil, fmt.Errorf("arena: spawn: %w", err)
	}
	if n := a.pool.Len(typeIndex); n > before {
		log.Printf("arena: pool %s grew to %d", a.spec.Units[typeIndex].Name, n)
	}
	u.Place(pos)
	return u, nil
}

func (a *Arena) activeTotal() int {
	total := 0
	for i := 0; i < a.pool.Types(); i++ {
		total += a.pool.ActiveCount(i)
	}
	return total
}

// Reset recycles every unit and respawns the player at the origin.
func (a *Arena) Reset() {
	a.pool.ClearAll()
	a.player.respawn(cp.Vector{})
	a.spawner.Restart()
}

// ApplySpec swaps in a reloaded spec. Unit order must match since it is the
// pool's type order. Live units keep their current life; the new values
// apply from their next activation. Body radius, mass and role are fixed
// per instance and only reach newly constructed units.
func (a *Arena) ApplySpec(spec *prefabs.SurvivalSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	if len(spec.Units) != len(a.spec.Units) {
		return fmt.Errorf("%w: %d units, want %d", ErrIncompatibleSpec, len(spec.Units), len(a.spec.Units))
	}
	for i := range spec.Units {
		if spec.Units[i].Name != a.spec.Units[i].Name {
			return fmt.Errorf("%w: unit %d is %q, want %q", ErrIncompatibleSpec, i, spec.Units[i].Name, a.spec.Units[i].Name)
		}
	}
	if err := a.spawner.Apply(spec.Spawner); err != nil {
		return err
	}

	a.spec = spec
	a.player.apply(spec.Player)
	a.wrap.Distance = spec.World.WrapDistance
	log.Printf("arena: spec reloaded (%d units)", len(spec.Units))
	return nil
}

// QueryRadius returns the live targets within radius of center on layer.
func (a *Arena) QueryRadius(center cp.Vector, radius float64, layer ecs.Layer) []ai.Targetable {
	owners := a.physics.QueryRadius(center, radius, layer)
	out := make([]ai.Targetable, 0, len(owners))
	for _, owner := range owners {
		if t, ok := owner.(ai.Targetable); ok {
			out = append(out, t)
		}
	}
	return out
}

type agentSystem struct {
	arena *Arena
}

func (s agentSystem) Update(w *ecs.World) {
	s.arena.pool.Each(func(_ int, u *Unit) {
		u.agent.FixedUpdate()
	})
}

type contact struct {
	unit  *Unit
	other ai.Targetable
}

// contactSystem collects every contact before dispatching, since damage may
// recycle a unit and detach its body mid-iteration.
type contactSystem struct {
	arena *Arena
}

func (s contactSystem) Update(w *ecs.World) {
	var pending []contact
	s.arena.pool.Each(func(_ int, u *Unit) {
		for _, owner := range s.arena.physics.Contacts(u.body) {
			if t, ok := owner.(ai.Targetable); ok {
				pending = append(pending, contact{unit: u, other: t})
			}
		}
	})
	for _, c := range pending {
		if !c.unit.active {
			continue
		}
		c.unit.agent.OnContact(c.other)
	}
}
