package ai

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/survivor/ecs"
)

var (
	ErrMissingCapability = errors.New("ai: missing capability")
	ErrInvalidConfig     = errors.New("ai: invalid config")
)

// State identifies the agent state.
type State int

const (
	StateSearching State = iota
	StateTracking
	StateKnockback
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateTracking:
		return "tracking"
	case StateKnockback:
		return "knockback"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is read when the agent activates and stays fixed for that life.
type Config struct {
	Speed            float64
	DetectionRadius  float64
	AttackDamage     int
	AttackCooldown   time.Duration
	RetargetInterval time.Duration
	TargetLayer      ecs.Layer
}

func (c Config) Validate() error {
	switch {
	case c.RetargetInterval <= 0:
		return fmt.Errorf("%w: retarget interval %s must be positive", ErrInvalidConfig, c.RetargetInterval)
	case c.Speed < 0:
		return fmt.Errorf("%w: negative speed %v", ErrInvalidConfig, c.Speed)
	case c.DetectionRadius < 0:
		return fmt.Errorf("%w: negative detection radius %v", ErrInvalidConfig, c.DetectionRadius)
	case c.AttackDamage < 0:
		return fmt.Errorf("%w: negative attack damage %d", ErrInvalidConfig, c.AttackDamage)
	case c.AttackCooldown < 0:
		return fmt.Errorf("%w: negative attack cooldown %s", ErrInvalidConfig, c.AttackCooldown)
	}
	return nil
}

// Deps are the capabilities an agent needs. Owner is optional; without it
// the agent reports itself as the damage source.
type Deps struct {
	Owner DamageSource
	Body  Body
	Query SpatialQuery
	Clock *ecs.Scheduler
}

// Agent tracks and melee-attacks the nearest live target. Retargeting runs on
// its own period through the scheduler; FixedUpdate and OnContact run on the
// physics step. While knocked back the agent writes neither velocity nor
// target.
type Agent struct {
	cfg  Config
	deps Deps

	active bool
	err    error
	epoch  uint64

	state        State
	target       Targetable
	targetHandle ecs.Entity

	lastAttack time.Duration
	attacked   bool

	knockbackVel cp.Vector
	retarget     *ecs.Task
	knockback    *ecs.Task
}

func NewAgent(cfg Config, deps Deps) *Agent {
	return &Agent{cfg: cfg, deps: deps}
}

// Configure replaces the config used by the next activation.
func (a *Agent) Configure(cfg Config) {
	a.cfg = cfg
}

func (a *Agent) Config() Config {
	return a.cfg
}

func (a *Agent) validate() error {
	switch {
	case a.deps.Body == nil:
		return fmt.Errorf("%w: physics body", ErrMissingCapability)
	case a.deps.Query == nil:
		return fmt.Errorf("%w: spatial query", ErrMissingCapability)
	case a.deps.Clock == nil:
		return fmt.Errorf("%w: scheduler", ErrMissingCapability)
	}
	return a.cfg.Validate()
}

// Activate starts a new life. A configuration error disables the agent for
// good: it is logged once and returned by every later Activate.
func (a *Agent) Activate() error {
	if a.err != nil {
		return a.err
	}
	if err := a.validate(); err != nil {
		a.err = err
		log.Printf("ai: agent %s disabled: %v", a.Entity(), err)
		return err
	}

	a.stopTasks()
	a.epoch++
	a.active = true
	a.state = StateSearching
	a.clearTarget()
	a.attacked = false
	a.lastAttack = 0
	a.knockbackVel = cp.Vector{}
	a.retarget = a.deps.Clock.Every(a.cfg.RetargetInterval, a.retargetTick)
	return nil
}

// Deactivate ends the current life. Pending retarget and knockback tasks are
// canceled and can no longer touch the agent.
func (a *Agent) Deactivate() {
	if !a.active {
		return
	}
	a.active = false
	a.epoch++
	a.stopTasks()
	a.clearTarget()
	a.state = StateSearching
	a.knockbackVel = cp.Vector{}
	a.deps.Body.SetVelocityVector(cp.Vector{})
}

func (a *Agent) stopTasks() {
	a.retarget.Cancel()
	a.retarget = nil
	a.knockback.Cancel()
	a.knockback = nil
}

func (a *Agent) Active() bool {
	return a.active
}

// Err returns the configuration error that disabled the agent, if any.
func (a *Agent) Err() error {
	return a.err
}

func (a *Agent) State() State {
	return a.state
}

// Target returns the current target, or nil when there is none or the
// reference went stale.
func (a *Agent) Target() Targetable {
	if !a.validTarget() {
		return nil
	}
	return a.target
}

// Entity reports the owner's handle.
func (a *Agent) Entity() ecs.Entity {
	if a.deps.Owner == nil {
		return 0
	}
	return a.deps.Owner.Entity()
}

func (a *Agent) Position() cp.Vector {
	if a.deps.Body == nil {
		return cp.Vector{}
	}
	return a.deps.Body.Position()
}

func (a *Agent) source() DamageSource {
	if a.deps.Owner != nil {
		return a.deps.Owner
	}
	return a
}

func (a *Agent) clearTarget() {
	a.target = nil
	a.targetHandle = 0
}

func (a *Agent) validTarget() bool {
	return a.target != nil && a.target.Entity() == a.targetHandle && !a.target.IsDead()
}

func (a *Agent) retargetTick() {
	if !a.active || a.state == StateKnockback {
		return
	}
	best := a.nearest()
	if best == nil {
		a.clearTarget()
		a.state = StateSearching
		return
	}
	a.target = best
	a.targetHandle = best.Entity()
	a.state = StateTracking
}

// nearest picks the closest live candidate. Equal distances go to the lowest
// entity index so the choice never depends on query order.
func (a *Agent) nearest() Targetable {
	self := a.deps.Body.Position()
	owner := a.Entity()

	var best Targetable
	bestDist := math.Inf(1)
	for _, c := range a.deps.Query.QueryRadius(self, a.cfg.DetectionRadius, a.cfg.TargetLayer) {
		if c == nil || c.IsDead() {
			continue
		}
		if owner.Valid() && c.Entity().Index() == owner.Index() {
			continue
		}
		d := c.Position().Sub(self).LengthSq()
		if best == nil || d < bestDist || (d == bestDist && c.Entity().Index() < best.Entity().Index()) {
			best = c
			bestDist = d
		}
	}
	return best
}

// FixedUpdate writes the chase velocity, or holds the knockback velocity
// against whatever the solver did to it last step. It runs before every
// physics step.
func (a *Agent) FixedUpdate() {
	if !a.active {
		return
	}
	if a.state == StateKnockback {
		a.deps.Body.SetVelocityVector(a.knockbackVel)
		return
	}
	if a.target != nil && !a.validTarget() {
		a.clearTarget()
		a.state = StateSearching
	}
	if a.target == nil {
		a.deps.Body.SetVelocityVector(cp.Vector{})
		return
	}

	dir := a.target.Position().Sub(a.deps.Body.Position())
	dist := dir.Length()
	if dist == 0 {
		a.deps.Body.SetVelocityVector(cp.Vector{})
		return
	}
	a.deps.Body.SetVelocityVector(dir.Mult(a.cfg.Speed / dist))
}

// OnContact is called every physics step for each entity the agent touches.
// It reports whether damage was dealt.
func (a *Agent) OnContact(other Targetable) bool {
	if !a.active || a.state == StateKnockback || other == nil {
		return false
	}
	if !a.validTarget() || other.Entity() != a.targetHandle {
		return false
	}
	now := a.deps.Clock.Now()
	if a.attacked && now < a.lastAttack+a.cfg.AttackCooldown {
		return false
	}

	// record first: the target may knock us back or recycle us from inside
	// TakeDamage
	a.lastAttack = now
	a.attacked = true
	a.target.TakeDamage(a.cfg.AttackDamage, a.source())
	return true
}

// ApplyKnockback forces velocity to direction*power for duration, then
// drops the target and returns to searching. Ignored while already knocked
// back.
func (a *Agent) ApplyKnockback(direction cp.Vector, power float64, duration time.Duration) {
	if !a.active || a.state == StateKnockback {
		return
	}
	a.state = StateKnockback
	a.knockbackVel = direction.Mult(power)
	a.deps.Body.SetVelocityVector(a.knockbackVel)

	epoch := a.epoch
	a.knockback = a.deps.Clock.After(duration, func() {
		a.endKnockback(epoch)
	})
}

func (a *Agent) endKnockback(epoch uint64) {
	if epoch != a.epoch || !a.active || a.state != StateKnockback {
		return
	}
	a.knockback = nil
	a.knockbackVel = cp.Vector{}
	a.deps.Body.SetVelocityVector(cp.Vector{})
	a.clearTarget()
	a.state = StateSearching
}
