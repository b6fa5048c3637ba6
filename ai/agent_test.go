package ai

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/survivor/ecs"
)

type fakeBody struct {
	pos cp.Vector
	vel cp.Vector
}

func (b *fakeBody) Position() cp.Vector            { return b.pos }
func (b *fakeBody) Velocity() cp.Vector            { return b.vel }
func (b *fakeBody) SetVelocityVector(v cp.Vector) { b.vel = v }

type fakeTarget struct {
	index   uint32
	gen     uint32
	pos     cp.Vector
	layer   ecs.Layer
	dead    bool
	damage  int
	hits    int
	sources []DamageSource
}

func (t *fakeTarget) Entity() ecs.Entity  { return ecs.NewEntity(t.index, t.gen) }
func (t *fakeTarget) Position() cp.Vector { return t.pos }
func (t *fakeTarget) IsDead() bool        { return t.dead }
func (t *fakeTarget) TakeDamage(amount int, source DamageSource) {
	t.damage += amount
	t.hits++
	t.sources = append(t.sources, source)
}

type fakeQuery struct {
	candidates []*fakeTarget
	calls      int
}

func (q *fakeQuery) QueryRadius(center cp.Vector, radius float64, layer ecs.Layer) []Targetable {
	q.calls++
	var out []Targetable
	for _, c := range q.candidates {
		if c.layer&layer == 0 {
			continue
		}
		if c.pos.Sub(center).Length() > radius {
			continue
		}
		out = append(out, c)
	}
	return out
}

type fakeOwner struct {
	entity ecs.Entity
	body   *fakeBody
}

func (o *fakeOwner) Entity() ecs.Entity  { return o.entity }
func (o *fakeOwner) Position() cp.Vector { return o.body.pos }

func testConfig() Config {
	return Config{
		Speed:            3,
		DetectionRadius:  15,
		AttackDamage:     4,
		AttackCooldown:   time.Second,
		RetargetInterval: 50 * time.Millisecond,
		TargetLayer:      ecs.LayerPlayer | ecs.LayerAlly,
	}
}

type harness struct {
	clock *ecs.Scheduler
	body  *fakeBody
	query *fakeQuery
	owner *fakeOwner
	agent *Agent
}

func newHarness(t *testing.T, cfg Config, candidates ...*fakeTarget) *harness {
	t.Helper()
	h := &harness{
		clock: ecs.NewScheduler(),
		body:  &fakeBody{},
		query: &fakeQuery{candidates: candidates},
	}
	h.owner = &fakeOwner{entity: ecs.NewEntity(1000, 1), body: h.body}
	h.agent = NewAgent(cfg, Deps{Owner: h.owner, Body: h.body, Query: h.query, Clock: h.clock})
	if err := h.agent.Activate(); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return h
}

// advanceTo moves the clock to at without running physics steps.
func (h *harness) advanceTo(at time.Duration) {
	h.clock.Advance(at - h.clock.Now())
}

func TestAgentRetargetPicksNearestLive(t *testing.T) {
	x := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 5}, layer: ecs.LayerPlayer}
	y := &fakeTarget{index: 2, gen: 1, pos: cp.Vector{Y: 10}, layer: ecs.LayerPlayer}
	h := newHarness(t, testConfig(), y, x)

	if h.agent.State() != StateSearching {
		t.Fatalf("expected searching before first retarget, got %s", h.agent.State())
	}
	h.advanceTo(0)
	if h.agent.Target() != x || h.agent.State() != StateTracking {
		t.Fatalf("expected x tracked, got %v state=%s", h.agent.Target(), h.agent.State())
	}

	x.dead = true
	h.advanceTo(50 * time.Millisecond)
	if h.agent.Target() != y {
		t.Fatalf("expected y after x died, got %v", h.agent.Target())
	}

	y.dead = true
	h.advanceTo(100 * time.Millisecond)
	if h.agent.Target() != nil || h.agent.State() != StateSearching {
		t.Fatalf("expected no target, got %v state=%s", h.agent.Target(), h.agent.State())
	}
}

func TestAgentRetargetFilters(t *testing.T) {
	tests := []struct {
		name      string
		candidate *fakeTarget
		want      bool
	}{
		{"in_radius", &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 14}, layer: ecs.LayerAlly}, true},
		{"out_of_radius", &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 16}, layer: ecs.LayerAlly}, false},
		{"wrong_layer", &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 1}, layer: ecs.LayerEnemy}, false},
		{"dead", &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 1}, layer: ecs.LayerAlly, dead: true}, false},
		{"self", &fakeTarget{index: 1000, gen: 1, pos: cp.Vector{}, layer: ecs.LayerAlly}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, testConfig(), tc.candidate)
			h.advanceTo(0)
			got := h.agent.Target() != nil
			if got != tc.want {
				t.Fatalf("expected target=%v, got %v", tc.want, got)
			}
		})
	}
}

func TestAgentNearestTargetProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(12)
		candidates := make([]*fakeTarget, 0, n)
		for i := 0; i < n; i++ {
			candidates = append(candidates, &fakeTarget{
				index: uint32(i + 1),
				gen:   1,
				pos:   cp.Vector{X: rng.Float64()*40 - 20, Y: rng.Float64()*40 - 20},
				layer: ecs.LayerPlayer,
				dead:  rng.IntN(4) == 0,
			})
		}
		h := newHarness(t, testConfig(), candidates...)
		h.advanceTo(0)

		got := h.agent.Target()
		var live []*fakeTarget
		for _, c := range candidates {
			if !c.dead && c.pos.Length() <= 15 {
				live = append(live, c)
			}
		}
		if len(live) == 0 {
			if got != nil {
				t.Fatalf("round %d: expected no target, got %v", round, got)
			}
			continue
		}
		if got == nil {
			t.Fatalf("round %d: expected a target among %d live candidates", round, len(live))
		}
		d := got.Position().Length()
		for _, c := range live {
			if c.pos.Length() < d {
				t.Fatalf("round %d: target at %.3f but candidate %d at %.3f", round, d, c.index, c.pos.Length())
			}
		}
	}
}

func TestAgentTieBreakLowestIndex(t *testing.T) {
	a := &fakeTarget{index: 9, gen: 1, pos: cp.Vector{X: 3}, layer: ecs.LayerPlayer}
	b := &fakeTarget{index: 4, gen: 1, pos: cp.Vector{X: -3}, layer: ecs.LayerPlayer}
	c := &fakeTarget{index: 6, gen: 1, pos: cp.Vector{Y: 3}, layer: ecs.LayerPlayer}

	orders := [][]*fakeTarget{{a, b, c}, {c, b, a}, {b, a, c}}
	for _, order := range orders {
		h := newHarness(t, testConfig(), order...)
		h.advanceTo(0)
		if h.agent.Target() != b {
			t.Fatalf("expected index 4, got %v", h.agent.Target())
		}
	}
}

func TestAgentFixedUpdateChases(t *testing.T) {
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 3, Y: 4}, layer: ecs.LayerPlayer}
	cfg := testConfig()
	cfg.Speed = 10
	h := newHarness(t, cfg, target)

	h.body.vel = cp.Vector{X: 1, Y: 1}
	h.agent.FixedUpdate()
	if h.body.vel != (cp.Vector{}) {
		t.Fatalf("expected zero velocity without target, got %v", h.body.vel)
	}

	h.advanceTo(0)
	h.agent.FixedUpdate()
	want := cp.Vector{X: 6, Y: 8}
	if h.body.vel.Sub(want).Length() > 1e-9 {
		t.Fatalf("expected %v, got %v", want, h.body.vel)
	}

	target.dead = true
	h.agent.FixedUpdate()
	if h.body.vel != (cp.Vector{}) || h.agent.State() != StateSearching {
		t.Fatalf("expected stop after target died, vel=%v state=%s", h.body.vel, h.agent.State())
	}
}

func TestAgentDropsRecycledTarget(t *testing.T) {
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 2}, layer: ecs.LayerPlayer}
	h := newHarness(t, testConfig(), target)
	h.advanceTo(0)
	if h.agent.Target() != target {
		t.Fatalf("expected target acquired")
	}

	// same instance, next life
	target.gen++
	if h.agent.Target() != nil {
		t.Fatalf("expected stale handle to read as no target")
	}
	if h.agent.OnContact(target) {
		t.Fatalf("stale target must not be attacked")
	}
	h.agent.FixedUpdate()
	if h.agent.State() != StateSearching || h.body.vel != (cp.Vector{}) {
		t.Fatalf("expected searching and stopped, got %s %v", h.agent.State(), h.body.vel)
	}
}

func TestAgentAttackCooldown(t *testing.T) {
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 1}, layer: ecs.LayerPlayer}
	h := newHarness(t, testConfig(), target)
	h.advanceTo(0)

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{500 * time.Millisecond, false},
		{1100 * time.Millisecond, true},
		{2 * time.Second, false},
		{2100 * time.Millisecond, true},
	}
	hits := 0
	for _, s := range steps {
		h.advanceTo(s.at)
		got := h.agent.OnContact(target)
		if got != s.want {
			t.Fatalf("t=%s: expected hit=%v, got %v", s.at, s.want, got)
		}
		if got {
			hits++
		}
	}
	if target.hits != hits || target.damage != hits*4 {
		t.Fatalf("expected %d hits for %d damage, got %d hits %d damage", hits, hits*4, target.hits, target.damage)
	}
	if src := target.sources[0]; src.Entity() != h.owner.entity {
		t.Fatalf("expected owner as damage source, got %v", src.Entity())
	}
}

func TestAgentContactRequiresCurrentTarget(t *testing.T) {
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 1}, layer: ecs.LayerPlayer}
	bystander := &fakeTarget{index: 2, gen: 1, pos: cp.Vector{X: 9}, layer: ecs.LayerPlayer}
	h := newHarness(t, testConfig(), target, bystander)

	if h.agent.OnContact(target) {
		t.Fatalf("expected no attack without a target")
	}
	h.advanceTo(0)
	if h.agent.OnContact(bystander) {
		t.Fatalf("expected no attack on a non-target contact")
	}
	if !h.agent.OnContact(target) {
		t.Fatalf("expected attack on target contact")
	}
}

func TestAgentKnockback(t *testing.T) {
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 5}, layer: ecs.LayerPlayer}
	closer := &fakeTarget{index: 2, gen: 1, pos: cp.Vector{X: 100}, layer: ecs.LayerPlayer}
	h := newHarness(t, testConfig(), target, closer)
	h.advanceTo(0)
	h.agent.FixedUpdate()
	if h.agent.State() != StateTracking {
		t.Fatalf("expected tracking, got %s", h.agent.State())
	}

	h.agent.ApplyKnockback(cp.Vector{X: 1}, 10, 200*time.Millisecond)
	// a second knockback while knocked back is ignored
	h.agent.ApplyKnockback(cp.Vector{Y: 1}, 50, time.Second)

	closer.pos = cp.Vector{X: 1}
	for now := 10 * time.Millisecond; now < 200*time.Millisecond; now += 10 * time.Millisecond {
		h.advanceTo(now)
		// contact resolution rewrote the velocity during the last step
		h.body.vel = cp.Vector{X: -1.25, Y: 0.5}
		h.agent.FixedUpdate()
		if h.body.vel != (cp.Vector{X: 10}) {
			t.Fatalf("t=%s: expected knockback velocity, got %v", now, h.body.vel)
		}
		if h.agent.State() != StateKnockback {
			t.Fatalf("t=%s: expected knockback state, got %s", now, h.agent.State())
		}
		if h.agent.Target() != target {
			t.Fatalf("t=%s: target changed during knockback", now)
		}
		if h.agent.OnContact(target) {
			t.Fatalf("t=%s: attacked during knockback", now)
		}
	}
	if target.hits != 0 {
		t.Fatalf("expected no hits during knockback, got %d", target.hits)
	}

	h.advanceTo(250 * time.Millisecond)
	if h.body.vel != (cp.Vector{}) {
		t.Fatalf("expected stop after knockback, got %v", h.body.vel)
	}
	if h.agent.State() != StateTracking || h.agent.Target() != closer {
		t.Fatalf("expected fresh retarget onto closer, got %s %v", h.agent.State(), h.agent.Target())
	}
	h.agent.FixedUpdate()
	if h.body.vel.X <= 0 {
		t.Fatalf("expected chase to resume, got %v", h.body.vel)
	}
}

func TestAgentKnockbackEndsInSearching(t *testing.T) {
	cfg := testConfig()
	cfg.RetargetInterval = time.Second
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 5}, layer: ecs.LayerPlayer}
	h := newHarness(t, cfg, target)
	h.advanceTo(0)

	h.agent.ApplyKnockback(cp.Vector{X: -1}, 4, 100*time.Millisecond)
	h.advanceTo(150 * time.Millisecond)
	if h.agent.State() != StateSearching || h.agent.Target() != nil {
		t.Fatalf("expected searching without target, got %s %v", h.agent.State(), h.agent.Target())
	}
	h.advanceTo(time.Second)
	if h.agent.State() != StateTracking {
		t.Fatalf("expected next retarget tick to reacquire, got %s", h.agent.State())
	}
}

func TestAgentDeactivateDuringKnockback(t *testing.T) {
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 5}, layer: ecs.LayerPlayer}
	h := newHarness(t, testConfig(), target)
	h.advanceTo(0)

	h.agent.ApplyKnockback(cp.Vector{X: 1}, 10, 200*time.Millisecond)
	h.advanceTo(50 * time.Millisecond)
	h.agent.Deactivate()
	if h.body.vel != (cp.Vector{}) || h.agent.Active() {
		t.Fatalf("expected inactive and stopped, got active=%v vel=%v", h.agent.Active(), h.body.vel)
	}
	h.agent.Deactivate()

	h.advanceTo(100 * time.Millisecond)
	if err := h.agent.Activate(); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if h.agent.State() != StateSearching {
		t.Fatalf("expected clean searching state, got %s", h.agent.State())
	}

	h.advanceTo(150 * time.Millisecond)
	h.agent.ApplyKnockback(cp.Vector{Y: 1}, 2, 200*time.Millisecond)
	if h.agent.State() != StateKnockback {
		t.Fatalf("expected new knockback accepted, got %s", h.agent.State())
	}

	// the canceled knockback from the previous life was due at 200ms
	h.advanceTo(300 * time.Millisecond)
	if h.agent.State() != StateKnockback || h.body.vel != (cp.Vector{Y: 2}) {
		t.Fatalf("stale knockback resumed: state=%s vel=%v", h.agent.State(), h.body.vel)
	}

	h.advanceTo(360 * time.Millisecond)
	if h.agent.State() == StateKnockback {
		t.Fatalf("expected knockback to end at 350ms")
	}
	if h.clock.Pending() != 1 {
		t.Fatalf("expected only the retarget task pending, got %d", h.clock.Pending())
	}
}

func TestAgentDeactivateStopsRetarget(t *testing.T) {
	target := &fakeTarget{index: 1, gen: 1, pos: cp.Vector{X: 5}, layer: ecs.LayerPlayer}
	h := newHarness(t, testConfig(), target)
	h.advanceTo(0)
	calls := h.query.calls

	h.agent.Deactivate()
	h.advanceTo(time.Second)
	if h.query.calls != calls {
		t.Fatalf("expected no queries after deactivate, got %d more", h.query.calls-calls)
	}
	if h.agent.Target() != nil {
		t.Fatalf("expected target cleared")
	}
	h.agent.ApplyKnockback(cp.Vector{X: 1}, 1, time.Second)
	if h.agent.State() == StateKnockback {
		t.Fatalf("inactive agent must ignore knockback")
	}
}

func TestAgentActivateConfigErrors(t *testing.T) {
	body := &fakeBody{}
	query := &fakeQuery{}
	clock := ecs.NewScheduler()
	badCfg := testConfig()
	badCfg.RetargetInterval = 0

	tests := []struct {
		name string
		cfg  Config
		deps Deps
		want error
	}{
		{"no_body", testConfig(), Deps{Query: query, Clock: clock}, ErrMissingCapability},
		{"no_query", testConfig(), Deps{Body: body, Clock: clock}, ErrMissingCapability},
		{"no_clock", testConfig(), Deps{Body: body, Query: query}, ErrMissingCapability},
		{"bad_interval", badCfg, Deps{Body: body, Query: query, Clock: clock}, ErrInvalidConfig},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAgent(tc.cfg, tc.deps)
			err := a.Activate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if a.Active() {
				t.Fatalf("agent must not run after a config error")
			}

			// stays disabled even if the config is fixed later
			a.Configure(testConfig())
			if err2 := a.Activate(); !errors.Is(err2, tc.want) || a.Active() {
				t.Fatalf("expected agent to stay disabled, got %v active=%v", err2, a.Active())
			}
			a.FixedUpdate()
			a.ApplyKnockback(cp.Vector{X: 1}, 1, time.Second)
			if a.State() != StateSearching {
				t.Fatalf("disabled agent changed state to %s", a.State())
			}
		})
	}
	if clock.Pending() != 0 {
		t.Fatalf("disabled agents must not schedule tasks, got %d", clock.Pending())
	}
}
