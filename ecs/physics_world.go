package ecs

import (
	"fmt"
	"math"
	"strings"

	"github.com/jakecoffman/cp"
)

// Layer is a collision category bitmask. Target layers of agents are masks
// over the same bits.
type Layer uint

const (
	LayerPlayer Layer = 1 << iota
	LayerEnemy
	LayerAlly

	LayerNone Layer = 0
	LayerAll  Layer = LayerPlayer | LayerEnemy | LayerAlly
)

var layerOrder = []struct {
	name  string
	layer Layer
}{
	{"player", LayerPlayer},
	{"enemy", LayerEnemy},
	{"ally", LayerAlly},
}

// ParseLayer resolves a layer name.
func ParseLayer(name string) (Layer, error) {
	clean := strings.ToLower(strings.TrimSpace(name))
	for _, l := range layerOrder {
		if l.name == clean {
			return l.layer, nil
		}
	}
	return LayerNone, fmt.Errorf("ecs: unknown layer %q", name)
}

func (l Layer) String() string {
	if l == LayerNone {
		return "none"
	}
	var parts []string
	for _, named := range layerOrder {
		if l&named.layer != 0 {
			parts = append(parts, named.name)
		}
	}
	return strings.Join(parts, "|")
}

// PhysicsWorld owns the Chipmunk space. Bodies are created detached and are
// attached while their owner is active, so inactive pool instances neither
// collide nor show up in queries.
type PhysicsWorld struct {
	space    *cp.Space
	bodies   map[*cp.Body]*bodyInfo
	attached map[*cp.Body]bool
	// largest shape radius created so far; widens the broadphase box
	maxRadius float64
}

type bodyInfo struct {
	shape  *cp.Shape
	radius float64
}

// NewPhysicsWorld creates a top-down space without gravity.
func NewPhysicsWorld() *PhysicsWorld {
	space := cp.NewSpace()
	space.Iterations = 10
	space.SetGravity(cp.Vector{})

	return &PhysicsWorld{
		space:    space,
		bodies:   make(map[*cp.Body]*bodyInfo),
		attached: make(map[*cp.Body]bool),
	}
}

// Space returns the underlying Chipmunk space.
func (pw *PhysicsWorld) Space() *cp.Space {
	if pw == nil {
		return nil
	}
	return pw.space
}

// NewBody creates a detached circular body for owner. Rotation is locked.
// Queries and contacts report owner for this body.
func (pw *PhysicsWorld) NewBody(owner any, layer Layer, radius, mass float64) *cp.Body {
	if pw == nil {
		return nil
	}
	if radius <= 0 {
		radius = 0.5
	}
	if mass <= 0 {
		mass = 1
	}

	body := cp.NewBody(mass, math.Inf(1))
	body.UserData = owner

	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetFriction(0)
	shape.SetElasticity(0)
	shape.SetFilter(cp.NewShapeFilter(cp.NO_GROUP, uint(layer), cp.ALL_CATEGORIES))
	shape.UserData = owner

	pw.bodies[body] = &bodyInfo{shape: shape, radius: radius}
	pw.maxRadius = math.Max(pw.maxRadius, radius)
	return body
}

// Radius returns the collision radius of a body created by NewBody.
func (pw *PhysicsWorld) Radius(body *cp.Body) float64 {
	if pw == nil || body == nil {
		return 0
	}
	info, ok := pw.bodies[body]
	if !ok {
		return 0
	}
	return info.radius
}

// Attach adds the body and its shape to the space. Attaching twice is a no-op.
func (pw *PhysicsWorld) Attach(body *cp.Body) {
	if pw == nil || body == nil || pw.attached[body] {
		return
	}
	info, ok := pw.bodies[body]
	if !ok {
		return
	}
	pw.space.AddBody(body)
	pw.space.AddShape(info.shape)
	pw.attached[body] = true
}

// Detach removes the body from the space and stops it.
func (pw *PhysicsWorld) Detach(body *cp.Body) {
	if pw == nil || body == nil || !pw.attached[body] {
		return
	}
	if info := pw.bodies[body]; info != nil {
		pw.space.RemoveShape(info.shape)
	}
	pw.space.RemoveBody(body)
	body.SetVelocityVector(cp.Vector{})
	delete(pw.attached, body)
}

// Attached reports whether the body is in the space.
func (pw *PhysicsWorld) Attached(body *cp.Body) bool {
	return pw != nil && body != nil && pw.attached[body]
}

// Place teleports a body. An attached shape is reinserted into the space's
// index so queries see the new position before the next step; the dynamic
// tree only refreshes its leaves while stepping.
func (pw *PhysicsWorld) Place(body *cp.Body, pos cp.Vector) {
	if pw == nil || body == nil {
		return
	}
	body.SetPosition(pos)
	if !pw.attached[body] {
		return
	}
	if info := pw.bodies[body]; info != nil {
		pw.space.RemoveShape(info.shape)
		pw.space.AddShape(info.shape)
	}
}

// QueryRadius returns the owners of attached bodies whose shape lies within
// radius of center and whose layer is in mask. The result is unordered.
func (pw *PhysicsWorld) QueryRadius(center cp.Vector, radius float64, mask Layer) []any {
	if pw == nil || pw.space == nil || radius <= 0 || mask == LayerNone {
		return nil
	}
	filter := cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, uint(mask))

	bb := cp.NewBBForCircle(center, radius+pw.maxRadius)

	var out []any
	seen := make(map[*cp.Body]struct{})
	pw.space.BBQuery(bb, filter, func(shape *cp.Shape, data interface{}) {
		body := shape.Body()
		if body == nil || shape.UserData == nil || !pw.attached[body] {
			return
		}
		if _, ok := seen[body]; ok {
			return
		}
		// distance to the surface, negative inside
		if shape.PointQuery(center).Distance > radius {
			return
		}
		seen[body] = struct{}{}
		out = append(out, shape.UserData)
	}, nil)
	return out
}

// Contacts returns the owners of bodies touching body through non-sensor
// shapes during the last step.
func (pw *PhysicsWorld) Contacts(body *cp.Body) []any {
	if pw == nil || body == nil || !pw.attached[body] {
		return nil
	}
	var out []any
	body.EachArbiter(func(arb *cp.Arbiter) {
		sa, sb := arb.Shapes()
		if sa == nil || sb == nil || sa.Sensor() || sb.Sensor() {
			return
		}
		other := sb
		if sa.Body() != body {
			other = sa
		}
		if other.UserData == nil {
			return
		}
		out = append(out, other.UserData)
	})
	return out
}

// Update steps the space by the world's fixed step.
func (pw *PhysicsWorld) Update(w *World) {
	if pw == nil || pw.space == nil || w == nil {
		return
	}
	pw.space.Step(w.Step().Seconds())
}
