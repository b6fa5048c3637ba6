package ecs

import (
	"sort"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
)

func addBody(pw *PhysicsWorld, owner string, layer Layer, pos cp.Vector) *cp.Body {
	body := pw.NewBody(owner, layer, 0.5, 1)
	pw.Place(body, pos)
	pw.Attach(body)
	return body
}

func ownersOf(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(string))
	}
	sort.Strings(out)
	return out
}

func TestPhysicsWorldQueryRadius(t *testing.T) {
	pw := NewPhysicsWorld()
	addBody(pw, "near_enemy", LayerEnemy, cp.Vector{X: 5})
	addBody(pw, "far_enemy", LayerEnemy, cp.Vector{X: 30})
	addBody(pw, "near_ally", LayerAlly, cp.Vector{Y: -4})
	addBody(pw, "player", LayerPlayer, cp.Vector{X: -2, Y: 2})
	detached := pw.NewBody("detached", LayerEnemy, 0.5, 1)
	pw.Place(detached, cp.Vector{X: 1})

	tests := []struct {
		name   string
		radius float64
		mask   Layer
		want   []string
	}{
		{"enemies", 10, LayerEnemy, []string{"near_enemy"}},
		{"enemies_wide", 40, LayerEnemy, []string{"far_enemy", "near_enemy"}},
		{"allies_and_player", 10, LayerAlly | LayerPlayer, []string{"near_ally", "player"}},
		{"none_mask", 10, LayerNone, []string{}},
		{"zero_radius", 0, LayerAll, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ownersOf(pw.QueryRadius(cp.Vector{}, tc.radius, tc.mask))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestPhysicsWorldAttachDetach(t *testing.T) {
	pw := NewPhysicsWorld()
	body := addBody(pw, "unit", LayerEnemy, cp.Vector{X: 1})
	pw.Attach(body)
	if !pw.Attached(body) || pw.Radius(body) != 0.5 {
		t.Fatalf("expected attached body with radius 0.5")
	}

	body.SetVelocityVector(cp.Vector{X: 3})
	pw.Detach(body)
	pw.Detach(body)
	if pw.Attached(body) || body.Velocity() != (cp.Vector{}) {
		t.Fatalf("expected detached and stopped body")
	}
	if got := pw.QueryRadius(cp.Vector{}, 10, LayerAll); len(got) != 0 {
		t.Fatalf("detached body showed up in query: %v", got)
	}

	pw.Place(body, cp.Vector{X: -3})
	pw.Attach(body)
	if got := ownersOf(pw.QueryRadius(cp.Vector{X: -3}, 1, LayerEnemy)); len(got) != 1 {
		t.Fatalf("expected reattached body at new position, got %v", got)
	}
}

func TestPhysicsWorldQueryAfterPlace(t *testing.T) {
	pw := NewPhysicsWorld()
	body := addBody(pw, "unit", LayerEnemy, cp.Vector{X: 2})
	if got := pw.QueryRadius(cp.Vector{}, 3, LayerEnemy); len(got) != 1 {
		t.Fatalf("expected unit near origin, got %v", got)
	}

	// no step in between
	pw.Place(body, cp.Vector{X: 50, Y: -20})

	if got := pw.QueryRadius(cp.Vector{}, 3, LayerEnemy); len(got) != 0 {
		t.Fatalf("unit still reported at its old position: %v", got)
	}
	if got := ownersOf(pw.QueryRadius(cp.Vector{X: 50, Y: -20}, 1, LayerEnemy)); len(got) != 1 || got[0] != "unit" {
		t.Fatalf("expected unit at its new position, got %v", got)
	}
	if !pw.Attached(body) {
		t.Fatalf("place must keep the body attached")
	}

	// surface distance: a 0.5 radius body centred 3.4 away is inside a 3 radius query
	pw.Place(body, cp.Vector{X: 3.4})
	if got := pw.QueryRadius(cp.Vector{}, 3, LayerEnemy); len(got) != 1 {
		t.Fatalf("expected overlap at the query edge, got %v", got)
	}
	pw.Place(body, cp.Vector{X: 3.6})
	if got := pw.QueryRadius(cp.Vector{}, 3, LayerEnemy); len(got) != 0 {
		t.Fatalf("expected no overlap past the query edge, got %v", got)
	}
}

func TestPhysicsWorldContacts(t *testing.T) {
	w := NewWorld(time.Second / 60)
	pw := NewPhysicsWorld()
	w.SetPhysicsWorld(pw)
	w.AddSystem(pw)

	a := addBody(pw, "a", LayerEnemy, cp.Vector{})
	addBody(pw, "b", LayerPlayer, cp.Vector{X: 0.6})
	c := addBody(pw, "c", LayerAlly, cp.Vector{X: 20})

	w.Update()

	if got := ownersOf(pw.Contacts(a)); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected a touching b, got %v", got)
	}
	if got := pw.Contacts(c); len(got) != 0 {
		t.Fatalf("expected c alone, got %v", got)
	}
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		in   string
		want Layer
		err  bool
	}{
		{"player", LayerPlayer, false},
		{" Enemy ", LayerEnemy, false},
		{"ALLY", LayerAlly, false},
		{"boss", LayerNone, true},
	}
	for _, tc := range tests {
		got, err := ParseLayer(tc.in)
		if (err != nil) != tc.err || got != tc.want {
			t.Fatalf("ParseLayer(%q) = %v, %v", tc.in, got, err)
		}
	}
	if s := (LayerPlayer | LayerAlly).String(); s != "player|ally" {
		t.Fatalf("unexpected layer string %q", s)
	}
}
