package obj

import "github.com/milk9111/survivor/ecs"

// wrapInset places a wrapped unit just inside the wrap distance so it is not
// wrapped again on the next step.
const wrapInset = 0.9

// WrapSystem fakes an unbounded map: a unit that falls farther than Distance
// behind the player is mirrored through the player to the far side.
type WrapSystem struct {
	arena    *Arena
	Distance float64
}

func (s *WrapSystem) Update(w *ecs.World) {
	if s.Distance <= 0 {
		return
	}
	center := s.arena.player.Position()
	limitSq := s.Distance * s.Distance
	s.arena.pool.Each(func(_ int, u *Unit) {
		offset := u.Position().Sub(center)
		if offset.LengthSq() <= limitSq {
			return
		}
		u.Place(center.Sub(offset.Normalize().Mult(s.Distance * wrapInset)))
	})
}
