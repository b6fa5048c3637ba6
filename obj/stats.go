package obj

import (
	"fmt"

	"github.com/milk9111/survivor/ecs"
)

// Stats tallies the events of a run.
type Stats struct {
	Spawned     int
	Kills       int
	DamageTaken int
	DamageDealt int
	PlayerDied  bool
}

// Record folds drained events into the tally. player is the current handle
// of the player.
func (s *Stats) Record(events []ecs.Event, player ecs.Entity) {
	for _, e := range events {
		switch e.Kind {
		case ecs.EventSpawned:
			s.Spawned++
		case ecs.EventDamaged:
			if e.Entity == player {
				s.DamageTaken += e.Amount
			} else {
				s.DamageDealt += e.Amount
			}
		case ecs.EventDied:
			if e.Entity == player {
				s.PlayerDied = true
			} else {
				s.Kills++
			}
		}
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("spawned=%d kills=%d taken=%d dealt=%d", s.Spawned, s.Kills, s.DamageTaken, s.DamageDealt)
}
