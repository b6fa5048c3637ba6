package main

import (
	"log"

	"github.com/milk9111/survivor/obj"
	"github.com/milk9111/survivor/prefabs"
)

// runHeadless steps the arena without a window. The player stands still, so
// a run measures how long the spawn waves take to overwhelm it.
func runHeadless(arena *obj.Arena, ticks int, specName string, watcher *prefabs.Watcher) obj.Stats {
	var stats obj.Stats
	for i := 0; i < ticks; i++ {
		arena.DrainChanges(specName, watcher)
		arena.Update()
		stats.Record(arena.World().Events().Drain(), arena.Player().Entity())
		if stats.PlayerDied {
			log.Printf("headless: player died at frame %d (%s)", arena.World().Frame(), arena.World().Scheduler().Now())
			break
		}
	}
	return stats
}
