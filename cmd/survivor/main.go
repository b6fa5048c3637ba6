package main

import (
	"flag"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/survivor/obj"
	"github.com/milk9111/survivor/prefabs"
	"github.com/pkg/profile"
)

func main() {
	specName := flag.String("spec", prefabs.DefaultSpec, "survival spec in prefabs/ (disk copy wins over the embedded one)")
	seed := flag.Uint64("seed", 0, "override the spawner seed (0 keeps the spec's)")
	headless := flag.Bool("headless", false, "run without a window")
	ticks := flag.Int("ticks", 3600, "steps to run in headless mode")
	profileMode := flag.String("profile", "", "headless profiling: cpu or mem")
	watch := flag.Bool("watch", true, "hot reload specs and scripts from prefabs/")
	debug := flag.Bool("debug", false, "draw agent targets")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	flag.Parse()

	spec, err := prefabs.LoadSurvivalSpec(*specName)
	if err != nil {
		log.Fatal(err)
	}
	if *seed != 0 {
		spec.Seed = *seed
	}

	var watcher *prefabs.Watcher
	if *watch {
		w, err := prefabs.NewWatcher(100*time.Millisecond, prefabs.DiskDir, prefabs.DiskDir+"/scripts")
		if err != nil {
			log.Printf("watch: disabled: %v", err)
		} else {
			watcher = w
			defer watcher.Close()
		}
	}

	if *headless {
		arena, err := obj.NewArena(spec, nil)
		if err != nil {
			log.Fatal(err)
		}
		arena.Spawner().Start()

		switch *profileMode {
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
		case "mem":
			defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
		case "":
		default:
			log.Fatalf("unknown profile mode %q", *profileMode)
		}

		start := time.Now()
		stats := runHeadless(arena, *ticks, *specName, watcher)
		log.Printf("headless: %d frames in %s: %s", arena.World().Frame(), time.Since(start), stats)
		return
	}

	input := &Input{}
	arena, err := obj.NewArena(spec, input)
	if err != nil {
		log.Fatal(err)
	}
	arena.Spawner().Start()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("survivor")
	ebiten.SetTPS(spec.TickRate)

	if err := ebiten.RunGame(NewGame(arena, input, watcher, *specName, *debug)); err != nil {
		log.Fatal(err)
	}
}
