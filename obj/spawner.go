package obj

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/survivor/ecs"
	"github.com/milk9111/survivor/prefabs"
)

// Spawner pulls units from the pool on a fixed period and places them on a
// ring around the player.
type Spawner struct {
	arena   *Arena
	cfg     prefabs.SpawnerSpec
	script  *WaveScript
	rng     *rand.Rand
	task    *ecs.Task
	started time.Duration

	scriptFailed bool
}

func NewSpawner(a *Arena, cfg prefabs.SpawnerSpec, seed uint64) (*Spawner, error) {
	s := &Spawner{
		arena: a,
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	if cfg.Script != "" {
		script, err := LoadWaveScript(cfg.Script)
		if err != nil {
			return nil, err
		}
		s.script = script
	}
	return s, nil
}

// Start begins periodic spawning. A zero interval leaves the spawner idle.
func (s *Spawner) Start() {
	if s == nil || s.task != nil || s.cfg.Interval <= 0 {
		return
	}
	clock := s.arena.world.Scheduler()
	s.started = clock.Now()
	s.task = clock.Every(s.cfg.Interval, s.tick)
}

func (s *Spawner) Stop() {
	if s == nil {
		return
	}
	s.task.Cancel()
	s.task = nil
}

func (s *Spawner) Running() bool {
	return s != nil && s.task != nil
}

// Restart resets the wave clock.
func (s *Spawner) Restart() {
	if !s.Running() {
		return
	}
	s.Stop()
	s.Start()
}

// Apply takes a reloaded spawner config. The script is compiled before
// anything changes, so a broken script keeps the old one running.
func (s *Spawner) Apply(cfg prefabs.SpawnerSpec) error {
	script := s.script
	if cfg.Script == "" {
		script = nil
	} else if cfg.Script != s.cfg.Script || script == nil {
		loaded, err := LoadWaveScript(cfg.Script)
		if err != nil {
			return err
		}
		script = loaded
	}
	return s.swap(cfg, script)
}

// ReloadScript recompiles the current script after an edit on disk.
func (s *Spawner) ReloadScript() error {
	if s.cfg.Script == "" {
		return nil
	}
	script, err := LoadWaveScript(s.cfg.Script)
	if err != nil {
		return err
	}
	return s.swap(s.cfg, script)
}

func (s *Spawner) swap(cfg prefabs.SpawnerSpec, script *WaveScript) error {
	running := s.Running()
	intervalChanged := cfg.Interval != s.cfg.Interval
	s.cfg = cfg
	s.script = script
	s.scriptFailed = false
	if running && intervalChanged {
		started := s.started
		s.Stop()
		s.Start()
		s.started = started
	}
	return nil
}

func (s *Spawner) tick() {
	player := s.arena.player
	if player.IsDead() {
		return
	}

	elapsed := s.arena.world.Scheduler().Now() - s.started
	types := len(s.arena.spec.Units)
	pick, count, err := s.script.Pick(elapsed, s.rng.Float64(), types)
	if err == nil && pick >= types {
		err = fmt.Errorf("wave script %s picked type %d of %d", s.script.Name(), pick, types)
	}
	if err != nil {
		if !s.scriptFailed {
			log.Printf("spawner: %v", err)
			s.scriptFailed = true
		}
		return
	}
	if pick < 0 {
		return
	}

	center := player.Position()
	for i := 0; i < count; i++ {
		angle := s.rng.Float64() * 2 * math.Pi
		pos := center.Add(cp.ForAngle(angle).Mult(s.cfg.RingRadius))
		if _, err := s.arena.Spawn(pick, pos); err != nil {
			if !errors.Is(err, ErrCapReached) {
				log.Printf("spawner: %v", err)
			}
			return
		}
	}
}
