package ecs

import "time"

// System updates a world each frame.
type System interface {
	Update(w *World)
}

// World owns the clock, the physics space and system order. Each Update is
// one fixed step: the scheduler advances first, then systems run in the
// order they were added.
type World struct {
	step      time.Duration
	frame     uint64
	scheduler *Scheduler
	systems   []System
	events    EventQueue

	physicsWorld *PhysicsWorld
}

// NewWorld creates a world advancing step per Update.
func NewWorld(step time.Duration) *World {
	if step <= 0 {
		step = time.Second / 60
	}
	return &World{step: step, scheduler: NewScheduler()}
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if s == nil {
		return
	}
	w.systems = append(w.systems, s)
}

// Update runs one fixed step.
func (w *World) Update() {
	if w == nil {
		return
	}
	w.frame++
	w.scheduler.Advance(w.step)
	for _, s := range w.systems {
		if s != nil {
			s.Update(w)
		}
	}
}

// Step returns the fixed step duration.
func (w *World) Step() time.Duration {
	if w == nil {
		return 0
	}
	return w.step
}

// Frame returns how many steps have run.
func (w *World) Frame() uint64 {
	if w == nil {
		return 0
	}
	return w.frame
}

// Scheduler returns the world clock.
func (w *World) Scheduler() *Scheduler {
	if w == nil {
		return nil
	}
	return w.scheduler
}

// Events returns the world event queue. Consumers drain it; the world never
// flushes on its own.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// SetPhysicsWorld attaches a physics world to this ECS world.
func (w *World) SetPhysicsWorld(pw *PhysicsWorld) {
	if w == nil {
		return
	}
	w.physicsWorld = pw
}

// PhysicsWorld returns the attached physics world, if any.
func (w *World) PhysicsWorld() *PhysicsWorld {
	if w == nil {
		return nil
	}
	return w.physicsWorld
}
