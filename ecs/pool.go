package ecs

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("ecs: pool type index out of range")

// Resource is an instance owned by a Pool. Activate and Deactivate are the
// only places an instance may reset its state; the pool never touches
// anything but these hooks.
type Resource interface {
	Active() bool
	Activate()
	Deactivate()
}

// Pool recycles instances per type index. Slots only grow: an instance is
// never removed, only deactivated, so its identity is stable across reuse.
//
// Finding a free instance is a linear scan of the slot. Slots hold tens of
// instances, so a free list is not worth its bookkeeping.
type Pool[T Resource] struct {
	prototypes []func() T
	slots      [][]T
}

// NewPool registers one slot per prototype. The type index of a prototype
// is its position in the argument list.
func NewPool[T Resource](prototypes ...func() T) *Pool[T] {
	p := &Pool[T]{
		prototypes: append([]func() T(nil), prototypes...),
		slots:      make([][]T, len(prototypes)),
	}
	return p
}

// Types returns the number of registered prototypes.
func (p *Pool[T]) Types() int {
	if p == nil {
		return 0
	}
	return len(p.prototypes)
}

func (p *Pool[T]) checkIndex(typeIndex int) error {
	if p == nil || typeIndex < 0 || typeIndex >= len(p.prototypes) || p.prototypes[typeIndex] == nil {
		return fmt.Errorf("%w: %d", ErrOutOfRange, typeIndex)
	}
	return nil
}

// Get returns an active instance of typeIndex, reusing the first inactive
// instance of the slot or constructing a new one. Callers position and
// configure the instance themselves.
func (p *Pool[T]) Get(typeIndex int) (T, error) {
	var zero T
	if err := p.checkIndex(typeIndex); err != nil {
		return zero, err
	}

	for _, inst := range p.slots[typeIndex] {
		if inst.Active() {
			continue
		}
		inst.Activate()
		return inst, nil
	}

	inst := p.prototypes[typeIndex]()
	// append before activating so a hook that re-enters the pool sees it
	p.slots[typeIndex] = append(p.slots[typeIndex], inst)
	inst.Activate()
	return inst, nil
}

// Clear deactivates every instance of typeIndex that is active when Clear is
// called. An instance handed out again by a hook during the clear stays
// active.
func (p *Pool[T]) Clear(typeIndex int) error {
	if err := p.checkIndex(typeIndex); err != nil {
		return err
	}

	slot := p.slots[typeIndex]
	active := make([]T, 0, len(slot))
	for _, inst := range slot {
		if inst.Active() {
			active = append(active, inst)
		}
	}
	for _, inst := range active {
		if inst.Active() {
			inst.Deactivate()
		}
	}
	return nil
}

// ClearAll clears every slot. Used at level transitions.
func (p *Pool[T]) ClearAll() {
	if p == nil {
		return
	}
	for i := range p.slots {
		_ = p.Clear(i)
	}
}

// Len returns how many instances were ever created for typeIndex.
func (p *Pool[T]) Len(typeIndex int) int {
	if p.checkIndex(typeIndex) != nil {
		return 0
	}
	return len(p.slots[typeIndex])
}

// ActiveCount returns how many instances of typeIndex are active.
func (p *Pool[T]) ActiveCount(typeIndex int) int {
	if p.checkIndex(typeIndex) != nil {
		return 0
	}
	n := 0
	for _, inst := range p.slots[typeIndex] {
		if inst.Active() {
			n++
		}
	}
	return n
}

// Instances returns a copy of the slot for typeIndex.
func (p *Pool[T]) Instances(typeIndex int) []T {
	if p.checkIndex(typeIndex) != nil {
		return nil
	}
	return append([]T(nil), p.slots[typeIndex]...)
}

// Each visits every active instance in type index then slot order. The
// visit works on a snapshot, so fn may activate or deactivate instances.
func (p *Pool[T]) Each(fn func(typeIndex int, inst T)) {
	if p == nil || fn == nil {
		return
	}
	for i := range p.slots {
		for _, inst := range append([]T(nil), p.slots[i]...) {
			if inst.Active() {
				fn(i, inst)
			}
		}
	}
}
