package ecs

import "strconv"

// Entity is a generational handle. The low 32 bits hold a stable index and
// the high 32 bits hold the generation of the life the handle refers to.
type Entity uint64

const entityIDBits = 32

func NewEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<entityIDBits | uint64(index))
}

func (e Entity) Index() uint32 {
	return uint32(e)
}

func (e Entity) Generation() uint32 {
	return uint32(uint64(e) >> entityIDBits)
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.Index()), 10) + "v" + strconv.FormatUint(uint64(e.Generation()), 10)
}

func (e Entity) Valid() bool {
	return e > 0
}

// EntityAllocator hands out stable indices. Indices start at 1 so the zero
// Entity is never valid.
type EntityAllocator struct {
	next uint32
}

func (a *EntityAllocator) Next() uint32 {
	a.next++
	return a.next
}
