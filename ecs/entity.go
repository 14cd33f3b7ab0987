package ecs

import "strconv"

// Entity is an opaque handle: generation in the high 32 bits, index in the low 32.
// Index 0 is never issued, so Null never matches a live entity.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

// Null is the invalid entity sentinel.
const Null Entity = 0

func makeEntity(id entityID, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

// ID returns the numeric index used in persisted documents.
func (e Entity) ID() uint32 {
	return uint32(e.id())
}

// Generation returns the reuse counter of the handle's index.
func (e Entity) Generation() uint32 {
	return uint32(e.generation())
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.id()), 10) + "v" + strconv.FormatUint(uint64(e.generation()), 10)
}

// Valid reports whether e is not Null. It says nothing about liveness.
func (e Entity) Valid() bool {
	return e.id() != 0
}
