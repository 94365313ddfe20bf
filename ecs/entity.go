package ecs

import "strconv"

// Entity is a generational handle. The low 32 bits are the slot index, the
// high 32 bits the generation, so stale handles to recycled slots read as
// dead instead of aliasing the new occupant.
type Entity uint64

type entityIndex uint32
type generation uint32

const entityIndexBits = 32

func makeEntity(idx entityIndex, gen generation) Entity {
	return Entity(uint64(gen)<<entityIndexBits | uint64(idx))
}

func (e Entity) index() entityIndex {
	return entityIndex(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIndexBits))
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

func (e Entity) Valid() bool {
	return e.index() > 0
}

// entityStore tracks generations and recycles slot indices.
type entityStore struct {
	next entityIndex
	gen  []generation
	free []entityIndex
}

func (s *entityStore) create() Entity {
	var idx entityIndex
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.next++
		idx = s.next
		s.gen = append(s.gen, 0)
	}
	return makeEntity(idx, s.gen[idx-1])
}

func (s *entityStore) destroy(e Entity) bool {
	if !s.isAlive(e) {
		return false
	}
	idx := e.index()
	s.gen[idx-1]++
	s.free = append(s.free, idx)
	return true
}

func (s *entityStore) isAlive(e Entity) bool {
	idx := e.index()
	if idx == 0 || int(idx) > len(s.gen) {
		return false
	}
	return s.gen[idx-1] == e.generation()
}
