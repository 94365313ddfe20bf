package ecs

// SparseSet is cache-friendly component storage keyed by entity slot index.
// Values are stored as `any`; the typed accessors in generics.go recover the
// concrete type.
type SparseSet struct {
	denseEntities []Entity
	denseValues   []any
	sparse        []int
}

// Has reports whether the entity has a value in this set.
func (s *SparseSet) Has(e Entity) bool {
	if s == nil {
		return false
	}
	idx := int(e.index())
	if idx <= 0 || idx-1 >= len(s.sparse) {
		return false
	}
	d := s.sparse[idx-1]
	return d >= 0 && d < len(s.denseEntities) && s.denseEntities[d] == e
}

// Get returns the value for e, or nil.
func (s *SparseSet) Get(e Entity) any {
	if !s.Has(e) {
		return nil
	}
	return s.denseValues[s.sparse[int(e.index())-1]]
}

// Set inserts or updates the value for e.
func (s *SparseSet) Set(e Entity, v any) {
	if s == nil || e.index() == 0 {
		return
	}
	idx := int(e.index())
	for idx-1 >= len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	if s.Has(e) {
		s.denseValues[s.sparse[idx-1]] = v
		return
	}
	s.denseEntities = append(s.denseEntities, e)
	s.denseValues = append(s.denseValues, v)
	s.sparse[idx-1] = len(s.denseEntities) - 1
}

// Remove deletes the value for e if present, swapping the last dense slot in.
func (s *SparseSet) Remove(e Entity) bool {
	if !s.Has(e) {
		return false
	}
	idx := int(e.index())
	d := s.sparse[idx-1]
	last := len(s.denseEntities) - 1
	lastEntity := s.denseEntities[last]

	s.denseEntities[d] = lastEntity
	s.denseValues[d] = s.denseValues[last]
	s.sparse[int(lastEntity.index())-1] = d

	s.denseEntities = s.denseEntities[:last]
	s.denseValues = s.denseValues[:last]
	s.sparse[idx-1] = -1
	return true
}

// Entities returns the dense entity list. Callers must not mutate it.
func (s *SparseSet) Entities() []Entity {
	if s == nil {
		return nil
	}
	return s.denseEntities
}

// Len returns the number of stored values.
func (s *SparseSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.denseEntities)
}
