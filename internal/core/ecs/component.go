package ecs

import (
	"fmt"
	"reflect"
	"sort"
)

// Removable is implemented by all component and tag stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// column is the type-erased view of a ComponentStore used by the World's
// dynamic AddComponent path.
type column interface {
	Removable
	Has(id EntityID) bool
	Len() int
	Type() reflect.Type
	setAny(id EntityID, v any) error
	getAny(id EntityID) (any, bool)
}

// ComponentStore is a generic typed map store for ECS components.
type ComponentStore[T any] struct {
	data map[EntityID]*T
}

func NewComponentStore[T any]() *ComponentStore[T] {
	return &ComponentStore[T]{
		data: make(map[EntityID]*T, 256),
	}
}

// Set stores a copy of c for the entity, replacing any previous value.
func (s *ComponentStore[T]) Set(id EntityID, c T) {
	if p, ok := s.data[id]; ok {
		*p = c
		return
	}
	v := c
	s.data[id] = &v
}

func (s *ComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *ComponentStore[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *ComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore[T]) Len() int {
	return len(s.data)
}

func (s *ComponentStore[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

// Each visits entities in ascending id order so iteration is reproducible.
func (s *ComponentStore[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.IDs() {
		fn(id, s.data[id])
	}
}

// IDs returns the entities holding this component, sorted.
func (s *ComponentStore[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *ComponentStore[T]) setAny(id EntityID, v any) error {
	c, ok := v.(T)
	if !ok {
		return fmt.Errorf("component %T does not match store %s", v, s.Type())
	}
	s.Set(id, c)
	return nil
}

func (s *ComponentStore[T]) getAny(id EntityID) (any, bool) {
	c, ok := s.data[id]
	if !ok {
		return nil, false
	}
	return *c, true
}
