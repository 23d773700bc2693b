package ecs

import (
	"fmt"
	"reflect"
	"sort"
)

// tagColumn is the type-erased view of a TagStore.
type tagColumn interface {
	Removable
	Has(id EntityID) bool
	Type() reflect.Type
	setAny(id EntityID, v any) error
	getAny(id EntityID) (any, bool)
}

// TagStore holds shared, low-cardinality attributes. Entities carrying an
// equal tag value point at the same interned *T, which forms their group.
type TagStore[T comparable] struct {
	shared map[T]*T
	refs   map[T]int
	data   map[EntityID]*T
}

func NewTagStore[T comparable]() *TagStore[T] {
	return &TagStore[T]{
		shared: make(map[T]*T, 8),
		refs:   make(map[T]int, 8),
		data:   make(map[EntityID]*T, 256),
	}
}

func (s *TagStore[T]) Set(id EntityID, v T) {
	if old, ok := s.data[id]; ok {
		if *old == v {
			return
		}
		s.release(*old)
	}
	p, ok := s.shared[v]
	if !ok {
		p = new(T)
		*p = v
		s.shared[v] = p
	}
	s.refs[v]++
	s.data[id] = p
}

func (s *TagStore[T]) Get(id EntityID) (T, bool) {
	p, ok := s.data[id]
	if !ok {
		var zero T
		return zero, false
	}
	return *p, true
}

func (s *TagStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *TagStore[T]) Remove(id EntityID) {
	p, ok := s.data[id]
	if !ok {
		return
	}
	delete(s.data, id)
	s.release(*p)
}

func (s *TagStore[T]) release(v T) {
	s.refs[v]--
	if s.refs[v] <= 0 {
		delete(s.refs, v)
		delete(s.shared, v)
	}
}

// Entities returns the sorted group of entities tagged with v.
func (s *TagStore[T]) Entities(v T) []EntityID {
	p, ok := s.shared[v]
	if !ok {
		return nil
	}
	ids := make([]EntityID, 0, s.refs[v])
	for id, q := range s.data {
		if q == p {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Groups returns the number of distinct tag values currently in use.
func (s *TagStore[T]) Groups() int {
	return len(s.shared)
}

func (s *TagStore[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

func (s *TagStore[T]) setAny(id EntityID, v any) error {
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("tag %T does not match store %s", v, s.Type())
	}
	s.Set(id, t)
	return nil
}

func (s *TagStore[T]) getAny(id EntityID) (any, bool) {
	t, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return t, true
}
