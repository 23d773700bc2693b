package ecs

import (
	"fmt"
	"reflect"
)

// Store returns the typed store for component T, or nil if T is not registered.
func Store[T any](w *World) *ComponentStore[T] {
	col, ok := w.registry.components[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	return col.(*ComponentStore[T])
}

// TagsOf returns the typed store for tag T, or nil if T is not registered.
func TagsOf[T comparable](w *World) *TagStore[T] {
	col, ok := w.registry.tags[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	return col.(*TagStore[T])
}

func Get[T any](w *World, id EntityID) (*T, bool) {
	s := Store[T](w)
	if s == nil || !w.pool.Alive(id) {
		return nil, false
	}
	return s.Get(id)
}

func Has[T any](w *World, id EntityID) bool {
	_, ok := Get[T](w, id)
	return ok
}

// Set is the typed form of World.AddComponent.
func Set[T any](w *World, id EntityID, c T) error {
	s := Store[T](w)
	if s == nil {
		return fmt.Errorf("set component %s: %w", reflect.TypeFor[T](), ErrUnknownComponent)
	}
	if !w.pool.Alive(id) {
		return fmt.Errorf("set component %s on %s: %w", reflect.TypeFor[T](), id, ErrNoSuchEntity)
	}
	s.Set(id, c)
	return nil
}

func Remove[T any](w *World, id EntityID) {
	if s := Store[T](w); s != nil {
		s.Remove(id)
	}
}

func GetTag[T comparable](w *World, id EntityID) (T, bool) {
	s := TagsOf[T](w)
	if s == nil || !w.pool.Alive(id) {
		var zero T
		return zero, false
	}
	return s.Get(id)
}

// WithTag returns the group of entities tagged with v.
func WithTag[T comparable](w *World, v T) []EntityID {
	s := TagsOf[T](w)
	if s == nil {
		return nil
	}
	return s.Entities(v)
}
