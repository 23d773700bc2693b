package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNoSuchEntity      = errors.New("ecs: no such entity")
	ErrUnknownComponent  = errors.New("ecs: component type not registered")
	ErrUnknownTag        = errors.New("ecs: tag type not registered")
	ErrAlreadyRegistered = errors.New("ecs: type already registered")
	ErrCapacityExceeded  = errors.New("ecs: entity capacity exceeded")
	errNilComponentOrTag = errors.New("ecs: nil value")
)

// Option configures a World.
type Option func(*World)

// WithCapacity pre-sizes the entity pool.
func WithCapacity(n int) Option {
	return func(w *World) { w.capacity = n }
}

// WithMaxEntities caps the number of live entities. Zero means unlimited.
func WithMaxEntities(n int) Option {
	return func(w *World) { w.maxEntities = n }
}

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed by CleanupSystem each tick.
//
// A World is not safe for concurrent use; one goroutine (the tick loop or a
// builder chain) mutates it at a time.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
	capacity     int
	maxEntities  int
}

func NewWorld(opts ...Option) *World {
	w := &World{
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.pool = NewEntityPool(w.capacity)
	return w
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// RegisterComponent makes T attachable as a per-entity component.
func RegisterComponent[T any](w *World) error {
	t := reflect.TypeFor[T]()
	if w.registry.registered(t) {
		return fmt.Errorf("register component %s: %w", t, ErrAlreadyRegistered)
	}
	w.registry.addComponent(NewComponentStore[T]())
	return nil
}

// RegisterTag makes T attachable as a shared tag.
func RegisterTag[T comparable](w *World) error {
	t := reflect.TypeFor[T]()
	if w.registry.registered(t) {
		return fmt.Errorf("register tag %s: %w", t, ErrAlreadyRegistered)
	}
	w.registry.addTag(NewTagStore[T]())
	return nil
}

// CreateEntity creates a single entity with no tags and no components.
func (w *World) CreateEntity() (EntityID, error) {
	ids, err := w.Insert(NoTags(), Empty(1))
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// Insert creates src.Len() entities that share the given tags and draw their
// components from src. The capacity check happens before anything is created;
// a failure while attaching leaves the created entities in place.
func (w *World) Insert(tags TagSet, src ComponentSource) ([]EntityID, error) {
	if src == nil {
		src = Empty(0)
	}
	if tags == nil {
		tags = NoTags()
	}
	n := src.Len()
	if w.maxEntities > 0 && w.pool.Len()+n > w.maxEntities {
		return nil, fmt.Errorf("insert %d entities (%d live, max %d): %w",
			n, w.pool.Len(), w.maxEntities, ErrCapacityExceeded)
	}
	ids := make([]EntityID, n)
	for i := range ids {
		ids[i] = w.pool.Create()
	}
	if n == 0 {
		return ids, nil
	}
	if err := tags.AttachTags(w, ids); err != nil {
		return ids, fmt.Errorf("attach tags: %w", err)
	}
	if err := src.AttachComponents(w, ids); err != nil {
		return ids, fmt.Errorf("attach components: %w", err)
	}
	return ids, nil
}

// AddComponent attaches c to the entity, keyed by c's dynamic type. An
// existing component of the same type is replaced.
func (w *World) AddComponent(id EntityID, c any) error {
	if c == nil {
		return errNilComponentOrTag
	}
	if !w.pool.Alive(id) {
		return fmt.Errorf("add component %T to %s: %w", c, id, ErrNoSuchEntity)
	}
	col, ok := w.registry.components[reflect.TypeOf(c)]
	if !ok {
		return fmt.Errorf("add component %T: %w", c, ErrUnknownComponent)
	}
	return col.setAny(id, c)
}

// AddTag attaches tag t to the entity, keyed by t's dynamic type.
func (w *World) AddTag(id EntityID, t any) error {
	if t == nil {
		return errNilComponentOrTag
	}
	if !w.pool.Alive(id) {
		return fmt.Errorf("add tag %T to %s: %w", t, id, ErrNoSuchEntity)
	}
	col, ok := w.registry.tags[reflect.TypeOf(t)]
	if !ok {
		return fmt.Errorf("add tag %T: %w", t, ErrUnknownTag)
	}
	return col.setAny(id, t)
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.pool.Len()
}

// Entities returns every live entity in index order.
func (w *World) Entities() []EntityID {
	ids := make([]EntityID, 0, w.pool.Len())
	w.pool.Each(func(id EntityID) { ids = append(ids, id) })
	return ids
}

// Components returns copies of every component attached to the entity, in
// component registration order.
func (w *World) Components(id EntityID) []any {
	var out []any
	for _, t := range w.registry.order {
		if v, ok := w.registry.components[t].getAny(id); ok {
			out = append(out, v)
		}
	}
	return out
}

// Tags returns every tag value attached to the entity.
func (w *World) Tags(id EntityID) []any {
	var out []any
	for _, t := range w.registry.tagOrder {
		if v, ok := w.registry.tags[t].getAny(id); ok {
			out = append(out, v)
		}
	}
	return out
}

// ComponentTypes lists the component types attached to the entity.
func (w *World) ComponentTypes(id EntityID) []reflect.Type {
	var out []reflect.Type
	for _, t := range w.registry.order {
		if w.registry.components[t].Has(id) {
			out = append(out, t)
		}
	}
	return out
}

// Destroy removes the entity and all of its data immediately.
func (w *World) Destroy(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Called by CleanupSystem at the end of each tick. Returns how many were destroyed.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.destroyQueue {
		if w.pool.Alive(id) {
			w.Destroy(id)
			n++
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
