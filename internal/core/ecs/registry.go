package ecs

import "reflect"

// Registry tracks all component and tag stores, keyed by their Go type, and
// supports bulk cleanup on entity destroy.
type Registry struct {
	stores     []Removable
	components map[reflect.Type]column
	tags       map[reflect.Type]tagColumn
	order      []reflect.Type // component registration order
	tagOrder   []reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{
		stores:     make([]Removable, 0, 16),
		components: make(map[reflect.Type]column, 16),
		tags:       make(map[reflect.Type]tagColumn, 4),
	}
}

// Register adds a store that only needs bulk removal.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

func (r *Registry) registered(t reflect.Type) bool {
	_, c := r.components[t]
	_, g := r.tags[t]
	return c || g
}

func (r *Registry) addComponent(c column) {
	r.components[c.Type()] = c
	r.order = append(r.order, c.Type())
	r.Register(c)
}

func (r *Registry) addTag(c tagColumn) {
	r.tags[c.Type()] = c
	r.tagOrder = append(r.tagOrder, c.Type())
	r.Register(c)
}

// RemoveAll clears the given entity from every registered store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}

// ComponentTypes lists registered component types in registration order.
func (r *Registry) ComponentTypes() []reflect.Type {
	return append([]reflect.Type(nil), r.order...)
}

// TagTypes lists registered tag types in registration order.
func (r *Registry) TagTypes() []reflect.Type {
	return append([]reflect.Type(nil), r.tagOrder...)
}
