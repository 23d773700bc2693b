// Package builder provides a fluent helper for constructing entities:
//
//	err := scene.Build().
//	    BuildEntity().
//	    Add(component.Position{}).
//	    BuildEntity().
//	    Add(component.Position{X: 1, Y: 2, Z: 3}).
//	    SetLastEntityAsParent().
//	    Build()
//
// A Builder tracks two cursor slots. current is the entity that Add, Tag and
// SetLastEntityAsParent act on; last is the entity that was current before the
// most recent BuildEntity or AddArchetype. Every method returns the same
// *Builder, and a Builder must not be used after Build.
package builder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/transform"
)

// ErrFinalized is the panic value for any call on a Builder after Build.
var ErrFinalized = errors.New("builder: used after Build")

// Slot names one half of the cursor.
type Slot string

const (
	SlotCurrent Slot = "current"
	SlotLast    Slot = "last"
)

// CursorError is the panic value when an operation needs a cursor slot that
// is still empty.
type CursorError struct {
	Op   string
	Slot Slot
}

func (e *CursorError) Error() string {
	return fmt.Sprintf("builder: %s needs a %s entity but the slot is empty", e.Op, e.Slot)
}

// Archetype knows how to spawn itself into a world. The returned entity is
// the one the builder makes current.
type Archetype interface {
	Insert(w *ecs.World) (ecs.EntityID, error)
}

// ArchetypeFunc adapts a function to Archetype.
type ArchetypeFunc func(w *ecs.World) (ecs.EntityID, error)

func (f ArchetypeFunc) Insert(w *ecs.World) (ecs.EntityID, error) { return f(w) }

// Source hands out builders bound to its world.
type Source interface {
	Build() *Builder
}

// Builder is a short-lived chain over one world. It is not safe for
// concurrent use, and nothing else should write to the world mid-chain.
type Builder struct {
	world   *ecs.World
	log     *zap.Logger
	current ecs.EntityID
	last    ecs.EntityID
	err     error
}

// New returns a builder with an empty cursor that writes into w.
func New(w *ecs.World, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{world: w, log: log}
}

// Current returns the entity the next Add, Tag or SetLastEntityAsParent targets.
func (b *Builder) Current() (ecs.EntityID, bool) { return b.current, !b.current.IsZero() }

// Last returns the entity that was current before the latest new-entity operation.
func (b *Builder) Last() (ecs.EntityID, bool) { return b.last, !b.last.IsZero() }

// Err returns the archetype failure that stopped the chain, if any.
func (b *Builder) Err() error { return b.err }

// BuildEntity inserts one entity with no tags and no components and makes it
// current. Running out of entity capacity panics.
func (b *Builder) BuildEntity() *Builder {
	if !b.open() {
		return b
	}
	ids, err := b.world.Insert(ecs.NoTags(), ecs.Empty(1))
	if err != nil {
		panic(fmt.Errorf("builder: build entity: %w", err))
	}
	b.advance(ids[0])
	return b
}

// AddArchetype spawns a through its own Insert and makes the result current.
// A failure, or a returned entity that is not alive, is kept and returned by
// Build; the remaining calls in the chain do nothing.
func (b *Builder) AddArchetype(a Archetype) *Builder {
	if !b.open() {
		return b
	}
	e, err := a.Insert(b.world)
	if err != nil {
		b.err = fmt.Errorf("builder: add archetype %T: %w", a, err)
		b.log.Debug("archetype failed", zap.Error(err))
		return b
	}
	if e.IsZero() || !b.world.Alive(e) {
		b.err = fmt.Errorf("builder: add archetype %T returned %s: %w", a, e, ecs.ErrNoSuchEntity)
		b.log.Debug("archetype failed", zap.Error(b.err))
		return b
	}
	b.advance(e)
	return b
}

// Add attaches component to the current entity. Attaching may move the
// entity between storage groups in the world, so prefer archetypes for
// entities with many components. World errors are dropped.
func (b *Builder) Add(component any) *Builder {
	if !b.open() {
		return b
	}
	e := b.require("Add", SlotCurrent)
	if err := b.world.AddComponent(e, component); err != nil {
		b.dropped("component", component, err)
	}
	return b
}

// Tag attaches a shared tag to the current entity. World errors are dropped.
func (b *Builder) Tag(tag any) *Builder {
	if !b.open() {
		return b
	}
	e := b.require("Tag", SlotCurrent)
	if err := b.world.AddTag(e, tag); err != nil {
		b.dropped("tag", tag, err)
	}
	return b
}

// AddEntities bulk-inserts entities sharing tags with components drawn from
// src. The cursor does not move: none of the new entities becomes current.
func (b *Builder) AddEntities(tags ecs.TagSet, src ecs.ComponentSource) *Builder {
	if !b.open() {
		return b
	}
	ids, err := b.world.Insert(tags, src)
	if err != nil {
		b.log.Debug("bulk insert dropped", zap.Int("created", len(ids)), zap.Error(err))
	}
	return b
}

// SetLastEntityAsParent makes the current entity a child of the last one by
// attaching a Parent marker and an identity LocalToParent. The cursor does
// not move.
func (b *Builder) SetLastEntityAsParent() *Builder {
	if !b.open() {
		return b
	}
	child := b.require("SetLastEntityAsParent", SlotCurrent)
	parent := b.require("SetLastEntityAsParent", SlotLast)
	if err := b.world.AddComponent(child, transform.Parent{Entity: parent}); err != nil {
		b.dropped("component", transform.Parent{}, err)
	}
	if err := b.world.AddComponent(child, transform.IdentityLocalToParent()); err != nil {
		b.dropped("component", transform.LocalToParent{}, err)
	}
	return b
}

// Build ends the chain and releases the world. It returns the archetype
// failure that stopped the chain, if any.
func (b *Builder) Build() error {
	b.mustBeLive()
	b.world = nil
	return b.err
}

func (b *Builder) advance(e ecs.EntityID) {
	if !b.current.IsZero() {
		b.last = b.current
	}
	b.current = e
}

// open reports whether the chain should keep going.
func (b *Builder) open() bool {
	b.mustBeLive()
	return b.err == nil
}

func (b *Builder) mustBeLive() {
	if b.world == nil {
		panic(ErrFinalized)
	}
}

func (b *Builder) require(op string, slot Slot) ecs.EntityID {
	e := b.current
	if slot == SlotLast {
		e = b.last
	}
	if e.IsZero() {
		panic(&CursorError{Op: op, Slot: slot})
	}
	return e
}

func (b *Builder) dropped(kind string, v any, err error) {
	b.log.Debug(kind+" dropped",
		zap.Stringer("entity", b.current),
		zap.String("type", fmt.Sprintf("%T", v)),
		zap.Error(err),
	)
}
