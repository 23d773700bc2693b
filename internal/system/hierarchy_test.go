package system_test

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/core/event"
	"github.com/l1jgo/worldbuild/internal/system"
	"github.com/l1jgo/worldbuild/internal/transform"
)

type fixture struct {
	world     *ecs.World
	bus       *event.Bus
	hierarchy *system.HierarchySystem
	dispatch  *system.DispatchSystem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	w := ecs.NewWorld()
	require.NoError(t, transform.Register(w))
	bus := event.NewBus()
	return &fixture{
		world:     w,
		bus:       bus,
		hierarchy: system.NewHierarchySystem(w, bus, zaptest.NewLogger(t)),
		dispatch:  system.NewDispatchSystem(bus),
	}
}

func (f *fixture) spawn(t *testing.T, components ...any) ecs.EntityID {
	t.Helper()
	ids, err := f.world.Insert(nil, ecs.Bundle(components...))
	require.NoError(t, err)
	return ids[0]
}

func (f *fixture) tick() {
	f.dispatch.Update(time.Millisecond)
	f.hierarchy.Update(time.Millisecond)
}

func translation(x, y, z float64) transform.Translation {
	return transform.Translation{Value: mgl64.Vec3{x, y, z}}
}

func TestHierarchyComposesWorldMatrix(t *testing.T) {
	f := newFixture(t)
	root := f.spawn(t, translation(10, 0, 0))
	child := f.spawn(t, transform.Parent{Entity: root}, transform.IdentityLocalToParent(), translation(0, 2, 0))
	grandchild := f.spawn(t, transform.Parent{Entity: child}, transform.IdentityLocalToParent())

	f.tick()

	for id, want := range map[ecs.EntityID]mgl64.Vec3{
		root:       {10, 0, 0},
		child:      {10, 2, 0},
		grandchild: {10, 2, 0},
	} {
		ltw, ok := ecs.Get[transform.LocalToWorld](f.world, id)
		require.True(t, ok, id.String())
		assert.True(t, ltw.Position().ApproxEqual(want), "%s at %v", id, ltw.Position())
	}

	kids, ok := ecs.Get[transform.Children](f.world, root)
	require.True(t, ok)
	assert.Equal(t, []ecs.EntityID{child}, kids.Entities)
	assert.False(t, ecs.Has[transform.Children](f.world, grandchild))
}

func TestHierarchyEmitsLinkOnce(t *testing.T) {
	f := newFixture(t)
	var linked []event.ParentLinked
	event.Subscribe(f.bus, func(e event.ParentLinked) { linked = append(linked, e) })

	root := f.spawn(t)
	child := f.spawn(t, transform.Parent{Entity: root}, transform.IdentityLocalToParent())

	f.tick()
	f.tick()
	f.tick()

	assert.Equal(t, []event.ParentLinked{{Child: child, Parent: root}}, linked)
}

func TestHierarchyDropsDeadParent(t *testing.T) {
	f := newFixture(t)
	var lost []event.ParentLost
	event.Subscribe(f.bus, func(e event.ParentLost) { lost = append(lost, e) })

	root := f.spawn(t)
	child := f.spawn(t, transform.Parent{Entity: root}, transform.IdentityLocalToParent())
	f.tick()

	f.world.Destroy(root)
	f.tick()
	f.tick()

	assert.False(t, ecs.Has[transform.Parent](f.world, child))
	assert.False(t, ecs.Has[transform.LocalToParent](f.world, child))
	assert.Equal(t, []event.ParentLost{{Child: child, Parent: root}}, lost)

	ltw, ok := ecs.Get[transform.LocalToWorld](f.world, child)
	require.True(t, ok, "orphan becomes a root")
	assert.True(t, ltw.Matrix.ApproxEqual(mgl64.Ident4()))
}

func TestHierarchyDetectsCycle(t *testing.T) {
	f := newFixture(t)
	var cycles []event.HierarchyCycle
	event.Subscribe(f.bus, func(e event.HierarchyCycle) { cycles = append(cycles, e) })

	a := f.spawn(t)
	b := f.spawn(t, transform.Parent{Entity: a})
	require.NoError(t, ecs.Set(f.world, a, transform.Parent{Entity: b}))
	hanger := f.spawn(t, transform.Parent{Entity: b})

	for range 4 {
		f.tick()
	}

	for _, id := range []ecs.EntityID{a, b, hanger} {
		assert.False(t, ecs.Has[transform.LocalToWorld](f.world, id), id.String())
	}
	assert.ElementsMatch(t, []event.HierarchyCycle{{Entity: a}, {Entity: b}}, cycles,
		"only loop members, reported once")

	t.Run("reported again after the loop re-forms", func(t *testing.T) {
		cycles = nil
		ecs.Remove[transform.Parent](f.world, a)
		f.tick()
		f.tick()
		assert.Empty(t, cycles)
		assert.True(t, ecs.Has[transform.LocalToWorld](f.world, hanger))

		require.NoError(t, ecs.Set(f.world, a, transform.Parent{Entity: b}))
		f.tick()
		f.tick()
		assert.ElementsMatch(t, []event.HierarchyCycle{{Entity: a}, {Entity: b}}, cycles)
	})
}

func TestCleanupFlushesQueue(t *testing.T) {
	f := newFixture(t)
	id := f.spawn(t, translation(1, 1, 1))
	f.world.MarkForDestruction(id)

	system.NewCleanupSystem(f.world, zaptest.NewLogger(t)).Update(time.Millisecond)

	assert.False(t, f.world.Alive(id))
	assert.Zero(t, f.world.Len())
}
