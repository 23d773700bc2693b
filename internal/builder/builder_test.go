package builder_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/worldbuild/internal/builder"
	"github.com/l1jgo/worldbuild/internal/component"
	"github.com/l1jgo/worldbuild/internal/config"
	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/scene"
	"github.com/l1jgo/worldbuild/internal/transform"
)

type unregistered struct{}

var light = builder.ArchetypeFunc(func(w *ecs.World) (ecs.EntityID, error) {
	ids, err := w.Insert(ecs.NoTags(), ecs.Bundle(component.White, component.Intensity{Value: 1}))
	if err != nil {
		return 0, err
	}
	return ids[0], nil
})

func newScene(t *testing.T, wc config.WorldConfig) *scene.Scene {
	t.Helper()
	s, err := scene.New(wc, config.SceneConfig{Name: t.Name(), TickRate: time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, component.Register(s.World()))
	return s
}

func cursor(t *testing.T, b *builder.Builder) (current, last ecs.EntityID) {
	t.Helper()
	current, _ = b.Current()
	last, _ = b.Last()
	return current, last
}

func cursorPanic(op string, slot builder.Slot) string {
	return (&builder.CursorError{Op: op, Slot: slot}).Error()
}

func TestFreshBuilderHasEmptyCursor(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build()

	_, ok := b.Current()
	assert.False(t, ok)
	_, ok = b.Last()
	assert.False(t, ok)

	assert.PanicsWithError(t, cursorPanic("SetLastEntityAsParent", builder.SlotCurrent), func() {
		b.SetLastEntityAsParent()
	})
	assert.PanicsWithError(t, cursorPanic("Add", builder.SlotCurrent), func() {
		b.Add(component.Health{HP: 1})
	})
	assert.PanicsWithError(t, cursorPanic("Tag", builder.SlotCurrent), func() {
		b.Tag(component.Layer("props"))
	})
	assert.Zero(t, s.World().Len())
}

func TestFirstBuildEntityMintsFreshID(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	existing, err := s.World().CreateEntity()
	require.NoError(t, err)

	b := s.Build().BuildEntity()
	current, ok := b.Current()
	require.True(t, ok)
	assert.NotEqual(t, existing, current)
	assert.True(t, s.World().Alive(current))
	_, ok = b.Last()
	assert.False(t, ok)
	assert.Empty(t, s.World().Components(current))
	assert.Empty(t, s.World().Tags(current))
}

func TestBuildEntityShiftsCursor(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build().BuildEntity()
	e1, _ := cursor(t, b)

	b.BuildEntity()
	e2, last := cursor(t, b)
	assert.NotEqual(t, e1, e2)
	assert.Equal(t, e1, last)

	b.BuildEntity()
	e3, last := cursor(t, b)
	assert.Equal(t, e2, last)
	assert.NotEqual(t, e2, e3)
}

func TestChainReturnsSameBuilder(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build()
	assert.Same(t, b, b.BuildEntity())
	assert.Same(t, b, b.Add(component.Health{}))
	assert.Same(t, b, b.Tag(component.Layer("x")))
	assert.Same(t, b, b.AddEntities(ecs.NoTags(), ecs.Empty(1)))
	assert.Same(t, b, b.AddArchetype(light))
	assert.Same(t, b, b.SetLastEntityAsParent())
}

func TestArchetypeMatchesBuildEntityTransitions(t *testing.T) {
	chains := map[string]func(*builder.Builder) *builder.Builder{
		"build_entity": func(b *builder.Builder) *builder.Builder { return b.BuildEntity() },
		"archetype":    func(b *builder.Builder) *builder.Builder { return b.AddArchetype(light) },
	}

	type state struct{ current, last ecs.EntityID }
	got := make(map[string][]state)
	for name, step := range chains {
		s := newScene(t, config.WorldConfig{})
		b := s.Build()
		for range 3 {
			step(b)
			c, l := cursor(t, b)
			got[name] = append(got[name], state{c, l})
		}
		require.NoError(t, b.Build())
	}

	assert.Equal(t, got["build_entity"], got["archetype"])
	assert.Zero(t, got["archetype"][0].last)
	assert.Equal(t, got["archetype"][0].current, got["archetype"][1].last)
}

func TestParentingAttachesExactlyTwoComponents(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	w := s.World()
	b := s.Build().BuildEntity().BuildEntity()
	child, parent := cursor(t, b)

	b.SetLastEntityAsParent().SetLastEntityAsParent()

	assert.Equal(t, []reflect.Type{
		reflect.TypeFor[transform.Parent](),
		reflect.TypeFor[transform.LocalToParent](),
	}, w.ComponentTypes(child))

	p, ok := ecs.Get[transform.Parent](w, child)
	require.True(t, ok)
	assert.Equal(t, parent, p.Entity)
	l, ok := ecs.Get[transform.LocalToParent](w, child)
	require.True(t, ok)
	assert.True(t, l.IsIdentity())

	assert.Empty(t, w.ComponentTypes(parent))

	current, last := cursor(t, b)
	assert.Equal(t, child, current)
	assert.Equal(t, parent, last)
}

func TestParentingNeedsLast(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build().BuildEntity()
	assert.PanicsWithError(t, cursorPanic("SetLastEntityAsParent", builder.SlotLast), func() {
		b.SetLastEntityAsParent()
	})
	current, _ := cursor(t, b)
	assert.Empty(t, s.World().ComponentTypes(current))
}

func TestAddEntitiesLeavesCursorAlone(t *testing.T) {
	s := newScene(t, config.WorldConfig{})

	for name, prefix := range map[string]func(*builder.Builder){
		"empty":     func(*builder.Builder) {},
		"one":       func(b *builder.Builder) { b.BuildEntity() },
		"two":       func(b *builder.Builder) { b.BuildEntity().BuildEntity() },
		"archetype": func(b *builder.Builder) { b.AddArchetype(light) },
	} {
		t.Run(name, func(t *testing.T) {
			b := s.Build()
			prefix(b)
			c0, l0 := cursor(t, b)
			before := s.World().Len()

			b.AddEntities(ecs.Tags(component.Layer("bulk")), ecs.Rows(component.Position{X: 1}, component.Position{X: 2}))

			c1, l1 := cursor(t, b)
			assert.Equal(t, c0, c1)
			assert.Equal(t, l0, l1)
			assert.Equal(t, before+2, s.World().Len())
		})
	}
}

func TestAddEntitiesDropsInsertErrors(t *testing.T) {
	s := newScene(t, config.WorldConfig{MaxEntities: 1})
	b := s.Build().BuildEntity()
	c0, _ := cursor(t, b)

	assert.NotPanics(t, func() { b.AddEntities(nil, ecs.Empty(5)) })
	c1, _ := cursor(t, b)
	assert.Equal(t, c0, c1)
	assert.Equal(t, 1, s.World().Len())
	assert.NoError(t, b.Build())
}

func TestAddAndTagDropWorldErrors(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build().BuildEntity()
	current, _ := cursor(t, b)

	assert.NotPanics(t, func() {
		b.Add(unregistered{}).Tag(unregistered{}).Tag(component.Health{HP: 3})
	})
	assert.Empty(t, s.World().Components(current))
	assert.Empty(t, s.World().Tags(current))

	s.World().Destroy(current)
	assert.NotPanics(t, func() { b.Add(component.Health{HP: 1}) })
	assert.NoError(t, b.Build())
}

func TestTagSharesValue(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build().BuildEntity().Tag(component.Layer("lights"))
	first, _ := cursor(t, b)
	b.BuildEntity().Tag(component.Layer("lights"))
	second, _ := cursor(t, b)
	require.NoError(t, b.Build())

	assert.Equal(t, []ecs.EntityID{first, second}, ecs.WithTag(s.World(), component.Layer("lights")))
}

func TestArchetypeFailureIsSticky(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	boom := errors.New("boom")
	failing := builder.ArchetypeFunc(func(*ecs.World) (ecs.EntityID, error) { return 0, boom })

	b := s.Build().BuildEntity()
	first, _ := cursor(t, b)

	b.AddArchetype(failing)
	require.ErrorIs(t, b.Err(), boom)

	// Everything after the failure is skipped, including precondition checks.
	b.BuildEntity().Add(component.Health{HP: 9}).SetLastEntityAsParent().AddArchetype(light)

	current, _ := cursor(t, b)
	assert.Equal(t, first, current)
	assert.Equal(t, 1, s.World().Len())
	assert.ErrorIs(t, b.Build(), boom)
}

func TestArchetypeMustReturnLiveEntity(t *testing.T) {
	for name, insert := range map[string]func(*ecs.World) (ecs.EntityID, error){
		"zero id": func(*ecs.World) (ecs.EntityID, error) { return 0, nil },
		"dead id": func(w *ecs.World) (ecs.EntityID, error) {
			id, err := w.CreateEntity()
			if err != nil {
				return 0, err
			}
			w.Destroy(id)
			return id, nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			s := newScene(t, config.WorldConfig{})
			b := s.Build().BuildEntity()
			first, _ := cursor(t, b)

			b.AddArchetype(builder.ArchetypeFunc(insert))
			require.ErrorIs(t, b.Err(), ecs.ErrNoSuchEntity)

			current, ok := b.Current()
			assert.True(t, ok)
			assert.Equal(t, first, current)
			_, ok = b.Last()
			assert.False(t, ok)

			b.BuildEntity().SetLastEntityAsParent()
			assert.False(t, ecs.Has[transform.Parent](s.World(), first))
			assert.ErrorIs(t, b.Build(), ecs.ErrNoSuchEntity)
		})
	}
}

func TestUseAfterBuildPanics(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build().BuildEntity()
	require.NoError(t, b.Build())

	for name, op := range map[string]func(){
		"build_entity": func() { b.BuildEntity() },
		"add":          func() { b.Add(component.Health{}) },
		"tag":          func() { b.Tag(component.Layer("x")) },
		"add_entities": func() { b.AddEntities(nil, ecs.Empty(1)) },
		"archetype":    func() { b.AddArchetype(light) },
		"parent":       func() { b.SetLastEntityAsParent() },
		"build":        func() { _ = b.Build() },
	} {
		assert.PanicsWithValue(t, builder.ErrFinalized, op, name)
	}
	assert.Equal(t, 1, s.World().Len())
}

func TestBuildEntityPanicsWhenWorldIsFull(t *testing.T) {
	s := newScene(t, config.WorldConfig{MaxEntities: 1})
	b := s.Build().BuildEntity()
	assert.PanicsWithError(t, "builder: build entity: insert 1 entities (1 live, max 1): ecs: entity capacity exceeded", func() {
		b.BuildEntity()
	})
}

func TestScenarioSingleEntity(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	require.NoError(t, s.Build().BuildEntity().Add(component.Health{HP: 10}).Build())

	ids := s.World().Entities()
	require.Len(t, ids, 1)
	assert.Equal(t, []any{component.Health{HP: 10}}, s.World().Components(ids[0]))
}

func TestScenarioHierarchy(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	w := s.World()
	err := s.Build().
		BuildEntity().
		Add(component.Position{X: 0, Y: 0, Z: 0}).
		BuildEntity().
		Add(component.Position{X: 1, Y: 2, Z: 3}).
		SetLastEntityAsParent().
		Build()
	require.NoError(t, err)

	ids := w.Entities()
	require.Len(t, ids, 2)
	p, c := ids[0], ids[1]

	pos, _ := ecs.Get[component.Position](w, c)
	assert.Equal(t, component.Position{X: 1, Y: 2, Z: 3}, *pos)
	parent, ok := ecs.Get[transform.Parent](w, c)
	require.True(t, ok)
	assert.Equal(t, p, parent.Entity)
	l, ok := ecs.Get[transform.LocalToParent](w, c)
	require.True(t, ok)
	assert.True(t, l.IsIdentity())

	pos, _ = ecs.Get[component.Position](w, p)
	assert.Equal(t, component.Position{}, *pos)
	assert.False(t, ecs.Has[transform.Parent](w, p))

	s.Tick(time.Millisecond)
	kids, ok := ecs.Get[transform.Children](w, p)
	require.True(t, ok, "hierarchy picks the link up on the next tick")
	assert.Equal(t, []ecs.EntityID{c}, kids.Entities)
}

func TestScenarioArchetypeParent(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	w := s.World()
	err := s.Build().
		AddArchetype(light).
		BuildEntity().
		Add(component.Position{X: 5}).
		SetLastEntityAsParent().
		Build()
	require.NoError(t, err)

	ids := w.Entities()
	require.Len(t, ids, 2)
	lamp, child := ids[0], ids[1]

	assert.Equal(t, []any{component.White, component.Intensity{Value: 1}}, w.Components(lamp))
	assert.Equal(t, []any{
		transform.Parent{Entity: lamp},
		transform.IdentityLocalToParent(),
		component.Position{X: 5},
	}, w.Components(child))
}

func TestScenarioBulkInsertKeepsParent(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	w := s.World()
	b := s.Build().BuildEntity()
	first, _ := cursor(t, b)

	err := b.
		AddEntities(ecs.NoTags(), ecs.Rows(component.Position{X: 9, Y: 9, Z: 9}, component.Position{X: 8, Y: 8, Z: 8})).
		BuildEntity().
		SetLastEntityAsParent().
		Build()
	require.NoError(t, err)

	ids := w.Entities()
	require.Len(t, ids, 4)
	p, ok := ecs.Get[transform.Parent](w, ids[3])
	require.True(t, ok)
	assert.Equal(t, first, p.Entity)
}

func TestScenarioPreconditionViolation(t *testing.T) {
	s := newScene(t, config.WorldConfig{})
	b := s.Build()
	assert.PanicsWithError(t, "builder: SetLastEntityAsParent needs a current entity but the slot is empty", func() {
		b.SetLastEntityAsParent()
	})
	assert.Zero(t, s.World().Len())
}
