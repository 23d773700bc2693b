package scene_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/worldbuild/internal/config"
	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/core/event"
	coresys "github.com/l1jgo/worldbuild/internal/core/system"
	"github.com/l1jgo/worldbuild/internal/scene"
	"github.com/l1jgo/worldbuild/internal/transform"
)

func newScene(t *testing.T) *scene.Scene {
	t.Helper()
	s, err := scene.New(config.WorldConfig{}, config.SceneConfig{Name: "test", TickRate: time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

type counter struct{ n int }

func (c *counter) Phase() coresys.Phase   { return coresys.PhaseUpdate }
func (c *counter) Update(_ time.Duration) { c.n++ }

func TestNewRejectsZeroTickRate(t *testing.T) {
	_, err := scene.New(config.WorldConfig{}, config.SceneConfig{Name: "bad"}, nil)
	assert.ErrorContains(t, err, "tick rate")
}

func TestTickDerivesWorldTransforms(t *testing.T) {
	s := newScene(t)
	err := s.Build().
		BuildEntity().
		Add(transform.Translation{Value: mgl64.Vec3{3, 0, 0}}).
		BuildEntity().
		Add(transform.Translation{Value: mgl64.Vec3{0, 1, 0}}).
		SetLastEntityAsParent().
		Build()
	require.NoError(t, err)

	var links []event.ParentLinked
	event.Subscribe(s.Bus(), func(e event.ParentLinked) { links = append(links, e) })

	s.Tick(time.Millisecond)
	s.Tick(time.Millisecond)
	assert.Equal(t, uint64(2), s.Ticks())
	require.Len(t, links, 1)

	ltw, ok := ecs.Get[transform.LocalToWorld](s.World(), links[0].Child)
	require.True(t, ok)
	assert.True(t, ltw.Position().ApproxEqual(mgl64.Vec3{3, 1, 0}))
}

func TestRunStopsAfterN(t *testing.T) {
	s := newScene(t)
	c := &counter{}
	s.Register(c)

	require.NoError(t, s.Run(context.Background(), 3))
	assert.Equal(t, 3, c.n)
	assert.Equal(t, uint64(3), s.Ticks())
}

func TestRunHonorsContext(t *testing.T) {
	s := newScene(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, 0), context.Canceled)
}

func TestTickFlushesDestroyQueue(t *testing.T) {
	s := newScene(t)
	id, err := s.World().CreateEntity()
	require.NoError(t, err)
	s.World().MarkForDestruction(id)

	s.Tick(time.Millisecond)
	assert.False(t, s.World().Alive(id))
}
