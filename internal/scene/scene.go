// Package scene owns a world and the systems that run over it. A Scene is
// the factory for builders: scene.Build() returns a chain that writes into
// the scene's world.
package scene

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldbuild/internal/builder"
	"github.com/l1jgo/worldbuild/internal/config"
	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/core/event"
	coresys "github.com/l1jgo/worldbuild/internal/core/system"
	"github.com/l1jgo/worldbuild/internal/system"
	"github.com/l1jgo/worldbuild/internal/transform"
)

// Scene is single-threaded: builders, Tick and Run must not overlap.
type Scene struct {
	name     string
	tickRate time.Duration
	world    *ecs.World
	bus      *event.Bus
	runner   *coresys.Runner
	log      *zap.Logger
	ticks    uint64
}

var _ builder.Source = (*Scene)(nil)

// New creates a scene with the transform components registered and the
// dispatch, hierarchy and cleanup systems installed.
func New(wc config.WorldConfig, sc config.SceneConfig, log *zap.Logger) (*Scene, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if sc.TickRate <= 0 {
		return nil, fmt.Errorf("scene %q: tick rate must be positive", sc.Name)
	}
	w := ecs.NewWorld(ecs.WithCapacity(wc.InitialCapacity), ecs.WithMaxEntities(wc.MaxEntities))
	if err := transform.Register(w); err != nil {
		return nil, fmt.Errorf("scene %q: %w", sc.Name, err)
	}
	log = log.With(zap.String("scene", sc.Name))

	s := &Scene{
		name:     sc.Name,
		tickRate: sc.TickRate,
		world:    w,
		bus:      event.NewBus(),
		runner:   coresys.NewRunner(),
		log:      log,
	}
	s.runner.Register(system.NewDispatchSystem(s.bus))
	s.runner.Register(system.NewHierarchySystem(w, s.bus, log))
	s.runner.Register(system.NewCleanupSystem(w, log))
	return s, nil
}

// Register installs an additional system.
func (s *Scene) Register(sys coresys.System) { s.runner.Register(sys) }

func (s *Scene) Name() string            { return s.name }
func (s *Scene) World() *ecs.World       { return s.world }
func (s *Scene) Bus() *event.Bus         { return s.bus }
func (s *Scene) Ticks() uint64           { return s.ticks }
func (s *Scene) Log() *zap.Logger        { return s.log }
func (s *Scene) TickRate() time.Duration { return s.tickRate }

// Build returns a builder with an empty cursor over the scene's world.
func (s *Scene) Build() *builder.Builder {
	return builder.New(s.world, s.log.Named("builder"))
}

// Tick runs every system once, in phase order.
func (s *Scene) Tick(dt time.Duration) {
	s.runner.Tick(dt)
	s.ticks++
}

// Run ticks at the configured rate until n ticks have run or ctx is done.
// n <= 0 runs until ctx is done.
func (s *Scene) Run(ctx context.Context, n int) error {
	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	last := time.Now()
	for i := 0; n <= 0 || i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(now.Sub(last))
			last = now
		}
	}
	s.log.Debug("scene stopped", zap.Uint64("ticks", s.ticks), zap.Int("entities", s.world.Len()))
	return nil
}
