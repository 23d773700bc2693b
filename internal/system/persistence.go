package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
	coresys "github.com/l1jgo/worldbuild/internal/core/system"
	"github.com/l1jgo/worldbuild/internal/data"
	"github.com/l1jgo/worldbuild/internal/persist"
)

// SnapshotSaver stores scene snapshots. *persist.SceneRepo implements it.
type SnapshotSaver interface {
	Save(ctx context.Context, s *persist.Snapshot) error
}

// PersistenceSystem snapshots the world every interval ticks. It runs after
// cleanup so destroyed entities are never saved.
type PersistenceSystem struct {
	world     *ecs.World
	kinds     *data.Kinds
	saver     SnapshotSaver
	name      string
	log       *zap.Logger
	tickCount int
	interval  int // auto-save every N ticks
	timeout   time.Duration
}

func NewPersistenceSystem(world *ecs.World, kinds *data.Kinds, saver SnapshotSaver, name string, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		world:    world,
		kinds:    kinds,
		saver:    saver,
		name:     name,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.SaveNow(ctx); err != nil {
		s.log.Error("autosave failed", zap.Error(err))
	}
}

// SaveNow snapshots and saves immediately. Called on shutdown.
func (s *PersistenceSystem) SaveNow(ctx context.Context) error {
	snap, err := persist.TakeSnapshot(s.world, s.kinds, s.name)
	if err != nil {
		return err
	}
	return s.saver.Save(ctx, snap)
}
