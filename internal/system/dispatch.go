package system

import (
	"time"

	"github.com/l1jgo/worldbuild/internal/core/event"
	coresys "github.com/l1jgo/worldbuild/internal/core/system"
)

// DispatchSystem delivers the events emitted during the previous tick.
type DispatchSystem struct {
	bus *event.Bus
}

func NewDispatchSystem(bus *event.Bus) *DispatchSystem {
	return &DispatchSystem{bus: bus}
}

func (s *DispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *DispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
