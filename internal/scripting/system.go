package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldbuild/internal/core/system"
)

// TickHook is the global scripts define to run every tick:
//
//	function on_tick(tick, dt_ms) ... end
const TickHook = "on_tick"

// HookSystem calls the scripts' on_tick hook at the start of each tick, so
// scripts can spawn entities that the same tick's hierarchy pass sees.
type HookSystem struct {
	engine *Engine
	tick   uint64
}

func NewHookSystem(engine *Engine) *HookSystem {
	return &HookSystem{engine: engine}
}

func (s *HookSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *HookSystem) Update(dt time.Duration) {
	s.tick++
	if _, err := s.engine.CallHook(TickHook, lua.LNumber(s.tick), lua.LNumber(dt.Milliseconds())); err != nil {
		s.engine.log.Error("lua tick hook failed", zap.Uint64("tick", s.tick), zap.Error(err))
	}
}
