package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/core/event"
	coresys "github.com/l1jgo/worldbuild/internal/core/system"
	"github.com/l1jgo/worldbuild/internal/transform"
)

// HierarchySystem maintains the transform hierarchy. Each tick it drops
// Parent markers whose target has died, rebuilds Children lists and derives
// LocalToWorld for every entity reachable from a root:
//
//	root:  Translation
//	child: parent.LocalToWorld * LocalToParent * Translation
//
// Entities whose parent chain never reaches a root get no LocalToWorld.
// Those actually on a loop are reported once, when the loop first appears.
type HierarchySystem struct {
	world  *ecs.World
	bus    *event.Bus
	log    *zap.Logger
	linked map[ecs.EntityID]ecs.EntityID // child -> parent seen last tick
	looped map[ecs.EntityID]bool         // on a parent loop last tick
}

func NewHierarchySystem(world *ecs.World, bus *event.Bus, log *zap.Logger) *HierarchySystem {
	return &HierarchySystem{
		world:  world,
		bus:    bus,
		log:    log,
		linked: make(map[ecs.EntityID]ecs.EntityID),
		looped: make(map[ecs.EntityID]bool),
	}
}

func (s *HierarchySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *HierarchySystem) Update(_ time.Duration) {
	parents := ecs.Store[transform.Parent](s.world)
	if parents == nil {
		return
	}

	children := make(map[ecs.EntityID][]ecs.EntityID)
	seen := make(map[ecs.EntityID]bool, parents.Len())
	for _, child := range parents.IDs() {
		p, _ := parents.Get(child)
		if !s.world.Alive(p.Entity) {
			parents.Remove(child)
			ecs.Remove[transform.LocalToParent](s.world, child)
			ecs.Remove[transform.LocalToWorld](s.world, child)
			delete(s.linked, child)
			event.Emit(s.bus, event.ParentLost{Child: child, Parent: p.Entity})
			continue
		}
		seen[child] = true
		if prev, ok := s.linked[child]; !ok || prev != p.Entity {
			s.linked[child] = p.Entity
			event.Emit(s.bus, event.ParentLinked{Child: child, Parent: p.Entity})
		}
		// IDs is sorted, so each list comes out sorted too.
		children[p.Entity] = append(children[p.Entity], child)
	}
	for child := range s.linked {
		if !seen[child] {
			delete(s.linked, child)
		}
	}

	s.syncChildren(children)

	visited := make(map[ecs.EntityID]bool, s.world.Len())
	for _, id := range s.world.Entities() {
		if parents.Has(id) {
			continue
		}
		s.propagate(id, rootMatrix(s.world, id), children, visited)
	}

	var unreachable []ecs.EntityID
	for _, id := range parents.IDs() {
		if !visited[id] {
			ecs.Remove[transform.LocalToWorld](s.world, id)
			unreachable = append(unreachable, id)
		}
	}
	s.reportLoops(parents, unreachable)
}

// reportLoops finds the entities among unreachable that sit on a parent loop
// rather than hanging off one, and reports each the first tick it is seen.
// Every unreachable entity has a live parent that is itself unreachable, so
// following parents always ends on a loop.
func (s *HierarchySystem) reportLoops(parents *ecs.ComponentStore[transform.Parent], unreachable []ecs.EntityID) {
	onLoop := make(map[ecs.EntityID]bool)
	done := make(map[ecs.EntityID]bool, len(unreachable))
	for _, start := range unreachable {
		pos := make(map[ecs.EntityID]int)
		var path []ecs.EntityID
		for id := start; !done[id]; {
			if i, ok := pos[id]; ok {
				for _, member := range path[i:] {
					onLoop[member] = true
				}
				break
			}
			pos[id] = len(path)
			path = append(path, id)
			p, ok := parents.Get(id)
			if !ok {
				break
			}
			id = p.Entity
		}
		for _, id := range path {
			done[id] = true
		}
	}

	for _, id := range unreachable {
		if onLoop[id] && !s.looped[id] {
			s.log.Warn("transform hierarchy cycle", zap.Stringer("entity", id))
			event.Emit(s.bus, event.HierarchyCycle{Entity: id})
		}
	}
	s.looped = onLoop
}

func (s *HierarchySystem) syncChildren(children map[ecs.EntityID][]ecs.EntityID) {
	if store := ecs.Store[transform.Children](s.world); store != nil {
		for _, id := range store.IDs() {
			if _, ok := children[id]; !ok {
				store.Remove(id)
			}
		}
	}
	for parent, list := range children {
		_ = ecs.Set(s.world, parent, transform.Children{Entities: list})
	}
}

func (s *HierarchySystem) propagate(id ecs.EntityID, m mgl64.Mat4, children map[ecs.EntityID][]ecs.EntityID, visited map[ecs.EntityID]bool) {
	visited[id] = true
	_ = ecs.Set(s.world, id, transform.LocalToWorld{Matrix: m})
	for _, child := range children[id] {
		if visited[child] {
			continue
		}
		s.propagate(child, m.Mul4(localMatrix(s.world, child)), children, visited)
	}
}

func rootMatrix(w *ecs.World, id ecs.EntityID) mgl64.Mat4 {
	if t, ok := ecs.Get[transform.Translation](w, id); ok {
		return t.Matrix()
	}
	return mgl64.Ident4()
}

func localMatrix(w *ecs.World, id ecs.EntityID) mgl64.Mat4 {
	m := mgl64.Ident4()
	if l, ok := ecs.Get[transform.LocalToParent](w, id); ok {
		m = l.Matrix
	}
	if t, ok := ecs.Get[transform.Translation](w, id); ok {
		m = m.Mul4(t.Matrix())
	}
	return m
}
