package event

import "github.com/l1jgo/worldbuild/internal/core/ecs"

// ParentLinked is emitted the first tick a child's Parent marker is seen.
type ParentLinked struct {
	Child  ecs.EntityID
	Parent ecs.EntityID
}

// ParentLost is emitted when a Parent marker is dropped because its target died.
type ParentLost struct {
	Child  ecs.EntityID
	Parent ecs.EntityID
}

// HierarchyCycle is emitted once for an entity on a parent loop, the first
// tick the loop is seen. Entities hanging off a loop are not reported.
type HierarchyCycle struct {
	Entity ecs.EntityID
}
