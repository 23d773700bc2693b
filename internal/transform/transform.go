// Package transform holds the components through which the hierarchy system
// recognises a spatial parent/child relationship. Pure data; the hierarchy
// system in internal/system does the work.
package transform

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
)

// Parent marks an entity as a child of Entity.
type Parent struct {
	Entity ecs.EntityID
}

// LocalToParent is the child's transform relative to its parent.
type LocalToParent struct {
	Matrix mgl64.Mat4 `yaml:"matrix" json:"matrix"`
}

// IdentityLocalToParent returns the neutral local transform: no translation,
// no rotation, unit scale.
func IdentityLocalToParent() LocalToParent {
	return LocalToParent{Matrix: mgl64.Ident4()}
}

func (l LocalToParent) IsIdentity() bool {
	return l.Matrix.ApproxEqual(mgl64.Ident4())
}

// Translation is an entity's own offset. For roots it is the world position;
// for children it is applied after LocalToParent.
type Translation struct {
	Value mgl64.Vec3 `yaml:"value" json:"value"`
}

func (t Translation) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(t.Value.X(), t.Value.Y(), t.Value.Z())
}

// LocalToWorld is derived each tick by the hierarchy system.
type LocalToWorld struct {
	Matrix mgl64.Mat4
}

// Position returns the translation column of the world matrix.
func (l LocalToWorld) Position() mgl64.Vec3 {
	return l.Matrix.Col(3).Vec3()
}

// Children is derived each tick from Parent markers, sorted by id.
type Children struct {
	Entities []ecs.EntityID
}

// Register makes every transform component known to the world.
func Register(w *ecs.World) error {
	return errors.Join(
		ecs.RegisterComponent[Parent](w),
		ecs.RegisterComponent[LocalToParent](w),
		ecs.RegisterComponent[Translation](w),
		ecs.RegisterComponent[LocalToWorld](w),
		ecs.RegisterComponent[Children](w),
	)
}
