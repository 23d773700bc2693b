package component

import (
	"errors"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/data"
	"github.com/l1jgo/worldbuild/internal/transform"
)

// Register makes every gameplay component and tag attachable in w.
func Register(w *ecs.World) error {
	return errors.Join(
		ecs.RegisterComponent[Position](w),
		ecs.RegisterComponent[Health](w),
		ecs.RegisterComponent[LightColor](w),
		ecs.RegisterComponent[Intensity](w),
		ecs.RegisterTag[Layer](w),
	)
}

// RegisterKinds names the components for prefab files, scripts and snapshots.
// Parent is left out: it holds an entity id, which only means something inside
// one world.
func RegisterKinds(k *data.Kinds) error {
	return errors.Join(
		data.RegisterKind[Position](k, "position"),
		data.RegisterKind[Health](k, "health"),
		data.RegisterKind[LightColor](k, "light_color"),
		data.RegisterKind[Intensity](k, "intensity"),
		data.RegisterKind[transform.Translation](k, "translation"),
		data.RegisterKind[transform.LocalToParent](k, "local_to_parent"),
		data.RegisterTagKind[Layer](k, "layer"),
	)
}
