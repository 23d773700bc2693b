package scripting

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/worldbuild/internal/builder"
	"github.com/l1jgo/worldbuild/internal/core/ecs"
)

const builderTypeName = "builder"

// Lua side:
//
//	local err = world.build()
//	    :add_archetype("lamp")
//	    :build_entity()
//	    :add("position", {x = 5})
//	    :tag("layer", "props")
//	    :set_last_entity_as_parent()
//	    :build()
func (e *Engine) registerBuilderType() {
	mt := e.vm.NewTypeMetatable(builderTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"build_entity":              guard(e.luaBuildEntity),
		"add":                       guard(e.luaAdd),
		"tag":                       guard(e.luaTag),
		"add_archetype":             guard(e.luaAddArchetype),
		"add_entities":              guard(e.luaAddEntities),
		"set_last_entity_as_parent": guard(e.luaSetParent),
		"build":                     guard(e.luaFinish),
	}))
}

func (e *Engine) wrap(b *builder.Builder) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = b
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(builderTypeName))
	return ud
}

// guard turns Go panics from the builder into Lua errors so a bad chain
// fails the script instead of the process.
func guard(fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if _, ok := r.(*lua.ApiError); ok {
				panic(r)
			}
			err, ok := r.(error)
			if !ok {
				panic(r)
			}
			L.RaiseError("%s", err.Error())
		}()
		return fn(L)
	}
}

func checkBuilder(L *lua.LState) *builder.Builder {
	ud := L.CheckUserData(1)
	b, ok := ud.Value.(*builder.Builder)
	if !ok {
		L.ArgError(1, "builder expected")
	}
	return b
}

func (e *Engine) luaBuildEntity(L *lua.LState) int {
	checkBuilder(L).BuildEntity()
	L.Push(L.Get(1))
	return 1
}

func (e *Engine) luaAdd(L *lua.LState) int {
	b := checkBuilder(L)
	kind := L.CheckString(2)
	if e.kinds.IsTag(kind) {
		L.ArgError(2, fmt.Sprintf("%q is a tag kind, use tag()", kind))
	}
	v, err := e.decode(kind, L.Get(3))
	if err != nil {
		L.ArgError(3, err.Error())
	}
	b.Add(v)
	L.Push(L.Get(1))
	return 1
}

func (e *Engine) luaTag(L *lua.LState) int {
	b := checkBuilder(L)
	kind := L.CheckString(2)
	if !e.kinds.IsTag(kind) {
		L.ArgError(2, fmt.Sprintf("%q is not a tag kind", kind))
	}
	v, err := e.decode(kind, L.Get(3))
	if err != nil {
		L.ArgError(3, err.Error())
	}
	b.Tag(v)
	L.Push(L.Get(1))
	return 1
}

func (e *Engine) luaAddArchetype(L *lua.LState) int {
	b := checkBuilder(L)
	name := L.CheckString(2)
	if e.prefabs == nil {
		L.ArgError(2, "no prefabs loaded")
	}
	p, ok := e.prefabs.Get(name)
	if !ok {
		L.ArgError(2, fmt.Sprintf("unknown prefab %q", name))
	}
	b.AddArchetype(p)
	L.Push(L.Get(1))
	return 1
}

// add_entities(kind, rows [, tags]) inserts one entity per row, each carrying
// a single component of kind. tags maps tag kinds to values shared by all rows.
func (e *Engine) luaAddEntities(L *lua.LState) int {
	b := checkBuilder(L)
	kind := L.CheckString(2)
	rows := L.CheckTable(3)

	var errs []error
	var bundles [][]any
	rows.ForEach(func(_, row lua.LValue) {
		v, err := e.decode(kind, row)
		if err != nil {
			errs = append(errs, err)
			return
		}
		bundles = append(bundles, []any{v})
	})
	if err := errors.Join(errs...); err != nil {
		L.ArgError(3, err.Error())
	}

	var tags []any
	if L.GetTop() >= 4 && L.Get(4) != lua.LNil {
		t := L.CheckTable(4)
		t.ForEach(func(k, val lua.LValue) {
			if !e.kinds.IsTag(k.String()) {
				errs = append(errs, fmt.Errorf("%q is not a tag kind", k.String()))
				return
			}
			v, err := e.decode(k.String(), val)
			if err != nil {
				errs = append(errs, err)
				return
			}
			tags = append(tags, v)
		})
		if err := errors.Join(errs...); err != nil {
			L.ArgError(4, err.Error())
		}
	}

	b.AddEntities(ecs.Tags(tags...), ecs.Bundles(bundles...))
	L.Push(L.Get(1))
	return 1
}

// decode converts a Lua argument into a value of the named kind.
func (e *Engine) decode(kind string, v lua.LValue) (any, error) {
	raw, err := toGo(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return e.kinds.DecodeValue(kind, raw)
}

func (e *Engine) luaSetParent(L *lua.LState) int {
	checkBuilder(L).SetLastEntityAsParent()
	L.Push(L.Get(1))
	return 1
}

// build() returns nil, or the archetype failure as a string.
func (e *Engine) luaFinish(L *lua.LState) int {
	if err := checkBuilder(L).Build(); err != nil {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}
