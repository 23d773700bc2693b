package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/worldbuild/internal/builder"
	"github.com/l1jgo/worldbuild/internal/data"
)

// APIVersion is exposed to scripts as the global API_VERSION.
const APIVersion = 1

// Engine wraps a single gopher-lua VM that drives builder chains.
// Single-goroutine access only (scene loop).
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	source  builder.Source
	kinds   *data.Kinds
	prefabs *data.PrefabTable
}

// NewEngine creates a Lua VM whose world.build() hands out builders from src.
// prefabs may be nil, in which case add_archetype always fails.
func NewEngine(src builder.Source, kinds *data.Kinds, prefabs *data.PrefabTable, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{vm: vm, log: log, source: src, kinds: kinds, prefabs: prefabs}
	e.registerBuilderType()

	world := vm.NewTable()
	world.RawSetString("build", vm.NewFunction(e.luaBuild))
	vm.SetGlobal("world", world)
	return e
}

func (e *Engine) Close() { e.vm.Close() }

// LoadDir runs every .lua file in dir in name order. A missing dir is skipped.
func (e *Engine) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	n := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.RunFile(filepath.Join(dir, entry.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (e *Engine) RunFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

func (e *Engine) RunString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("run lua: %w", err)
	}
	return nil
}

// CallHook calls the global function name with args if the scripts defined
// one. It reports whether the function exists.
func (e *Engine) CallHook(name string, args ...lua.LValue) (bool, error) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return false, nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return true, fmt.Errorf("lua %s: %w", name, err)
	}
	return true, nil
}

func (e *Engine) luaBuild(L *lua.LState) int {
	L.Push(e.wrap(e.source.Build()))
	return 1
}
