package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value to plain Go data: sequences become []any, tables
// keyed by strings map[string]any. A table mixing both is rejected.
func toGo(v lua.LValue) (any, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil, fmt.Errorf("cannot convert lua %s", v.Type())
	}
}

func tableToGo(t *lua.LTable) (any, error) {
	n := t.MaxN()
	entries := 0
	t.ForEach(func(_, _ lua.LValue) { entries++ })

	if n > 0 {
		if entries != n {
			return nil, fmt.Errorf("table mixes a sequence of %d with %d other keys", n, entries-n)
		}
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			v, err := toGo(t.RawGetInt(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}

	out := make(map[string]any, entries)
	var err error
	t.ForEach(func(k, val lua.LValue) {
		if err != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			err = fmt.Errorf("table key %s is not a string", k.String())
			return
		}
		var v any
		if v, err = toGo(val); err != nil {
			err = fmt.Errorf("%s: %w", key, err)
			return
		}
		out[string(key)] = v
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
