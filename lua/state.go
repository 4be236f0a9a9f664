// Package lua imports plugin modules written in Lua.
//
// A module file returns a table of exports. The default export is the
// plugin, a function default export is classified with the kind export
// ("sync", "async", "generator" or "async-generator"). The activate,
// activateSync, deactivate and scalarGuard exports become module hooks,
// every other export is converted to a Go value.
package lua

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// runtime is the Lua state of a single module. gopher-lua states are not
// goroutine safe, every call holds the mutex.
type runtime struct {
	mu sync.Mutex
	L  *lua.LState
}

func newRuntime() *runtime {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	openSafeLibraries(L)
	registerContextType(L)

	return &runtime{L: L}
}

// openSafeLibraries opens only the Lua standard libraries without file
// system or process access
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// doFile runs the file at path and returns the value the chunk returns
func (r *runtime) doFile(ctx context.Context, path string) (ret lua.LValue, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	fn, err := r.L.LoadFile(path)
	if err != nil {
		return nil, err
	}

	r.L.Push(fn)
	if err := r.L.PCall(0, 1, nil); err != nil {
		return nil, err
	}

	ret = r.L.Get(-1)
	r.L.Pop(1)

	return ret, nil
}

// call calls fn with args, the arguments are created by the args function
// while the state is locked. Lua functions report failures either by
// raising an error or by returning nil followed by a message.
func (r *runtime) call(ctx context.Context, fn *lua.LFunction, args func(L *lua.LState) []lua.LValue) (results []lua.LValue, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	if ctx != nil {
		r.L.SetContext(ctx)
		defer r.L.RemoveContext()
	}

	top := r.L.GetTop()

	r.L.Push(fn)

	n := 0
	if args != nil {
		for _, a := range args(r.L) {
			r.L.Push(a)
			n++
		}
	}

	if err := r.L.PCall(n, lua.MultRet, nil); err != nil {
		return nil, err
	}

	nRet := r.L.GetTop() - top
	results = make([]lua.LValue, 0, nRet)
	for i := 0; i < nRet; i++ {
		results = append(results, r.L.Get(top+i+1))
	}
	r.L.Pop(nRet)

	if len(results) >= 2 && results[0] == lua.LNil {
		if msg, ok := results[1].(lua.LString); ok {
			return nil, fmt.Errorf("%s", string(msg))
		}
	}

	return results, nil
}

func (r *runtime) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.L.Close()
}

func first(results []lua.LValue) lua.LValue {
	if len(results) == 0 {
		return lua.LNil
	}

	return results[0]
}
