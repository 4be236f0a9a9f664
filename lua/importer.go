package lua

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/jumppad-labs/pluggable"
	"github.com/jumppad-labs/pluggable/logger"
	lua "github.com/yuin/gopher-lua"
)

// Importer loads Lua module files, it implements pluggable.Importer
type Importer struct {
	logger logger.Logger

	mu       sync.Mutex
	runtimes []*runtime
}

// NewImporter creates an Importer, l can be nil
func NewImporter(l logger.Logger) *Importer {
	if l == nil {
		l = logger.Nop{}
	}

	return &Importer{logger: l}
}

var _ pluggable.Importer = (*Importer)(nil)

// Import runs the Lua file at location and converts its exports into a
// pluggable.Module
func (i *Importer) Import(ctx context.Context, location string) (*pluggable.Module, error) {
	r := newRuntime()
	r.L.SetGlobal("log", r.L.NewFunction(func(L *lua.LState) int {
		i.logger.Info(L.CheckString(1), "module", location)
		return 0
	}))

	ret, err := r.doFile(ctx, location)
	if err != nil {
		r.close()
		return nil, fmt.Errorf("unable to load lua module %s: %w", location, err)
	}

	m := &pluggable.Module{Location: location, Exports: map[string]any{}}

	switch v := ret.(type) {
	case *lua.LFunction:
		m.Default = r.handler(v, pluggable.FunctionSync)
	case *lua.LTable:
		err = r.exports(m, v)
	case *lua.LNilType:
		err = fmt.Errorf("module did not return its exports")
	default:
		m.Default = ToGoValue(v)
	}

	if err != nil {
		r.close()
		return nil, fmt.Errorf("invalid lua module %s: %w", location, err)
	}

	i.mu.Lock()
	i.runtimes = append(i.runtimes, r)
	i.mu.Unlock()

	i.logger.Debug("Loaded lua module", "location", location)

	return m, nil
}

// Close releases the Lua states of every imported module, the modules can
// not be executed after Close
func (i *Importer) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, r := range i.runtimes {
		r.close()
	}

	i.runtimes = nil
}

// exports converts the exports table of a module
func (r *runtime) exports(m *pluggable.Module, t *lua.LTable) error {
	kind := pluggable.FunctionSync
	if k, ok := t.RawGetString("kind").(lua.LString); ok {
		var valid bool
		kind, valid = pluggable.ParseFunctionKind(string(k))
		if !valid {
			return fmt.Errorf("unknown function kind %q", string(k))
		}
	}

	t.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}

		switch string(name) {
		case "default":
			if fn, ok := v.(*lua.LFunction); ok {
				m.Default = r.handler(fn, kind)
				return
			}
			m.Default = ToGoValue(v)
		case "kind":
			m.Exports["kind"] = kind.String()
		default:
			m.Exports[string(name)] = r.export(string(name), v)
		}
	})

	return nil
}

// export converts a named export, the hook names are converted to the
// matching pluggable function types
func (r *runtime) export(name string, v lua.LValue) any {
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return ToGoValue(v)
	}

	switch name {
	case "activate":
		return pluggable.ActivateFunc(func(ctx context.Context, ac *pluggable.ActivateContext) (pluggable.ActivateResult, error) {
			return r.activate(ctx, fn, ac)
		})
	case "activateSync":
		return pluggable.ActivateSyncFunc(func(ac *pluggable.ActivateContext) (pluggable.ActivateResult, error) {
			return r.activate(context.Background(), fn, ac)
		})
	case "deactivate":
		return pluggable.DeactivateFunc(func(ctx context.Context, dc *pluggable.DeactivateContext) error {
			_, err := r.call(ctx, fn, func(L *lua.LState) []lua.LValue {
				return []lua.LValue{newContext(L, &dc.Context)}
			})
			return err
		})
	case "scalarGuard":
		return pluggable.ScalarGuard(func(v any) bool {
			res, err := r.call(context.Background(), fn, func(L *lua.LState) []lua.LValue {
				return []lua.LValue{ToLuaValue(L, v)}
			})
			return err == nil && lua.LVAsBool(first(res))
		})
	}

	return func(args ...any) (any, error) {
		res, err := r.call(context.Background(), fn, func(L *lua.LState) []lua.LValue {
			lv := []lua.LValue{}
			for _, a := range args {
				lv = append(lv, ToLuaValue(L, a))
			}
			return lv
		})
		if err != nil {
			return nil, err
		}

		return ToGoValue(first(res)), nil
	}
}

// activate calls an activation hook, a hook returning false vetoes the
// activation, the optional second value is the reason
func (r *runtime) activate(ctx context.Context, fn *lua.LFunction, ac *pluggable.ActivateContext) (pluggable.ActivateResult, error) {
	res, err := r.call(ctx, fn, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{newContext(L, &ac.Context)}
	})
	if err != nil {
		return pluggable.ActivateResult{}, err
	}

	if first(res) == lua.LFalse {
		reason := "activation vetoed"
		if len(res) > 1 {
			if s, ok := res[1].(lua.LString); ok {
				reason = string(s)
			}
		}

		return pluggable.ActivateResult{
			Registration: pluggable.NewInvalidRegistration(ac.Registration.Source, reason),
		}, nil
	}

	return pluggable.ActivateResult{Registration: ac.Registration}, nil
}

// handler converts the default export function to the Go function type of
// kind
func (r *runtime) handler(fn *lua.LFunction, kind pluggable.FunctionKind) any {
	invoke := func(ctx context.Context, pc *pluggable.Context) (any, error) {
		res, err := r.call(ctx, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{newContext(L, pc)}
		})
		if err != nil {
			return nil, err
		}

		return ToGoValue(first(res)), nil
	}

	switch kind {
	case pluggable.FunctionAsync:
		return pluggable.AsyncHandlerFunc(invoke)
	case pluggable.FunctionGenerator:
		return pluggable.GeneratorFunc(func(pc *pluggable.Context) iter.Seq2[any, error] {
			return r.generate(context.Background(), fn, pc)
		})
	case pluggable.FunctionAsyncGenerator:
		return pluggable.AsyncGeneratorFunc(func(ctx context.Context, pc *pluggable.Context) iter.Seq2[any, error] {
			return r.generate(ctx, fn, pc)
		})
	}

	return pluggable.HandlerFunc(func(pc *pluggable.Context) (any, error) {
		return invoke(context.Background(), pc)
	})
}

// generate calls a generator function. The function returns either an
// iterator function, called until it returns nil, or a list of values.
func (r *runtime) generate(ctx context.Context, fn *lua.LFunction, pc *pluggable.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		res, err := r.call(ctx, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{newContext(L, pc)}
		})
		if err != nil {
			yield(nil, err)
			return
		}

		switch v := first(res).(type) {
		case *lua.LNilType:
			return
		case *lua.LFunction:
			for {
				next, err := r.call(ctx, v, nil)
				if err != nil {
					yield(nil, err)
					return
				}

				if first(next) == lua.LNil {
					return
				}

				if !yield(ToGoValue(first(next)), nil) {
					return
				}
			}
		default:
			values, ok := ToGoValue(v).([]any)
			if !ok {
				yield(ToGoValue(v), nil)
				return
			}

			for _, val := range values {
				if !yield(val, nil) {
					return
				}
			}
		}
	}
}
