package pluggable

import (
	"context"
	"iter"
)

// Module is a loaded plugin module. Go code registers modules directly,
// script runtimes such as the lua package build them from the bindings the
// script exports.
type Module struct {
	// Location is the path or URL the module was loaded from, empty for
	// in-process modules
	Location string
	// Default is the default export of the module
	Default any
	// Metadata holds typed exports, fields left empty are filled from
	// Exports by name
	Metadata Metadata
	// Exports holds every other named export of the module
	Exports map[string]any
}

// HandlerFunc is a synchronous module function.
type HandlerFunc func(pc *Context) (any, error)

// AsyncHandlerFunc is a module function that blocks on ctx.
type AsyncHandlerFunc func(ctx context.Context, pc *Context) (any, error)

// GeneratorFunc is a module function producing a sequence of values.
type GeneratorFunc func(pc *Context) iter.Seq2[any, error]

// AsyncGeneratorFunc is a module function producing a sequence of values
// while blocking on ctx.
type AsyncGeneratorFunc func(ctx context.Context, pc *Context) iter.Seq2[any, error]

// classifyHandler decides the FunctionKind of a default export and
// normalizes it to an AsyncGeneratorFunc or AsyncHandlerFunc
func classifyHandler(v any) (FunctionKind, AsyncHandlerFunc, AsyncGeneratorFunc, bool) {
	switch h := v.(type) {
	case HandlerFunc:
		return FunctionSync, func(_ context.Context, pc *Context) (any, error) { return h(pc) }, nil, true
	case func(pc *Context) (any, error):
		return FunctionSync, func(_ context.Context, pc *Context) (any, error) { return h(pc) }, nil, true
	case AsyncHandlerFunc:
		return FunctionAsync, h, nil, true
	case func(ctx context.Context, pc *Context) (any, error):
		return FunctionAsync, h, nil, true
	case GeneratorFunc:
		return FunctionGenerator, nil, func(_ context.Context, pc *Context) iter.Seq2[any, error] { return h(pc) }, true
	case func(pc *Context) iter.Seq2[any, error]:
		return FunctionGenerator, nil, func(_ context.Context, pc *Context) iter.Seq2[any, error] { return h(pc) }, true
	case AsyncGeneratorFunc:
		return FunctionAsyncGenerator, nil, h, true
	case func(ctx context.Context, pc *Context) iter.Seq2[any, error]:
		return FunctionAsyncGenerator, nil, h, true
	}

	return FunctionSync, nil, nil, false
}
