// Package thimbletest wraps a Builder and the Injector it produces for use in
// tests. Failures are reported through the test instead of returned.
package thimbletest

import (
	"github.com/danpasecinic/thimble"
	"github.com/danpasecinic/thimble/internal/types"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

// Harness is a Builder that builds itself on first use. Bindings, including
// replacements, must be added before the first Injector call.
type Harness struct {
	*thimble.Builder
	tb  TB
	inj *thimble.Injector
}

func New(tb TB, opts ...thimble.Option) *Harness {
	tb.Helper()

	return &Harness{
		Builder: thimble.NewBuilder(opts...),
		tb:      tb,
	}
}

// Injector builds the harness on the first call and closes the injector when
// the test ends.
func (h *Harness) Injector() *thimble.Injector {
	h.tb.Helper()

	if h.inj != nil {
		return h.inj
	}

	inj, err := h.Build()
	if err != nil {
		h.tb.Fatalf("failed to build injector: %v", err)
		return nil
	}
	h.inj = inj

	h.tb.Cleanup(func() {
		if err := inj.Close(); err != nil {
			h.tb.Fatalf("failed to close injector: %v", err)
		}
	})

	return inj
}

func (h *Harness) RequireBuild() {
	h.tb.Helper()
	h.Injector()
}

// RequireClose closes the injector now. Further Get calls fail.
func (h *Harness) RequireClose() {
	h.tb.Helper()

	if err := h.Injector().Close(); err != nil {
		h.tb.Fatalf("failed to close injector: %v", err)
	}
}

func (h *Harness) requireUnbuilt(what string) {
	h.tb.Helper()

	if h.inj != nil {
		h.tb.Fatalf("cannot %s after the injector is built", what)
	}
}

// Replace binds T to value at the root anchor, which outranks every unscoped
// binding and constructor for T.
func Replace[T any](h *Harness, value T) {
	h.tb.Helper()
	h.requireUnbuilt("replace " + types.Name(thimble.TypeOf[T]()))

	thimble.Bind[T](h.AtRoot()).ToInstance(value)
	requireNoError(h, "replace", thimble.TypeOf[T]())
}

func ReplaceNamed[T any](h *Harness, name string, value T) {
	h.tb.Helper()
	h.requireUnbuilt("replace " + types.Name(thimble.TypeOf[T]()))

	thimble.Bind[T](h.AtRoot()).Named(name).ToInstance(value)
	requireNoError(h, "replace", thimble.TypeOf[T]())
}

// ReplaceConstructor is Replace with a constructor called under the binding's
// cache policy.
func ReplaceConstructor[T any](h *Harness, fn any, opts ...thimble.ParamOption) {
	h.tb.Helper()
	h.requireUnbuilt("replace " + types.Name(thimble.TypeOf[T]()))

	thimble.Bind[T](h.AtRoot()).ToConstructor(fn, opts...)
	requireNoError(h, "replace constructor", thimble.TypeOf[T]())
}

func MustProvide(h *Harness, fn any, opts ...thimble.ParamOption) {
	h.tb.Helper()
	h.requireUnbuilt("provide")

	h.Provide(fn, opts...)
	if err := h.Err(); err != nil {
		h.tb.Fatalf("failed to provide %T: %v", fn, err)
	}
}

func MustBindInstance[T any](h *Harness, value T) {
	h.tb.Helper()
	h.requireUnbuilt("bind " + types.Name(thimble.TypeOf[T]()))

	thimble.Bind[T](h).ToInstance(value)
	requireNoError(h, "bind", thimble.TypeOf[T]())
}

func MustBindNamedInstance[T any](h *Harness, name string, value T) {
	h.tb.Helper()
	h.requireUnbuilt("bind " + types.Name(thimble.TypeOf[T]()))

	thimble.Bind[T](h).Named(name).ToInstance(value)
	requireNoError(h, "bind", thimble.TypeOf[T]())
}

func MustGet[T any](h *Harness) T {
	h.tb.Helper()

	v, err := thimble.Get[T](h.Injector())
	if err != nil {
		h.tb.Fatalf("failed to get %s: %v", types.Name(thimble.TypeOf[T]()), err)
	}
	return v
}

func MustGetNamed[T any](h *Harness, name string) T {
	h.tb.Helper()

	v, err := thimble.GetNamed[T](h.Injector(), name)
	if err != nil {
		h.tb.Fatalf("failed to get %s named %q: %v", types.Name(thimble.TypeOf[T]()), name, err)
	}
	return v
}

// MustResolve returns the graph for T without instantiating it.
func MustResolve[T any](h *Harness) *thimble.Graph {
	h.tb.Helper()

	g, err := h.Injector().Resolve(thimble.NewDesire(thimble.TypeOf[T](), nil))
	if err != nil {
		h.tb.Fatalf("failed to resolve %s: %v", types.Name(thimble.TypeOf[T]()), err)
	}
	return g
}

func AssertHas[T any](h *Harness) {
	h.tb.Helper()

	if !thimble.Has[T](h.Injector()) {
		h.tb.Fatalf("expected %s to be resolvable", types.Name(thimble.TypeOf[T]()))
	}
}

func AssertHasNamed[T any](h *Harness, name string) {
	h.tb.Helper()

	if !thimble.HasNamed[T](h.Injector(), name) {
		h.tb.Fatalf("expected %s named %q to be resolvable", types.Name(thimble.TypeOf[T]()), name)
	}
}

func AssertNotHas[T any](h *Harness) {
	h.tb.Helper()

	if thimble.Has[T](h.Injector()) {
		h.tb.Fatalf("expected %s not to be resolvable", types.Name(thimble.TypeOf[T]()))
	}
}

func requireNoError(h *Harness, what string, t any) {
	h.tb.Helper()

	if err := h.Err(); err != nil {
		h.tb.Fatalf("failed to %s %v: %v", what, t, err)
	}
}
