package thimble

import (
	"github.com/danpasecinic/thimble/internal/errs"
)

// Module groups constructors and bindings so they can be applied to several
// builders or composed into larger modules.
type Module struct {
	name       string
	providers  []providerEntry
	configure  []func(b *Builder)
	submodules []*Module
}

type providerEntry struct {
	fn   any
	opts []ParamOption
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

// Provide registers fn with Builder.Provide when the module is applied.
func (m *Module) Provide(fn any, opts ...ParamOption) *Module {
	m.providers = append(m.providers, providerEntry{fn: fn, opts: opts})
	return m
}

// Configure runs fn against the builder the module is applied to. Use it to
// declare bindings, defaults and decorators.
func (m *Module) Configure(fn func(b *Builder)) *Module {
	m.configure = append(m.configure, fn)
	return m
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

func (m *Module) apply(b *Builder) {
	if b.modules[m] {
		return
	}
	b.modules[m] = true

	for _, sub := range m.submodules {
		sub.apply(b)
	}

	for _, p := range m.providers {
		b.Provide(p.fn, p.opts...)
	}

	for _, fn := range m.configure {
		fn(b)
	}
}

// Apply applies modules in order. A module is applied at most once per
// builder, so a module included by several others contributes its bindings a
// single time. Errors recorded while applying a module carry its name.
func (b *Builder) Apply(modules ...*Module) *Builder {
	for _, m := range modules {
		before := len(b.errs)
		m.apply(b)
		for i := before; i < len(b.errs); i++ {
			b.errs[i] = errModuleApplyFailed(m.name, b.errs[i])
		}
	}
	return b
}

func errModuleApplyFailed(moduleName string, cause error) *Error {
	return errs.New(
		ErrCodeInvalidBinding,
		"failed to apply module "+moduleName,
		cause,
	)
}
