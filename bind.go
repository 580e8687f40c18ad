package thimble

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/solver"
	"github.com/danpasecinic/thimble/internal/types"
)

// Binding is one bind rule under construction. Its methods can be called in
// any order; the rule is compiled when the builder builds.
type Binding struct {
	ctx       *Context
	source    solver.Source
	dep       reflect.Type
	qualifier qualifier.Matcher
	target    reflect.Type
	sat       Satisfaction
	policy    CachePolicy
	terminal  bool
	err       error
}

func (b *Binding) fail(err error) *Binding {
	if b.err == nil {
		b.err = err
	}
	return b
}

// To rewrites the desire to impl, which is then resolved in turn.
func (b *Binding) To(impl reflect.Type) *Binding {
	b.target, b.sat = impl, nil
	if impl != nil {
		b.ctx.builder.universe.Register(impl)
	}
	return b
}

func (b *Binding) ToInstance(v any) *Binding {
	sat, err := Instance(v)
	if err != nil {
		return b.fail(err)
	}
	return b.ToSatisfaction(sat)
}

func (b *Binding) ToConstructor(fn any, opts ...ParamOption) *Binding {
	sat, err := Constructor(fn, opts...)
	if err != nil {
		return b.fail(err)
	}
	return b.ToSatisfaction(sat)
}

func (b *Binding) ToProvider(fn any) *Binding {
	sat, err := ProviderFunc(fn)
	if err != nil {
		return b.fail(err)
	}
	return b.ToSatisfaction(sat)
}

// ToNull satisfies the desire with nothing. Only nullable points accept it.
func (b *Binding) ToNull() *Binding {
	return b.ToSatisfaction(Null(b.dep))
}

func (b *Binding) ToSatisfaction(sat Satisfaction) *Binding {
	b.sat, b.target = sat, nil
	b.terminal = true
	return b
}

func (b *Binding) Memoize() *Binding {
	b.policy = Memoize
	return b
}

func (b *Binding) NewInstance() *Binding {
	b.policy = NewInstance
	return b
}

// Final stops rewriting once this binding has applied: the target is built
// by its constructor or struct injection even if other bindings match it.
func (b *Binding) Final() *Binding {
	b.terminal = true
	return b
}

// Qualified restricts the binding to points qualified with exactly q.
func (b *Binding) Qualified(q any) *Binding {
	m, err := qualifier.Value(q)
	if err != nil {
		return b.fail(invalidBinding(err))
	}
	b.qualifier = m
	return b
}

// QualifiedBy restricts the binding to points with a qualifier of type t.
func (b *Binding) QualifiedBy(t reflect.Type) *Binding {
	b.qualifier = qualifier.ByType(t)
	return b
}

func (b *Binding) Named(name string) *Binding {
	return b.Qualified(Named(name))
}

func (b *Binding) AnyQualifier() *Binding {
	b.qualifier = qualifier.Any()
	return b
}

// Unqualified restricts the binding to points with no qualifier at all.
func (b *Binding) Unqualified() *Binding {
	b.qualifier = qualifier.None()
	return b
}

func (b *Binding) rule() (*solver.BindRule, error) {
	if b.err != nil {
		return nil, b.err
	}

	rb := solver.NewRule(b.dep).
		Qualifier(b.qualifier).
		CachePolicy(b.policy).
		Terminal(b.terminal)
	if b.sat != nil {
		rb.ToSatisfaction(b.sat)
	} else {
		rb.To(b.target)
	}
	return rb.Build()
}

func (b *Binding) String() string {
	target := "?"
	switch {
	case b.sat != nil:
		target = types.ShortName(b.sat.Type())
	case b.target != nil:
		target = types.ShortName(b.target)
	}
	return fmt.Sprintf("%s %s %s -> %s", b.ctx, b.qualifier, types.ShortName(b.dep), target)
}

// Decorate wraps every value built for the concrete type T before it is
// cached or injected.
func Decorate[T any](b *Builder, fn func(T) (T, error)) *Builder {
	t := TypeOf[T]()
	b.decorators = append(b.decorators, decoratorEntry{
		typ: t,
		fn: func(v any) (any, error) {
			typed, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("decorator for %s got %T", types.ShortName(t), v)
			}
			return fn(typed)
		},
	})
	return b
}
