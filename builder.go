package thimble

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/match"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/solver"
	"github.com/danpasecinic/thimble/internal/types"
)

// Builder collects bindings, defaults and constructors and produces an
// Injector. Configuration errors are accumulated and reported by Build.
type Builder struct {
	cfg        *builderConfig
	universe   *types.Registry
	bindings   []*Binding
	provided   map[reflect.Type]Satisfaction
	decorators []decoratorEntry
	modules    map[*Module]bool
	errs       []error
}

type decoratorEntry struct {
	typ reflect.Type
	fn  container.DecoratorFunc
}

func NewBuilder(opts ...Option) *Builder {
	cfg := defaultBuilderConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Builder{
		cfg:      cfg,
		universe: types.NewRegistry(),
		provided: make(map[reflect.Type]Satisfaction),
		modules:  make(map[*Module]bool),
	}
}

func (b *Builder) addError(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Err reports the configuration errors recorded so far.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Root is the unscoped context: its bindings apply everywhere.
func (b *Builder) Root() *Context {
	return &Context{builder: b}
}

// AtRoot is anchored at the synthetic element every path starts with. Its
// bindings apply everywhere, like Root's, but outrank unscoped ones.
func (b *Builder) AtRoot() *Context {
	return &Context{builder: b, chain: match.NewChain(match.Root())}
}

func (b *Builder) In(t reflect.Type) *Context {
	return b.Root().In(t)
}

func (b *Builder) InQualified(t reflect.Type, q any) *Context {
	return b.Root().InQualified(t, q)
}

func (b *Builder) InAny(t reflect.Type) *Context {
	return b.Root().InAny(t)
}

func (b *Builder) Bind(t reflect.Type) *Binding {
	return b.Root().Bind(t)
}

func (b *Builder) Default(t reflect.Type) *Binding {
	return b.Root().Default(t)
}

// Provide registers fn as the constructor used for its return type whenever
// no binding applies.
func (b *Builder) Provide(fn any, opts ...ParamOption) *Builder {
	sat, err := Constructor(fn, opts...)
	if err != nil {
		b.addError(err)
		return b
	}

	t := sat.Type()
	if _, ok := b.provided[t]; ok {
		b.addError(errInvalidBinding("constructor already provided for %s", t).WithType(types.Name(t)))
		return b
	}
	b.provided[t] = sat
	b.universe.Register(t)
	return b
}

// DeclareParent records parent as the direct supertype of child, which makes
// rule and context distances reflect an interface hierarchy.
func (b *Builder) DeclareParent(child, parent reflect.Type) *Builder {
	if err := b.universe.DeclareParent(child, parent); err != nil {
		b.addError(invalidBinding(err))
	}
	return b
}

// Register makes types resolvable by name for DecodeChain.
func (b *Builder) Register(ts ...reflect.Type) *Builder {
	b.universe.Register(ts...)
	return b
}

// Build compiles the bindings into rule sets and returns an injector over
// them. Bindings added to the builder afterwards do not affect the returned
// injector.
func (b *Builder) Build() (*Injector, error) {
	var explicit, defaults []solver.ScopedRule
	for _, bd := range b.bindings {
		rule, err := bd.rule()
		if err != nil {
			b.addError(err)
			continue
		}

		sr := solver.ScopedRule{Context: slices.Clone(bd.ctx.chain), Rule: rule}
		if bd.source == solver.SourceDefault {
			defaults = append(defaults, sr)
		} else {
			explicit = append(explicit, sr)
		}
	}
	if err := b.Err(); err != nil {
		return nil, err
	}

	provided := make(map[reflect.Type]Satisfaction, len(b.provided))
	for t, sat := range b.provided {
		provided[t] = sat
	}
	discover := func(t reflect.Type) (Satisfaction, bool, error) {
		if sat, ok := provided[t]; ok {
			return sat, true, nil
		}
		if !injectable(t) {
			return nil, false, nil
		}
		sat, err := Struct(t)
		if err != nil {
			return nil, false, err
		}
		return sat, true, nil
	}

	u := b.universe
	s := solver.New(&solver.Config{
		Functions: []solver.BindingFunction{
			solver.NewRuleSet(solver.SourceExplicit, u, explicit...),
			solver.NewRuleSet(solver.SourceDefault, u, defaults...),
			solver.NewImplicit(u, discover),
		},
		Universe:        u,
		MaxRewriteDepth: b.cfg.maxRewriteDepth,
		Logger:          b.cfg.logger,
	})

	b.cfg.logger.Debug().
		Int("explicit", len(explicit)).
		Int("defaults", len(defaults)).
		Int("provided", len(provided)).
		Msg("injector built")

	return newInjector(b.cfg, s, slices.Clone(b.decorators)), nil
}

func (b *Builder) MustBuild() *Injector {
	inj, err := b.Build()
	if err != nil {
		panic(err)
	}
	return inj
}

// Context is a position in the dependency path that bindings can be scoped
// to. Each In call narrows it by one more element; elements need not be
// adjacent in the actual path.
type Context struct {
	builder *Builder
	chain   match.Chain
}

func (c *Context) extend(m match.ElementMatcher) *Context {
	if m.Type != nil {
		c.builder.universe.Register(m.Type)
	}
	if k := m.Qualifier.Kind(); k == qualifier.KindType || k == qualifier.KindValue {
		c.builder.universe.Register(m.Qualifier.Type())
	}

	chain := make(match.Chain, len(c.chain), len(c.chain)+1)
	copy(chain, c.chain)
	return &Context{builder: c.builder, chain: append(chain, m)}
}

// In narrows the context to components of type t, or assignable to t,
// requested through an unqualified point.
func (c *Context) In(t reflect.Type) *Context {
	return c.extend(match.Element(t))
}

func (c *Context) InQualified(t reflect.Type, q any) *Context {
	m, err := qualifier.Value(q)
	if err != nil {
		c.builder.addError(invalidBinding(err))
		return c
	}
	return c.extend(match.ElementMatcher{Type: t, Qualifier: m})
}

func (c *Context) InNamed(t reflect.Type, name string) *Context {
	return c.InQualified(t, Named(name))
}

// InAny narrows the context to components of type t whatever qualifier they
// were requested with.
func (c *Context) InAny(t reflect.Type) *Context {
	return c.extend(match.ElementMatcher{Type: t, Qualifier: qualifier.Any()})
}

func (c *Context) Bind(t reflect.Type) *Binding {
	return c.binding(t, solver.SourceExplicit)
}

// Default declares a fallback binding, consulted only when no explicit
// binding is at least as specific.
func (c *Context) Default(t reflect.Type) *Binding {
	return c.binding(t, solver.SourceDefault)
}

func (c *Context) binding(t reflect.Type, source solver.Source) *Binding {
	bd := &Binding{
		ctx:       c,
		source:    source,
		dep:       t,
		qualifier: qualifier.Default(),
	}
	c.builder.bindings = append(c.builder.bindings, bd)
	if t != nil {
		c.builder.universe.Register(t)
	}
	return bd
}

func (c *Context) String() string {
	return fmt.Sprint(c.chain)
}

// Binder is implemented by Builder and Context.
type Binder interface {
	Bind(t reflect.Type) *Binding
	Default(t reflect.Type) *Binding
	In(t reflect.Type) *Context
}

func Bind[T any](b Binder) *Binding {
	return b.Bind(TypeOf[T]())
}

func Default[T any](b Binder) *Binding {
	return b.Default(TypeOf[T]())
}

func In[T any](b Binder) *Context {
	return b.In(TypeOf[T]())
}
