package solver

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/graph"
	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/match"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

type Engine interface{ Name() string }

type V8 struct{}

func (*V8) Name() string { return "v8" }

type BasicEngine struct{}

func (*BasicEngine) Name() string { return "basic" }

type (
	Car    struct{}
	Garage struct{}
	Left   struct{}
	Right  struct{}
)

type testSat struct {
	typ    reflect.Type
	deps   []inject.Desire
	absent bool
	policy scope.CachePolicy
}

func (s *testSat) Type() reflect.Type { return s.typ }
func (s *testSat) Dependencies() []inject.Desire { return s.deps }
func (s *testSat) DefaultCachePolicy() scope.CachePolicy { return s.policy }
func (s *testSat) HasInstance() bool { return !s.absent }
func (s *testSat) MakeInstantiator(map[inject.Desire]inject.Instantiator) (inject.Instantiator, error) {
	return inject.InstantiatorFunc(func() (any, error) { return nil, nil }), nil
}

func point[T any](owner reflect.Type, index int) inject.InjectionPoint {
	return inject.InjectionPoint{Owner: owner, Index: index, Type: reflect.TypeFor[T]()}
}

func desire(p inject.InjectionPoint) inject.Desire {
	return inject.NewDesire(p)
}

func rootDesire[T any]() inject.Desire {
	return inject.NewDesire(inject.Root(reflect.TypeFor[T](), nil))
}

func satFor[T any](deps ...inject.InjectionPoint) *testSat {
	s := &testSat{typ: reflect.TypeFor[T]()}
	for _, p := range deps {
		s.deps = append(s.deps, desire(p))
	}
	return s
}

// fixture wires a solver with explicit rules, default rules and implicit
// satisfactions looked up from a table.
type fixture struct {
	universe *types.Registry
	explicit []ScopedRule
	defaults []ScopedRule
	implicit map[reflect.Type]inject.Satisfaction
	depth    int
}

func newFixture() *fixture {
	return &fixture{
		universe: types.NewRegistry(),
		implicit: make(map[reflect.Type]inject.Satisfaction),
	}
}

func (f *fixture) provide(s *testSat) *testSat {
	f.implicit[s.typ] = s
	return s
}

func (f *fixture) bind(t *testing.T, ctx match.Chain, b *RuleBuilder) *BindRule {
	t.Helper()
	r, err := b.Build()
	require.NoError(t, err)
	f.explicit = append(f.explicit, ScopedRule{Context: ctx, Rule: r})
	return r
}

func (f *fixture) bindDefault(t *testing.T, b *RuleBuilder) {
	t.Helper()
	r, err := b.Build()
	require.NoError(t, err)
	f.defaults = append(f.defaults, ScopedRule{Rule: r})
}

func (f *fixture) solver() *Solver {
	discover := func(t reflect.Type) (inject.Satisfaction, bool, error) {
		s, ok := f.implicit[t]
		return s, ok, nil
	}
	return New(&Config{
		Functions: []BindingFunction{
			NewRuleSet(SourceExplicit, f.universe, f.explicit...),
			NewRuleSet(SourceDefault, f.universe, f.defaults...),
			NewImplicit(f.universe, discover),
		},
		Universe:        f.universe,
		MaxRewriteDepth: f.depth,
		Logger:          zerolog.Nop(),
	})
}

func tailSat(t *testing.T, n *graph.Node, index int) inject.Satisfaction {
	t.Helper()
	edges := n.OutgoingEdges()
	require.Greater(t, len(edges), index)
	return edges[index].Tail.Satisfaction()
}

func TestContextSpecificity(t *testing.T) {
	t.Parallel()

	f := newFixture()
	v8 := satFor[*V8]()
	basic := satFor[*BasicEngine]()
	engineType := reflect.TypeFor[Engine]()

	f.provide(satFor[*Car](point[Engine](reflect.TypeFor[*Car](), 0)))
	f.provide(satFor[*Garage](point[Engine](reflect.TypeFor[*Garage](), 0)))
	f.bind(t, match.NewChain(match.Element(reflect.TypeFor[*Car]())), NewRule(engineType).ToSatisfaction(v8).Terminal(true))
	f.bind(t, match.NewChain(), NewRule(engineType).ToSatisfaction(basic).Terminal(true))

	s := f.solver()

	car, err := s.Resolve(rootDesire[*Car]())
	require.NoError(t, err)
	assert.Same(t, v8, tailSat(t, car.Root, 0))

	garage, err := s.Resolve(rootDesire[*Garage]())
	require.NoError(t, err)
	assert.Same(t, basic, tailSat(t, garage.Root, 0))

	engine, err := s.Resolve(rootDesire[Engine]())
	require.NoError(t, err)
	assert.Same(t, basic, engine.Root.Satisfaction())
}

func TestDeterministicResolution(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.provide(satFor[*V8]())
	f.provide(satFor[*Car](point[Engine](reflect.TypeFor[*Car](), 0), point[*V8](reflect.TypeFor[*Car](), 1)))
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).To(reflect.TypeFor[*V8]()))

	s := f.solver()
	first, err := s.Resolve(rootDesire[*Car]())
	require.NoError(t, err)
	second, err := s.Resolve(rootDesire[*Car]())
	require.NoError(t, err)

	assert.Same(t, first.Root, second.Root)

	// both edges reach the same shared V8 node
	edges := first.Root.OutgoingEdges()
	require.Len(t, edges, 2)
	assert.Same(t, edges[0].Tail, edges[1].Tail)

	// an unrelated solver over the same rules builds the same shape
	other, err := f.solver().Resolve(rootDesire[*Car]())
	require.NoError(t, err)
	assert.Equal(t, shape(first.Root), shape(other.Root))
}

func shape(root *graph.Node) []string {
	var out []string
	for _, n := range graph.TopologicalOrder(root) {
		out = append(out, n.String())
	}
	return out
}

func TestSourcePriority(t *testing.T) {
	t.Parallel()

	f := newFixture()
	v8 := satFor[*V8]()
	basic := satFor[*BasicEngine]()
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).ToSatisfaction(v8))
	f.bindDefault(t, NewRule(reflect.TypeFor[Engine]()).ToSatisfaction(basic))

	res, err := f.solver().Resolve(rootDesire[Engine]())
	require.NoError(t, err)
	assert.Same(t, v8, res.Root.Satisfaction())
}

func TestDefaultsApplyWithoutExplicitRules(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.provide(satFor[*BasicEngine]())
	f.bindDefault(t, NewRule(reflect.TypeFor[Engine]()).To(reflect.TypeFor[*BasicEngine]()))

	res, err := f.solver().Resolve(rootDesire[Engine]())
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[*BasicEngine](), res.Root.Satisfaction().Type())
	assert.Equal(t, reflect.TypeFor[Engine](), res.Dependency.Initial.Type())
	assert.Equal(t, reflect.TypeFor[*BasicEngine](), res.Dependency.Resolved.Type())
}

func TestQualifierSpecificity(t *testing.T) {
	t.Parallel()

	f := newFixture()
	v8 := satFor[*V8]()
	basic := satFor[*BasicEngine]()
	engineType := reflect.TypeFor[Engine]()

	f.bind(t, nil, NewRule(engineType).Qualifier(qualifier.Any()).ToSatisfaction(basic))
	f.bind(t, nil, NewRule(engineType).Qualifier(qualifier.MustValue("fast")).ToSatisfaction(v8))

	s := f.solver()

	res, err := s.Resolve(inject.NewDesire(inject.Root(engineType, "fast")))
	require.NoError(t, err)
	assert.Same(t, v8, res.Root.Satisfaction())

	res, err = s.Resolve(rootDesire[Engine]())
	require.NoError(t, err)
	assert.Same(t, basic, res.Root.Satisfaction())
}

func TestAmbiguousBinding(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).ToSatisfaction(satFor[*V8]()))
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).ToSatisfaction(satFor[*BasicEngine]()))

	_, err := f.solver().Resolve(rootDesire[Engine]())
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeAmbiguousBinding))
}

func TestDuplicateRuleIsNotAmbiguous(t *testing.T) {
	t.Parallel()

	f := newFixture()
	v8 := satFor[*V8]()
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).ToSatisfaction(v8))
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).ToSatisfaction(v8))

	res, err := f.solver().Resolve(rootDesire[Engine]())
	require.NoError(t, err)
	assert.Same(t, v8, res.Root.Satisfaction())
}

func TestUnsatisfiableDependency(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.provide(satFor[*Car](point[Engine](reflect.TypeFor[*Car](), 0)))

	_, err := f.solver().Resolve(rootDesire[*Car]())
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeUnsatisfiableDependency))

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Type, "Engine")
	assert.Equal(t, []string{"<root>", "*solver.Car"}, e.Path)
}

func TestRewriteCycleGuard(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.depth = 1
	f.provide(satFor[*V8]())
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).To(reflect.TypeFor[*V8]()))

	_, err := f.solver().Resolve(rootDesire[Engine]())
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeRewriteCycle))
}

func TestNullComponent(t *testing.T) {
	t.Parallel()

	nothing := &testSat{typ: reflect.TypeFor[Engine](), absent: true}

	f := newFixture()
	f.provide(satFor[*Car](point[Engine](reflect.TypeFor[*Car](), 0)))
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).ToSatisfaction(nothing).Terminal(true))

	_, err := f.solver().Resolve(rootDesire[*Car]())
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeNullComponent))

	nullable := point[Engine](reflect.TypeFor[*Garage](), 0)
	nullable.Nullable = true
	f.provide(satFor[*Garage](nullable))

	res, err := f.solver().Resolve(rootDesire[*Garage]())
	require.NoError(t, err)
	assert.Same(t, nothing, tailSat(t, res.Root, 0))
}

func TestCachePolicyHint(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.provide(satFor[*V8]())
	basic := f.provide(satFor[*BasicEngine]())
	basic.policy = scope.Memoize
	f.bind(t, nil, NewRule(reflect.TypeFor[Engine]()).To(reflect.TypeFor[*V8]()).CachePolicy(scope.NewInstance))

	s := f.solver()

	res, err := s.Resolve(rootDesire[Engine]())
	require.NoError(t, err)
	assert.Equal(t, scope.NewInstance, res.Root.Policy())

	res, err = s.Resolve(rootDesire[*BasicEngine]())
	require.NoError(t, err)
	assert.Equal(t, scope.Memoize, res.Root.Policy())
}

func TestCycleIsDeferredAsBackEdge(t *testing.T) {
	t.Parallel()

	lazyLeft := point[*Left](reflect.TypeFor[*Right](), 0)
	lazyLeft.Lazy = true

	f := newFixture()
	left := f.provide(satFor[*Left](point[*Right](reflect.TypeFor[*Left](), 0)))
	right := f.provide(satFor[*Right](lazyLeft))

	res, err := f.solver().Resolve(rootDesire[*Left]())
	require.NoError(t, err)

	assert.Same(t, left, res.Root.Satisfaction())
	rightNode := res.Root.OutgoingEdges()[0].Tail
	assert.Same(t, right, rightNode.Satisfaction())
	assert.Empty(t, rightNode.OutgoingEdges())
	assert.Len(t, rightNode.Deferred(), 1)

	back := res.BackEdges.Of(rightNode)
	require.Len(t, back, 1)
	assert.Same(t, res.Root, back[0].Tail)
	assert.Len(t, graph.Cycles(res.Root, res.BackEdges), 1)
}

func TestSelfCycle(t *testing.T) {
	t.Parallel()

	self := point[*Left](reflect.TypeFor[*Left](), 0)
	self.Lazy = true

	f := newFixture()
	f.provide(satFor[*Left](self))

	res, err := f.solver().Resolve(rootDesire[*Left]())
	require.NoError(t, err)

	back := res.BackEdges.Of(res.Root)
	require.Len(t, back, 1)
	assert.Same(t, res.Root, back[0].Tail)
}

func TestCycleResolvedTwiceIsShared(t *testing.T) {
	t.Parallel()

	lazyLeft := point[*Left](reflect.TypeFor[*Right](), 0)
	lazyLeft.Lazy = true

	f := newFixture()
	f.provide(satFor[*Left](point[*Right](reflect.TypeFor[*Left](), 0)))
	f.provide(satFor[*Right](lazyLeft))

	s := f.solver()
	first, err := s.Resolve(rootDesire[*Left]())
	require.NoError(t, err)
	second, err := s.Resolve(rootDesire[*Left]())
	require.NoError(t, err)

	assert.Same(t, first.Root, second.Root)
	assert.Equal(t, first.BackEdges, second.BackEdges)
}

func TestCycleClosesOntoItsOwnContext(t *testing.T) {
	t.Parallel()

	lazyLeft := point[*Left](reflect.TypeFor[*Right](), 0)
	lazyLeft.Lazy = true
	engineType := reflect.TypeFor[Engine]()
	v8 := satFor[*V8]()
	basic := satFor[*BasicEngine]()

	f := newFixture()
	f.provide(satFor[*Car](point[*Left](reflect.TypeFor[*Car](), 0)))
	f.provide(satFor[*Garage](point[*Left](reflect.TypeFor[*Garage](), 0)))
	f.provide(satFor[*Left](point[*Right](reflect.TypeFor[*Left](), 0), point[Engine](reflect.TypeFor[*Left](), 1)))
	f.provide(satFor[*Right](lazyLeft))
	f.bind(t, match.NewChain(match.Element(reflect.TypeFor[*Car]())), NewRule(engineType).ToSatisfaction(v8).Terminal(true))
	f.bind(t, match.NewChain(match.Element(reflect.TypeFor[*Garage]())), NewRule(engineType).ToSatisfaction(basic).Terminal(true))

	s := f.solver()
	for _, tt := range []struct {
		name   string
		root   inject.Desire
		engine inject.Satisfaction
	}{
		{name: "car", root: rootDesire[*Car](), engine: v8},
		{name: "garage", root: rootDesire[*Garage](), engine: basic},
	} {
		res, err := s.Resolve(tt.root)
		require.NoError(t, err, tt.name)

		leftNode := res.Root.OutgoingEdges()[0].Tail
		assert.Same(t, tt.engine, tailSat(t, leftNode, 1), tt.name)

		rightNode := leftNode.OutgoingEdges()[0].Tail
		back := res.BackEdges.Of(rightNode)
		require.Len(t, back, 1, tt.name)
		assert.Same(t, leftNode, back[0].Tail, tt.name)
	}
}

func TestEagerCycleFails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.provide(satFor[*Left](point[*Right](reflect.TypeFor[*Left](), 0)))
	f.provide(satFor[*Right](point[*Left](reflect.TypeFor[*Right](), 0)))

	_, err := f.solver().Resolve(rootDesire[*Left]())
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeCyclicDependency))
}

func TestRuleBuilderValidation(t *testing.T) {
	t.Parallel()

	_, err := NewRule(nil).To(reflect.TypeFor[*V8]()).Build()
	assert.True(t, errs.HasCode(err, errs.CodeInvalidBinding))

	_, err = NewRule(reflect.TypeFor[Engine]()).Build()
	assert.True(t, errs.HasCode(err, errs.CodeInvalidBinding))

	_, err = NewRule(reflect.TypeFor[Engine]()).To(reflect.TypeFor[*Car]()).Build()
	assert.True(t, errs.HasCode(err, errs.CodeInvalidBinding))

	r, err := NewRule(reflect.TypeFor[Engine]()).To(reflect.TypeFor[*V8]()).Build()
	require.NoError(t, err)
	assert.Equal(t, qualifier.KindAny, r.Qualifier().Kind())
	assert.Equal(t, scope.NoPreference, r.CachePolicy())
	assert.False(t, r.Terminal())
}
