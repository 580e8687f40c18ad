package thimble

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/graph"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/solver"
	"github.com/danpasecinic/thimble/internal/types"
)

const tracerName = "github.com/danpasecinic/thimble"

const (
	SpanResolve     = "thimble.resolve"
	SpanInstantiate = "thimble.instantiate"

	AttrType      = "thimble.type"
	AttrQualifier = "thimble.qualifier"
	AttrNodes     = "thimble.nodes"
	AttrScope     = "thimble.scope"
)

// resolver is the state shared by an injector and every scope derived from
// it. Resolve calls are serialized; the solver is not safe for concurrent use.
type resolver struct {
	mu     sync.Mutex
	solver *solver.Solver
	graphs map[rootKey]*Graph
}

type rootKey struct {
	typ       reflect.Type
	qualifier any
}

// Injector resolves desires into graphs and instantiates them. Graphs are
// computed once per root desire and shared with scopes; instances belong to
// the injector's container.
type Injector struct {
	shared     *resolver
	cfg        *builderConfig
	container  *container.Container
	decorators []decoratorEntry
	tracer     trace.Tracer
	logger     zerolog.Logger
}

func newInjector(cfg *builderConfig, s *solver.Solver, decorators []decoratorEntry) *Injector {
	shared := &resolver{
		solver: s,
		graphs: make(map[rootKey]*Graph),
	}
	return shared.injector(cfg, decorators)
}

func (r *resolver) injector(cfg *builderConfig, decorators []decoratorEntry) *Injector {
	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	inj := &Injector{
		shared:     r,
		cfg:        cfg,
		decorators: decorators,
		tracer:     tp.Tracer(tracerName),
	}

	hooks := make([]container.InstantiateHook, 0, len(cfg.onInstantiate))
	for _, hook := range cfg.onInstantiate {
		hooks = append(hooks, func(node *graph.Node, d time.Duration, err error) {
			hook(node.Satisfaction().Type(), d, err)
		})
	}

	inj.container = container.New(&container.Config{
		DefaultPolicy: cfg.defaultPolicy,
		Logger:        cfg.logger,
		OnInstantiate: hooks,
	})
	for _, d := range decorators {
		inj.container.AddDecorator(d.typ, d.fn)
	}
	inj.logger = cfg.logger.With().Str("scope", inj.container.ID().String()).Logger()

	return inj
}

// ID identifies the injector's container, and so its instances.
func (i *Injector) ID() uuid.UUID {
	return i.container.ID()
}

// Resolve computes, or returns the cached, graph for desire. A failed
// resolution is not cached and leaves earlier graphs untouched.
func (i *Injector) Resolve(desire Desire) (*Graph, error) {
	if desire.Type() == nil {
		return nil, errInvalidBinding("cannot resolve a desire without a type")
	}
	if err := qualifier.Validate(desire.Qualifier()); err != nil {
		return nil, invalidBinding(err).WithType(types.Name(desire.Type()))
	}

	start := time.Now()
	g, err := i.shared.resolve(desire)
	for _, hook := range i.cfg.onResolve {
		hook(desire.Type(), time.Since(start), err)
	}

	if err != nil {
		i.logger.Debug().Err(err).Str("desire", desire.String()).Msg("resolution failed")
		return nil, err
	}
	return g, nil
}

func (r *resolver) resolve(desire Desire) (*Graph, error) {
	key := rootKey{typ: desire.Type(), qualifier: desire.Qualifier()}

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.graphs[key]; ok {
		return g, nil
	}

	result, err := r.solver.Resolve(desire)
	if err != nil {
		return nil, err
	}

	g := &Graph{result: result}
	r.graphs[key] = g
	return g, nil
}

func (i *Injector) GetInstance(t reflect.Type) (any, error) {
	return i.GetInstanceCtx(context.Background(), t, nil)
}

func (i *Injector) GetQualified(t reflect.Type, q any) (any, error) {
	return i.GetInstanceCtx(context.Background(), t, q)
}

// GetInstanceCtx resolves t with qualifier q and instantiates the result.
// Resolution and instantiation each get a span from the configured tracer.
func (i *Injector) GetInstanceCtx(ctx context.Context, t reflect.Type, q any) (any, error) {
	if err := qualifier.Validate(q); err != nil {
		return nil, invalidBinding(err)
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrType, types.Name(t)),
		attribute.String(AttrScope, i.container.ID().String()),
	}
	if q != nil {
		attrs = append(attrs, attribute.String(AttrQualifier, qualifier.Describe(q)))
	}

	_, span := i.tracer.Start(ctx, SpanResolve, trace.WithAttributes(attrs...))
	g, err := i.Resolve(NewDesire(t, q))
	if err == nil {
		span.SetAttributes(attribute.Int(AttrNodes, g.Size()))
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	_, span = i.tracer.Start(ctx, SpanInstantiate, trace.WithAttributes(attrs...))
	v, err := i.container.Instantiate(g.result.Root, g.result.BackEdges)
	endSpan(span, err)
	if err != nil {
		e := errConstruction(types.Name(t), err)
		if e.Qualifier == "" && q != nil && len(e.Path) <= 1 {
			e.WithQualifier(qualifier.Describe(q))
		}
		return nil, e
	}

	return v, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Instantiator returns the container's instantiator for the graph of t
// without invoking it.
func (i *Injector) Instantiator(t reflect.Type, q any) (Instantiator, error) {
	g, err := i.Resolve(NewDesire(t, q))
	if err != nil {
		return nil, err
	}
	return i.container.MakeInstantiator(g.result.Root, g.result.BackEdges)
}

// NewScope returns an injector sharing this one's bindings and resolved
// graphs but with an empty instance cache. Closing either does not affect the
// other.
func (i *Injector) NewScope() *Injector {
	return i.shared.injector(i.cfg, i.decorators)
}

// Close releases every memoized instance. Instances already handed out are
// left alone; further instantiation fails with ContainerClosed.
func (i *Injector) Close() error {
	return i.container.Close()
}

// Len reports the number of nodes instantiators have been built for.
func (i *Injector) Len() int {
	return i.container.Len()
}

type (
	Node       = graph.Node
	Edge       = graph.Edge
	Dependency = graph.Dependency
)

// Graph is the resolved plan for one root desire.
type Graph struct {
	result *solver.Result
}

func (g *Graph) Root() *Node {
	return g.result.Root
}

// Dependency is the root desire and what it was rewritten to.
func (g *Graph) Dependency() Dependency {
	return g.result.Dependency
}

// BackEdges returns the edges from n deferred because they close a cycle.
func (g *Graph) BackEdges(n *Node) []Edge {
	return g.result.BackEdges.Of(n)
}

// Nodes lists every node reachable from the root, dependencies first.
func (g *Graph) Nodes() []*Node {
	return graph.TopologicalOrder(g.result.Root)
}

func (g *Graph) Size() int {
	return len(g.Nodes())
}

// Cycles reports the groups of nodes tied together by back-edges.
func (g *Graph) Cycles() [][]*Node {
	return graph.Cycles(g.result.Root, g.result.BackEdges)
}
