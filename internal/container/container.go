package container

import (
	"errors"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/graph"
	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

type InstantiateHook func(node *graph.Node, duration time.Duration, err error)

type Config struct {
	// DefaultPolicy replaces NoPreference on nodes. Memoize when unset.
	DefaultPolicy scope.CachePolicy
	Logger        zerolog.Logger
	OnInstantiate []InstantiateHook
}

// Container turns resolved graph nodes into instantiators. It owns a memo
// table from node to instantiator; every memoized value lives until Close.
type Container struct {
	id            uuid.UUID
	mu            sync.Mutex
	memo          map[*graph.Node]*handle
	memoized      []*memoized
	defaultPolicy scope.CachePolicy
	logger        zerolog.Logger
	closed        atomic.Bool
	onInstantiate []InstantiateHook

	decoratorsMu sync.RWMutex
	decorators   map[reflect.Type][]DecoratorFunc
}

func New(cfg *Config) *Container {
	id := uuid.New()
	return &Container{
		id:            id,
		memo:          make(map[*graph.Node]*handle),
		defaultPolicy: cfg.DefaultPolicy.Or(scope.Memoize),
		logger:        cfg.Logger.With().Str("container_id", id.String()).Logger(),
		onInstantiate: cfg.OnInstantiate,
		decorators:    make(map[reflect.Type][]DecoratorFunc),
	}
}

func (c *Container) ID() uuid.UUID {
	return c.id
}

func (c *Container) DefaultPolicy() scope.CachePolicy {
	return c.defaultPolicy
}

// Len reports the number of nodes with an instantiator in the memo table.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.memo)
}

// Built reports whether node has an instantiator in the memo table.
func (c *Container) Built(node *graph.Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.memo[node]
	return ok
}

// MakeInstantiator returns the instantiator for node, building it and the
// instantiators of everything it depends on if necessary. Dependencies
// deferred as back-edges are reattached here. Repeated calls for the same node
// return the same instantiator until the container is closed.
func (c *Container) MakeInstantiator(node *graph.Node, back graph.BackEdges) (inject.Instantiator, error) {
	if c.closed.Load() {
		return nil, closedError()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var added []*graph.Node
	h, err := c.make(node, back, &added, origin{trail: []inject.PathElement{{}}})
	if err != nil {
		dropped := make(map[*memoized]bool)
		for _, n := range added {
			if h := c.memo[n]; h != nil && h.memo != nil {
				dropped[h.memo] = true
			}
			delete(c.memo, n)
		}
		c.memoized = slices.DeleteFunc(c.memoized, func(m *memoized) bool { return dropped[m] })
		return nil, err
	}

	return h, nil
}

// origin is where a node was first reached: the point it was requested
// through and the path of components leading to it.
type origin struct {
	point inject.InjectionPoint
	trail []inject.PathElement
}

func (o origin) path() []string {
	out := make([]string, len(o.trail))
	for i, e := range o.trail {
		out[i] = e.String()
	}
	return out
}

func (o origin) fail(typ reflect.Type, message string, cause error) *errs.Error {
	e := errs.New(errs.CodeConstructionFailure, message, cause).WithType(types.Name(typ)).WithPath(o.path())
	if o.point.Qualifier != nil {
		e.WithQualifier(qualifier.Describe(o.point.Qualifier))
	}
	return e
}

func (c *Container) make(node *graph.Node, back graph.BackEdges, added *[]*graph.Node, from origin) (*handle, error) {
	if h, ok := c.memo[node]; ok {
		return h, nil
	}

	// The handle goes into the memo before the dependencies are built, so a
	// back-edge to this node receives it instead of recursing forever.
	h := &handle{container: c, node: node}
	c.memo[node] = h
	*added = append(*added, node)

	sat := node.Satisfaction()
	trail := append(slices.Clone(from.trail), inject.PathElement{Satisfaction: sat, Point: from.point})

	edges := append(node.OutgoingEdges(), back.Of(node)...)
	deps := make(map[inject.Desire]inject.Instantiator, len(edges))
	for _, e := range edges {
		dh, err := c.make(e.Tail, back, added, origin{point: e.Dependency.Initial.Point(), trail: trail})
		if err != nil {
			return nil, err
		}
		deps[e.Dependency.Initial] = dh
	}

	raw, err := sat.MakeInstantiator(deps)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, from.fail(sat.Type(), "cannot build instantiator", err)
	}

	policy := node.Policy().Or(c.defaultPolicy)
	var inst inject.Instantiator = &decorated{container: c, raw: raw, typ: sat.Type(), origin: from}
	if policy == scope.Memoize {
		m := &memoized{raw: inst, typ: sat.Type()}
		c.memoized = append(c.memoized, m)
		h.memo = m
		inst = m
	}
	h.target.Store(&inst)

	c.logger.Debug().
		Str("node", node.String()).
		Stringer("policy", policy).
		Int("dependencies", len(deps)).
		Msg("built instantiator")

	return h, nil
}

// Instantiate is MakeInstantiator followed by a single invocation.
func (c *Container) Instantiate(node *graph.Node, back graph.BackEdges) (any, error) {
	inst, err := c.MakeInstantiator(node, back)
	if err != nil {
		return nil, err
	}
	return inst.Instantiate()
}

// Close drops every memoized value and the memo table. Instantiators handed
// out earlier fail with ContainerClosed from then on.
func (c *Container) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.memoized {
		m.release()
	}
	released := len(c.memoized)
	c.memoized = nil
	c.memo = make(map[*graph.Node]*handle)

	c.logger.Debug().Int("released", released).Msg("container closed")
	return nil
}

func (c *Container) Closed() bool {
	return c.closed.Load()
}

// handle is the stable instantiator stored in the memo table. Its target is
// set once the node's own instantiator exists.
type handle struct {
	container *Container
	node      *graph.Node
	memo      *memoized
	target    atomic.Pointer[inject.Instantiator]
}

func (h *handle) Instantiate() (any, error) {
	if h.container.closed.Load() {
		return nil, closedError()
	}

	target := h.target.Load()
	if target == nil {
		return nil, errs.Newf(
			errs.CodeConstructionFailure, "instantiator used before it was built",
		).WithType(types.Name(h.node.Satisfaction().Type()))
	}

	start := time.Now()
	v, err := (*target).Instantiate()
	for _, hook := range h.container.onInstantiate {
		hook(h.node, time.Since(start), err)
	}
	return v, err
}

// decorated runs the raw instantiator and then the decorators registered for
// the satisfaction's type.
type decorated struct {
	container *Container
	raw       inject.Instantiator
	typ       reflect.Type
	origin    origin
}

func (d *decorated) Instantiate() (any, error) {
	v, err := d.raw.Instantiate()
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, d.origin.fail(d.typ, "construction failed", err)
	}

	v, err = d.container.applyDecorators(d.typ, v)
	if err != nil {
		return nil, d.origin.fail(d.typ, "decorator failed", err)
	}

	d.container.logger.Debug().Str("type", types.ShortName(d.typ)).Msg("constructed")
	return v, nil
}

func closedError() error {
	return errs.Newf(errs.CodeContainerClosed, "container is closed")
}
