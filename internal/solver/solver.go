package solver

import (
	"github.com/rs/zerolog"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/graph"
	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

const DefaultMaxRewriteDepth = 100

type Config struct {
	// Functions are consulted in source priority order.
	Functions       []BindingFunction
	Universe        types.Universe
	Pool            *graph.Pool
	MaxRewriteDepth int
	Logger          zerolog.Logger
}

// Solver turns root desires into interned graph nodes. It is not safe for
// concurrent use; callers serialize Resolve.
type Solver struct {
	functions []BindingFunction
	universe  types.Universe
	pool      *graph.Pool
	maxDepth  int
	logger    zerolog.Logger
}

func New(cfg *Config) *Solver {
	u := cfg.Universe
	if u == nil {
		u = types.NewRegistry()
	}
	pool := cfg.Pool
	if pool == nil {
		pool = graph.NewPool()
	}
	depth := cfg.MaxRewriteDepth
	if depth <= 0 {
		depth = DefaultMaxRewriteDepth
	}

	return &Solver{
		functions: cfg.Functions,
		universe:  u,
		pool:      pool,
		maxDepth:  depth,
		logger:    cfg.Logger,
	}
}

type Result struct {
	Root       *graph.Node
	Dependency graph.Dependency
	BackEdges  graph.BackEdges
}

// frame is one satisfaction being expanded on the active path. reach is the
// lowest stack index a back-edge from this frame or below it closes onto.
type frame struct {
	sat      inject.Satisfaction
	point    inject.InjectionPoint
	index    int
	reach    int
	node     *graph.Node
	deferred []graph.Dependency
	closers  []closer
}

// closer is a back-edge waiting for the frame it points to to be interned.
type closer struct {
	from *frame
	dep  graph.Dependency
}

type resolution struct {
	*Solver
	stack []*frame
}

// Resolve computes the graph for root. On failure nothing is returned; nodes
// interned before the failure stay in the pool and are reused by later
// resolutions.
func (s *Solver) Resolve(root inject.Desire) (*Result, error) {
	r := &resolution{Solver: s}
	ctx := NewContext(root.Point())

	resolved, policy, err := r.rewrite(ctx, root)
	if err != nil {
		return nil, err
	}
	f, dep, err := r.build(ctx, root, resolved, policy)
	if err != nil {
		return nil, err
	}

	return &Result{
		Root:       f.node,
		Dependency: dep,
		BackEdges:  graph.CollectBackEdges(f.node),
	}, nil
}

// build expands the satisfaction desire was rewritten into and interns the
// node for it. A node on a cycle stays open until the frame its back-edges
// close onto is done; that frame seals the whole cycle as one region, so the
// same cycle under a different context gets its own nodes.
func (r *resolution) build(
	ctx *InjectionContext, desire, resolved inject.Desire, policy scope.CachePolicy,
) (*frame, graph.Dependency, error) {
	dep := graph.Dependency{Initial: desire, Resolved: resolved}
	sat := resolved.Satisfaction()
	point := desire.Point()

	if !sat.HasInstance() && !point.Nullable {
		return nil, dep, r.fail(
			errs.New(errs.CodeNullComponent, "satisfaction yields no instance for a non-nullable point", nil),
			ctx, desire,
		)
	}

	f := &frame{sat: sat, point: point, index: len(r.stack), reach: len(r.stack)}
	r.stack = append(r.stack, f)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	next := ctx.Extend(sat, point)
	edges := make([]graph.Edge, 0, len(sat.Dependencies()))

	for _, child := range sat.Dependencies() {
		childResolved, childPolicy, err := r.rewrite(next, child)
		if err != nil {
			return nil, dep, err
		}

		if ancestor := r.active(childResolved.Satisfaction()); ancestor >= 0 {
			if !r.lazyCycle(ancestor, child.Point()) {
				return nil, dep, r.fail(
					errs.New(errs.CodeCyclicDependency, "cycle has no lazy injection point", nil),
					next, child,
				)
			}

			childDep := graph.Dependency{Initial: child, Resolved: childResolved}
			target := r.stack[ancestor]
			f.reach = min(f.reach, ancestor)
			f.deferred = append(f.deferred, childDep)
			target.closers = append(target.closers, closer{from: f, dep: childDep})

			r.logger.Debug().
				Str("dependency", child.String()).
				Str("ancestor", types.ShortName(target.sat.Type())).
				Msg("deferring back-edge")
			continue
		}

		cf, childDep, err := r.build(next, child, childResolved, childPolicy)
		if err != nil {
			return nil, dep, err
		}
		f.reach = min(f.reach, cf.reach)
		edges = append(edges, graph.Edge{Dependency: childDep, Tail: cf.node})
	}

	c := graph.Component{Satisfaction: sat, Policy: policy}
	if f.reach == f.index && len(f.closers) == 0 {
		f.node = r.pool.Intern(c, edges, f.deferred)
		return f, dep, nil
	}

	f.node = r.pool.Open(c, edges, f.deferred)
	for _, cl := range f.closers {
		if err := r.pool.Link(cl.from.node, graph.Edge{Dependency: cl.dep, Tail: f.node}); err != nil {
			return nil, dep, errs.New(errs.CodeCyclicDependency, "cannot close cycle", err).
				WithType(types.Name(desire.Type()))
		}
	}
	if f.reach == f.index {
		f.node = r.pool.Seal(f.node)
	}

	return f, dep, nil
}

// active returns the stack index of the frame expanding sat, or -1.
func (r *resolution) active(sat inject.Satisfaction) int {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].sat == sat {
			return i
		}
	}
	return -1
}

// lazyCycle reports whether any point on the cycle closed from the top of the
// stack back to ancestor defers its value.
func (r *resolution) lazyCycle(ancestor int, closing inject.InjectionPoint) bool {
	if closing.Lazy {
		return true
	}
	for _, f := range r.stack[ancestor+1:] {
		if f.point.Lazy {
			return true
		}
	}
	return false
}

func (r *resolution) fail(e *errs.Error, ctx *InjectionContext, d inject.Desire) error {
	return e.WithType(types.Name(d.Type())).
		WithQualifier(qualifier.Describe(d.Qualifier())).
		WithPath(ctx.Strings())
}
