package graph

import (
	"fmt"
	"sync"

	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

// Component labels a node: what to build and how to cache it.
type Component struct {
	Satisfaction inject.Satisfaction
	Policy       scope.CachePolicy
}

func (c Component) String() string {
	if c.Satisfaction == nil {
		return "<root>"
	}
	return fmt.Sprintf("%s[%s]", types.ShortName(c.Satisfaction.Type()), c.Policy)
}

// Dependency labels an edge with the desire as requested and the desire it
// was rewritten into.
type Dependency struct {
	Initial  inject.Desire
	Resolved inject.Desire
}

type Edge struct {
	Dependency Dependency
	Tail       *Node
}

// Node is immutable once interned or sealed. Nodes with the same component,
// the same outgoing edges and the same deferred dependencies are the same
// pointer. Nodes on a cycle are compared as a whole region instead, so their
// back-edges are part of their identity.
type Node struct {
	component Component
	edges     []Edge
	deferred  []Dependency
	back      []Edge
	open      bool
	region    *Node
}

func (n *Node) Component() Component {
	return n.component
}

func (n *Node) Satisfaction() inject.Satisfaction {
	return n.component.Satisfaction
}

func (n *Node) Policy() scope.CachePolicy {
	return n.component.Policy
}

func (n *Node) OutgoingEdges() []Edge {
	out := make([]Edge, len(n.edges))
	copy(out, n.edges)
	return out
}

// OutgoingEdge finds the edge created for d, matching either the requested or
// the resolved desire.
func (n *Node) OutgoingEdge(d inject.Desire) (Edge, bool) {
	for _, e := range n.edges {
		if e.Dependency.Initial == d || e.Dependency.Resolved == d {
			return e, true
		}
	}
	return Edge{}, false
}

func (n *Node) EdgesWhere(pred func(Edge) bool) []Edge {
	var out []Edge
	for _, e := range n.edges {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Deferred lists the dependencies closed by a back-edge instead of a forward
// edge.
func (n *Node) Deferred() []Dependency {
	out := make([]Dependency, len(n.deferred))
	copy(out, n.deferred)
	return out
}

// BackEdges lists the edges closing this node's deferred dependencies.
func (n *Node) BackEdges() []Edge {
	out := make([]Edge, len(n.back))
	copy(out, n.back)
	return out
}

func (n *Node) String() string {
	return n.component.String()
}

// BackEdges maps a node to the edges deferred during solving because they
// would have closed a cycle.
type BackEdges map[*Node][]Edge

func (b BackEdges) Of(n *Node) []Edge {
	return b[n]
}

// CollectBackEdges returns the back-edges of every node reachable from root.
func CollectBackEdges(root *Node) BackEdges {
	out := make(BackEdges)
	walk(root, func(n *Node) []Edge { return n.back }, func(n *Node) {
		if len(n.back) > 0 {
			out[n] = append([]Edge(nil), n.back...)
		}
	})
	return out
}

// Pool interns nodes. Acyclic nodes are shared by structure; the nodes of a
// cycle are built open, linked, and sealed as one region. It is safe for
// concurrent use.
type Pool struct {
	mu      sync.Mutex
	nodes   map[Component][]*Node
	regions map[Component][]*Node
	size    int
}

func NewPool() *Pool {
	return &Pool{
		nodes:   make(map[Component][]*Node),
		regions: make(map[Component][]*Node),
	}
}

// Intern returns the canonical node for the given label and edges.
func (p *Pool) Intern(c Component, edges []Edge, deferred []Dependency) *Node {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range p.nodes[c] {
		if equalEdges(n.edges, edges) && equalDeps(n.deferred, deferred) {
			return n
		}
	}

	n := newNode(c, edges, deferred)
	p.nodes[c] = append(p.nodes[c], n)
	p.size++
	return n
}

// Open returns a node that is not shared until the region containing it is
// sealed. Back-edges can be added to it with Link.
func (p *Pool) Open(c Component, edges []Edge, deferred []Dependency) *Node {
	n := newNode(c, edges, deferred)
	n.open = true
	return n
}

// Link records e as a back-edge of the open node from.
func (p *Pool) Link(from *Node, e Edge) error {
	if !from.open {
		return fmt.Errorf("back-edge %s from sealed node %s", e.Dependency.Initial, from)
	}
	from.back = append(from.back, e)
	return nil
}

// Seal makes root and every open node reachable from it one region. If an
// equal region was sealed before, its root is returned and the new nodes are
// dropped.
func (p *Pool) Seal(root *Node) *Node {
	if !root.open {
		return root
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.regions[root.component] {
		if sameRegion(existing, root) {
			return existing
		}
	}

	members := 0
	walk(root, func(n *Node) []Edge { return nil }, func(n *Node) {
		if n.open {
			n.open = false
			n.region = root
			members++
		}
	})
	p.regions[root.component] = append(p.regions[root.component], root)
	p.size += members
	return root
}

// Size reports the number of shared nodes, counting every member of a sealed
// region.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.size
}

func newNode(c Component, edges []Edge, deferred []Dependency) *Node {
	return &Node{
		component: c,
		edges:     append([]Edge(nil), edges...),
		deferred:  append([]Dependency(nil), deferred...),
	}
}

// sameRegion compares the sealed region rooted at a with the open region
// rooted at b. Nodes outside the regions must be the same pointer.
func sameRegion(a, b *Node) bool {
	pairs := make(map[*Node]*Node)

	var same func(x, y *Node) bool
	same = func(x, y *Node) bool {
		if !y.open {
			return x == y
		}
		if m, ok := pairs[y]; ok {
			return m == x
		}
		if x.region != a || x.component != y.component {
			return false
		}
		if !equalDeps(x.deferred, y.deferred) || len(x.edges) != len(y.edges) || len(x.back) != len(y.back) {
			return false
		}
		pairs[y] = x

		for i := range y.edges {
			if x.edges[i].Dependency != y.edges[i].Dependency || !same(x.edges[i].Tail, y.edges[i].Tail) {
				return false
			}
		}
		for i := range y.back {
			if x.back[i].Dependency != y.back[i].Dependency || !same(x.back[i].Tail, y.back[i].Tail) {
				return false
			}
		}
		return true
	}

	return same(a, b)
}

// Walk visits every node reachable from root through forward and back edges,
// each once, in depth-first preorder.
func Walk(root *Node, back BackEdges, visit func(*Node)) {
	walk(root, back.Of, visit)
}

func walk(root *Node, back func(*Node) []Edge, visit func(*Node)) {
	if root == nil {
		return
	}

	seen := make(map[*Node]bool)
	var dfs func(n *Node)
	dfs = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		visit(n)
		for _, e := range n.edges {
			dfs(e.Tail)
		}
		for _, e := range back(n) {
			dfs(e.Tail)
		}
	}
	dfs(root)
}

func equalEdges(a, b []Edge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalDeps(a, b []Dependency) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
