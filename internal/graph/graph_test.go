package graph

import (
	"reflect"
	"slices"
	"testing"

	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/scope"
)

type (
	compA struct{}
	compB struct{}
	compC struct{}
	compD struct{}
)

type fakeSat struct {
	typ reflect.Type
}

func (f *fakeSat) Type() reflect.Type { return f.typ }
func (f *fakeSat) Dependencies() []inject.Desire { return nil }
func (f *fakeSat) DefaultCachePolicy() scope.CachePolicy { return scope.NoPreference }
func (f *fakeSat) HasInstance() bool { return true }
func (f *fakeSat) MakeInstantiator(map[inject.Desire]inject.Instantiator) (inject.Instantiator, error) {
	return nil, nil
}

var (
	satA = &fakeSat{typ: reflect.TypeFor[*compA]()}
	satB = &fakeSat{typ: reflect.TypeFor[*compB]()}
	satC = &fakeSat{typ: reflect.TypeFor[*compC]()}
	satD = &fakeSat{typ: reflect.TypeFor[*compD]()}
)

func dep(owner, target inject.Satisfaction, index int) Dependency {
	d := inject.NewDesire(inject.InjectionPoint{Owner: owner.Type(), Index: index, Type: target.Type()})
	return Dependency{Initial: d, Resolved: d.RestrictSatisfaction(target)}
}

func edge(owner *fakeSat, index int, tail *Node) Edge {
	return Edge{Dependency: dep(owner, tail.Satisfaction(), index), Tail: tail}
}

func component(s inject.Satisfaction) Component {
	return Component{Satisfaction: s, Policy: scope.Memoize}
}

// diamond builds A -> {B, C}, B -> D, C -> D.
func diamond(p *Pool) (a, b, c, d *Node) {
	d = p.Intern(component(satD), nil, nil)
	b = p.Intern(component(satB), []Edge{edge(satB, 0, d)}, nil)
	c = p.Intern(component(satC), []Edge{edge(satC, 0, d)}, nil)
	a = p.Intern(component(satA), []Edge{edge(satA, 0, b), edge(satA, 1, c)}, nil)
	return a, b, c, d
}

func TestPool_Intern(t *testing.T) {
	t.Parallel()

	p := NewPool()
	d1 := p.Intern(component(satD), nil, nil)
	d2 := p.Intern(component(satD), nil, nil)

	if d1 != d2 {
		t.Error("structurally equal nodes should be the same pointer")
	}

	other := p.Intern(Component{Satisfaction: satD, Policy: scope.NewInstance}, nil, nil)
	if other == d1 {
		t.Error("nodes with different policies should differ")
	}

	b1 := p.Intern(component(satB), []Edge{edge(satB, 0, d1)}, nil)
	b2 := p.Intern(component(satB), []Edge{edge(satB, 0, d2)}, nil)
	if b1 != b2 {
		t.Error("nodes with equal edges should be shared")
	}

	deferred := p.Intern(component(satB), []Edge{edge(satB, 0, d1)}, []Dependency{dep(satB, satA, 1)})
	if deferred == b1 {
		t.Error("deferred dependencies are part of node identity")
	}

	if p.Size() != 4 {
		t.Errorf("expected 4 interned nodes, got %d", p.Size())
	}
}

func TestNode_OutgoingEdge(t *testing.T) {
	t.Parallel()

	a, b, c, _ := diamond(NewPool())

	edges := a.OutgoingEdges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}

	e, ok := a.OutgoingEdge(edges[1].Dependency.Initial)
	if !ok || e.Tail != c {
		t.Error("lookup by initial desire should find the edge to C")
	}

	e, ok = a.OutgoingEdge(edges[0].Dependency.Resolved)
	if !ok || e.Tail != b {
		t.Error("lookup by resolved desire should find the edge to B")
	}

	if _, ok := b.OutgoingEdge(edges[1].Dependency.Initial); ok {
		t.Error("B has no edge for A's desire")
	}

	toB := a.EdgesWhere(func(e Edge) bool { return e.Tail == b })
	if len(toB) != 1 {
		t.Errorf("expected one edge to B, got %d", len(toB))
	}
}

func TestTopologicalOrder(t *testing.T) {
	t.Parallel()

	a, b, c, d := diamond(NewPool())
	sorted := TopologicalOrder(a)

	if len(sorted) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(sorted))
	}

	indexOf := func(n *Node) int { return slices.Index(sorted, n) }

	if indexOf(d) > indexOf(b) {
		t.Error("D should come before B")
	}
	if indexOf(d) > indexOf(c) {
		t.Error("D should come before C")
	}
	if indexOf(b) > indexOf(a) {
		t.Error("B should come before A")
	}
}

func TestLevels(t *testing.T) {
	t.Parallel()

	a, _, _, d := diamond(NewPool())
	levels := Levels(a)

	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if len(levels[0]) != 1 || levels[0][0] != d {
		t.Error("D should be the only leaf")
	}
	if len(levels[1]) != 2 {
		t.Errorf("expected B and C on level 1, got %v", levels[1])
	}
	if len(levels[2]) != 1 || levels[2][0] != a {
		t.Error("A should be the top level")
	}
}

func TestCycles_NoBackEdges(t *testing.T) {
	t.Parallel()

	a, _, _, _ := diamond(NewPool())

	if cycles := Cycles(a, nil); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

// cycle builds A -> B with B closing back onto A, A also depending on tail.
func cycle(p *Pool, tail *Node) (a, b *Node) {
	back := dep(satB, satA, 0)
	b = p.Open(component(satB), nil, []Dependency{back})
	edges := []Edge{edge(satA, 0, b)}
	if tail != nil {
		edges = append(edges, edge(satA, 1, tail))
	}
	a = p.Open(component(satA), edges, nil)
	if err := p.Link(b, Edge{Dependency: back, Tail: a}); err != nil {
		panic(err)
	}
	return p.Seal(a), b
}

func TestCycles_BackEdge(t *testing.T) {
	t.Parallel()

	p := NewPool()
	a, b := cycle(p, nil)

	if err := p.Link(b, Edge{Dependency: dep(satB, satA, 0), Tail: a}); err == nil {
		t.Error("a sealed node takes no more back-edges")
	}

	backEdges := CollectBackEdges(a)
	if len(backEdges.Of(b)) != 1 || backEdges.Of(b)[0].Tail != a {
		t.Fatalf("expected B to close over A, got %v", backEdges)
	}

	cycles := Cycles(a, backEdges)
	if len(cycles) != 1 || len(cycles[0]) != 2 {
		t.Errorf("expected one cycle of two nodes, got %v", cycles)
	}
}

func TestPool_SealRegions(t *testing.T) {
	t.Parallel()

	p := NewPool()
	c := p.Intern(component(satC), nil, nil)
	d := p.Intern(component(satD), nil, nil)

	first, firstB := cycle(p, c)
	again, _ := cycle(p, c)
	if again != first {
		t.Error("equal cycles should be shared")
	}

	other, otherB := cycle(p, d)
	if other == first {
		t.Fatal("cycles with different subtrees must not be shared")
	}
	if otherB == firstB {
		t.Fatal("a node on a cycle belongs to one region")
	}
	if CollectBackEdges(other).Of(otherB)[0].Tail != other {
		t.Error("back-edge should close onto its own region")
	}

	if p.Size() != 6 {
		t.Errorf("expected 6 shared nodes, got %d", p.Size())
	}
}

func TestCycles_SelfBackEdge(t *testing.T) {
	t.Parallel()

	p := NewPool()
	self := dep(satA, satA, 0)
	a := p.Open(component(satA), nil, []Dependency{self})
	if err := p.Link(a, Edge{Dependency: self, Tail: a}); err != nil {
		t.Fatal(err)
	}
	a = p.Seal(a)

	cycles := Cycles(a, CollectBackEdges(a))
	if len(cycles) != 1 || cycles[0][0] != a {
		t.Errorf("expected self cycle on A, got %v", cycles)
	}
}

func TestWalk_FollowsBackEdges(t *testing.T) {
	t.Parallel()

	a, b := cycle(NewPool(), nil)

	var visited []*Node
	Walk(a, CollectBackEdges(a), func(n *Node) { visited = append(visited, n) })

	if len(visited) != 2 || visited[0] != a || visited[1] != b {
		t.Errorf("expected [A B], got %v", visited)
	}
}
