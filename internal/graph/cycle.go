package graph

type cycleDetector struct {
	back    BackEdges
	index   int
	stack   []*Node
	onStack map[*Node]bool
	indices map[*Node]int
	lowlink map[*Node]int
	sccs    [][]*Node
}

// Cycles reports the strongly connected components that the back-edges close,
// including single nodes with a back-edge to themselves.
func Cycles(root *Node, back BackEdges) [][]*Node {
	if root == nil || len(back) == 0 {
		return nil
	}

	d := &cycleDetector{
		back:    back,
		onStack: make(map[*Node]bool),
		indices: make(map[*Node]int),
		lowlink: make(map[*Node]int),
	}
	d.strongConnect(root)

	var cycles [][]*Node
	for _, scc := range d.sccs {
		if len(scc) > 1 {
			cycles = append(cycles, scc)
			continue
		}
		for _, e := range back[scc[0]] {
			if e.Tail == scc[0] {
				cycles = append(cycles, scc)
				break
			}
		}
	}

	return cycles
}

func (d *cycleDetector) successors(n *Node) []*Node {
	out := make([]*Node, 0, len(n.edges)+len(d.back[n]))
	for _, e := range n.edges {
		out = append(out, e.Tail)
	}
	for _, e := range d.back[n] {
		out = append(out, e.Tail)
	}
	return out
}

func (d *cycleDetector) strongConnect(n *Node) {
	d.indices[n] = d.index
	d.lowlink[n] = d.index
	d.index++
	d.stack = append(d.stack, n)
	d.onStack[n] = true

	for _, next := range d.successors(n) {
		if _, visited := d.indices[next]; !visited {
			d.strongConnect(next)
			d.lowlink[n] = min(d.lowlink[n], d.lowlink[next])
		} else if d.onStack[next] {
			d.lowlink[n] = min(d.lowlink[n], d.indices[next])
		}
	}

	if d.lowlink[n] == d.indices[n] {
		var scc []*Node
		for {
			last := len(d.stack) - 1
			w := d.stack[last]
			d.stack = d.stack[:last]
			d.onStack[w] = false
			scc = append(scc, w)
			if w == n {
				break
			}
		}
		d.sccs = append(d.sccs, scc)
	}
}
