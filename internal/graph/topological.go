package graph

// TopologicalOrder lists the nodes reachable from root through forward edges,
// dependencies before their dependents. Forward edges never form a cycle, so
// the order always exists.
func TopologicalOrder(root *Node) []*Node {
	if root == nil {
		return nil
	}

	visited := make(map[*Node]bool)
	var order []*Node

	var visit func(n *Node)
	visit = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true

		for _, e := range n.edges {
			visit(e.Tail)
		}
		order = append(order, n)
	}
	visit(root)

	return order
}

// Levels groups the nodes reachable from root by the length of their longest
// forward path to a leaf. Leaves are level 0.
func Levels(root *Node) [][]*Node {
	levels := make(map[*Node]int)

	var level func(n *Node) int
	level = func(n *Node) int {
		if l, ok := levels[n]; ok {
			return l
		}

		l := 0
		for _, e := range n.edges {
			l = max(l, level(e.Tail)+1)
		}
		levels[n] = l
		return l
	}

	var groups [][]*Node
	for _, n := range TopologicalOrder(root) {
		l := level(n)
		for len(groups) <= l {
			groups = append(groups, nil)
		}
		groups[l] = append(groups[l], n)
	}

	return groups
}
