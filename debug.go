package thimble

import (
	"fmt"
	"io"
	"strings"

	"github.com/danpasecinic/thimble/internal/types"
)

// nodeNames labels nodes by their satisfaction type, numbering labels that
// occur more than once, such as one type built in two contexts.
func nodeNames(nodes []*Node) map[*Node]string {
	count := make(map[string]int, len(nodes))
	for _, n := range nodes {
		count[types.ShortName(n.Satisfaction().Type())]++
	}

	seen := make(map[string]int, len(nodes))
	names := make(map[*Node]string, len(nodes))
	for _, n := range nodes {
		base := types.ShortName(n.Satisfaction().Type())
		if count[base] == 1 {
			names[n] = base
			continue
		}
		seen[base]++
		names[n] = fmt.Sprintf("%s#%d", base, seen[base])
	}
	return names
}

// FprintGraph writes one line per node of g, dependencies first. A filled
// circle marks nodes this injector has built an instantiator for; deferred
// cycle edges are listed after the arrow.
func (i *Injector) FprintGraph(w io.Writer, g *Graph) {
	nodes := g.Nodes()
	names := nodeNames(nodes)

	for _, n := range nodes {
		status := "○"
		if i.container.Built(n) {
			status = "●"
		}

		line := fmt.Sprintf("%s %s [%s]", status, names[n], n.Policy().Or(i.container.DefaultPolicy()))

		deps := make([]string, 0, len(n.OutgoingEdges()))
		for _, e := range n.OutgoingEdges() {
			deps = append(deps, names[e.Tail])
		}
		if len(deps) > 0 {
			line += " ← " + strings.Join(deps, ", ")
		}

		back := g.BackEdges(n)
		if len(back) > 0 {
			cyc := make([]string, 0, len(back))
			for _, e := range back {
				cyc = append(cyc, names[e.Tail])
			}
			line += " ↺ " + strings.Join(cyc, ", ")
		}

		_, _ = fmt.Fprintln(w, line)
	}
}

func (i *Injector) SprintGraph(g *Graph) string {
	var sb strings.Builder
	i.FprintGraph(&sb, g)
	return sb.String()
}

// FprintGraphDOT writes g in Graphviz format. Back-edges are dashed.
func (i *Injector) FprintGraphDOT(w io.Writer, g *Graph) {
	nodes := g.Nodes()
	names := nodeNames(nodes)

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, n := range nodes {
		style := ""
		if i.container.Built(n) {
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", names[n], escapeLabel(names[n]), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, n := range nodes {
		for _, e := range n.OutgoingEdges() {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", names[n], names[e.Tail])
		}
		for _, e := range g.BackEdges(n) {
			_, _ = fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", names[n], names[e.Tail])
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (i *Injector) SprintGraphDOT(g *Graph) string {
	var sb strings.Builder
	i.FprintGraphDOT(&sb, g)
	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "*", "")
}
