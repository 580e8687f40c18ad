package solver

import (
	"strings"

	"github.com/danpasecinic/thimble/internal/inject"
)

// InjectionContext is a persistent path of (satisfaction, point) pairs from
// the resolution root to the current point. Extending never mutates the
// receiver, so sibling resolutions share their common prefix. The nil context
// is the empty path.
type InjectionContext struct {
	prior *InjectionContext
	elem  inject.PathElement
	size  int
}

// NewContext starts a path at the synthetic root element for point.
func NewContext(point inject.InjectionPoint) *InjectionContext {
	var empty *InjectionContext
	return empty.Extend(nil, point)
}

func (c *InjectionContext) Extend(sat inject.Satisfaction, point inject.InjectionPoint) *InjectionContext {
	return &InjectionContext{
		prior: c,
		elem:  inject.PathElement{Satisfaction: sat, Point: point},
		size:  c.Len() + 1,
	}
}

// Leading drops the last element.
func (c *InjectionContext) Leading() *InjectionContext {
	if c == nil {
		return nil
	}
	return c.prior
}

func (c *InjectionContext) Last() (inject.PathElement, bool) {
	if c == nil {
		return inject.PathElement{}, false
	}
	return c.elem, true
}

func (c *InjectionContext) Len() int {
	if c == nil {
		return 0
	}
	return c.size
}

// Path returns the elements root first.
func (c *InjectionContext) Path() []inject.PathElement {
	path := make([]inject.PathElement, c.Len())
	for cur := c; cur != nil; cur = cur.prior {
		path[cur.size-1] = cur.elem
	}
	return path
}

func (c *InjectionContext) Strings() []string {
	path := c.Path()
	out := make([]string, len(path))
	for i, e := range path {
		out[i] = e.String()
	}
	return out
}

func (c *InjectionContext) String() string {
	return "[" + strings.Join(c.Strings(), " -> ") + "]"
}
