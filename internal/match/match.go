// Package match decides whether a bind rule's context applies at a point of the
// resolution path and ranks the rules that do.
package match

import (
	"cmp"
	"reflect"
	"strings"

	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/types"
)

type Priority uint8

const (
	PriorityWildcard Priority = iota
	PriorityType
)

// ElementMatcher matches one element of a resolution path. A nil Type is a
// wildcard that only matches the synthetic root element.
type ElementMatcher struct {
	Type      reflect.Type
	Qualifier qualifier.Matcher
}

// Element matches satisfactions assignable to t requested through an
// unqualified point.
func Element(t reflect.Type) ElementMatcher {
	return ElementMatcher{Type: t, Qualifier: qualifier.Default()}
}

// Root matches the synthetic root element whatever the root qualifier.
func Root() ElementMatcher {
	return ElementMatcher{Qualifier: qualifier.Any()}
}

func (m ElementMatcher) Apply(elem inject.PathElement, pos int, u types.Universe) (MatchElement, bool) {
	matched := elem.Type()

	var ok bool
	if m.Type == nil {
		ok = matched == nil
	} else {
		ok = matched != nil && u.IsAssignable(matched, m.Type)
	}
	if !ok || !m.Qualifier.Matches(elem.Point.Qualifier) {
		return MatchElement{}, false
	}

	me := MatchElement{
		Priority:  PriorityWildcard,
		Position:  pos,
		Qualifier: m.Qualifier,
		Matched:   matched,
		Pattern:   m.Type,
	}
	if m.Type != nil {
		me.Priority = PriorityType
		me.Distance = u.Distance(matched, m.Type)
	}
	return me, true
}

func (m ElementMatcher) String() string {
	name := "<root>"
	if m.Type != nil {
		name = types.ShortName(m.Type)
	}
	return m.Qualifier.String() + ":" + name
}

// MatchElement is the ranked result of one successful ElementMatcher.Apply.
type MatchElement struct {
	Priority  Priority
	Position  int
	Distance  int
	Qualifier qualifier.Matcher
	Matched   reflect.Type
	Pattern   reflect.Type
}

// Compare returns a negative number when m is the more specific match.
func (m MatchElement) Compare(o MatchElement) int {
	if c := cmp.Compare(o.Priority, m.Priority); c != 0 {
		return c
	}
	if c := cmp.Compare(o.Position, m.Position); c != 0 {
		return c
	}
	if c := cmp.Compare(m.Distance, o.Distance); c != 0 {
		return c
	}
	return m.Qualifier.Compare(o.Qualifier)
}

// Chain is an ordered list of element matchers. It matches a path when every
// matcher finds an element at a strictly increasing position; gaps are allowed.
type Chain []ElementMatcher

func NewChain(ms ...ElementMatcher) Chain {
	return Chain(ms)
}

// Match reports the match elements in chain order. The search runs from the
// end of the path so that each matcher binds to the latest element it can,
// which is also its best ranked position.
func (c Chain) Match(path []inject.PathElement, u types.Universe) ([]MatchElement, bool) {
	result := make([]MatchElement, len(c))
	pos := len(path) - 1

	for i := len(c) - 1; i >= 0; i-- {
		found := false
		for ; pos >= 0; pos-- {
			if me, ok := c[i].Apply(path[pos], pos, u); ok {
				result[i] = me
				found = true
				pos--
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	return result, true
}

func (c Chain) Matches(path []inject.PathElement, u types.Universe) bool {
	_, ok := c.Match(path, u)
	return ok
}

func (c Chain) Equal(o Chain) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, m := range c {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CompareChains compares two match results element by element, starting with
// the element closest to the resolution point. When one result is a suffix of
// the other the longer one is more constrained and wins. A negative result
// means a is the more specific.
func CompareChains(a, b []MatchElement) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[len(a)-1-i].Compare(b[len(b)-1-i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(b), len(a))
}
