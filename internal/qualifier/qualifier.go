// Package qualifier implements predicates over optional qualifier values.
//
// A qualifier is any comparable Go value attached to an injection point; nil
// means the point is unqualified. Matchers are ordered by specificity so that
// competing bind rules can be ranked.
package qualifier

import (
	"cmp"
	"fmt"
	"reflect"
)

type Qualifier = any

// UnqualifiedMatcher lets a qualifier type accept bindings that were declared
// without any qualifier.
type UnqualifiedMatcher interface {
	AllowUnqualifiedMatch() bool
}

type Kind uint8

// Kinds are declared from least to most specific.
const (
	KindAny Kind = iota
	KindDefault
	KindNone
	KindType
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindDefault:
		return "default"
	case KindNone:
		return "none"
	case KindType:
		return "type"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Matcher is comparable; the zero value matches any qualifier.
type Matcher struct {
	kind  Kind
	typ   reflect.Type
	value any
}

func Any() Matcher {
	return Matcher{kind: KindAny}
}

func None() Matcher {
	return Matcher{kind: KindNone}
}

// Default matches unqualified points plus points whose qualifier opts in via
// UnqualifiedMatcher.
func Default() Matcher {
	return Matcher{kind: KindDefault}
}

func ByType(t reflect.Type) Matcher {
	return Matcher{kind: KindType, typ: t}
}

func Value(q Qualifier) (Matcher, error) {
	if q == nil {
		return None(), nil
	}
	if err := Validate(q); err != nil {
		return Matcher{}, err
	}
	return Matcher{kind: KindValue, typ: reflect.TypeOf(q), value: q}, nil
}

func MustValue(q Qualifier) Matcher {
	m, err := Value(q)
	if err != nil {
		panic(err)
	}
	return m
}

func Validate(q Qualifier) error {
	if q == nil {
		return nil
	}
	if !reflect.TypeOf(q).Comparable() {
		return fmt.Errorf("qualifier of type %T is not comparable", q)
	}
	return nil
}

func (m Matcher) Kind() Kind {
	return m.kind
}

func (m Matcher) Type() reflect.Type {
	return m.typ
}

func (m Matcher) Value() any {
	return m.value
}

func (m Matcher) Matches(q Qualifier) bool {
	switch m.kind {
	case KindAny:
		return true
	case KindNone:
		return q == nil
	case KindDefault:
		if q == nil {
			return true
		}
		um, ok := q.(UnqualifiedMatcher)
		return ok && um.AllowUnqualifiedMatch()
	case KindType:
		return q != nil && reflect.TypeOf(q) == m.typ
	case KindValue:
		return q != nil && reflect.TypeOf(q) == m.typ && q == m.value
	default:
		return false
	}
}

// Compare orders matchers by specificity: a negative result means m is more
// specific than o.
func (m Matcher) Compare(o Matcher) int {
	return cmp.Compare(o.kind, m.kind)
}

func (m Matcher) String() string {
	switch m.kind {
	case KindType:
		return "@" + m.typ.String()
	case KindValue:
		return fmt.Sprintf("@%s(%v)", m.typ, m.value)
	default:
		return "@" + m.kind.String()
	}
}

func Describe(q Qualifier) string {
	if q == nil {
		return ""
	}
	return fmt.Sprintf("%T(%v)", q, q)
}
