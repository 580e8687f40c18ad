// Package inject defines the vocabulary shared by the solver and the container:
// injection points, desires, satisfactions and instantiators.
package inject

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

// InjectionPoint describes a site that needs a value. It is a plain comparable
// descriptor; whoever inspects constructors or struct fields builds it.
type InjectionPoint struct {
	Owner     reflect.Type
	Index     int
	Name      string
	Type      reflect.Type
	Qualifier qualifier.Qualifier
	Nullable  bool
	// Lazy points receive a deferred handle rather than a value, which is what
	// lets a dependency cycle be instantiated.
	Lazy bool
}

func (p InjectionPoint) String() string {
	var q string
	if p.Qualifier != nil {
		q = qualifier.Describe(p.Qualifier) + ":"
	}
	if p.Owner == nil {
		return q + types.ShortName(p.Type)
	}
	name := p.Name
	if name == "" {
		name = fmt.Sprint(p.Index)
	}
	return fmt.Sprintf("%s(%s, %s%s)", types.ShortName(p.Owner), name, q, types.ShortName(p.Type))
}

// Root is the synthetic point a top-level request enters through.
func Root(t reflect.Type, q qualifier.Qualifier) InjectionPoint {
	return InjectionPoint{Index: -1, Type: t, Qualifier: q}
}

type Instantiator interface {
	Instantiate() (any, error)
}

type InstantiatorFunc func() (any, error)

func (f InstantiatorFunc) Instantiate() (any, error) {
	return f()
}

// Satisfaction is a terminal capability to build a value once its
// dependencies are resolved. Implementations must be pointer types so that
// satisfactions can be compared and used as map keys.
type Satisfaction interface {
	Type() reflect.Type
	Dependencies() []Desire
	DefaultCachePolicy() scope.CachePolicy
	// HasInstance is false for satisfactions that legitimately yield nothing.
	HasInstance() bool
	MakeInstantiator(deps map[Desire]Instantiator) (Instantiator, error)
}

// Desire is an immutable request for a value, rewritten by bind rules until it
// carries a satisfaction.
type Desire struct {
	point InjectionPoint
	typ   reflect.Type
	sat   Satisfaction
}

func NewDesire(point InjectionPoint) Desire {
	return Desire{point: point, typ: point.Type}
}

func (d Desire) Point() InjectionPoint {
	return d.point
}

func (d Desire) Type() reflect.Type {
	return d.typ
}

func (d Desire) Qualifier() qualifier.Qualifier {
	return d.point.Qualifier
}

func (d Desire) Satisfaction() Satisfaction {
	return d.sat
}

func (d Desire) Instantiable() bool {
	return d.sat != nil
}

// Restrict narrows the desired type, dropping any satisfaction.
func (d Desire) Restrict(t reflect.Type) Desire {
	return Desire{point: d.point, typ: t}
}

func (d Desire) RestrictSatisfaction(s Satisfaction) Desire {
	return Desire{point: d.point, typ: s.Type(), sat: s}
}

func (d Desire) String() string {
	return fmt.Sprintf("Desire(%s, %s)", d.point, types.ShortName(d.typ))
}

// PathElement is one step of an injection context: the satisfaction being
// expanded and the point it was requested through. The root element has a nil
// satisfaction.
type PathElement struct {
	Satisfaction Satisfaction
	Point        InjectionPoint
}

func (e PathElement) Type() reflect.Type {
	if e.Satisfaction == nil {
		return nil
	}
	return e.Satisfaction.Type()
}

func (e PathElement) String() string {
	if e.Satisfaction == nil {
		return "<root>"
	}
	if e.Point.Qualifier != nil {
		return qualifier.Describe(e.Point.Qualifier) + ":" + types.ShortName(e.Type())
	}
	return types.ShortName(e.Type())
}
