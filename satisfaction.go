package thimble

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

type (
	Satisfaction   = inject.Satisfaction
	Instantiator   = inject.Instantiator
	Desire         = inject.Desire
	InjectionPoint = inject.InjectionPoint
	CachePolicy    = scope.CachePolicy
)

const (
	NoPreference = scope.NoPreference
	Memoize      = scope.Memoize
	NewInstance  = scope.NewInstance
)

var errorType = reflect.TypeFor[error]()

// Named is the qualifier produced by Binding.Named, WithName and the name part
// of a struct tag.
type Named string

func (n Named) String() string {
	return string(n)
}

func TypeOf[T any]() reflect.Type {
	return types.For[T]()
}

// NewDesire is a top-level request for t with an optional qualifier.
func NewDesire(t reflect.Type, q any) Desire {
	return inject.NewDesire(inject.Root(t, q))
}

type ParamOption func(params []InjectionPoint) error

func param(params []InjectionPoint, index int) (*InjectionPoint, error) {
	if index < 0 || index >= len(params) {
		return nil, fmt.Errorf("parameter index %d out of range [0, %d)", index, len(params))
	}
	return &params[index], nil
}

// WithQualifier qualifies the constructor parameter at index.
func WithQualifier(index int, q any) ParamOption {
	return func(params []InjectionPoint) error {
		if err := qualifier.Validate(q); err != nil {
			return err
		}
		p, err := param(params, index)
		if err != nil {
			return err
		}
		p.Qualifier = q
		return nil
	}
}

func WithName(index int, name string) ParamOption {
	return WithQualifier(index, Named(name))
}

// WithNullable lets the parameter at index receive the zero value from a null
// binding.
func WithNullable(index int) ParamOption {
	return func(params []InjectionPoint) error {
		p, err := param(params, index)
		if err != nil {
			return err
		}
		p.Nullable = true
		return nil
	}
}

// pointSet is the part every reflective satisfaction shares: a list of
// injection points and the desires built from them.
type pointSet struct {
	points  []InjectionPoint
	desires []Desire
	// declared holds the parameter or field types as written, so Lazy[T]
	// points can be rebuilt from their element type.
	declared []reflect.Type
}

func newPointSet(points []InjectionPoint, declared []reflect.Type) pointSet {
	desires := make([]Desire, len(points))
	for i, p := range points {
		desires[i] = inject.NewDesire(p)
	}
	return pointSet{points: points, desires: desires, declared: declared}
}

func (s *pointSet) Dependencies() []Desire {
	return s.desires
}

// values produces one argument per point. Lazy points get a handle without
// anything being constructed.
func (s *pointSet) values(deps map[Desire]Instantiator) (func() ([]reflect.Value, error), error) {
	insts := make([]Instantiator, len(s.desires))
	for i, d := range s.desires {
		inst, ok := deps[d]
		if !ok {
			return nil, fmt.Errorf("no instantiator for %s", d)
		}
		insts[i] = inst
	}

	return func() ([]reflect.Value, error) {
		args := make([]reflect.Value, len(s.points))
		for i, p := range s.points {
			if p.Lazy {
				args[i] = newLazy(s.declared[i], insts[i])
				continue
			}

			v, err := insts[i].Instantiate()
			if err != nil {
				return nil, err
			}
			args[i] = valueFor(s.declared[i], v)
		}
		return args, nil
	}, nil
}

func valueFor(t reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t && rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out
	}
	return rv
}

// Constructor builds values by calling fn, which must be a non-variadic
// function returning T or (T, error). Each parameter is an injection point.
func Constructor(fn any, opts ...ParamOption) (Satisfaction, error) {
	fv := reflect.ValueOf(fn)
	if fn == nil || fv.Kind() != reflect.Func {
		return nil, errInvalidBinding("constructor must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, errInvalidBinding("constructor %s must not be variadic", ft)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, errInvalidBinding("constructor %s must return T or (T, error)", ft)
	}

	out := ft.Out(0)
	points := make([]InjectionPoint, ft.NumIn())
	declared := make([]reflect.Type, ft.NumIn())
	for i := range points {
		declared[i] = ft.In(i)
		points[i] = pointFor(out, i, "", declared[i])
	}
	for _, opt := range opts {
		if err := opt(points); err != nil {
			return nil, errInvalidBinding("constructor %s: %v", ft, err)
		}
	}

	return &constructorSatisfaction{
		pointSet: newPointSet(points, declared),
		fn:       fv,
		typ:      out,
		hasError: ft.NumOut() == 2,
	}, nil
}

func pointFor(owner reflect.Type, index int, name string, t reflect.Type) InjectionPoint {
	p := InjectionPoint{Owner: owner, Index: index, Name: name, Type: t}
	if elem, ok := lazyElem(t); ok {
		p.Type = elem
		p.Lazy = true
	}
	return p
}

type constructorSatisfaction struct {
	pointSet
	fn       reflect.Value
	typ      reflect.Type
	hasError bool
}

func (s *constructorSatisfaction) Type() reflect.Type {
	return s.typ
}

func (s *constructorSatisfaction) DefaultCachePolicy() CachePolicy {
	return NoPreference
}

func (s *constructorSatisfaction) HasInstance() bool {
	return true
}

func (s *constructorSatisfaction) MakeInstantiator(deps map[Desire]Instantiator) (Instantiator, error) {
	args, err := s.values(deps)
	if err != nil {
		return nil, err
	}

	return inject.InstantiatorFunc(func() (any, error) {
		in, err := args()
		if err != nil {
			return nil, err
		}

		results := s.fn.Call(in)
		if s.hasError && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	}), nil
}

func (s *constructorSatisfaction) String() string {
	return "constructor " + s.fn.Type().String()
}

// Instance always yields v.
func Instance(v any) (Satisfaction, error) {
	if types.IsNil(v) {
		return nil, errInvalidBinding("instance must not be nil; bind to Null instead")
	}
	return &instanceSatisfaction{value: v}, nil
}

type instanceSatisfaction struct {
	value any
}

func (s *instanceSatisfaction) Type() reflect.Type {
	return reflect.TypeOf(s.value)
}

func (s *instanceSatisfaction) Dependencies() []Desire {
	return nil
}

func (s *instanceSatisfaction) DefaultCachePolicy() CachePolicy {
	return Memoize
}

func (s *instanceSatisfaction) HasInstance() bool {
	return true
}

func (s *instanceSatisfaction) MakeInstantiator(map[Desire]Instantiator) (Instantiator, error) {
	return inject.InstantiatorFunc(func() (any, error) {
		return s.value, nil
	}), nil
}

func (s *instanceSatisfaction) String() string {
	return fmt.Sprintf("instance %v", s.value)
}

// Null yields nothing for t. It satisfies nullable points only.
func Null(t reflect.Type) Satisfaction {
	return &nullSatisfaction{typ: t}
}

type nullSatisfaction struct {
	typ reflect.Type
}

func (s *nullSatisfaction) Type() reflect.Type {
	return s.typ
}

func (s *nullSatisfaction) Dependencies() []Desire {
	return nil
}

func (s *nullSatisfaction) DefaultCachePolicy() CachePolicy {
	return Memoize
}

func (s *nullSatisfaction) HasInstance() bool {
	return false
}

func (s *nullSatisfaction) MakeInstantiator(map[Desire]Instantiator) (Instantiator, error) {
	return inject.InstantiatorFunc(func() (any, error) {
		return nil, nil
	}), nil
}

func (s *nullSatisfaction) String() string {
	return "null " + types.ShortName(s.typ)
}

// ProviderFunc wraps fn, a func() T or func() (T, error), which is called for
// every instance. Its default policy is NewInstance.
func ProviderFunc(fn any) (Satisfaction, error) {
	fv := reflect.ValueOf(fn)
	if fn == nil || fv.Kind() != reflect.Func {
		return nil, errInvalidBinding("provider must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.NumIn() != 0 {
		return nil, errInvalidBinding("provider %s must not take parameters; use a constructor", ft)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, errInvalidBinding("provider %s must return T or (T, error)", ft)
	}

	return &providerSatisfaction{fn: fv, typ: ft.Out(0), hasError: ft.NumOut() == 2}, nil
}

type providerSatisfaction struct {
	fn       reflect.Value
	typ      reflect.Type
	hasError bool
}

func (s *providerSatisfaction) Type() reflect.Type {
	return s.typ
}

func (s *providerSatisfaction) Dependencies() []Desire {
	return nil
}

func (s *providerSatisfaction) DefaultCachePolicy() CachePolicy {
	return NewInstance
}

func (s *providerSatisfaction) HasInstance() bool {
	return true
}

func (s *providerSatisfaction) MakeInstantiator(map[Desire]Instantiator) (Instantiator, error) {
	return inject.InstantiatorFunc(func() (any, error) {
		results := s.fn.Call(nil)
		if s.hasError && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	}), nil
}

func (s *providerSatisfaction) String() string {
	return "provider " + s.fn.Type().String()
}
