package thimble

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/types"
)

// Lazy defers construction of a T until Get is called. A constructor
// parameter or tagged field of type Lazy[T] is a lazy injection point, and a
// dependency cycle is only allowed if it passes through one.
//
// Calling Get from inside the constructor of a memoized component on the same
// cycle returns a CyclicDependency error; call it once construction has
// finished.
type Lazy[T any] struct {
	inst Instantiator
}

// LazyOf wraps inst. It is mostly useful in tests.
func LazyOf[T any](inst Instantiator) Lazy[T] {
	return Lazy[T]{inst: inst}
}

func (l Lazy[T]) Get() (T, error) {
	var zero T
	if l.inst == nil {
		return zero, fmt.Errorf("lazy %s has no instantiator", types.ShortName(types.For[T]()))
	}

	v, err := l.inst.Instantiate()
	if err != nil || v == nil {
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("lazy %s got %T", types.ShortName(types.For[T]()), v)
	}
	return typed, nil
}

func (l Lazy[T]) MustGet() T {
	v, err := l.Get()
	if err != nil {
		panic(err)
	}
	return v
}

func (Lazy[T]) lazyElem() reflect.Type {
	return types.For[T]()
}

func (Lazy[T]) withInstantiator(inst Instantiator) any {
	return Lazy[T]{inst: inst}
}

type lazyHandle interface {
	lazyElem() reflect.Type
	withInstantiator(inst Instantiator) any
}

var lazyHandleType = reflect.TypeFor[lazyHandle]()

// lazyElem reports the T of a Lazy[T] type.
func lazyElem(t reflect.Type) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Struct || !t.Implements(lazyHandleType) {
		return nil, false
	}
	return reflect.Zero(t).Interface().(lazyHandle).lazyElem(), true
}

func newLazy(t reflect.Type, inst Instantiator) reflect.Value {
	return reflect.ValueOf(reflect.Zero(t).Interface().(lazyHandle).withInstantiator(inst))
}
