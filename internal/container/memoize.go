package container

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/types"
)

// memoized runs raw at most once successfully. Callers that arrive while the
// first construction is running wait for it and get the same value. A failed
// construction is not remembered; the next call tries again.
//
// A call from the goroutine that is running the construction, which happens
// when a constructor dereferences a lazy handle to its own ancestor, fails
// with CyclicDependency instead of waiting on itself.
type memoized struct {
	raw   inject.Instantiator
	typ   reflect.Type
	mu    sync.Mutex
	done  atomic.Bool
	owner atomic.Uint64
	value any
}

func (m *memoized) Instantiate() (any, error) {
	if m.done.Load() {
		return m.value, nil
	}

	g := goroutineID()
	if g != 0 && m.owner.Load() == g {
		return nil, errs.Newf(
			errs.CodeCyclicDependency, "instance requested while it is being constructed",
		).WithType(types.Name(m.typ))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done.Load() {
		return m.value, nil
	}

	m.owner.Store(g)
	defer m.owner.Store(0)

	v, err := m.raw.Instantiate()
	if err != nil {
		return nil, err
	}

	m.value = v
	m.done.Store(true)
	return v, nil
}

func (m *memoized) release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.done.Store(false)
	m.value = nil
}
