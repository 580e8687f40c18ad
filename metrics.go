package thimble

import (
	"reflect"
	"time"
)

// ResolveHook observes every graph computation, cached or not.
type ResolveHook func(t reflect.Type, duration time.Duration, err error)

// InstantiateHook observes every instantiator invocation, including memoized
// ones that return a cached value.
type InstantiateHook func(t reflect.Type, duration time.Duration, err error)
