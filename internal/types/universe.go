// Package types answers the type-hierarchy questions the resolver asks:
// whether one type can stand in for another, how far apart they are, and how a
// type name read back from an encoded matcher maps to a runtime type.
package types

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Universe is the type capability consumed by matching and rule selection.
type Universe interface {
	IsAssignable(sub, super reflect.Type) bool
	// Distance reports the number of hierarchy steps from sub up to super,
	// 0 when they are identical and -1 when sub is not assignable to super.
	Distance(sub, super reflect.Type) int
	Lookup(name string) (reflect.Type, bool)
}

var basicTypes = map[string]reflect.Type{
	"bool":         For[bool](),
	"string":       For[string](),
	"int":          For[int](),
	"int8":         For[int8](),
	"int16":        For[int16](),
	"int32":        For[int32](),
	"int64":        For[int64](),
	"uint":         For[uint](),
	"uint8":        For[uint8](),
	"uint16":       For[uint16](),
	"uint32":       For[uint32](),
	"uint64":       For[uint64](),
	"float32":      For[float32](),
	"float64":      For[float64](),
	"error":        For[error](),
	"interface {}": For[any](),
}

// Registry is a Universe backed by Go's assignability rules plus an explicit
// table of declared parent types. Declared parents give interface embedding
// chains a measurable depth, which reflect alone flattens away.
type Registry struct {
	mu      sync.RWMutex
	parents map[reflect.Type][]reflect.Type
	names   map[string]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{
		parents: make(map[reflect.Type][]reflect.Type),
		names:   make(map[string]reflect.Type),
	}
}

// Register makes ts resolvable by name.
func (r *Registry) Register(ts ...reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range ts {
		r.registerUnsafe(t)
	}
}

func (r *Registry) registerUnsafe(t reflect.Type) {
	for t != nil {
		r.names[Name(t)] = t
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return
		}
	}
}

// DeclareParent records parent as the direct supertype of child.
func (r *Registry) DeclareParent(child, parent reflect.Type) error {
	if child == nil || parent == nil {
		return fmt.Errorf("declare parent: nil type")
	}
	if !child.AssignableTo(parent) {
		return fmt.Errorf("declare parent: %s is not assignable to %s", child, parent)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.parents[child] {
		if p == parent {
			return nil
		}
	}
	r.parents[child] = append(r.parents[child], parent)
	r.registerUnsafe(child)
	r.registerUnsafe(parent)
	return nil
}

func (r *Registry) IsAssignable(sub, super reflect.Type) bool {
	if sub == nil || super == nil {
		return false
	}
	return sub == super || sub.AssignableTo(super)
}

func (r *Registry) Distance(sub, super reflect.Type) int {
	if !r.IsAssignable(sub, super) {
		return -1
	}
	if sub == super {
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	depth := map[reflect.Type]int{sub: 0}
	queue := []reflect.Type{sub}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, p := range r.parents[t] {
			if _, seen := depth[p]; seen {
				continue
			}
			depth[p] = depth[t] + 1
			if p == super {
				return depth[p]
			}
			queue = append(queue, p)
		}
	}

	return 1
}

func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	switch {
	case strings.HasPrefix(name, "*"):
		elem, ok := r.Lookup(name[1:])
		if !ok {
			return nil, false
		}
		return reflect.PointerTo(elem), true
	case strings.HasPrefix(name, "[]"):
		elem, ok := r.Lookup(name[2:])
		if !ok {
			return nil, false
		}
		return reflect.SliceOf(elem), true
	}

	if t, ok := basicTypes[name]; ok {
		return t, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.names[name]
	return t, ok
}
