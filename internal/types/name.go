package types

import (
	"reflect"
	"strconv"
	"sync"
)

var nameCache sync.Map

func For[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Name returns a stable, package-qualified name for t. Unlike t.String() it
// includes the full import path, so two packages with the same base name never
// collide.
func Name(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := nameCache.Load(t); ok {
		return cached.(string)
	}

	name := buildName(t)
	nameCache.Store(t, name)
	return name
}

func buildName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildName(t.Elem())
	case reflect.Slice:
		return "[]" + buildName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildName(t.Elem())
	case reflect.Map:
		return "map[" + buildName(t.Key()) + "]" + buildName(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildName(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildName(t.Elem())
		default:
			return "chan " + buildName(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

// ShortName strips the import path, keeping pointer and slice prefixes.
func ShortName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func IsInterface(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Interface
}
