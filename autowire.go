package thimble

import (
	"reflect"
	"strings"

	"github.com/danpasecinic/thimble/internal/inject"
)

const TagKey = "thimble"

type fieldSpec struct {
	index    int
	name     string
	named    string
	optional bool
}

func parseTag(tag string) (named string, optional bool) {
	parts := strings.Split(tag, ",")
	named = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "optional", "nullable":
			optional = true
		}
	}
	return named, optional
}

// structFields lists the fields of s carrying a thimble tag.
func structFields(s reflect.Type) ([]fieldSpec, error) {
	var fields []fieldSpec
	for i := range s.NumField() {
		f := s.Field(i)
		tag, ok := f.Tag.Lookup(TagKey)
		if !ok || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return nil, errInvalidBinding("cannot inject unexported field %s.%s", s, f.Name)
		}

		named, optional := parseTag(tag)
		fields = append(fields, fieldSpec{index: i, name: f.Name, named: named, optional: optional})
	}
	return fields, nil
}

// Struct builds values of t, a struct or pointer to struct, by setting every
// field tagged `thimble:"[name][,optional]"`. A name qualifies the field with
// Named(name); optional fields accept null bindings.
func Struct(t reflect.Type) (Satisfaction, error) {
	s := t
	if s != nil && s.Kind() == reflect.Ptr {
		s = s.Elem()
	}
	if s == nil || s.Kind() != reflect.Struct {
		return nil, errInvalidBinding("struct injection requires a struct type, got %v", t)
	}

	fields, err := structFields(s)
	if err != nil {
		return nil, err
	}

	points := make([]InjectionPoint, len(fields))
	declared := make([]reflect.Type, len(fields))
	for i, f := range fields {
		declared[i] = s.Field(f.index).Type
		p := pointFor(t, i, f.name, declared[i])
		if f.named != "" {
			p.Qualifier = Named(f.named)
		}
		p.Nullable = f.optional
		points[i] = p
	}

	return &structSatisfaction{
		pointSet: newPointSet(points, declared),
		typ:      t,
		elem:     s,
		fields:   fields,
	}, nil
}

// injectable reports whether t can be built by struct injection without any
// binding: a struct, or pointer to one, that has no fields or at least one
// tagged field.
func injectable(t reflect.Type) bool {
	s := t
	if s.Kind() == reflect.Ptr {
		s = s.Elem()
	}
	if s.Kind() != reflect.Struct {
		return false
	}
	if s.NumField() == 0 {
		return true
	}
	for i := range s.NumField() {
		if _, ok := s.Field(i).Tag.Lookup(TagKey); ok {
			return true
		}
	}
	return false
}

type structSatisfaction struct {
	pointSet
	typ    reflect.Type
	elem   reflect.Type
	fields []fieldSpec
}

func (s *structSatisfaction) Type() reflect.Type {
	return s.typ
}

func (s *structSatisfaction) DefaultCachePolicy() CachePolicy {
	return NoPreference
}

func (s *structSatisfaction) HasInstance() bool {
	return true
}

func (s *structSatisfaction) MakeInstantiator(deps map[Desire]Instantiator) (Instantiator, error) {
	values, err := s.values(deps)
	if err != nil {
		return nil, err
	}

	return inject.InstantiatorFunc(func() (any, error) {
		in, err := values()
		if err != nil {
			return nil, err
		}

		ptr := reflect.New(s.elem)
		for i, f := range s.fields {
			ptr.Elem().Field(f.index).Set(in[i])
		}

		if s.typ.Kind() == reflect.Ptr {
			return ptr.Interface(), nil
		}
		return ptr.Elem().Interface(), nil
	}), nil
}

func (s *structSatisfaction) String() string {
	return "struct " + s.typ.String()
}
