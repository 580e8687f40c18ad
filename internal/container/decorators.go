package container

import (
	"fmt"
	"reflect"
)

type DecoratorFunc func(v any) (any, error)

// AddDecorator registers fn for every value constructed for a satisfaction of
// type t. Decorators run in registration order, before memoization.
func (c *Container) AddDecorator(t reflect.Type, fn DecoratorFunc) {
	c.decoratorsMu.Lock()
	defer c.decoratorsMu.Unlock()

	c.decorators[t] = append(c.decorators[t], fn)
}

func (c *Container) applyDecorators(t reflect.Type, v any) (any, error) {
	c.decoratorsMu.RLock()
	decorators := c.decorators[t]
	c.decoratorsMu.RUnlock()

	if len(decorators) == 0 {
		return v, nil
	}

	var err error
	for _, decorator := range decorators {
		v, err = decorator(v)
		if err != nil {
			return nil, fmt.Errorf("decorator for %s: %w", t, err)
		}
	}

	return v, nil
}
