package thimble

import (
	"context"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/types"
)

// Get resolves and instantiates T.
func Get[T any](i *Injector) (T, error) {
	return GetCtx[T](context.Background(), i, nil)
}

// GetNamed resolves and instantiates T qualified with Named(name).
func GetNamed[T any](i *Injector, name string) (T, error) {
	return GetCtx[T](context.Background(), i, Named(name))
}

func GetCtx[T any](ctx context.Context, i *Injector, q any) (T, error) {
	var zero T
	t := TypeOf[T]()

	v, err := i.GetInstanceCtx(ctx, t, q)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, errs.Newf(
			ErrCodeConstructionFailure, "instance of %T is not a %s", v, types.ShortName(t),
		).WithType(types.Name(t))
	}
	return typed, nil
}

func MustGet[T any](i *Injector) T {
	v, err := Get[T](i)
	if err != nil {
		panic(err)
	}
	return v
}

func MustGetNamed[T any](i *Injector, name string) T {
	v, err := GetNamed[T](i, name)
	if err != nil {
		panic(err)
	}
	return v
}

// TryGet is Get without the error.
func TryGet[T any](i *Injector) (T, bool) {
	v, err := Get[T](i)
	return v, err == nil
}

// Has reports whether T can be resolved. Nothing is instantiated.
func Has[T any](i *Injector) bool {
	_, err := i.Resolve(NewDesire(TypeOf[T](), nil))
	return err == nil
}

func HasNamed[T any](i *Injector, name string) bool {
	_, err := i.Resolve(NewDesire(TypeOf[T](), Named(name)))
	return err == nil
}
