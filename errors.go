package thimble

import (
	"errors"

	"github.com/danpasecinic/thimble/internal/errs"
)

type (
	Error     = errs.Error
	ErrorCode = errs.Code
)

const (
	ErrCodeUnknown                 = errs.CodeUnknown
	ErrCodeUnsatisfiableDependency = errs.CodeUnsatisfiableDependency
	ErrCodeRewriteCycle            = errs.CodeRewriteCycle
	ErrCodeNullComponent           = errs.CodeNullComponent
	ErrCodeConstructionFailure     = errs.CodeConstructionFailure
	ErrCodeAmbiguousBinding        = errs.CodeAmbiguousBinding
	ErrCodeCyclicDependency        = errs.CodeCyclicDependency
	ErrCodeTypeResolution          = errs.CodeTypeResolution
	ErrCodeInvalidBinding          = errs.CodeInvalidBinding
	ErrCodeContainerClosed         = errs.CodeContainerClosed
)

func errInvalidBinding(format string, args ...any) *Error {
	return errs.Newf(ErrCodeInvalidBinding, format, args...)
}

func invalidBinding(cause error) *Error {
	return errs.New(ErrCodeInvalidBinding, "invalid binding", cause)
}

func errConstruction(typ string, cause error) *Error {
	var e *Error
	if errors.As(cause, &e) {
		return e
	}
	return errs.New(ErrCodeConstructionFailure, "construction failed", cause).WithType(typ)
}

func IsUnsatisfiable(err error) bool {
	return errs.HasCode(err, ErrCodeUnsatisfiableDependency)
}

func IsRewriteCycle(err error) bool {
	return errs.HasCode(err, ErrCodeRewriteCycle)
}

func IsNullComponent(err error) bool {
	return errs.HasCode(err, ErrCodeNullComponent)
}

func IsConstructionFailure(err error) bool {
	return errs.HasCode(err, ErrCodeConstructionFailure)
}

func IsAmbiguousBinding(err error) bool {
	return errs.HasCode(err, ErrCodeAmbiguousBinding)
}

func IsCyclicDependency(err error) bool {
	return errs.HasCode(err, ErrCodeCyclicDependency)
}

func IsTypeResolution(err error) bool {
	return errs.HasCode(err, ErrCodeTypeResolution)
}

func IsInvalidBinding(err error) bool {
	return errs.HasCode(err, ErrCodeInvalidBinding)
}

func IsContainerClosed(err error) bool {
	return errs.HasCode(err, ErrCodeContainerClosed)
}
