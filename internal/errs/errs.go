package errs

import (
	"errors"
	"fmt"
	"strings"
)

type Code uint16

const (
	CodeUnknown Code = iota
	CodeUnsatisfiableDependency
	CodeRewriteCycle
	CodeNullComponent
	CodeConstructionFailure
	CodeAmbiguousBinding
	CodeCyclicDependency
	CodeTypeResolution
	CodeInvalidBinding
	CodeContainerClosed
)

var codeNames = map[Code]string{
	CodeUnknown:                 "UNKNOWN",
	CodeUnsatisfiableDependency: "UNSATISFIABLE_DEPENDENCY",
	CodeRewriteCycle:            "REWRITE_CYCLE",
	CodeNullComponent:           "NULL_COMPONENT",
	CodeConstructionFailure:     "CONSTRUCTION_FAILURE",
	CodeAmbiguousBinding:        "AMBIGUOUS_BINDING",
	CodeCyclicDependency:        "CYCLIC_DEPENDENCY",
	CodeTypeResolution:          "TYPE_RESOLUTION",
	CodeInvalidBinding:          "INVALID_BINDING",
	CodeContainerClosed:         "CONTAINER_CLOSED",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error carries enough of the resolution state to diagnose a failure: the
// desired type and qualifier, and the context path from the root to the point
// where resolution stopped.
type Error struct {
	Code      Code
	Message   string
	Type      string
	Qualifier string
	Path      []string
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Type != "" {
		b.WriteString(fmt.Sprintf(" type=%q", e.Type))
	}
	if e.Qualifier != "" {
		b.WriteString(fmt.Sprintf(" qualifier=%q", e.Qualifier))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if len(e.Path) > 0 {
		b.WriteString(" (path: ")
		b.WriteString(strings.Join(e.Path, " -> "))
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithType(typ string) *Error {
	e.Type = typ
	return e
}

func (e *Error) WithQualifier(q string) *Error {
	e.Qualifier = q
	return e
}

func (e *Error) WithPath(path []string) *Error {
	e.Path = path
	return e
}

func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
