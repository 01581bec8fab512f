package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfiguration
	KindNotFound
	KindConflict
	KindNetwork
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindNetwork:
		return "network"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindValidation:
		return 2
	case KindConfiguration:
		return 3
	case KindNotFound:
		return 4
	case KindConflict:
		return 5
	case KindNetwork:
		return 6
	case KindIntegrity:
		return 7
	default:
		return 1
	}
}

// Error is a classified error. Paths is populated for conflicts.
type Error struct {
	Kind  Kind
	Msg   string
	Paths []string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if len(e.Paths) > 0 {
		b.WriteString(":")
		for _, p := range e.Paths {
			b.WriteString("\n  - ")
			b.WriteString(p)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Validationf reports malformed or mutually exclusive input.
func Validationf(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

// Configurationf reports a missing or invalid configuration value.
func Configurationf(format string, args ...any) error {
	return newf(KindConfiguration, format, args...)
}

// NotFoundf reports an absent component, version, or lock entry.
func NotFoundf(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

// Networkf reports a transport failure other than not-found.
func Networkf(format string, args ...any) error {
	return newf(KindNetwork, format, args...)
}

// Integrityf reports a content hash mismatch against a trusted lock entry.
func Integrityf(format string, args ...any) error {
	return newf(KindIntegrity, format, args...)
}

// Conflict reports paths that would be overwritten without an explicit force.
func Conflict(msg string, paths []string) error {
	return &Error{Kind: KindConflict, Msg: msg, Paths: paths}
}

// Wrap classifies err under kind with a message prefix.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	e := newf(kind, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err's chain carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ConflictPaths returns the paths attached to a conflict error, if any.
func ConflictPaths(err error) []string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindConflict {
		return e.Paths
	}
	return nil
}
