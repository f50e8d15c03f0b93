package docstore

import (
	"errors"
	"fmt"

	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/planner"
	"github.com/object-layer/document-store/internal/schema"
)

// Kind classifies an Error (spec §7).
type Kind int

const (
	KindConfigError Kind = iota
	KindIndexNotFound
	KindDocumentNotFound
	KindDocumentExists
	KindInvalidKey
	KindInvalidDocument
	KindReAddNotSupported
	KindCannotDowngrade
	KindTransactionMisuse
	KindBackendError
)

func (k Kind) String() string {
	switch k {
	case KindConfigError:
		return "ConfigError"
	case KindIndexNotFound:
		return "IndexNotFound"
	case KindDocumentNotFound:
		return "DocumentNotFound"
	case KindDocumentExists:
		return "DocumentExists"
	case KindInvalidKey:
		return "InvalidKey"
	case KindInvalidDocument:
		return "InvalidDocument"
	case KindReAddNotSupported:
		return "ReAddNotSupported"
	case KindCannotDowngrade:
		return "CannotDowngrade"
	case KindTransactionMisuse:
		return "TransactionMisuse"
	case KindBackendError:
		return "BackendError"
	default:
		return "Unknown"
	}
}

// Error is the error type every docstore operation returns on failure. It
// is errors.Is/errors.As-friendly: compare against a Kind with IsKind, or
// unwrap to inspect the underlying cause, mirroring the
// fmt.Errorf("...: %w", err) wrapping convention used throughout beads'
// internal/storage/convex package.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docstore: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("docstore: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// classifyErr maps an internal package error to the Kind the facade
// promises callers (spec §7): most internal errors are already specific
// (planner.ErrIndexNotFound, schema's sentinel-wrapped errors); anything
// else is reported as a BackendError.
func classifyErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	switch {
	case errors.Is(err, kvs.ErrNotFound):
		return newError(KindDocumentNotFound, op, err)
	case errors.Is(err, kvs.ErrExists):
		return newError(KindDocumentExists, op, err)
	case errors.Is(err, planner.ErrIndexNotFound):
		return newError(KindIndexNotFound, op, err)
	case schema.IsCannotDowngrade(err):
		return newError(KindCannotDowngrade, op, err)
	case schema.IsLegacySchema(err):
		return newError(KindConfigError, op, err)
	case schema.IsReAddNotSupported(err):
		return newError(KindReAddNotSupported, op, err)
	case schema.IsInvalidIndex(err):
		return newError(KindConfigError, op, err)
	default:
		return newError(KindBackendError, op, err)
	}
}
