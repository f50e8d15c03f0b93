package schema

import "errors"

var (
	errCannotDowngrade   = errors.New("schema: cannot downgrade a store to an older engine")
	errLegacySchema      = errors.New("schema: legacy record predates this engine's minimum supported version")
	errReAddNotSupported = errors.New("schema: a removed collection cannot be re-declared")
	errInvalidIndex      = errors.New("schema: invalid index definition")
)

// IsCannotDowngrade reports whether err indicates a persisted record newer
// than this engine supports.
func IsCannotDowngrade(err error) bool { return errors.Is(err, errCannotDowngrade) }

// IsLegacySchema reports whether err indicates a persisted record too old
// for this engine to auto-upgrade.
func IsLegacySchema(err error) bool { return errors.Is(err, errLegacySchema) }

// IsReAddNotSupported reports whether err indicates an attempt to
// re-declare a collection that was previously removed.
func IsReAddNotSupported(err error) bool { return errors.Is(err, errReAddNotSupported) }

// IsInvalidIndex reports whether err indicates a malformed declared index,
// such as a computed property with no name.
func IsInvalidIndex(err error) bool { return errors.Is(err, errInvalidIndex) }
