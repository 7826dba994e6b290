package ginternals

import "errors"

// Error taxonomy shared by every subsystem (object store, tree codec,
// pack decoder, and the clone orchestrator). Components wrap these
// sentinels with xerrors.Errorf("...: %w", ...) so callers can match
// on kind with errors.Is while still getting a descriptive message.
var (
	// ErrObjectNotFound is returned when an object can't be found in
	// the odb.
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectCorrupt is returned when an on-disk or in-pack object
	// can't be parsed (bad header, truncated tree, etc.)
	ErrObjectCorrupt = errors.New("corrupt object")

	// ErrObjectUnknown is returned when an object declares a kind we
	// don't recognize.
	ErrObjectUnknown = errors.New("unknown object kind")

	// ErrUnknownMode is returned when a tree entry uses a file mode
	// the checkout logic doesn't know how to materialize.
	ErrUnknownMode = errors.New("unknown tree entry mode")

	// ErrUnsupportedFeature is returned for protocol/pack features this
	// implementation deliberately doesn't support (OFS_DELTA, tags,
	// non-POSIX symlinks, pack versions other than 2).
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrProtocolFraming is returned when a pkt-line or pack stream
	// can't be parsed.
	ErrProtocolFraming = errors.New("invalid protocol framing")

	// ErrCompression is returned when a zlib stream fails to decode or
	// its decoded size doesn't match what was declared.
	ErrCompression = errors.New("compression error")

	// ErrRefNotFound is returned when trying to act on a reference
	// that doesn't exist.
	ErrRefNotFound = errors.New("reference not found")

	// ErrRefExists is returned when trying to write a reference that
	// should not exist yet, but does.
	ErrRefExists = errors.New("reference already exists")

	// ErrRefNameInvalid is returned when the name of a reference isn't
	// a valid ref name.
	ErrRefNameInvalid = errors.New("reference name is not valid")

	// ErrRefInvalid is returned when a reference's content can't be
	// parsed.
	ErrRefInvalid = errors.New("reference is not valid")

	// ErrUnknownRefType is returned when a Reference carries a type
	// value that isn't Oid or Symbolic.
	ErrUnknownRefType = errors.New("unknown reference type")

	// ErrNoHead is returned by the clone orchestrator when the remote
	// didn't advertise a HEAD ref to check out.
	ErrNoHead = errors.New("remote has no HEAD to check out")
)
