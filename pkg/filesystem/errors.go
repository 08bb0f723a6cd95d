package filesystem

import "errors"

// Error kinds. Every error returned by the library wraps exactly one of these so callers can classify it with
// errors.Is while still reading the underlying cause.
var (
	// ErrIO reports a failure of the backing medium: open, seek, short read, or a read past the end of a file.
	ErrIO = errors.New("i/o error")

	// ErrNotFound reports a missing file, directory entry, or descriptor.
	ErrNotFound = errors.New("not found")

	// ErrCorruptVolume reports on-disc metadata that is present but malformed.
	ErrCorruptVolume = errors.New("corrupt volume")

	// ErrPrecondition reports a call on a closed volume or an invalidated file handle.
	ErrPrecondition = errors.New("precondition violated")
)
