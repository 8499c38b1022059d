package transfer

import (
	"errors"

	"dropsort/archive"
	"dropsort/storage"
)

var (
	// ErrEmptyInput rejects a request without files or without an archive reference.
	ErrEmptyInput = errors.New("transfer: no files provided")
	// ErrTransferCreationFailed means every attempt collided on its token.
	ErrTransferCreationFailed = errors.New("transfer: creation failed")
	// ErrInvalidToken rejects a lookup key that is not shaped like a token.
	ErrInvalidToken = errors.New("transfer: invalid token")
	// ErrLinkArtifact means the link artifact could not be rendered.
	ErrLinkArtifact = errors.New("transfer: link artifact render failed")
)

// Re-exported so callers need only this package for errors.Is checks.
var (
	ErrStaging         = archive.ErrStaging
	ErrArchiveNotFound = archive.ErrArchiveNotFound
	ErrCorruptArchive  = archive.ErrCorruptArchive
	ErrDuplicateToken  = storage.ErrDuplicateToken
	ErrNotFound        = storage.ErrNotFound
)

// ErrorKind tells a caller what to do about a failure.
type ErrorKind string

const (
	// KindNone is returned for a nil error.
	KindNone ErrorKind = ""
	// KindInput means the request must be fixed before retrying.
	KindInput ErrorKind = "input"
	// KindTransient means the same request may succeed later.
	KindTransient ErrorKind = "transient"
	// KindPermanent means retrying cannot help.
	KindPermanent ErrorKind = "permanent"
	// KindUnknown covers errors outside the taxonomy.
	KindUnknown ErrorKind = "unknown"
)

// KindOf maps an error from this package to its kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrArchiveNotFound), errors.Is(err, ErrNotFound):
		return KindInput
	case errors.Is(err, ErrCorruptArchive):
		return KindPermanent
	case errors.Is(err, ErrStaging), errors.Is(err, ErrTransferCreationFailed),
		errors.Is(err, ErrLinkArtifact), errors.Is(err, ErrDuplicateToken):
		return KindTransient
	default:
		return KindUnknown
	}
}
