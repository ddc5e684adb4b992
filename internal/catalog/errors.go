package catalog

import "errors"

var (
	// ErrCorruptSnapshot marks a durable snapshot that failed to decode or had
	// the wrong shape. The Manager recovers from it by discarding the snapshot.
	ErrCorruptSnapshot = errors.New("corrupt product snapshot")

	// ErrRemoteFetch wraps failures of the remote collection during a full download.
	ErrRemoteFetch = errors.New("remote fetch failed")

	// ErrQueryUnavailable is returned by a Remote that cannot run the
	// created-after query (missing index, unsupported backend). The Manager
	// falls back to a full download.
	ErrQueryUnavailable = errors.New("incremental query unavailable")
)
