package upload

import "errors"

var (
	ErrVersionNotFound = errors.New("document version not found")
	// ErrVersionBusy means another attempt currently owns the version.
	ErrVersionBusy = errors.New("document version upload already in progress")
	// ErrAlreadyReady means the version was uploaded before.
	ErrAlreadyReady = errors.New("document version already uploaded")
	// ErrStaleClaim means the claim was lost (reaped or reclaimed) before
	// the attempt could record its result.
	ErrStaleClaim = errors.New("upload claim no longer held")
	// ErrDispatchUnavailable means the job never reached a worker.
	ErrDispatchUnavailable = errors.New("background worker unavailable")
	ErrQueueFull           = errors.New("upload queue full")
	ErrQueueClosed         = errors.New("upload queue closed")
)

// MaxErrorMessageLen bounds the error text persisted on a version.
const MaxErrorMessageLen = 1000

func truncateMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessageLen {
		return msg
	}
	return string(runes[:MaxErrorMessageLen])
}
