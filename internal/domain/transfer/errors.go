package transfer

import "errors"

var (
	// ErrUnsupportedMedia is returned for uploads whose name is not a bundle.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrNotFound is returned when no component matches a download request.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is returned when the matched component cannot be downloaded.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("bundle too large")
	// ErrInternal wraps failures after input validation.
	ErrInternal = errors.New("internal error")
)
