package imaging

import (
	"errors"
	"fmt"
)

var (
	// ErrCrossOriginBlocked is returned when a remote image was served without
	// an Access-Control-Allow-Origin header that admits the editor origin.
	// Pixel data from such a response must not be read.
	ErrCrossOriginBlocked = errors.New("cross-origin pixel access blocked")

	// ErrHandleNotFound is returned when a transient handle is unknown or has
	// already been released.
	ErrHandleNotFound = errors.New("transient handle not found or released")

	// ErrUnsupportedLocator is returned for locators with an unknown scheme or
	// a malformed data URI.
	ErrUnsupportedLocator = errors.New("unsupported locator")

	// ErrEmptyImage is returned when a decoded image has zero width or height.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrTooLarge is returned when a remote image exceeds the download limit.
	ErrTooLarge = errors.New("image exceeds maximum download size")

	// ErrInvalidParameter is wrapped by TransformError for out-of-range
	// operation parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// DecodeError reports that a locator could not be resolved or decoded.
type DecodeError struct {
	Locator Locator
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Locator.Redacted(), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransformError reports an operation that was rejected before any pixels
// were touched.
type TransformError struct {
	Op  string
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err carries a DecodeError anywhere in its chain.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsCrossOriginBlocked reports whether err was caused by a cross-origin
// pixel-read restriction.
func IsCrossOriginBlocked(err error) bool {
	return errors.Is(err, ErrCrossOriginBlocked)
}

// IsTransformError reports whether err carries a TransformError.
func IsTransformError(err error) bool {
	var te *TransformError
	return errors.As(err, &te)
}

func invalidf(op, format string, args ...interface{}) error {
	return &TransformError{Op: op, Err: fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))}
}
