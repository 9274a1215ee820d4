package decode

import "github.com/pkg/errors"

// DecodingError is returned when a JSON response doesn't have the expected
// shape: type mismatch, malformed timestamp or URL, or missing required
// nested object.
type DecodingError struct {
	Message string
	Err     error
}

func newDecodingError(err error) *DecodingError {
	return &DecodingError{
		Message: err.Error(),
		Err:     err,
	}
}

// Error implements error
func (e *DecodingError) Error() string {
	return "failed to decode response: " + e.Message
}

// Unwrap returns the wrapped parse error.
func (e *DecodingError) Unwrap() error {
	return e.Err
}

// Cause returns the original parse error, without the field context.
func (e *DecodingError) Cause() error {
	return errors.Cause(e.Err)
}

// asDecodingError wraps err in a DecodingError unless it is already one.
func asDecodingError(err error) error {
	if err == nil {
		return nil
	}

	var decErr *DecodingError
	if errors.As(err, &decErr) {
		return decErr
	}

	return newDecodingError(err)
}
