package editor

import "errors"

// ValidationError is a local input problem detected before any request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrEmptyPrompt  = &ValidationError{Message: "Please enter a prompt!"}
	ErrMissingImage = &ValidationError{Message: "Please upload an image to edit!"}

	// ErrBusy is returned by Submit while another submission is in flight.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("editor session is closed")
)

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
