package instrument

import (
	"errors"
	"fmt"
)

var ErrNoSession = errors.New("no open session")

// ConnectionError reports a failed open or close of the device session.
type ConnectionError struct {
	Op       string
	Endpoint string
	Code     int
	Err      error
}

func (e *ConnectionError) Error() string {
	switch {
	case e.Err != nil && e.Endpoint != "":
		return fmt.Sprintf("%s connection %q failed: %v", e.Op, e.Endpoint, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s connection failed: %v", e.Op, e.Err)
	case e.Endpoint != "":
		return fmt.Sprintf("%s connection %q failed: %d", e.Op, e.Endpoint, e.Code)
	default:
		return fmt.Sprintf("%s connection failed: %d", e.Op, e.Code)
	}
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError carries the command the device rejected and its result code.
// Err is set instead of Code when the command never reached the device.
type CommandError struct {
	Command CommandName
	Code    int
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %s failed: %d", e.Command, e.Code)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ValidationError is raised locally, before anything is sent to the device.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Value)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDevice reports whether err came from the session or command layer.
func IsDevice(err error) bool {
	var ce *ConnectionError
	var cmdErr *CommandError
	return errors.As(err, &ce) || errors.As(err, &cmdErr)
}
