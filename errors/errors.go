package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorSetup
	ErrorTransport
	ErrorRequest
	ErrorResource
	ErrorSupervisor
)

func (t ErrorType) String() string {
	switch t {
	case ErrorSetup:
		return "Setup"
	case ErrorTransport:
		return "Transport"
	case ErrorRequest:
		return "Request"
	case ErrorResource:
		return "Resource"
	case ErrorSupervisor:
		return "Supervisor"
	default:
		return "Unknown"
	}
}

// SetupError represents failures while bringing a listening socket up.
// These are fatal to the owning worker and never retried.
type SetupError int

const (
	SetupErrorNone SetupError = iota
	SetupErrorInvalidEndpoint
	SetupErrorSocketCreate
	SetupErrorSocketOption
	SetupErrorBind
	SetupErrorListen
	SetupErrorIoUringInit
	SetupErrorUnknownEngine
	SetupErrorInvalidConfig
)

// TransportError represents per-connection I/O failures
type TransportError int

const (
	TransportErrorNone TransportError = iota
	TransportErrorAcceptFailure
	TransportErrorSocketReadFailure
	TransportErrorSocketWriteFailure
	TransportErrorSocketCloseFailure
	TransportErrorSocketConnectFailure
	TransportErrorConnectionClosed
	TransportErrorListenerClosed
	TransportErrorIoUringSubmit
)

// RequestError represents a request that could not be understood
type RequestError int

const (
	RequestErrorNone RequestError = iota
	RequestErrorInvalidUtf8
	RequestErrorUnsupportedMethod
	RequestErrorMissingPath
	RequestErrorInvalidStatusLine
	RequestErrorIncompleteResponse
)

// ResourceError represents a path that did not resolve to anything servable
type ResourceError int

const (
	ResourceErrorNone ResourceError = iota
	ResourceErrorNotFound
	ResourceErrorNotReadable
	ResourceErrorNotRegular
)

// SupervisorError represents failures of the primary process
type SupervisorError int

const (
	SupervisorErrorNone SupervisorError = iota
	SupervisorErrorSpawnFailure
	SupervisorErrorNoChildren
	SupervisorErrorSignalFailure
	SupervisorErrorWaitFailure
	SupervisorErrorUnknownMode
)

// ServerError is the single error type returned across package boundaries
type ServerError struct {
	Type          ErrorType
	SetupErr      SetupError
	TransportErr  TransportError
	RequestErr    RequestError
	ResourceErr   ResourceError
	SupervisorErr SupervisorError
	Message       string
	UnderlyingErr error
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e == nil {
		return "no error"
	}

	var code int
	switch e.Type {
	case ErrorSetup:
		code = int(e.SetupErr)
	case ErrorTransport:
		code = int(e.TransportErr)
	case ErrorRequest:
		code = int(e.RequestErr)
	case ErrorResource:
		code = int(e.ResourceErr)
	case ErrorSupervisor:
		code = int(e.SupervisorErr)
	}

	typeStr := fmt.Sprintf("%s error (%d)", e.Type, code)
	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *ServerError) Unwrap() error {
	return e.UnderlyingErr
}

// NewSetupError creates a new setup error
func NewSetupError(err SetupError, message string, underlying error) *ServerError {
	return &ServerError{
		Type:          ErrorSetup,
		SetupErr:      err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewTransportError creates a new transport error
func NewTransportError(err TransportError, message string, underlying error) *ServerError {
	return &ServerError{
		Type:          ErrorTransport,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewRequestError creates a new request error
func NewRequestError(err RequestError, message string, underlying error) *ServerError {
	return &ServerError{
		Type:          ErrorRequest,
		RequestErr:    err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewResourceError creates a new resource error
func NewResourceError(err ResourceError, message string, underlying error) *ServerError {
	return &ServerError{
		Type:          ErrorResource,
		ResourceErr:   err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewSupervisorError creates a new supervisor error
func NewSupervisorError(err SupervisorError, message string, underlying error) *ServerError {
	return &ServerError{
		Type:          ErrorSupervisor,
		SupervisorErr: err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// IsType reports whether any *ServerError in err's chain has the given type
func IsType(err error, t ErrorType) bool {
	var se *ServerError
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Type == t
}

// IsTransport reports whether err is a transport error with the given code
func IsTransport(err error, code TransportError) bool {
	var se *ServerError
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Type == ErrorTransport && se.TransportErr == code
}

// IsSetup reports whether err is a setup error with the given code
func IsSetup(err error, code SetupError) bool {
	var se *ServerError
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Type == ErrorSetup && se.SetupErr == code
}
