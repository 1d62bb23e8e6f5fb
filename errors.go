package monica

import "errors"

// Errors returned by the server engine and the collaborator stores.
var (
	// ErrNoListener indicates Serve was called without a configured listener.
	ErrNoListener = errors.New("no listener configured")

	// ErrServerRunning indicates Serve was called twice.
	ErrServerRunning = errors.New("server already running")

	// ErrPointNotFound indicates an operation on an unknown monitor point.
	ErrPointNotFound = errors.New("named point doesn't exist")

	// ErrClientClosed indicates use of a client whose connection has ended.
	ErrClientClosed = errors.New("client connection closed")

	// ErrServerReject indicates the server answered a request with an inline
	// "?" protocol error line.
	ErrServerReject = errors.New("request rejected by server")
)
