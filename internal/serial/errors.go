package serial

import "errors"

var (
	// ErrPortUnavailable is returned when the serial port cannot be opened
	ErrPortUnavailable = errors.New("serial port unavailable")

	// ErrAlreadyConnected is returned when Connect is called on an open connection
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected is returned when an operation requires an open connection
	ErrNotConnected = errors.New("not connected")

	// ErrWriteFailed is returned when a write to the port fails mid-session
	ErrWriteFailed = errors.New("write failed")

	// ErrInvalidConfig is returned when a connection configuration is rejected
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidEncoding is returned when received data is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid encoding")
)
