// Package serial implements the connection lifecycle for a single serial
// terminal session: opening a port, a background line reader, and command
// dispatch.
package serial

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// AllowedBaudRates is the fixed set of baud rates the terminal supports.
var AllowedBaudRates = []int{9600, 19200, 38400, 57600, 115200}

// Parity represents the parity setting for serial communication
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// String returns the string representation of Parity
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return "unknown"
	}
}

// StopBits represents the stop bits setting
type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits2
)

// String returns the string representation of StopBits
func (s StopBits) String() string {
	switch s {
	case StopBits1:
		return "1"
	case StopBits2:
		return "2"
	default:
		return "unknown"
	}
}

// LineEnding is the terminator appended to outgoing commands.
type LineEnding int

const (
	LineEndingLF LineEnding = iota
	LineEndingCRLF
	LineEndingCR
)

// String returns the string representation of LineEnding
func (l LineEnding) String() string {
	switch l {
	case LineEndingLF:
		return "lf"
	case LineEndingCRLF:
		return "crlf"
	case LineEndingCR:
		return "cr"
	default:
		return "unknown"
	}
}

// Terminator returns the byte sequence this line ending stands for.
func (l LineEnding) Terminator() string {
	switch l {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// PortConfig represents the configuration for one serial connection.
// It is immutable once a connection has been opened with it.
type PortConfig struct {
	Port          string
	BaudRate      int
	DataBits      int
	StopBits      StopBits
	Parity        Parity
	LineEnding    LineEnding
	ReadTimeoutMs int
}

// DefaultPortConfig returns a default port configuration
func DefaultPortConfig() PortConfig {
	return PortConfig{
		BaudRate:      115200,
		DataBits:      8,
		StopBits:      StopBits1,
		Parity:        ParityNone,
		LineEnding:    LineEndingLF,
		ReadTimeoutMs: 100,
	}
}

// Validate checks if the configuration is valid
func (c PortConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: port name is required", ErrInvalidConfig)
	}

	validBaud := false
	for _, rate := range AllowedBaudRates {
		if c.BaudRate == rate {
			validBaud = true
			break
		}
	}
	if !validBaud {
		return fmt.Errorf("%w: baud rate %d not in allowed set %v", ErrInvalidConfig, c.BaudRate, AllowedBaudRates)
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits must be 5-8, got %d", ErrInvalidConfig, c.DataBits)
	}

	if c.StopBits < StopBits1 || c.StopBits > StopBits2 {
		return fmt.Errorf("%w: invalid stop bits value", ErrInvalidConfig)
	}

	if c.Parity < ParityNone || c.Parity > ParitySpace {
		return fmt.Errorf("%w: invalid parity value", ErrInvalidConfig)
	}

	if c.LineEnding < LineEndingLF || c.LineEnding > LineEndingCR {
		return fmt.Errorf("%w: invalid line ending value", ErrInvalidConfig)
	}

	if c.ReadTimeoutMs < 0 {
		return fmt.Errorf("%w: read timeout cannot be negative", ErrInvalidConfig)
	}

	return nil
}

// ReadTimeout returns the bounded read timeout for the reader loop.
func (c PortConfig) ReadTimeout() time.Duration {
	if c.ReadTimeoutMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// toSerialMode converts PortConfig to serial.Mode for the underlying library
func (c PortConfig) toSerialMode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch c.StopBits {
	case StopBits1:
		mode.StopBits = serial.OneStopBit
	case StopBits2:
		mode.StopBits = serial.TwoStopBits
	}

	switch c.Parity {
	case ParityNone:
		mode.Parity = serial.NoParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	}

	return mode
}

// ParseParity converts a parity string into a Parity enum.
func ParseParity(value string) (Parity, error) {
	switch strings.ToLower(value) {
	case "", "none":
		return ParityNone, nil
	case "odd":
		return ParityOdd, nil
	case "even":
		return ParityEven, nil
	case "mark":
		return ParityMark, nil
	case "space":
		return ParitySpace, nil
	default:
		return ParityNone, fmt.Errorf("%w: invalid parity %q", ErrInvalidConfig, value)
	}
}

// ParseStopBits converts a stop bits integer into a StopBits enum.
func ParseStopBits(value int) (StopBits, error) {
	switch value {
	case 1:
		return StopBits1, nil
	case 2:
		return StopBits2, nil
	default:
		return StopBits1, fmt.Errorf("%w: invalid stop bits %d", ErrInvalidConfig, value)
	}
}

// ParseLineEnding converts a line ending string into a LineEnding enum.
func ParseLineEnding(value string) (LineEnding, error) {
	switch strings.ToLower(value) {
	case "", "lf":
		return LineEndingLF, nil
	case "crlf":
		return LineEndingCRLF, nil
	case "cr":
		return LineEndingCR, nil
	default:
		return LineEndingLF, fmt.Errorf("%w: invalid line ending %q", ErrInvalidConfig, value)
	}
}
