package serial

import (
	"io"

	"go.bug.st/serial"
)

// Transport is one open serial port. Read blocks at most until the
// configured read timeout and returns (0, nil) when it expires with no
// data. One concurrent reader and one concurrent writer are allowed.
type Transport interface {
	io.ReadWriteCloser
}

// OpenFunc opens a Transport for the given configuration. The Manager
// takes it as a dependency so tests can substitute a scripted transport.
type OpenFunc func(cfg PortConfig) (Transport, error)

// OpenPort opens a physical serial port with go.bug.st/serial.
func OpenPort(cfg PortConfig) (Transport, error) {
	port, err := serial.Open(cfg.Port, cfg.toSerialMode())
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout()); err != nil {
		port.Close()
		return nil, err
	}

	return port, nil
}
