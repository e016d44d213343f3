package serial

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ConnState is the lifecycle state of the single supported connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
)

// String returns the string representation of ConnState
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Display prefixes for LogEntry values.
const (
	PrefixData  = ""
	PrefixEcho  = "> "
	PrefixInfo  = "[INFO] "
	PrefixError = "[ERROR] "
)

// LogEntry is one timestamped, prefixed unit of text destined for the
// terminal view. Entries are consumed immediately and not retained here.
type LogEntry struct {
	Timestamp time.Time
	Prefix    string
	Text      string
}

// eventBufferSize bounds the delivery channel to the terminal view.
const eventBufferSize = 256

// Manager owns the lifecycle of the single active connection and
// serializes all access to the transport handle. The reader goroutine it
// spawns never touches shared state directly; teardown on a read error
// goes through the same mutex that guards Connect, Disconnect and Send.
type Manager struct {
	mu        sync.Mutex
	state     ConnState
	transport Transport
	cfg       PortConfig
	sessionID string
	stop      chan struct{}
	done      chan struct{}

	events chan LogEntry
	open   OpenFunc
	log    *log.Logger
}

// NewManager creates a connection manager. A nil open falls back to
// opening physical ports; a nil logger discards debug traces.
func NewManager(open OpenFunc, logger *log.Logger) *Manager {
	if open == nil {
		open = OpenPort
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Manager{
		open:   open,
		log:    logger,
		events: make(chan LogEntry, eventBufferSize),
	}
}

// Events returns the delivery channel for log entries. Entries arrive in
// emission order; the consumer decides its own threading model. The
// channel stays open for the lifetime of the manager.
func (m *Manager) Events() <-chan LogEntry {
	return m.events
}

// Connect opens the port described by cfg and starts the reader loop.
// It fails with ErrAlreadyConnected while a connection is open and with
// ErrPortUnavailable when the transport cannot be opened.
func (m *Manager) Connect(cfg PortConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}

	tr, err := m.open(cfg)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s: %v", ErrPortUnavailable, cfg.Port, err)
	}

	session := uuid.New().String()
	m.transport = tr
	m.cfg = cfg
	m.sessionID = session
	m.state = StateConnected
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	// The lifecycle notice goes out before the reader starts so device
	// data arriving right after open can never precede it.
	m.emit(LogEntry{
		Prefix: PrefixInfo,
		Text:   fmt.Sprintf("Connected to %s at %d baud", cfg.Port, cfg.BaudRate),
	})
	go m.readLoop(tr, m.stop, m.done)
	m.mu.Unlock()

	m.log.Debug("connected", "port", cfg.Port, "baud", cfg.BaudRate, "session", session)

	return nil
}

// Disconnect stops the reader loop, closes the transport and returns the
// connection to the disconnected state. Calling it while disconnected is
// a no-op. The reader is joined before the transport is closed so a close
// can never race an in-flight read.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return nil
	}

	m.state = StateDisconnected
	tr := m.transport
	stop, done := m.stop, m.done
	port, session := m.cfg.Port, m.sessionID
	m.transport = nil
	m.mu.Unlock()

	close(stop)
	<-done
	err := tr.Close()

	m.log.Debug("disconnected", "port", port, "session", session)
	m.emit(LogEntry{Prefix: PrefixInfo, Text: "Disconnected"})

	return err
}

// readerFailed tears the connection down after a fatal read or decode
// error. The state flip and the error entry happen under the same mutex
// hold, so a reconnect racing this teardown cannot slot its own notice
// in front of the error. The flip also excludes an in-flight Send, so
// closing the transport afterwards cannot interrupt a write. If
// Disconnect already flipped the state this does nothing, keeping the
// transition single-shot.
func (m *Manager) readerFailed(cause error) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	m.state = StateDisconnected
	tr := m.transport
	port, session := m.cfg.Port, m.sessionID
	m.transport = nil
	m.emit(LogEntry{
		Prefix: PrefixError,
		Text:   fmt.Sprintf("Serial error: %v (disconnected)", cause),
	})
	m.mu.Unlock()

	_ = tr.Close()

	m.log.Error("read failed", "port", port, "session", session, "err", cause)
}

// Send trims text, appends the configured line terminator and writes the
// result through the transport. Blank input is a no-op. A write failure
// is reported with ErrWriteFailed and leaves the connection open.
func (m *Manager) Send(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		return ErrNotConnected
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	payload := trimmed + m.cfg.LineEnding.Terminator()
	if _, err := m.transport.Write([]byte(payload)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	m.log.Debug("sent", "port", m.cfg.Port, "bytes", len(payload))
	m.emit(LogEntry{Prefix: PrefixEcho, Text: trimmed})

	return nil
}

// IsConnected reports whether a connection is currently open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the identifier of the current or most recent
// connected period. It is empty before the first Connect.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Config returns the configuration of the current or most recent
// connection.
func (m *Manager) Config() PortConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// emit delivers an entry without ever blocking the core. When the
// consumer falls behind the buffered channel, the entry is dropped.
func (m *Manager) emit(e LogEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	select {
	case m.events <- e:
	default:
		m.log.Warn("event channel full, dropping entry", "prefix", e.Prefix)
	}
}
