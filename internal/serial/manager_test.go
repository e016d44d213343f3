package serial

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readStep struct {
	data []byte
	err  error
}

// fakeTransport scripts successive reads and records writes. Once the
// script is exhausted every read behaves like a timeout.
type fakeTransport struct {
	mu     sync.Mutex
	reads  []readStep
	idx    int
	writes [][]byte
	wErr   error
	closed int
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.idx >= len(f.reads) {
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	step := f.reads[f.idx]
	f.idx++
	f.mu.Unlock()

	n := copy(p, step.data)
	return n, step.err
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.wErr != nil {
		return 0, f.wErr
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	f.writes = append(f.writes, buf)
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func openFake(tr *fakeTransport) OpenFunc {
	return func(cfg PortConfig) (Transport, error) {
		return tr, nil
	}
}

func testConfig() PortConfig {
	cfg := DefaultPortConfig()
	cfg.Port = "COM9"
	cfg.ReadTimeoutMs = 10
	return cfg
}

// nextEvent waits for one log entry or fails the test.
func nextEvent(t *testing.T, m *Manager) LogEntry {
	t.Helper()
	select {
	case e := <-m.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for log entry")
		return LogEntry{}
	}
}

// noEvent asserts that nothing arrives within the grace period.
func noEvent(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case e := <-m.Events():
		t.Fatalf("unexpected log entry %q%q", e.Prefix, e.Text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectDisconnectLifecycle(t *testing.T) {
	tr := &fakeTransport{}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	assert.True(t, m.IsConnected())
	assert.NotEmpty(t, m.SessionID())

	e := nextEvent(t, m)
	assert.Equal(t, PrefixInfo, e.Prefix)
	assert.Equal(t, "Connected to COM9 at 115200 baud", e.Text)
	assert.False(t, e.Timestamp.IsZero())

	require.NoError(t, m.Disconnect())
	assert.False(t, m.IsConnected())
	assert.Equal(t, 1, tr.closeCount())

	e = nextEvent(t, m)
	assert.Equal(t, PrefixInfo, e.Prefix)
	assert.Equal(t, "Disconnected", e.Text)

	// Exactly two lifecycle notices, nothing else.
	noEvent(t, m)
}

func TestConnectNoticePrecedesImmediateData(t *testing.T) {
	// A device that talks the moment the port opens must still see the
	// lifecycle notice first; the notice is emitted before the reader
	// starts. Iterate to catch any ordering regression.
	for i := 0; i < 100; i++ {
		tr := &fakeTransport{reads: []readStep{{data: []byte("BOOT\n")}}}
		m := NewManager(openFake(tr), nil)

		require.NoError(t, m.Connect(testConfig()))

		e := nextEvent(t, m)
		require.Equal(t, PrefixInfo, e.Prefix, "device data must not precede the connect notice")
		require.Equal(t, "Connected to COM9 at 115200 baud", e.Text)

		e = nextEvent(t, m)
		require.Equal(t, PrefixData, e.Prefix)
		require.Equal(t, "BOOT", e.Text)

		require.NoError(t, m.Disconnect())
	}
}

func TestDisconnectWhileDisconnectedIsNoop(t *testing.T) {
	m := NewManager(openFake(&fakeTransport{}), nil)

	require.NoError(t, m.Disconnect())
	noEvent(t, m)
}

func TestConnectWhileConnected(t *testing.T) {
	opens := 0
	tr := &fakeTransport{}
	open := func(cfg PortConfig) (Transport, error) {
		opens++
		return tr, nil
	}
	m := NewManager(open, nil)

	require.NoError(t, m.Connect(testConfig()))
	err := m.Connect(testConfig())
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.Equal(t, 1, opens, "second Connect must not reopen the transport")

	require.NoError(t, m.Disconnect())
}

func TestConnectOpenFailure(t *testing.T) {
	open := func(cfg PortConfig) (Transport, error) {
		return nil, errors.New("device busy")
	}
	m := NewManager(open, nil)

	err := m.Connect(testConfig())
	assert.ErrorIs(t, err, ErrPortUnavailable)
	assert.Contains(t, err.Error(), "COM9")
	assert.False(t, m.IsConnected())

	// No state transition happened, so no lifecycle notice.
	noEvent(t, m)
}

func TestConnectInvalidConfig(t *testing.T) {
	m := NewManager(openFake(&fakeTransport{}), nil)

	cfg := testConfig()
	cfg.BaudRate = 14400
	err := m.Connect(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSendNotConnected(t *testing.T) {
	tr := &fakeTransport{}
	m := NewManager(openFake(tr), nil)

	err := m.Send("hello")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 0, tr.writeCount())
}

func TestSendBlankIsNoop(t *testing.T) {
	tr := &fakeTransport{}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m) // connect notice

	require.NoError(t, m.Send(""))
	require.NoError(t, m.Send("   "))
	assert.Equal(t, 0, tr.writeCount())
	noEvent(t, m)

	require.NoError(t, m.Disconnect())
}

func TestSendWritesTerminatedLine(t *testing.T) {
	tests := []struct {
		name   string
		ending LineEnding
		want   string
	}{
		{"lf", LineEndingLF, "ping\n"},
		{"crlf", LineEndingCRLF, "ping\r\n"},
		{"cr", LineEndingCR, "ping\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			m := NewManager(openFake(tr), nil)

			cfg := testConfig()
			cfg.LineEnding = tt.ending
			require.NoError(t, m.Connect(cfg))
			nextEvent(t, m) // connect notice

			require.NoError(t, m.Send("ping"))
			require.Equal(t, 1, tr.writeCount())
			assert.Equal(t, tt.want, string(tr.writes[0]))

			e := nextEvent(t, m)
			assert.Equal(t, PrefixEcho, e.Prefix)
			assert.Equal(t, "ping", e.Text)

			require.NoError(t, m.Disconnect())
		})
	}
}

func TestSendTrimsBeforeWriting(t *testing.T) {
	tr := &fakeTransport{}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)

	require.NoError(t, m.Send("  version \n"))
	require.Equal(t, 1, tr.writeCount())
	assert.Equal(t, "version\n", string(tr.writes[0]))

	e := nextEvent(t, m)
	assert.Equal(t, "version", e.Text)

	require.NoError(t, m.Disconnect())
}

func TestSendWriteFailureKeepsConnection(t *testing.T) {
	tr := &fakeTransport{wErr: errors.New("io error")}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)

	err := m.Send("ping")
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.True(t, m.IsConnected(), "write failure must not disconnect")
	noEvent(t, m)

	require.NoError(t, m.Disconnect())
}

func TestReaderAccumulatesAcrossReads(t *testing.T) {
	tr := &fakeTransport{reads: []readStep{
		{data: []byte("AB")},
		{data: []byte("CDE\n")},
		{data: []byte("FG")},
	}}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)

	e := nextEvent(t, m)
	assert.Equal(t, PrefixData, e.Prefix)
	assert.Equal(t, "ABCDE", e.Text)

	// "FG" has no terminator yet and stays pending.
	noEvent(t, m)

	require.NoError(t, m.Disconnect())
}

func TestReaderExtractsMultipleLinesPerChunk(t *testing.T) {
	tr := &fakeTransport{reads: []readStep{
		{data: []byte("one\r\ntwo\nthr")},
		{data: []byte("ee\r\n")},
	}}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)

	for _, want := range []string{"one", "two", "three"} {
		e := nextEvent(t, m)
		assert.Equal(t, PrefixData, e.Prefix)
		assert.Equal(t, want, e.Text)
	}

	require.NoError(t, m.Disconnect())
}

func TestReadErrorDisconnectsOnce(t *testing.T) {
	tr := &fakeTransport{reads: []readStep{
		{data: []byte("OK\n")},
		{err: io.ErrUnexpectedEOF},
	}}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)

	e := nextEvent(t, m)
	assert.Equal(t, "OK", e.Text)

	e = nextEvent(t, m)
	assert.Equal(t, PrefixError, e.Prefix)
	assert.Contains(t, e.Text, "disconnected")
	assert.False(t, m.IsConnected())
	assert.Equal(t, 1, tr.closeCount())

	// A later Disconnect stays a no-op and emits nothing.
	require.NoError(t, m.Disconnect())
	assert.Equal(t, 1, tr.closeCount())
	noEvent(t, m)
}

func TestInvalidEncodingIsFatal(t *testing.T) {
	tr := &fakeTransport{reads: []readStep{
		{data: []byte{0xff, 0xfe, '\n'}},
	}}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)

	e := nextEvent(t, m)
	assert.Equal(t, PrefixError, e.Prefix)
	assert.False(t, m.IsConnected())
}

func TestReconnectAfterFailure(t *testing.T) {
	attempt := 0
	open := func(cfg PortConfig) (Transport, error) {
		attempt++
		if attempt == 1 {
			return &fakeTransport{reads: []readStep{{err: io.ErrUnexpectedEOF}}}, nil
		}
		return &fakeTransport{}, nil
	}
	m := NewManager(open, nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)
	e := nextEvent(t, m)
	require.Equal(t, PrefixError, e.Prefix)

	// The failure is fatal to the session, not to the process.
	require.NoError(t, m.Connect(testConfig()))
	assert.True(t, m.IsConnected())

	require.NoError(t, m.Disconnect())
}

func TestReadErrorNoticeOrderedBeforeReconnect(t *testing.T) {
	attempt := 0
	open := func(cfg PortConfig) (Transport, error) {
		attempt++
		if attempt == 1 {
			return &fakeTransport{reads: []readStep{{err: io.ErrUnexpectedEOF}}}, nil
		}
		return &fakeTransport{}, nil
	}
	m := NewManager(open, nil)

	require.NoError(t, m.Connect(testConfig()))
	e := nextEvent(t, m)
	require.Equal(t, PrefixInfo, e.Prefix)

	// The error entry and the state flip are one atomic step, so once the
	// entry has been read a reconnect is accepted and its notice can only
	// follow the error in the stream.
	e = nextEvent(t, m)
	require.Equal(t, PrefixError, e.Prefix)

	require.NoError(t, m.Connect(testConfig()))
	e = nextEvent(t, m)
	assert.Equal(t, PrefixInfo, e.Prefix)
	assert.Equal(t, "Connected to COM9 at 115200 baud", e.Text)

	require.NoError(t, m.Disconnect())
}

func TestPartialLineDiscardedOnDisconnect(t *testing.T) {
	tr := &fakeTransport{reads: []readStep{
		{data: []byte("incomplete")},
	}}
	m := NewManager(openFake(tr), nil)

	require.NoError(t, m.Connect(testConfig()))
	nextEvent(t, m)
	require.NoError(t, m.Disconnect())
	nextEvent(t, m) // disconnect notice

	// Reconnecting with a fresh transport must not resurrect the tail.
	tr2 := &fakeTransport{reads: []readStep{{data: []byte("fresh\n")}}}
	m2 := NewManager(openFake(tr2), nil)
	require.NoError(t, m2.Connect(testConfig()))
	nextEvent(t, m2)
	e := nextEvent(t, m2)
	assert.Equal(t, "fresh", e.Text)
	require.NoError(t, m2.Disconnect())
}
