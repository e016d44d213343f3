package serial

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"
)

// readBufferSize is the scratch buffer handed to each Transport.Read.
const readBufferSize = 1024

// Escape sequences a Zephyr shell mixes into its output. The bare form
// without ESC shows up when a sequence was split across reads upstream.
var (
	ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)
	bareColorRe  = regexp.MustCompile(`\[[0-9;]*m`)
)

// lineBuffer accumulates raw bytes from the transport until a line
// terminator arrives. It is owned exclusively by the reader loop; a
// pending partial line is simply dropped on disconnect.
type lineBuffer struct {
	buf []byte
}

// push appends a chunk and extracts every complete line it closes.
// Both CR and LF end a line, so CRLF produces one line and one empty
// remainder, which is discarded along with all other blank lines.
func (b *lineBuffer) push(p []byte) ([]string, error) {
	b.buf = append(b.buf, p...)

	var lines []string
	for {
		i := bytes.IndexAny(b.buf, "\r\n")
		if i < 0 {
			break
		}

		raw := b.buf[:i]
		b.buf = b.buf[i+1:]

		if !utf8.Valid(raw) {
			return lines, ErrInvalidEncoding
		}

		line := strings.TrimRight(stripControl(string(raw)), " \t")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// stripControl removes ANSI escape sequences and non-printable bytes,
// keeping tabs and everything from space upward except DEL.
func stripControl(s string) string {
	s = ansiEscapeRe.ReplaceAllString(s, "")
	s = bareColorRe.ReplaceAllString(s, "")

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == '\t' || (r >= 32 && r != 127) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// readLoop continuously drains the transport and emits complete lines
// until the stop signal fires or a read/decode error ends the session.
// It is the only goroutine touching the transport's read side and never
// takes the manager lock while blocked in Read, so a pending write is
// never delayed by the read timeout.
func (m *Manager) readLoop(tr Transport, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	var lb lineBuffer

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := tr.Read(buf)
		if n > 0 {
			lines, derr := lb.push(buf[:n])
			for _, line := range lines {
				m.emit(LogEntry{Prefix: PrefixData, Text: line})
			}
			if derr != nil {
				m.readerFailed(derr)
				return
			}
		}
		if err != nil {
			m.readerFailed(err)
			return
		}
	}
}
