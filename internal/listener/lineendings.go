package listener

import (
	"bytes"
	"io"
)

// lineEndings translates between network line endings and the bare '\n'
// the console expects. Telnet clients send "\r\n" or "\r\x00", and an ssh
// client with a pty sends a lone '\r'. A '\r' at the end of one read still
// swallows a '\n' or NUL at the start of the next.
type lineEndings struct {
	rw    io.ReadWriter
	sawCR bool
	wasCR bool
}

func newLineEndings(rw io.ReadWriter) *lineEndings {
	return &lineEndings{rw: rw}
}

func (l *lineEndings) Read(p []byte) (int, error) {
	for {
		n, err := l.rw.Read(p)
		out := 0
		for _, b := range p[:n] {
			switch {
			case b == '\r':
				p[out] = '\n'
				out++
				l.sawCR = true
				continue
			case l.sawCR && (b == '\n' || b == 0):
			default:
				p[out] = b
				out++
			}
			l.sawCR = false
		}
		if out > 0 || err != nil || n == 0 {
			return out, err
		}
	}
}

func (l *lineEndings) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+bytes.Count(p, []byte{'\n'}))
	for _, b := range p {
		if b == '\n' && !l.wasCR {
			out = append(out, '\r')
		}
		out = append(out, b)
		l.wasCR = b == '\r'
	}
	if _, err := l.rw.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
