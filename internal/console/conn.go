// Package console runs a game table over text terminals. A host terminal
// drives the day and can stand in for any player; players may also sit at
// their own terminals to receive private information and make night choices.
package console

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pixil98/go-clocktower/internal/display"
)

// Conn is one terminal. Input is read on its own goroutine so reads can be
// abandoned when a context ends.
type Conn struct {
	w     io.Writer
	width int

	lines chan string
	errc  chan error
	done  chan struct{}
	wmu   sync.Mutex
}

// NewConn starts reading lines from rw until ctx ends or input closes.
func NewConn(ctx context.Context, rw io.ReadWriter, width int) *Conn {
	c := &Conn{
		w:     rw,
		width: width,
		lines: make(chan string),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(c.done)
		defer close(c.lines)
		scanner := bufio.NewScanner(rw)
		for scanner.Scan() {
			select {
			case c.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		c.errc <- scanner.Err()
	}()

	return c
}

// ReadLine returns the next line of input. Closed input yields io.EOF.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			select {
			case err := <-c.errc:
				if err != nil {
					return "", err
				}
			default:
			}
			return "", io.EOF
		}
		return line, nil
	}
}

// Done is closed once input has ended.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.w.Write(p)
}

// WriteLine writes text wrapped to the terminal width.
func (c *Conn) WriteLine(text string) error {
	text = display.WrapTo(strings.TrimRight(text, "\n"), c.width)
	_, err := io.WriteString(c, text+"\n")
	return err
}
