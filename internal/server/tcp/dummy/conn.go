// Package dummy provides in-memory net.Conn implementations for tests.
package dummy

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

var ErrBrokenPipe = errors.New("dummy: broken pipe")

// Conn replays the data it was initialised with and records everything written into it.
// Once the data is exhausted, reads return io.EOF.
type Conn struct {
	mu      sync.Mutex
	reader  *bytes.Reader
	written bytes.Buffer
	closed  bool
	// chunk limits the number of bytes returned by a single Read. Zero means no limit.
	chunk    int
	writeErr error
	deadline struct {
		read, write time.Time
	}
}

func NewConn(data ...[]byte) *Conn {
	return &Conn{
		reader: bytes.NewReader(bytes.Join(data, nil)),
	}
}

// Chunked makes every Read return at most n bytes, emulating a slow peer.
func (c *Conn) Chunked(n int) *Conn {
	c.chunk = n
	return c
}

// FailWrites makes every Write fail with ErrBrokenPipe.
func (c *Conn) FailWrites() *Conn {
	c.writeErr = ErrBrokenPipe
	return c
}

func (c *Conn) Read(b []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, net.ErrClosed
	}

	if c.chunk > 0 && len(b) > c.chunk {
		b = b[:c.chunk]
	}

	n, err = c.reader.Read(b)
	if err != nil {
		return n, io.EOF
	}

	return n, nil
}

func (c *Conn) Write(b []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, net.ErrClosed
	}

	if c.writeErr != nil {
		return 0, c.writeErr
	}

	return c.written.Write(b)
}

// Written returns a copy of everything written so far.
func (c *Conn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return bytes.Clone(c.written.Bytes())
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Deadlines returns the last read and write deadlines set.
func (c *Conn) Deadlines() (read, write time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.deadline.read, c.deadline.write
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (*Conn) LocalAddr() net.Addr {
	return dummyAddr("local")
}

func (*Conn) RemoteAddr() net.Addr {
	return dummyAddr("remote")
}

func (c *Conn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadline.read, c.deadline.write = t, t
	return nil
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadline.read = t
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadline.write = t
	return nil
}

type dummyAddr string

func (dummyAddr) Network() string {
	return "dummy"
}

func (d dummyAddr) String() string {
	return string(d)
}
