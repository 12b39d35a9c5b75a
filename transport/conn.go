package transport

import (
	"bytes"
	stderrors "errors"
	"io"
	"net"
	"time"

	"github.com/indigo-web/negotiator/config"
	"github.com/indigo-web/negotiator/errors"
)

// Conn is a line-oriented view over the net.Conn. Data is read in chunks into the
// internal buffer; whatever is left after the line terminator is pushed back and
// returned first by the next read.
type Conn struct {
	conn         net.Conn
	buff         []byte
	pending      []byte
	line         []byte
	maxLine      int
	readTimeout  time.Duration
	writeTimeout time.Duration
	closed       bool
}

func NewConn(conn net.Conn, cfg *config.Config) *Conn {
	return &Conn{
		conn:         conn,
		buff:         make([]byte, cfg.NET.ReadBufferSize),
		maxLine:      cfg.Line.MaxLength,
		readTimeout:  cfg.NET.ReadTimeout,
		writeTimeout: cfg.NET.WriteTimeout,
	}
}

// ReadLine returns the next line including its terminator. Lines longer than the
// configured limit fail with errors.ErrLineTooLong. At the end of the stream, the
// unterminated rest is returned as a line. The returned slice is valid until the next
// read.
func (c *Conn) ReadLine() ([]byte, error) {
	return c.readLine(c.maxLine, true)
}

// ReadLineN does the same as ReadLine, but returns at most n bytes, even if the
// terminator wasn't met yet.
func (c *Conn) ReadLineN(n int) ([]byte, error) {
	return c.readLine(n, false)
}

func (c *Conn) readLine(limit int, strict bool) ([]byte, error) {
	c.line = c.line[:0]

	for {
		data, err := c.read()
		if len(data) > 0 {
			room := limit - len(c.line)
			end := bytes.IndexByte(data, '\n') + 1

			switch {
			case end > 0 && end <= room:
				c.line = append(c.line, data[:end]...)
				c.pushback(data[end:])
				return c.line, nil
			case len(data) >= room:
				if strict {
					return nil, errors.ErrLineTooLong
				}

				c.line = append(c.line, data[:room]...)
				c.pushback(data[room:])
				return c.line, nil
			default:
				c.line = append(c.line, data...)
			}
		}

		if err != nil {
			if stderrors.Is(err, io.EOF) {
				if len(c.line) > 0 {
					return c.line, nil
				}

				return nil, errors.Wrap(errors.ErrConnectionClosed, err)
			}

			return nil, errors.Wrap(errors.ErrRead, err)
		}
	}
}

// read returns data preserved via pushback, if any. Otherwise, reads from the connection
// into the internal buffer. Timeouts are handled automatically.
func (c *Conn) read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, err
		}
	}

	n, err := c.conn.Read(c.buff)
	return c.buff[:n], err
}

func (c *Conn) pushback(b []byte) {
	if len(b) > 0 {
		c.pending = b
	}
}

// Write writes data into the underlying connection.
func (c *Conn) Write(b []byte) error {
	if err := c.setWriteDeadline(); err != nil {
		return errors.Wrap(errors.ErrWrite, err)
	}

	if _, err := c.conn.Write(b); err != nil {
		return errors.Wrap(errors.ErrWrite, err)
	}

	return nil
}

// CopyStream relays the source into the connection until the source is exhausted.
func (c *Conn) CopyStream(source io.Reader) (int64, error) {
	if err := c.setWriteDeadline(); err != nil {
		return 0, errors.Wrap(errors.ErrWrite, err)
	}

	buff := c.buff
	if len(c.pending) > 0 {
		// the buffer is still referenced by the pending data
		buff = nil
	}

	n, err := io.CopyBuffer(writerOnly{c.conn}, source, buff)
	if err != nil {
		return n, errors.Wrap(errors.ErrWrite, err)
	}

	return n, nil
}

func (c *Conn) setWriteDeadline() error {
	if c.writeTimeout <= 0 {
		return nil
	}

	return c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
}

// Remote returns the remote address of the connection.
func (c *Conn) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection. Repeated calls are no-op.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true
	return c.conn.Close()
}

// writerOnly hides the ReaderFrom implementation of the connection, so io.CopyBuffer
// uses the provided buffer instead of allocating its own.
type writerOnly struct {
	io.Writer
}
