package dummy

import (
	"bytes"
	"io"

	"github.com/indigo-web/negotiator/errors"
)

// Transport is an in-memory transport. Reads are served from the data it was
// initialised with, writes are journaled. It also counts the calls, so the tests
// can assert how the transport was used.
type Transport struct {
	data     []byte
	written  []byte
	writeErr error
	// Reads is the number of ReadLine and ReadLineN calls.
	Reads int
	// Writes is the number of Write and CopyStream calls.
	Writes int
	// Closes is the number of Close calls.
	Closes int
}

func NewTransport(data ...string) *Transport {
	var buff bytes.Buffer
	for _, piece := range data {
		buff.WriteString(piece)
	}

	return &Transport{data: buff.Bytes()}
}

// FailWrites makes every write fail with the error.
func (t *Transport) FailWrites(err error) *Transport {
	t.writeErr = err
	return t
}

func (t *Transport) ReadLine() ([]byte, error) {
	return t.ReadLineN(len(t.data))
}

func (t *Transport) ReadLineN(n int) ([]byte, error) {
	t.Reads++

	if t.Closes > 0 {
		return nil, errors.Wrap(errors.ErrRead, io.ErrClosedPipe)
	}

	if len(t.data) == 0 {
		return nil, errors.Wrap(errors.ErrConnectionClosed, io.EOF)
	}

	end := min(n, len(t.data))
	if lf := bytes.IndexByte(t.data[:end], '\n'); lf != -1 {
		end = lf + 1
	}

	line := t.data[:end]
	t.data = t.data[end:]

	return line, nil
}

func (t *Transport) Write(b []byte) error {
	t.Writes++

	if t.writeErr != nil {
		return errors.Wrap(errors.ErrWrite, t.writeErr)
	}

	t.written = append(t.written, b...)
	return nil
}

func (t *Transport) CopyStream(source io.Reader) (int64, error) {
	t.Writes++

	if t.writeErr != nil {
		return 0, errors.Wrap(errors.ErrWrite, t.writeErr)
	}

	data, err := io.ReadAll(source)
	t.written = append(t.written, data...)

	return int64(len(data)), err
}

func (t *Transport) Close() error {
	t.Closes++
	return nil
}

// Written returns all the data written so far.
func (t *Transport) Written() string {
	return string(t.written)
}

// Pending returns the data which wasn't read.
func (t *Transport) Pending() string {
	return string(t.data)
}
