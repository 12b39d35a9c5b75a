package http

import (
	"errors"
	"io"

	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

var errNegativePosition = errors.New("body: negative position")

// Body is the request body sink. It's filled by the negotiator while framing the
// message, then rewound, so the handler reads it from the very beginning. Writes land
// at the current position, which is shared with reads, just like a file does.
type Body struct {
	data []byte
	pos  int
}

func NewBody(prealloc int) *Body {
	return &Body{
		data: make([]byte, 0, prealloc),
	}
}

// Write implements io.Writer. It never fails.
func (b *Body) Write(p []byte) (n int, err error) {
	end := b.pos + len(p)
	if length := len(b.data); end > length {
		if end > cap(b.data) {
			grown := make([]byte, length, max(end, 2*cap(b.data)))
			copy(grown, b.data)
			b.data = grown
		}

		b.data = b.data[:end]
		if b.pos > length {
			clear(b.data[length:b.pos])
		}
	}

	copy(b.data[b.pos:], p)
	b.pos = end

	return len(p), nil
}

// Read implements io.Reader.
func (b *Body) Read(p []byte) (n int, err error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}

	n = copy(p, b.data[b.pos:])
	b.pos += n

	return n, nil
}

// Seek implements io.Seeker. Seeking beyond the end is allowed, the gap is zero-filled
// by the next write.
func (b *Body) Seek(offset int64, whence int) (int64, error) {
	var base int64

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, errors.New("body: invalid whence")
	}

	pos := base + offset
	if pos < 0 {
		return 0, errNegativePosition
	}

	b.pos = int(pos)
	return pos, nil
}

// Tell returns the current position.
func (b *Body) Tell() int64 {
	return int64(b.pos)
}

// Len returns the total number of bytes stored.
func (b *Body) Len() int {
	return len(b.data)
}

// Bytes returns the whole body regardless of the position. The slice is valid until
// the next write.
func (b *Body) Bytes() []byte {
	return b.data
}

// String returns the whole body as a string WITHOUT COPYING.
func (b *Body) String() string {
	return uf.B2S(b.data)
}

// JSON decodes the unread rest of the body into the model.
func (b *Body) JSON(model any) error {
	iterator := json.ConfigDefault.BorrowIterator(b.data[min(b.pos, len(b.data)):])
	iterator.ReadVal(model)
	err := iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)
	b.pos = len(b.data)

	return err
}

// Reset drops the content, keeping the allocated space.
func (b *Body) Reset() {
	b.data = b.data[:0]
	b.pos = 0
}
