package http

import (
	"bytes"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/indigo-web/negotiator/http/mime"
	"github.com/indigo-web/negotiator/http/proto"
	"github.com/indigo-web/negotiator/http/status"
	"github.com/indigo-web/negotiator/kv"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

const (
	// why 7? There's no theory behind this number. Most of responses carry fewer headers.
	preallocRespHeaders = 7
	unsized             = -1
)

type Response struct {
	code     status.Code
	status   status.Status
	protocol proto.Proto
	headers  *kv.Storage
	defaults []kv.Pair
	body     []byte
	stream   io.Reader
	size     int64
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK
// and pre-allocated space for response headers.
func NewResponse() *Response {
	return &Response{
		code:     status.OK,
		protocol: proto.HTTP11,
		headers:  kv.NewPrealloc(preallocRespHeaders),
		size:     unsized,
	}
}

// Code sets a Response code. The status text is taken from status.Text, unless set
// explicitly via Status.
func (r *Response) Code(code status.Code) *Response {
	r.code = code
	return r
}

// Status sets a custom status text.
func (r *Response) Status(text status.Status) *Response {
	r.status = text
	return r
}

// Protocol sets the protocol the status line is rendered with.
func (r *Response) Protocol(p proto.Proto) *Response {
	r.protocol = p
	return r
}

// Defaults sets headers which are rendered unless overridden by ones set via Header.
// They are rendered in the order of keys.
func (r *Response) Defaults(headers map[string]string) *Response {
	r.defaults = r.defaults[:0]
	for _, key := range slices.Sorted(maps.Keys(headers)) {
		r.defaults = append(r.defaults, kv.Pair{Key: key, Value: headers[key]})
	}

	return r
}

// Header adds values to the key. Content-Length and Connection are managed implicitly
// and therefore ignored.
func (r *Response) Header(key string, values ...string) *Response {
	if strcomp.EqualFold(key, "content-length") || strcomp.EqualFold(key, "connection") {
		return r
	}

	for _, value := range values {
		r.headers.Add(key, value)
	}

	return r
}

// ContentType is a shorthand for the Content-Type header.
func (r *Response) ContentType(value string) *Response {
	r.headers.Set("Content-Type", value)
	return r
}

// String sets the response's body to the passed string
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response's body to passed slice WITHOUT COPYING. Changing
// the passed slice later will affect the response by itself
func (r *Response) Bytes(body []byte) *Response {
	r.body = body
	r.stream = nil
	r.size = int64(len(body))
	return r
}

// Stream sets the body source. If size is negative, the body is delimited by the
// connection close.
func (r *Response) Stream(source io.Reader, size int64) *Response {
	r.body = nil
	r.stream = source
	r.size = max(size, unsized)
	return r
}

// Write implements io.Writer, appending to the response body. It always returns
// n=len(b) and err=nil
func (r *Response) Write(b []byte) (n int, err error) {
	r.stream = nil
	r.body = append(r.body, b...)
	r.size = int64(len(r.body))
	return len(b), nil
}

// JSON serializes the model into the body and sets the Content-Type accordingly.
func (r *Response) JSON(model any) (*Response, error) {
	body, err := json.ConfigDefault.Marshal(model)
	if err != nil {
		return r, err
	}

	return r.ContentType(mime.JSON).Bytes(body), nil
}

// Error sets the code and the message as a body. If the error is nil, nothing happens.
func (r *Response) Error(err error, code status.Code) *Response {
	if err == nil {
		return r
	}

	return r.
		Code(code).
		ContentType(mime.WithCharset(mime.Plain, mime.UTF8)).
		String(err.Error())
}

// StatusCode returns the code the response is going to be rendered with.
func (r *Response) StatusCode() status.Code {
	return r.code
}

// Headers exposes the header storage. Changes are reflected in the rendered response.
func (r *Response) Headers() *kv.Storage {
	return r.headers
}

// Size returns the body size or a negative value, if it isn't known.
func (r *Response) Size() int64 {
	return r.size
}

// Body returns the body source, ready to be copied into the connection.
func (r *Response) Body() io.Reader {
	if r.stream != nil {
		return r.stream
	}

	return bytes.NewReader(r.body)
}

// HeaderString renders the status line and the header fields, including the empty line
// terminating them.
func (r *Response) HeaderString() string {
	buff := make([]byte, 0, 128)
	buff = append(buff, r.protocol.String()...)
	buff = append(buff, ' ')
	buff = strconv.AppendUint(buff, uint64(r.code), 10)
	buff = append(buff, ' ')

	text := r.status
	if len(text) == 0 {
		text = status.Text(r.code)
	}

	buff = append(append(buff, text...), "\r\n"...)

	for _, pair := range r.defaults {
		if !r.headers.Has(pair.Key) {
			buff = renderHeader(buff, pair.Key, pair.Value)
		}
	}

	for key, value := range r.headers.Iter() {
		buff = renderHeader(buff, key, value)
	}

	if r.size >= 0 {
		buff = renderHeader(buff, "Content-Length", strconv.FormatInt(r.size, 10))
	}

	buff = renderHeader(buff, "Connection", "close")

	return string(append(buff, "\r\n"...))
}

func renderHeader(buff []byte, key, value string) []byte {
	buff = append(buff, key...)
	buff = append(buff, ": "...)
	buff = append(buff, value...)
	return append(buff, "\r\n"...)
}
