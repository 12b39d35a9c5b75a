package http

import (
	"net"

	"github.com/indigo-web/negotiator/config"
	"github.com/indigo-web/negotiator/http/method"
	"github.com/indigo-web/negotiator/http/proto"
	"github.com/indigo-web/negotiator/kv"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
)

// Request represents HTTP request
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Target is the request-target exactly as it was received.
	Target string
	// Path is the Target up to the first question mark.
	Path string
	// Query is the raw query string without the question mark. Empty if none.
	Query string
	// Protocol is the enum of a protocol used for the request.
	Protocol proto.Proto
	// Headers holds non-normalized header pairs, even though lookup is case-insensitive.
	Headers Headers
	// Body is the request body sink. It's empty, unless Content-Length was presented.
	Body *Body
	// Remote holds the remote address. Nil if the transport isn't network-backed.
	Remote net.Addr
}

func NewRequest(cfg *config.Config, remote net.Addr) *Request {
	return &Request{
		Method:   method.Unknown,
		Protocol: proto.HTTP11,
		Headers:  kv.NewPrealloc(cfg.Headers.Number.Default),
		Body:     NewBody(0),
		Remote:   remote,
	}
}

// Reset the request, so it can be filled again
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Target, r.Path, r.Query = "", "", ""
	r.Protocol = proto.HTTP11
	r.Headers.Clear()
	r.Body.Reset()
}
