package negotiation

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/negotiator/config"
	"github.com/indigo-web/negotiator/errors"
	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/http/method"
	"github.com/indigo-web/negotiator/router"
	"github.com/indigo-web/utils/uf"
)

// Transport is a line-oriented byte channel. Returned lines include their terminators
// and are valid only until the next read.
type Transport interface {
	// ReadLine reads a single line.
	ReadLine() ([]byte, error)
	// ReadLineN reads a single line, but never more than n bytes.
	ReadLineN(n int) ([]byte, error)
	Write(b []byte) error
	// CopyStream relays the source until it's exhausted.
	CopyStream(source io.Reader) (int64, error)
	Close() error
}

// Parser fills the request. It must also provide a default response, which is sent
// when no router is set or the router returns nothing.
type Parser interface {
	ParseStartLine(line []byte) error
	ParseHeaders(block []byte) error
	Request() *http.Request
	Response() *http.Response
}

type State uint8

const (
	AwaitingStartLine State = iota
	AwaitingHeaders
	AwaitingBody
	Responding
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingStartLine:
		return "awaiting start-line"
	case AwaitingHeaders:
		return "awaiting headers"
	case AwaitingBody:
		return "awaiting body"
	case Responding:
		return "responding"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection drives exactly one request-response cycle over the transport. It's not
// reusable: after Negotiate returns, the transport is closed.
type Connection struct {
	id        string
	cfg       *config.Config
	transport Transport
	parser    Parser
	router    router.Router
	observer  *Observer
	logger    *slog.Logger
	state     State
	failedIn  State
	headers   []byte
}

// New binds the transport and the parser. The router, observer and logger are
// optional: without router the parser's default response is sent, without observer
// nothing is recorded and without logger slog.Default() is used.
func New(
	cfg *config.Config, transport Transport, parser Parser,
	r router.Router, observer *Observer, logger *slog.Logger,
) *Connection {
	if observer == nil {
		observer = NoopObserver()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Connection{
		id:        uniuri.New(),
		cfg:       cfg,
		transport: transport,
		parser:    parser,
		router:    r,
		observer:  observer,
		logger:    logger,
		state:     AwaitingStartLine,
	}
}

// ID uniquely identifies the negotiation in logs and traces.
func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) State() State {
	return c.state
}

// FailedIn returns the state the negotiation failed in. Meaningful only if Negotiate
// returned an error.
func (c *Connection) FailedIn() State {
	return c.failedIn
}

// Negotiate reads the request, responds and closes the transport. The transport is
// closed exactly once, whatever happens. If reading the request fails, the error message
// is written to the peer as a plain line before closing. Failures while responding
// are not reported to the peer, as a part of the response might already be written.
//
// The returned error is the one which interrupted the cycle, if any. Context is used
// for telemetry only: deadlines are enforced by the transport.
func (c *Connection) Negotiate(ctx context.Context) (err error) {
	if c.state != AwaitingStartLine {
		return errors.ErrConnectionClosed
	}

	start := time.Now()
	ctx, span := c.observer.start(ctx, c.id)
	var bodySize int64

	defer func() {
		if closeErr := c.transport.Close(); closeErr != nil {
			c.logger.DebugContext(ctx, "closing transport", "id", c.id, "error", closeErr)
		}

		request := c.parser.Request()
		c.state = Closed
		c.observer.finish(ctx, span, report{
			method:   methodOf(request),
			path:     request.Path,
			bodySize: bodySize,
			framed:   c.failedIn > AwaitingBody || err == nil,
			failedIn: c.failedIn,
			took:     time.Since(start),
			err:      err,
		})
	}()

	bodySize, err = c.negotiate()
	if err != nil {
		c.fail(ctx, err)
	}

	return err
}

func (c *Connection) negotiate() (bodySize int64, err error) {
	if err = c.readStartLine(); err != nil {
		return 0, err
	}

	c.state = AwaitingHeaders
	if err = c.readHeaders(); err != nil {
		return 0, err
	}

	c.state = AwaitingBody
	if bodySize, err = c.readBody(); err != nil {
		return 0, err
	}

	c.state = Responding
	return bodySize, c.respond()
}

func (c *Connection) fail(ctx context.Context, err error) {
	c.failedIn = c.state
	c.state = Failed

	c.logger.DebugContext(ctx, "negotiation failed",
		"id", c.id,
		"state", c.failedIn.String(),
		"kind", errors.KindOf(err).String(),
		"error", err,
	)

	if c.failedIn == Responding {
		return
	}

	if writeErr := c.transport.Write([]byte(err.Error() + "\r\n")); writeErr != nil {
		c.logger.DebugContext(ctx, "writing diagnostic", "id", c.id, "error", writeErr)
	}
}

func (c *Connection) readStartLine() error {
	line, err := c.transport.ReadLine()
	if err != nil {
		return err
	}

	if isTerminator(line) {
		// a single stray empty line preceding the request is tolerated
		if line, err = c.transport.ReadLine(); err != nil {
			return err
		}
	}

	return c.parser.ParseStartLine(line)
}

func (c *Connection) readHeaders() error {
	if c.headers == nil {
		c.headers = make([]byte, 0, c.cfg.Headers.Space.Default)
	}

	block := c.headers[:0]
	maxSpace := c.cfg.Headers.Space.Maximal

	for {
		line, err := c.transport.ReadLine()
		if err != nil {
			return err
		}

		if isTerminator(line) {
			break
		}

		if len(block)+len(line) > maxSpace {
			return errors.ErrHeaderFieldsTooLarge
		}

		block = append(block, line...)
	}

	c.headers = block

	return c.parser.ParseHeaders(block)
}

// readBody frames the body by Content-Length. Transfer codings aren't supported, so
// their presence is a failure rather than a body without length.
func (c *Connection) readBody() (int64, error) {
	request := c.parser.Request()

	if request.Headers.Has("transfer-encoding") {
		return 0, errors.ErrUnsupportedTransferEncoding
	}

	values := request.Headers.Values("content-length")
	if len(values) == 0 {
		return 0, nil
	}

	length, err := contentLength(values)
	if err != nil {
		return 0, err
	}

	if length > c.cfg.Body.MaxSize {
		return 0, errors.ErrBodyTooLarge
	}

	body := request.Body
	for body.Tell() < length {
		line, err := c.transport.ReadLineN(int(length - body.Tell()))
		if err != nil {
			return 0, err
		}

		if len(line) == 0 {
			return 0, errors.ErrConnectionClosed
		}

		_, _ = body.Write(line)
	}

	if _, err = body.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return length, nil
}

func (c *Connection) respond() error {
	request := c.parser.Request()

	var response *http.Response
	if c.router != nil {
		response = c.router.OnRequest(request)
	}

	if response == nil {
		response = c.parser.Response()
	}

	// responses are always rendered in the protocol of the request
	response.
		Protocol(request.Protocol).
		Defaults(c.cfg.Headers.Default)

	if err := c.transport.Write(uf.S2B(response.HeaderString())); err != nil {
		return err
	}

	if request.Method == method.HEAD {
		return nil
	}

	_, err := c.transport.CopyStream(response.Body())
	return err
}

// contentLength parses all the Content-Length values, including comma-separated ones.
// They all must be equal.
func contentLength(values []string) (length int64, err error) {
	length = -1

	for _, value := range values {
		for _, field := range strings.Split(value, ",") {
			n, err := parseLength(strings.TrimSpace(field))
			if err != nil {
				return 0, err
			}

			if length != -1 && n != length {
				return 0, errors.ErrConflictingContentLength
			}

			length = n
		}
	}

	return length, nil
}

// parseLength accepts digits only. strconv.ParseInt alone would also take signs.
func parseLength(value string) (int64, error) {
	if len(value) == 0 {
		return 0, errors.ErrBadContentLength
	}

	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, errors.ErrBadContentLength
		}
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrBadContentLength, err)
	}

	return n, nil
}

func isTerminator(line []byte) bool {
	return bytes.Equal(line, crlf) || bytes.Equal(line, crlf[1:])
}

var crlf = []byte("\r\n")

func methodOf(request *http.Request) string {
	if request.Method == method.Unknown {
		return ""
	}

	return request.Method.String()
}
