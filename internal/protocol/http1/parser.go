package http1

import (
	"bytes"

	"github.com/indigo-web/negotiator/config"
	"github.com/indigo-web/negotiator/errors"
	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/http/method"
	"github.com/indigo-web/negotiator/http/proto"
	"github.com/indigo-web/utils/uf"
)

// Parser turns raw lines into the request. It's fed with exactly one start-line
// and one header block per negotiation, therefore has no intermediate state.
type Parser struct {
	cfg      *config.Config
	request  *http.Request
	response *http.Response
}

func NewParser(cfg *config.Config, request *http.Request, response *http.Response) *Parser {
	return &Parser{
		cfg:      cfg,
		request:  request,
		response: response,
	}
}

// ParseStartLine parses the request line in the form of `method SP target SP protocol`.
// The line terminator is optional.
func (p *Parser) ParseStartLine(line []byte) error {
	line = trimTerminator(line)

	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return errors.ErrBadRequestLine
	}

	methodToken, rest := line[:sp], line[sp+1:]
	sp = bytes.IndexByte(rest, ' ')
	if sp <= 0 {
		return errors.ErrBadRequestLine
	}

	target, protoToken := rest[:sp], rest[sp+1:]
	if bytes.IndexByte(protoToken, ' ') != -1 {
		return errors.ErrBadRequestLine
	}

	if !isToken(methodToken) {
		return errors.ErrBadRequestLine
	}

	m := method.Parse(uf.B2S(methodToken))
	if m == method.Unknown {
		return errors.ErrMethodNotImplemented
	}

	if !isTarget(target) {
		return errors.ErrBadRequestLine
	}

	protocol := proto.FromBytes(protoToken)
	switch {
	case protocol&proto.HTTP1 != 0:
	case protocol != proto.Unknown, bytes.HasPrefix(protoToken, []byte("HTTP/")):
		return errors.ErrUnsupportedProtocol
	default:
		return errors.ErrBadRequestLine
	}

	request := p.request
	request.Method = m
	request.Target = string(target)
	request.Path, request.Query = request.Target, ""
	if q := bytes.IndexByte(target, '?'); q != -1 {
		request.Path, request.Query = request.Target[:q], request.Target[q+1:]
	}
	request.Protocol = protocol

	p.response.Protocol(protocol)

	return nil
}

// ParseHeaders parses the whole header block at once. Every field line must be in the
// form of `name ":" OWS value OWS`. Obsolete line folding is rejected.
func (p *Parser) ParseHeaders(block []byte) error {
	headers := p.request.Headers
	maxHeaders := p.cfg.Headers.Number.Maximal

	for len(block) > 0 {
		var line []byte

		if lf := bytes.IndexByte(block, '\n'); lf != -1 {
			line, block = block[:lf+1], block[lf+1:]
		} else {
			line, block = block, nil
		}

		key, value, err := parseField(trimTerminator(line))
		if err != nil {
			return err
		}

		if headers.Len() >= maxHeaders {
			return errors.ErrTooManyHeaders
		}

		headers.Add(string(key), string(value))
	}

	return nil
}

func (p *Parser) Request() *http.Request {
	return p.request
}

func (p *Parser) Response() *http.Response {
	return p.response
}

func parseField(line []byte) (key, value []byte, err error) {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return nil, nil, errors.ErrBadHeader
	}

	key, value = line[:colon], trimOWS(line[colon+1:])
	if !isToken(key) {
		// also catches whitespaces before the colon and obsolete line folding
		return nil, nil, errors.ErrBadHeader
	}

	for _, c := range value {
		if (c < 0x20 && c != '\t') || c == 0x7f {
			return nil, nil, errors.ErrBadHeader
		}
	}

	return key, value, nil
}

func trimTerminator(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

func trimOWS(b []byte) []byte {
	return bytes.Trim(b, " \t")
}

func isToken(b []byte) bool {
	if len(b) == 0 {
		return false
	}

	for _, c := range b {
		if !tchar[c] {
			return false
		}
	}

	return true
}

// isTarget accepts any non-empty sequence of visible ASCII characters. The target's
// structure is up to the handlers.
func isTarget(b []byte) bool {
	if len(b) == 0 {
		return false
	}

	for _, c := range b {
		if c <= ' ' || c >= 0x7f {
			return false
		}
	}

	return true
}

var tchar = func() (lut [256]bool) {
	for c := '0'; c <= '9'; c++ {
		lut[c] = true
	}

	for c := 'a'; c <= 'z'; c++ {
		lut[c] = true
		lut[c-'a'+'A'] = true
	}

	for _, c := range "!#$%&'*+-.^_`|~" {
		lut[c] = true
	}

	return lut
}()
