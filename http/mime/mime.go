package mime

type MIME = string

const (
	OctetStream MIME = "application/octet-stream"
	Plain       MIME = "text/plain"
	HTML        MIME = "text/html"
	JSON        MIME = "application/json"
)

type Charset = string

const (
	UTF8  Charset = "utf-8"
	ASCII Charset = "us-ascii"
)

// WithCharset renders the Content-Type value with the charset parameter.
func WithCharset(mime MIME, charset Charset) string {
	if len(charset) == 0 {
		return mime
	}

	return mime + "; charset=" + charset
}
