package config

import (
	"io"
	"os"
	"time"

	json "github.com/json-iterator/go"
)

type (
	HeadersNumber struct {
		Default, Maximal int
	}

	HeadersSpace struct {
		Default, Maximal int
	}
)

type (
	Line struct {
		// MaxLength limits a single line read from the connection, including the terminator.
		// It's applied to the request line and every header field line.
		MaxLength int
	}

	Headers struct {
		// Number is responsible for headers storage size.
		// Default value is an initial capacity of the storage.
		// Maximal value is maximum number of headers allowed to be presented
		Number HeadersNumber
		// Space limits the amount of memory occupied by the raw header block.
		Space HeadersSpace
		// Default headers are included into every response implicitly, unless
		// explicitly overridden.
		Default map[string]string `test:"nullable"`
	}

	Body struct {
		// MaxSize is the greatest Content-Length value accepted. Bigger declarations are
		// rejected before a single byte of the body is read.
		MaxSize int64
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int
		// ReadTimeout limits every single read from the connection. If no data was
		// received in this period of time, the negotiation fails.
		ReadTimeout time.Duration
		// WriteTimeout limits every single write into the connection, including the
		// response body copying.
		WriteTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration
	}

	// AuthAdapter describes a single authentication adapter. Type is the adapter tag
	// (htpasswd, htdigest), options are the adapter-specific settings.
	AuthAdapter struct {
		Type    string
		Options map[string]string
	}
)

// Config holds settings used across various parts of the negotiator, mainly restrictions,
// limitations and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Line    Line
	Headers Headers
	Body    Body
	NET     NET
	Auth    []AuthAdapter `test:"nullable"`
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		Line: Line{
			// most of web-entities limit the request line by 4-8kb, so do we.
			MaxLength: 8 * 1024,
		},
		Headers: Headers{
			Number: HeadersNumber{
				Default: 10,
				Maximal: 50,
			},
			Space: HeadersSpace{
				Default: 1 * 1024,  // 1kb for headers must be fairly enough in most cases.
				Maximal: 16 * 1024, // However, there also might be extremely long cookies.
			},
			Default: make(map[string]string),
		},
		Body: Body{
			MaxSize: 16 * 1024 * 1024, // the whole body is kept in memory
		},
		NET: NET{
			ReadBufferSize:            4 * 1024,
			ReadTimeout:               90 * time.Second,
			WriteTimeout:              90 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
		},
	}
}

// Load decodes JSON config on top of the defaults, so only the overridden values
// must be presented. Durations are in nanoseconds.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := json.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile does the same as Load, but reads the file by the path.
func LoadFile(path string) (*Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	return Load(fd)
}
