package transport

import (
	"os"
	"path/filepath"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// NewAutoTLS obtains certificates from Let's Encrypt on the fly. If domains are
// passed, certificates are issued for them only. Certificates are cached in the
// directory, unless it's empty.
func NewAutoTLS(cacheDir string, domains ...string) (*TLS, error) {
	m := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
	}

	if len(domains) > 0 {
		m.HostPolicy = autocert.HostWhitelist(domains...)
	}

	if len(cacheDir) > 0 {
		if err := os.MkdirAll(cacheDir, 0o700); err != nil {
			return nil, err
		}

		m.Cache = autocert.DirCache(cacheDir)
	}

	cfg := m.TLSConfig()
	// HTTP/2 is not spoken here, so it must not be advertised
	cfg.NextProtos = []string{"http/1.1", acme.ALPNProto}

	return NewTLSConfig(cfg), nil
}

// DefaultCacheDir returns the per-user cache directory for the certificates.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "negotiator-autocert")
}
