package negotiator

import (
	"crypto/tls"
	"errors"

	"github.com/indigo-web/negotiator/transport"
)

var (
	ErrBadCertificate = errors.New("one or more passed certificates are empty")
	ErrNoCertificates = errors.New("no certificates were passed")
)

// Transport describes how connections are accepted. Use TCP, TLS, HTTPS or AutoHTTPS
// to construct one.
type Transport struct {
	addr  string // must be left intact. Used by App entity only
	inner transport.Transport
	// domains are set by AutoHTTPS only. The inner transport is resolved on binding,
	// as it depends on the address.
	domains []string
	auto    bool
	error   error
}

// TCP is a plain-text transport.
func TCP() Transport {
	return Transport{
		inner: transport.NewTCP(),
	}
}

// TLS loads the certificate and the key from files.
func TLS(cert, key string) Transport {
	c, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		// there's no way to report it at this point. Save it in the transport,
		// the App returns it when binding
		return Transport{error: err}
	}

	return HTTPS(c)
}

// HTTPS serves TLS with the passed certificates.
func HTTPS(certs ...tls.Certificate) Transport {
	switch {
	case len(certs) == 0:
		return Transport{error: ErrNoCertificates}
	case !noEmptyCerts(certs):
		return Transport{error: ErrBadCertificate}
	}

	return Transport{
		inner: transport.NewTLS(certs),
	}
}

// AutoHTTPS issues certificates via ACME for the domains. If the transport is bound
// to a loopback address, a self-signed certificate is generated instead.
func AutoHTTPS(domains ...string) Transport {
	return Transport{
		domains: domains,
		auto:    true,
	}
}

// Cert loads a certificate. In case of an error an empty certificate is returned,
// which is reported by HTTPS.
func Cert(cert, key string) tls.Certificate {
	c, _ := tls.LoadX509KeyPair(cert, key)
	return c
}

func (t Transport) resolve() (transport.Transport, error) {
	if t.error != nil {
		return nil, t.error
	}

	if !t.auto {
		return t.inner, nil
	}

	cacheDir := transport.DefaultCacheDir()

	if isLoopback(t.addr) {
		cert, key, err := generateSelfSignedCert(cacheDir)
		if err != nil {
			return nil, err
		}

		return TLS(cert, key).resolve()
	}

	return transport.NewAutoTLS(cacheDir, t.domains...)
}

func noEmptyCerts(certs []tls.Certificate) bool {
	for _, c := range certs {
		if c.Certificate == nil {
			return false
		}
	}

	return true
}
