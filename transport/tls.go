package transport

import (
	"crypto/tls"
	"net"
)

type TLS struct {
	cfg *tls.Config
	TCP
}

func NewTLS(certs []tls.Certificate) *TLS {
	return NewTLSConfig(&tls.Config{
		Certificates: certs,
	})
}

// NewTLSConfig uses the passed config as is. Used by certificate managers providing
// their own GetCertificate callback.
func NewTLSConfig(cfg *tls.Config) *TLS {
	return &TLS{cfg: cfg, TCP: newTCP(nil)}
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr)
	if err != nil {
		return err
	}

	t.TCP = newTCP(tlsAdapter{tcp, tls.NewListener(tcp, t.cfg)})

	return nil
}

type tlsAdapter struct {
	*net.TCPListener
	tls net.Listener
}

func (t tlsAdapter) Accept() (net.Conn, error) {
	return t.tls.Accept()
}
