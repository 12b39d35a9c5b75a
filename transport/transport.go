package transport

import (
	"net"

	"github.com/indigo-web/negotiator/config"
)

// Transport is a listening side of the connections. Every accepted connection is
// passed to the callback in its own goroutine.
type Transport interface {
	Bind(addr string) error
	Listen(cfg config.NET, cb func(conn net.Conn)) error
	Addr() net.Addr
	Stop()
	Close()
	Wait()
}
