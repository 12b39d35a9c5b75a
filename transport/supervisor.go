package transport

import (
	"net"
	"sync"

	"github.com/indigo-web/negotiator/config"
)

// Supervisor runs a bunch of transports at once. If any of them fails, the others are
// stopped too.
type Supervisor struct {
	ts       []boundTransport
	stopOnce *sync.Once
	stopch   chan struct{}
}

func NewSupervisor() Supervisor {
	return Supervisor{
		stopOnce: new(sync.Once),
		stopch:   make(chan struct{}),
	}
}

// Add binds the transport to the address. If binding fails, all the previously bound
// transports are closed.
func (s *Supervisor) Add(addr string, transport Transport, cb func(net.Conn)) error {
	if err := transport.Bind(addr); err != nil {
		s.close()
		return err
	}

	s.ts = append(s.ts, boundTransport{
		cb: cb,
		t:  transport,
	})

	return nil
}

// Run blocks until either any transport fails or Stop is called. In the first case,
// the error is returned.
func (s *Supervisor) Run(cfg config.NET) error {
	if len(s.ts) == 0 {
		return nil
	}

	errch := make(chan error, len(s.ts))

	for _, t := range s.ts {
		go func(t boundTransport) {
			errch <- t.t.Listen(cfg, t.cb)
		}(t)
	}

	select {
	case err := <-errch:
		s.shutdown()
		drain(errch, len(s.ts)-1)

		return err
	case <-s.stopch:
		s.shutdown()
		drain(errch, len(s.ts))

		return nil
	}
}

// Stop makes Run return. The call isn't blocking: once it returned, the transports
// may be still serving their connections.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopch)
	})
}

func (s *Supervisor) shutdown() {
	for _, t := range s.ts {
		t.t.Stop()
	}

	// closing the listeners interrupts pending Accept calls
	s.close()

	for _, t := range s.ts {
		t.t.Wait()
	}
}

func (s *Supervisor) close() {
	for _, t := range s.ts {
		t.t.Close()
	}
}

type boundTransport struct {
	cb func(conn net.Conn)
	t  Transport
}

func drain(ch <-chan error, n int) {
	for range n {
		<-ch
	}
}
