package negotiator

import (
	"context"
	"log/slog"
	"net"

	"github.com/indigo-web/negotiator/config"
	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/internal/protocol/http1"
	"github.com/indigo-web/negotiator/negotiation"
	"github.com/indigo-web/negotiator/router"
	"github.com/indigo-web/negotiator/transport"
)

// App accepts connections on the bound transports and negotiates exactly one
// request per connection.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	observer   *negotiation.Observer
	hooks      hooks
	transports []Transport
	supervisor transport.Supervisor
}

// New returns a new App instance with default config.
func New() *App {
	return &App{
		cfg:        config.Default(),
		supervisor: transport.NewSupervisor(),
	}
}

// Tune replaces default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Logger sets the logger for the app and the negotiations. slog.Default() is used
// otherwise.
func (a *App) Logger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// Observe sets the observer recording negotiations. If none is set, the one over the
// global OpenTelemetry providers is used.
func (a *App) Observe(observer *negotiation.Observer) *App {
	a.observer = observer
	return a
}

// OnBind calls the callback on every bound transport with its actual address. Useful
// when the port is chosen by the system.
func (a *App) OnBind(cb func(addr string)) *App {
	a.hooks.OnBind = cb
	return a
}

// NotifyOnStart calls the callback at the moment, when all the transports are bound.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback at the moment, when all the transports are down and
// aren't accepting new connections anymore.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Listen adds a new transport. If none is passed, TCP is used.
func (a *App) Listen(addr string, optionalTransport ...Transport) *App {
	t := TCP()
	if len(optionalTransport) > 0 {
		t = optionalTransport[0]
	}

	t.addr = addr
	a.transports = append(a.transports, t)

	return a
}

// Serve binds all the transports and blocks until Stop is called or any of the
// transports fails. If no router is passed, every request gets an empty 200 OK response.
func (a *App) Serve(r router.Router) error {
	if a.logger == nil {
		a.logger = slog.Default()
	}

	if a.observer == nil {
		observer, err := negotiation.GlobalObserver()
		if err != nil {
			return err
		}

		a.observer = observer
	}

	// all the transports are resolved before any of them is bound
	inners := make([]transport.Transport, len(a.transports))
	for i, t := range a.transports {
		inner, err := t.resolve()
		if err != nil {
			return err
		}

		inners[i] = inner
	}

	serve := a.serveConn(r)

	for i, inner := range inners {
		if err := a.supervisor.Add(a.transports[i].addr, inner, serve); err != nil {
			return err
		}

		addr := inner.Addr().String()
		a.logger.Info("listening", "addr", addr)
		if a.hooks.OnBind != nil {
			a.hooks.OnBind(addr)
		}
	}

	callIfNotNil(a.hooks.OnStart)
	err := a.supervisor.Run(a.cfg.NET)
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Stop makes Serve return. The call isn't blocking: ongoing negotiations might be still
// running after the method returned.
func (a *App) Stop() {
	a.supervisor.Stop()
}

func (a *App) serveConn(r router.Router) func(net.Conn) {
	return func(conn net.Conn) {
		client := transport.NewConn(conn, a.cfg)
		request := http.NewRequest(a.cfg, conn.RemoteAddr())
		parser := http1.NewParser(a.cfg, request, http.NewResponse())
		// errors are logged by the negotiation itself
		_ = negotiation.New(a.cfg, client, parser, r, a.observer, a.logger).
			Negotiate(context.Background())
	}
}

type hooks struct {
	OnBind          func(string)
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
