package negotiator

import (
	"bufio"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/negotiator/config"
	"github.com/indigo-web/negotiator/errors"
	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/http/status"
	"github.com/indigo-web/negotiator/negotiation"
	"github.com/indigo-web/negotiator/router"
	"github.com/indigo-web/negotiator/router/middleware"
	"github.com/indigo-web/negotiator/router/simple"
	"github.com/stretchr/testify/require"
)

func getRouter() router.Router {
	return simple.New(func(request *http.Request) *http.Response {
		body, err := io.ReadAll(request.Body)
		if err != nil {
			return http.NewResponse().Error(err, status.InternalServerError)
		}

		return http.NewResponse().
			Protocol(request.Protocol).
			Header("X-Path", request.Path).
			Bytes(body)
	}, middleware.Recover)
}

// run serves the app in background and returns the bound addresses once all the
// transports are ready.
func run(t *testing.T, app *App, r router.Router) []string {
	var addrs []string
	started := make(chan struct{})
	stopped := make(chan error, 1)

	app.
		Logger(nil).
		Observe(negotiation.NoopObserver()).
		OnBind(func(addr string) {
			addrs = append(addrs, addr)
		}).
		NotifyOnStart(func() {
			close(started)
		})

	go func() {
		stopped <- app.Serve(r)
	}()

	select {
	case <-started:
	case err := <-stopped:
		require.FailNow(t, "serve returned prematurely", err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server didn't start in time")
	}

	t.Cleanup(func() {
		app.Stop()
		select {
		case err := <-stopped:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			require.FailNow(t, "server didn't stop in time")
		}
	})

	return addrs
}

func exchange(t *testing.T, conn net.Conn, request string) string {
	_, err := conn.Write([]byte(request))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// the server always closes the connection after responding
	response, err := io.ReadAll(conn)
	require.NoError(t, err)

	return string(response)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.NET.AcceptLoopInterruptPeriod = 50 * time.Millisecond
	return cfg
}

func TestApp(t *testing.T) {
	app := New().Tune(testConfig()).Listen("127.0.0.1:0", TCP())
	addrs := run(t, app, getRouter())
	require.Len(t, addrs, 1)

	dial := func(t *testing.T) net.Conn {
		conn, err := net.Dial("tcp", addrs[0])
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = conn.Close()
		})

		return conn
	}

	t.Run("request with body", func(t *testing.T) {
		response := exchange(t, dial(t),
			"POST /echo?q=1 HTTP/1.1\r\nHost: localhost\r\nContent-Length: 13\r\n\r\nHello, world!",
		)

		require.Equal(t,
			"HTTP/1.1 200 OK\r\nX-Path: /echo\r\nContent-Length: 13\r\nConnection: close\r\n\r\nHello, world!",
			response,
		)
	})

	t.Run("leading empty line", func(t *testing.T) {
		response := exchange(t, dial(t), "\r\nGET / HTTP/1.0\r\n\r\n")
		require.True(t, strings.HasPrefix(response, "HTTP/1.0 200 OK\r\n"), response)
	})

	t.Run("malformed request", func(t *testing.T) {
		response := exchange(t, dial(t), "NOTAMETHOD\r\n")
		require.Equal(t, errors.ErrBadRequestLine.Error()+"\r\n", response)
	})

	t.Run("bad content length", func(t *testing.T) {
		response := exchange(t, dial(t), "POST / HTTP/1.1\r\nContent-Length: abc\r\n\r\n")
		require.Equal(t, errors.ErrBadContentLength.Error()+"\r\n", response)
	})

	t.Run("body split into packets", func(t *testing.T) {
		conn := dial(t)
		_, err := conn.Write([]byte("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhello"))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		response := exchange(t, conn, "world")
		require.True(t, strings.HasSuffix(response, "\r\n\r\nhelloworld"), response)
	})

	t.Run("concurrent", func(t *testing.T) {
		const clients = 16
		results := make(chan string, clients)

		for range clients {
			conn := dial(t)
			go func() {
				_, _ = conn.Write([]byte("GET /concurrent HTTP/1.1\r\n\r\n"))
				_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
				response, _ := io.ReadAll(conn)
				results <- string(response)
			}()
		}

		for range clients {
			response := <-results
			require.True(t, strings.HasPrefix(response, "HTTP/1.1 200 OK\r\n"), response)
			require.Contains(t, response, "X-Path: /concurrent\r\n")
		}
	})
}

func TestAutoHTTPS(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	app := New().Tune(testConfig()).Listen("127.0.0.1:0", AutoHTTPS())
	addrs := run(t, app, getRouter())

	conn, err := tls.Dial("tcp", addrs[0], &tls.Config{InsecureSkipVerify: true})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /secure HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	statusLine, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 200 OK\r\n", statusLine)
}

func TestTransportErrors(t *testing.T) {
	t.Run("no certificates", func(t *testing.T) {
		err := New().Listen("127.0.0.1:0", HTTPS()).Serve(nil)
		require.ErrorIs(t, err, ErrNoCertificates)
	})

	t.Run("empty certificate", func(t *testing.T) {
		err := New().Listen("127.0.0.1:0", HTTPS(Cert("missing.crt", "missing.key"))).Serve(nil)
		require.ErrorIs(t, err, ErrBadCertificate)
	})

	t.Run("missing files", func(t *testing.T) {
		err := New().
			Listen("127.0.0.1:0", TCP()).
			Listen("127.0.0.1:0", TLS("missing.crt", "missing.key")).
			Serve(nil)
		require.Error(t, err)
	})

	t.Run("address in use", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer l.Close()

		err = New().Listen(l.Addr().String()).Serve(nil)
		require.Error(t, err)
	})
}

func TestIsLoopback(t *testing.T) {
	for addr, loopback := range map[string]bool{
		"localhost:80":  true,
		"127.0.0.1:0":   true,
		"[::1]:443":     true,
		"0.0.0.0:80":    false,
		":443":          false,
		"example.com:1": false,
		"garbage":       false,
	} {
		require.Equal(t, loopback, isLoopback(addr), addr)
	}
}
