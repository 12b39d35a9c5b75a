package http

import (
	"io"
	"strings"
	"testing"

	"github.com/indigo-web/negotiator/http/proto"
	"github.com/indigo-web/negotiator/http/status"
	"github.com/stretchr/testify/require"
)

func TestResponse(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		resp := NewResponse()
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n",
			resp.HeaderString(),
		)
	})

	t.Run("headers and body", func(t *testing.T) {
		resp := NewResponse().
			Protocol(proto.HTTP10).
			Code(status.Teapot).
			Header("Hello", "world").
			Header("Content-Length", "100500").
			String("Hello, world!")

		require.Equal(t,
			"HTTP/1.0 418 I'm a teapot\r\n"+
				"Hello: world\r\n"+
				"Content-Length: 13\r\n"+
				"Connection: close\r\n\r\n",
			resp.HeaderString(),
		)

		body, err := io.ReadAll(resp.Body())
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(body))
	})

	t.Run("unsized stream", func(t *testing.T) {
		resp := NewResponse().Status("Fine").Stream(strings.NewReader("data"), -5)
		require.Equal(t, "HTTP/1.1 200 Fine\r\nConnection: close\r\n\r\n", resp.HeaderString())
		require.Equal(t, int64(-1), resp.Size())
	})

	t.Run("defaults", func(t *testing.T) {
		resp := NewResponse().
			Defaults(map[string]string{"Server": "negotiator"})
		require.Contains(t, resp.HeaderString(), "Server: negotiator\r\n")

		resp.Header("server", "custom")
		require.NotContains(t, resp.HeaderString(), "negotiator")
		require.Contains(t, resp.HeaderString(), "server: custom\r\n")
	})

	t.Run("defaults order", func(t *testing.T) {
		defaults := map[string]string{"Server": "negotiator", "Age": "0", "Vary": "*", "Date": "today"}
		want := "HTTP/1.1 200 OK\r\n" +
			"Age: 0\r\nDate: today\r\nServer: negotiator\r\nVary: *\r\n" +
			"Content-Length: 0\r\nConnection: close\r\n\r\n"

		for range 10 {
			require.Equal(t, want, NewResponse().Defaults(defaults).HeaderString())
		}
	})

	t.Run("JSON", func(t *testing.T) {
		resp, err := NewResponse().JSON([]int{1, 2, 3})
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body())
		require.NoError(t, err)
		require.Equal(t, "[1,2,3]", string(body))
		require.Contains(t, resp.HeaderString(), "Content-Type: application/json\r\n")
	})

	t.Run("write", func(t *testing.T) {
		resp := NewResponse()
		_, _ = resp.Write([]byte("Hello, "))
		_, _ = resp.Write([]byte("world!"))
		require.Equal(t, int64(13), resp.Size())
	})

	t.Run("error", func(t *testing.T) {
		resp := NewResponse().Error(io.ErrUnexpectedEOF, status.BadRequest)
		require.Contains(t, resp.HeaderString(), "HTTP/1.1 400 Bad Request\r\n")
		require.Same(t, resp, resp.Error(nil, status.InternalServerError))
	})
}
