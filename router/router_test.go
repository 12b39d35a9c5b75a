package router

import (
	"testing"

	"github.com/indigo-web/negotiator/http"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Handler, request *http.Request) *http.Response {
			trace = append(trace, name)
			return next(request)
		}
	}

	handler := Compose(func(*http.Request) *http.Response {
		trace = append(trace, "handler")
		return http.NewResponse()
	}, mw("first"), mw("second"))

	require.NotNil(t, handler(nil))
	require.Equal(t, []string{"first", "second", "handler"}, trace)

	t.Run("no middlewares", func(t *testing.T) {
		resp := http.NewResponse()
		handler := Compose(func(*http.Request) *http.Response {
			return resp
		})
		require.Same(t, resp, handler(nil))
	})
}
