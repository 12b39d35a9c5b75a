package router

import (
	"github.com/indigo-web/negotiator/http"
)

// Router produces a response for a complete request. Returning nil makes the negotiator
// fall back to the default response, pre-filled by the parser.
type Router interface {
	OnRequest(request *http.Request) *http.Response
}

type (
	Handler    func(request *http.Request) *http.Response
	Middleware func(next Handler, request *http.Request) *http.Response
)

// Compose wraps the handler into middlewares. The first middleware is the outermost one.
func Compose(handler Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw, next := middlewares[i], handler
		handler = func(request *http.Request) *http.Response {
			return mw(next, request)
		}
	}

	return handler
}
