package simple

import (
	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/router"
)

var _ router.Router = new(Router)

// Router passes every request to the single handler.
type Router struct {
	handler router.Handler
}

func New(handler router.Handler, middlewares ...router.Middleware) *Router {
	return &Router{
		handler: router.Compose(handler, middlewares...),
	}
}

func (r *Router) OnRequest(request *http.Request) *http.Response {
	return r.handler(request)
}
