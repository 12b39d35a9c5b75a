package middleware

import (
	"fmt"

	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/http/status"
	"github.com/indigo-web/negotiator/router"
)

// Recover catches panics in the handler and responds with 500 Internal Server Error
// instead. Whatever the handler had prepared is discarded.
func Recover(next router.Handler, request *http.Request) (response *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			response = http.NewResponse().
				Protocol(request.Protocol).
				Error(fmt.Errorf("panic: %v", r), status.InternalServerError)
		}
	}()

	return next(request)
}
