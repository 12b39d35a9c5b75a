package middleware

import (
	"encoding/base64"
	"strings"

	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/http/mime"
	"github.com/indigo-web/negotiator/http/status"
	"github.com/indigo-web/negotiator/router"
	"github.com/indigo-web/utils/strcomp"
)

// Verifier checks the user's password. *auth.Adapter satisfies it.
type Verifier interface {
	Verify(user, password string) bool
}

// User returns the name of the user authenticated by BasicAuth. Empty if there is none.
func User(request *http.Request) string {
	user, _, _ := credentials(request)
	return user
}

// BasicAuth lets the request through only if any of the verifiers accepts the
// credentials from the Authorization header. Otherwise, 401 Unauthorized is returned
// with the challenge for the realm.
func BasicAuth(realm string, verifiers ...Verifier) router.Middleware {
	challenge := `Basic realm="` + strings.ReplaceAll(realm, `"`, `\"`) + `", charset="UTF-8"`

	return func(next router.Handler, request *http.Request) *http.Response {
		if user, password, ok := credentials(request); ok {
			for _, v := range verifiers {
				if v.Verify(user, password) {
					return next(request)
				}
			}
		}

		return http.NewResponse().
			Protocol(request.Protocol).
			Code(status.Unauthorized).
			Header("WWW-Authenticate", challenge).
			ContentType(mime.Plain).
			String("unauthorized")
	}
}

func credentials(request *http.Request) (user, password string, ok bool) {
	if request.Headers == nil {
		return "", "", false
	}

	scheme, token, found := strings.Cut(request.Headers.Value("authorization"), " ")
	if !found || !strcomp.EqualFold(scheme, "basic") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", "", false
	}

	return strings.Cut(string(decoded), ":")
}
