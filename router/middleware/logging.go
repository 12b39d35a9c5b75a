package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/indigo-web/negotiator/http"
	"github.com/indigo-web/negotiator/router"
)

// LogRequests logs every request after the response is produced. The default slog
// logger is used, if none is passed.
func LogRequests(logger *slog.Logger) router.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next router.Handler, request *http.Request) *http.Response {
		start := time.Now()
		response := next(request)

		attrs := []slog.Attr{
			slog.String("method", request.Method.String()),
			slog.String("path", request.Path),
			slog.Duration("took", time.Since(start)),
		}

		if response != nil {
			attrs = append(attrs, slog.Int("code", int(response.StatusCode())))
		}

		if request.Remote != nil {
			attrs = append(attrs, slog.String("remote", request.Remote.String()))
		}

		logger.LogAttrs(context.Background(), slog.LevelInfo, "request", attrs...)

		return response
	}
}
