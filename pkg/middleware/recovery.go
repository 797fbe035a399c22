package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "cowork/pkg/errors"
	"cowork/pkg/logger"
)

// Recovery turns a handler panic into a 500 unless headers already went out.
// http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	log = log.Component("recovery")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw, ok := w.(*responseWriter)
			if !ok {
				rw = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, isErr := rec.(error); isErr && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				log.Error("Panic recovered",
					"request_id", RequestIDFrom(r.Context()),
					"error", fmt.Sprint(rec),
					"method", r.Method,
					"path", r.URL.Path,
					"headers_sent", rw.written,
					"stack", string(debug.Stack()),
				)
				if !rw.written {
					writeJSONError(rw, http.StatusInternalServerError, apperrors.CodeInternal, "Internal server error")
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
