package middleware

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/constants"
	"github.com/enerflow/metering/pkg/httpapi"
)

// LoggerOptions tune the request logging middleware.
type LoggerOptions struct {
	RequestIDHeader string
	RealIPHeader    string
}

func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

// Status returns the HTTP status code.
func (w *responseWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	if ww, ok := w.(*responseWriter); ok {
		return ww
	}
	return &responseWriter{ResponseWriter: w}
}

func realIP(r *http.Request, opts LoggerOptions) string {
	if ip := r.Header.Get(opts.RealIPHeader); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func requestID(r *http.Request, opts LoggerOptions) string {
	if id := r.Header.Get(opts.RequestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// WithLogger attaches a per-request logrus entry to the context, recovers
// handler panics into a stable JSON response and logs every request with its
// status and duration.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := requestID(r, opts)

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": id,
				"path":       r.RequestURI,
				"method":     r.Method,
				"ip":         realIP(r, opts),
			})

			ctx := context.WithValue(r.Context(), constants.LoggerKey, fieldsLogger)
			ctx = context.WithValue(ctx, constants.RequestStart, start)

			w.Header().Set("X-Request-Id", id)
			ww := wrapResponseWriter(w)

			defer func() {
				if recovered := recover(); recovered != nil {
					fieldsLogger.WithFields(logrus.Fields{
						"panic":    recovered,
						"stack":    string(debug.Stack()),
						"duration": time.Since(start),
					}).Error("panic recovered in request handler")

					if !ww.statusWritten {
						_ = httpapi.WriteError(
							ww, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR", "internal server error",
							map[string]string{"request_id": id},
						)
					}
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))

			fieldsLogger.WithFields(logrus.Fields{
				"duration":    time.Since(start),
				"status-code": ww.Status(),
			}).Info("request completed")
		})
	}
}

// RequestParams stores transport-level request details for handlers that
// need them outside the *http.Request itself.
func RequestParams(opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithParams(r.Context(), &composables.Params{
				IP:            realIP(r, opts),
				UserAgent:     r.UserAgent(),
				Authenticated: composables.UseAuthenticated(r.Context()),
				Request:       r,
				Writer:        w,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
