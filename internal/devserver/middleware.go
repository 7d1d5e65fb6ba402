package devserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/colthorp/devdocs-cli-go/internal/core"
)

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDFrom returns the correlation id stored by withRequestID.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// withRequestID reuses the caller's X-Request-ID or generates one, and echoes
// it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(core.RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(core.RequestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
	})
}

// accessLog writes one structured line per request, at warn for 4xx and
// error for 5xx.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := s.logger.Info()
		switch {
		case status >= 500:
			ev = s.logger.Error()
		case status >= 400:
			ev = s.logger.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Str("request_id", requestIDFrom(r.Context())).
			Str("client_time", r.Header.Get(core.RequestTimeHeader)).
			Msg("request")
	})
}

// recoverer turns panics into JSON 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", requestIDFrom(r.Context())).
					Msg("panic recovered")
				writeError(w, r, http.StatusInternalServerError, "InternalServerError", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// bearerAuth requires "Authorization: Bearer <token>" when a token is set.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(s.token)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "HTTPError", "Not authenticated", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
