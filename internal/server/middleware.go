package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/lookup"
)

// requestID echoes the caller's correlation id, or assigns one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(lookup.RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(lookup.RequestIDHeader, id)
		}
		w.Header().Set(lookup.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", r.Header.Get(lookup.RequestIDHeader)))
	})
}

// actingUser returns the portal user named in the request.
func actingUser(r *http.Request) string {
	if u := r.Header.Get(UserHeader); u != "" {
		return u
	}
	return DefaultUser
}
