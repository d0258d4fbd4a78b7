package middleware

import (
	"net/http"
	"time"

	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging logs one line per request; server errors at error level.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		lvl := zapcore.InfoLevel
		if rw.status >= http.StatusInternalServerError {
			lvl = zapcore.ErrorLevel
		}
		logger.L().Log(lvl, "request",
			zap.String("id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
