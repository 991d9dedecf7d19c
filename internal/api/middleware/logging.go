package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RequestLogger пишет строку на каждый запрос: 5xx как ошибку, 4xx как предупреждение
func RequestLogger(logger Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			switch {
			case rec.status >= http.StatusInternalServerError:
				logger.Error("HTTP %s %s - %d in %s", r.Method, r.URL.Path, rec.status, elapsed)
			case rec.status >= http.StatusBadRequest:
				logger.Warn("HTTP %s %s - %d in %s", r.Method, r.URL.Path, rec.status, elapsed)
			default:
				logger.Info("HTTP %s %s - %d in %s", r.Method, r.URL.Path, rec.status, elapsed)
			}
		})
	}
}
