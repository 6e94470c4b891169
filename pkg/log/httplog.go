package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs every request served by the metrics endpoint. Successful scrapes
// and health checks are logged at debug so they stay out of the run output.
func RequestLogger(l *zap.Logger, name string) func(next http.Handler) http.Handler {
	if l == nil {
		panic("log.RequestLogger received a nil *zap.Logger")
	}

	logger := l.WithOptions(zap.AddCallerSkip(1)).Named(name)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				fields := []zap.Field{
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("http_method", r.Method),
					zap.String("http_path", r.URL.Path),
					zap.Int("http_status_code", status),
					zap.Int("response_bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
				}

				switch {
				case status >= 500:
					logger.Error("request failed", fields...)
				case status >= 400:
					logger.Warn("request rejected", fields...)
				default:
					logger.Debug("request served", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
