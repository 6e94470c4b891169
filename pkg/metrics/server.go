package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/membreg/reconciler/pkg/log"
	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

// Server exposes /metrics while a run is in progress so the scraper can follow it.
type Server struct {
	bindAddress string
	httpServer  *http.Server
	listener    net.Listener
}

func NewServer(bindAddress string, listener net.Listener) *Server {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		log.RequestLogger(zap.L(), "metrics_server"),
		middleware.Recoverer,
	)
	router.Handle("/metrics", NewPrometheusMetricsHandler())
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Server{
		bindAddress: bindAddress,
		listener:    listener,
		httpServer: &http.Server{
			Addr:              bindAddress,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled.
func (m *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		m.httpServer.SetKeepAlivesEnabled(false)
		_ = m.httpServer.Shutdown(ctxTimeout)
		zap.S().Named("metrics_server").Info("metrics server terminated")
	}()

	zap.S().Named("metrics_server").Infof("serving metrics: %s", m.bindAddress)
	if err := m.httpServer.Serve(m.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
