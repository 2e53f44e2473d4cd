// Package metrics contains Prometheus and pprof helper services.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/compactmint/compactmint/pkg/config"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Service serves metrics or pprof data over HTTP.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string
	started     bool
	lock        sync.Mutex
}

// NewService configures a service listening on all of the configured
// addresses with the given handler.
func NewService(name string, cfg config.BasicService, handler http.Handler, log *zap.Logger) *Service {
	addrs := cfg.GetAddresses()
	srvs := make([]*http.Server, len(addrs))
	for i, addr := range addrs {
		srvs[i] = &http.Server{
			Addr:    addr,
			Handler: handler,
		}
	}
	return &Service{
		http:        srvs,
		config:      cfg,
		serviceType: name,
		log:         log.With(zap.String("service", name)),
	}
}

// Start runs the service's HTTP servers (if enabled). Failures of
// individual listeners are logged, not returned.
func (ms *Service) Start() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if ms.started {
		ms.log.Info("service already started")
		return nil
	}
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return nil
	}
	for _, srv := range ms.http {
		ms.log.Info("starting service", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server) {
			err := srv.ListenAndServe()
			if !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to start service", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv)
	}
	ms.started = true
	return nil
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if !ms.started {
		return
	}
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := srv.Shutdown(ctx)
		cancel()
		if err != nil {
			ms.log.Error("can't shut service down", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	ms.started = false
}
