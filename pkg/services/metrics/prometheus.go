package metrics

import (
	"github.com/compactmint/compactmint/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewPrometheusService creates a new service for gathering prometheus metrics.
func NewPrometheusService(cfg config.BasicService, log *zap.Logger) *Service {
	return NewService("Prometheus", cfg, promhttp.Handler(), log)
}
