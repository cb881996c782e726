package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PrometheusMetricsHandler struct {
	handler http.Handler
}

// NewPrometheusMetricsHandler serves the default registry.
func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{handler: promhttp.Handler()}
}

func (p *PrometheusMetricsHandler) Handler() http.Handler {
	return p.handler
}
