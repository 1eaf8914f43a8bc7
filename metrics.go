package portal

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered on the App's own registry so several Apps (tests)
// can coexist in one process.
type metrics struct {
	uploads *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		uploads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "uploads_total",
			Help:      "Multipart uploads handled, by target and outcome.",
		}, []string{"target", "outcome"}),
	}
}

func (m *metrics) upload(target string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.uploads.WithLabelValues(target, outcome).Inc()
}

func (a *App) metricsHandler() echo.HandlerFunc {
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.registry})
}
