package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler serves reg in the Prometheus exposition formats. OpenMetrics is
// enabled so scrapers that negotiate it can carry exemplars. Registering the
// handler's own instrumentation on the same registry keeps scrape counts
// visible next to the run metrics.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.InstrumentMetricHandler(reg,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
}
