// Package exporters exposes the process metrics over HTTP.
package exporters

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/pixelnode/internal/version"
)

var registerBuildInfo sync.Once

// HTTPHandler serves the default registry in the Prometheus text format,
// with a pixelnode_build_info gauge and the scrape counters promhttp keeps
// about itself. Gather errors are reported in the response body.
func HTTPHandler() http.Handler {
	registerBuildInfo.Do(func() {
		info := version.Get()
		prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pixelnode_build_info",
			Help: "Always 1, labelled with the running build.",
			ConstLabels: prometheus.Labels{
				"version":   info.Version,
				"commit":    info.GitCommit,
				"goversion": info.GoVersion,
			},
		}, func() float64 { return 1 }))
	})

	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}))
}
