package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Documents    *prometheus.CounterVec
	ParseErrors  *prometheus.CounterVec
	LineItems    prometheus.Counter
	Exported     prometheus.Counter
	Fetched      prometheus.Counter
	ParseSeconds prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderscan_documents_total",
		Help: "Documents processed, by final status.",
	}, []string{"status"})
	parseErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderscan_parse_errors_total",
		Help: "Parse failures, by error kind.",
	}, []string{"kind"})
	lineItems := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderscan_line_items_total"})
	exported := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderscan_exports_total"})
	fetched := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderscan_fetched_messages_total"})
	parseSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderscan_parse_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(documents, parseErrors, lineItems, exported, fetched, parseSeconds)
	return &Registry{
		reg:          r,
		Documents:    documents,
		ParseErrors:  parseErrors,
		LineItems:    lineItems,
		Exported:     exported,
		Fetched:      fetched,
		ParseSeconds: parseSeconds,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
