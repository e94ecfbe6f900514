package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitdesk", Name: "http_requests_total", Help: "Handled API requests",
	}, []string{"method", "route", "status"})
	RangeSync = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitdesk", Name: "range_sync_total", Help: "Range write-backs issued by the period reconciler",
	}, []string{"op", "result"})
	TemplateExports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitdesk", Name: "template_exports_total", Help: "Template calendar exports",
	}, []string{"format"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, RangeSync, TemplateExports)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(method, route string, status int) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func ObserveSync(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RangeSync.WithLabelValues(op, result).Inc()
}
