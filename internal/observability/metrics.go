package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mailhub_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	Enqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mailhub_enqueued_total", Help: "Tasks accepted onto tenant queues"},
		[]string{"brand"},
	)
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mailhub_send_total", Help: "Send outcomes"},
		[]string{"brand", "result"},
	)
	SendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "mailhub_send_latency_seconds", Help: "SMTP send latency"},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mailhub_rate_limited_total", Help: "Worker backoffs due to the tenant window"},
		[]string{"brand"},
	)
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "mailhub_queue_depth", Help: "Pending tasks per tenant"},
		[]string{"brand"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, Enqueued, Sends, SendLatency, RateLimited, QueueDepth)
}
