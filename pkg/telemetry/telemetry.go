package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"messengerdb/pkg/store"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messengerdb_messages_sent_total",
		Help: "Messages durably appended to the message log.",
	})

	ConversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messengerdb_conversations_created_total",
		Help: "Conversations created on first contact.",
	})

	// DegradedWrites counts secondary projection writes that failed
	// after the primary log append succeeded. These are never surfaced
	// to callers; this counter is how operators see them.
	DegradedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messengerdb_degraded_writes_total",
		Help: "Secondary projection writes swallowed after a durable primary write.",
	}, []string{"projection"})

	SweeperPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messengerdb_sweeper_pruned_rows_total",
		Help: "Stale conversation summary rows deleted by the sweeper.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "messengerdb_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)

func init() {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "messengerdb_store_disk_bytes",
		Help: "Best-effort on-disk size of the Pebble store.",
	}, func() float64 { return float64(store.DiskUsageBytes()) })
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// InstrumentHandler wraps an HTTP handler with the request duration
// histogram under the given route label.
func InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		requestDuration.WithLabelValues(route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
