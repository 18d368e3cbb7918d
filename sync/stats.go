package sync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stats accumulates the counters an exchange reports on completion: volume
// moved, the shape of what was moved, and how much of it was redundant
// (already present on the learner and so never actually sent).
type Stats struct {
	BytesSent     int64
	ObjectsSent   int64
	LeafCount     int64
	InternalCount int64
	RedundantCount int64
	SyncDuration  time.Duration
	InitDuration  time.Duration
}

// Metrics is the prometheus surface an exchange reports into. A nil
// *Metrics is valid and simply disables reporting, the same convention the
// teacher's module.Metrics implementations use for no-op collectors.
type Metrics struct {
	objectsSent   prometheus.Counter
	bytesSent     prometheus.Counter
	redundant     prometheus.Counter
	syncDuration  prometheus.Histogram
}

// NewMetrics registers the sync subsystem's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		objectsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "merklecore",
			Subsystem: "sync",
			Name:      "objects_sent_total",
			Help:      "Number of NODE_DATA messages transmitted by a teacher.",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "merklecore",
			Subsystem: "sync",
			Name:      "bytes_sent_total",
			Help:      "Bytes transmitted across all reconnect exchanges.",
		}),
		redundant: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "merklecore",
			Subsystem: "sync",
			Name:      "redundant_acks_total",
			Help:      "Child slots the learner already held locally and so were never re-sent.",
		}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "merklecore",
			Subsystem: "sync",
			Name:      "exchange_duration_seconds",
			Help:      "Wall-clock duration of a full teacher/learner exchange.",
		}),
	}
}

func (m *Metrics) observe(s *Stats) {
	if m == nil {
		return
	}
	m.objectsSent.Add(float64(s.ObjectsSent))
	m.bytesSent.Add(float64(s.BytesSent))
	m.redundant.Add(float64(s.RedundantCount))
	m.syncDuration.Observe(s.SyncDuration.Seconds())
}
