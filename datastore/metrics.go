package datastore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the prometheus surface a collection and its merger report
// into, wired the way module/metrics.go and ledger/complete/wal expose
// Prometheus collectors. A nil *Metrics disables reporting.
type Metrics struct {
	itemsMerged  prometheus.Counter
	bytesMerged  prometheus.Counter
	filesRetired prometheus.Counter
}

// NewMetrics registers the data file collection's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		itemsMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "merklecore",
			Subsystem: "datastore",
			Name:      "items_merged_total",
			Help:      "Items copied forward by the background merger.",
		}),
		bytesMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "merklecore",
			Subsystem: "datastore",
			Name:      "bytes_merged_total",
			Help:      "Bytes written to merge output files.",
		}),
		filesRetired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "merklecore",
			Subsystem: "datastore",
			Name:      "files_retired_total",
			Help:      "Input files deleted after a successful merge.",
		}),
	}
}

func (m *Metrics) observeMerge(items uint32, bytesWritten int64, filesRetired int) {
	if m == nil {
		return
	}
	m.itemsMerged.Add(float64(items))
	m.bytesMerged.Add(float64(bytesWritten))
	m.filesRetired.Add(float64(filesRetired))
}
