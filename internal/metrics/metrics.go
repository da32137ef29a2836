package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	PinKindImage    = "image"
	PinKindMetadata = "metadata"
)

var (
	CertificateMints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificate_mints_total",
			Help: "Total number of certificate mint attempts",
		},
		[]string{"layout", "status"},
	)

	CertificateMintDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certificate_mint_duration_seconds",
			Help:    "Duration of a full compose, pin and register run in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"layout"},
	)

	CertificatePins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificate_pins_total",
			Help: "Total number of IPFS pin requests",
		},
		[]string{"kind", "status"},
	)

	BatchRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_rows_total",
			Help: "Total number of batch rows processed",
		},
		[]string{"status"},
	)

	BatchesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batches_active",
			Help: "Number of batch runs in progress",
		},
	)
)

// Status maps an error to the status label.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
