package packages

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	operationLabel = "operation"
	resultLabel    = "result"
)

var (
	packageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dsa_package_operations_total",
		Help: "The number of package probes, unpacks and loads.",
	}, []string{
		operationLabel,
		resultLabel,
	})

	unpackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dsa_package_unpack_duration_seconds",
		Help:    "The time it takes to unpack a package.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func instrumentOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	packageOperations.
		With(prometheus.Labels{
			operationLabel: operation,
			resultLabel:    result,
		}).
		Inc()
}

func instrumentUnpack(start time.Time, err error) {
	instrumentOperation("unpack", err)
	if err == nil {
		unpackDuration.Observe(time.Since(start).Seconds())
	}
}
