package configurations

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel       = "error_type"
	configurationLabel = "configuration"
)

var (
	downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dsa_configuration_downloads",
		Help: "The number of configuration downloads started.",
	}, []string{
		configurationLabel,
	})

	downloadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dsa_configuration_download_errors",
		Help: "The errors that occurred while downloading or extracting a configuration.",
	}, []string{
		configurationLabel,
		errTypeLabel,
	})

	downloadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dsa_configuration_download_latency",
		Help:    "The time to download and extract a configuration.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{
		configurationLabel,
	})
)

func instrumentDownload(name string) {
	downloads.With(prometheus.Labels{
		configurationLabel: name,
	}).Inc()
}

func instrumentDownloadResult(name string, start time.Time, err error) {
	if err != nil {
		downloadErrors.
			With(prometheus.Labels{
				configurationLabel: name,
				errTypeLabel:       errors.Type(err),
			}).
			Inc()
		return
	}

	downloadLatency.With(prometheus.Labels{
		configurationLabel: name,
	}).Observe(time.Since(start).Seconds())
}
