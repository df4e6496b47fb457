package alerts

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusLabel    = "status"
	conditionLabel = "condition"
	activeLabel    = "active"
)

var (
	alertCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dsa_alert_count",
		Help: "The number of alerts in the alert list.",
	})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dsa_alerts_total",
		Help: "The total number of alerts added to the alert list.",
	}, []string{statusLabel})

	conditionEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dsa_alert_condition_evaluations_total",
		Help: "The total number of alert condition evaluations.",
	}, []string{conditionLabel, activeLabel})
)

func instrumentAlertAdded(s Status, count int) {
	alertsTotal.
		With(prometheus.Labels{statusLabel: s.String()}).
		Inc()
	alertCount.Set(float64(count))
}

func instrumentAlertRemoved(count int) {
	alertCount.Set(float64(count))
}

func instrumentConditionEvaluated(condition string, active bool) {
	conditionEvaluations.
		With(prometheus.Labels{
			conditionLabel: condition,
			activeLabel:    strconv.FormatBool(active),
		}).
		Inc()
}
