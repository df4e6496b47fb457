package tools

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	toolLabel    = "tool"
	errTypeLabel = "error_type"
)

var (
	toolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dsa_tool_errors",
		Help: "The errors reported by tools.",
	}, []string{
		toolLabel,
		errTypeLabel,
	})
)

func instrumentToolError(tool, errType string) {
	toolErrors.
		With(prometheus.Labels{
			toolLabel:    tool,
			errTypeLabel: errType,
		}).
		Inc()
}
