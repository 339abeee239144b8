package metrics

import "github.com/prometheus/client_golang/prometheus"

// ToolCallsTotal counts tool invocations by tool name and outcome.
// status is "ok" or "error" (errors reported as envelope data still count).
var ToolCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "searchbridge",
		Name:      "tool_calls_total",
		Help:      "Total number of tool invocations",
	},
	[]string{"tool", "status"},
)

func init() {
	prometheus.MustRegister(ToolCallsTotal)
}
