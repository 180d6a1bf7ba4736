package llm

import "github.com/prometheus/client_golang/prometheus"

// CompletionCounter exposes the completion counter of the scripted test provider.
func CompletionCounter(operation, status string) prometheus.Counter {
	return completionsTotal.WithLabelValues("scripted", operation, status)
}
