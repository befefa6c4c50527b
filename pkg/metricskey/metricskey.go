package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMCallsSucceeded is base for counter metric for successful provider calls
	StatsLLMCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_succeeded",
		Help:         "stats_llm_calls_succeeded provides total provider calls succeeded",
		RequiredTags: []string{"provider", "model", "operation"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total provider calls failed",
		RequiredTags: []string{"provider", "model", "operation"},
	}

	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMStreamChunks = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_stream_chunks",
		Help:         "stats_llm_stream_chunks provides total stream chunks received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsBatchItemsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_batch_items_succeeded",
		Help:         "stats_batch_items_succeeded provides total batch items succeeded",
		RequiredTags: []string{"batch"},
	}

	StatsBatchItemsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_batch_items_failed",
		Help:         "stats_batch_items_failed provides total batch items failed",
		RequiredTags: []string{"batch"},
	}
)

// Perf
var (
	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of provider call",
		RequiredTags: []string{"provider", "model", "operation"},
	}

	PerfBatchRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_batch_run",
		Help:         "perf_batch_run provides duration of batch run",
		RequiredTags: []string{"batch"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfBatchRun,
	&PerfLLMCall,
	&StatsBatchItemsFailed,
	&StatsBatchItemsSucceeded,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMCallsFailed,
	&StatsLLMCallsSucceeded,
	&StatsLLMMessagesSent,
	&StatsLLMStreamChunks,
}
