// Package callstats emits the metrics of a single provider call.
package callstats

import (
	"time"

	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llmutils"
	"github.com/effective-security/llmfacade/pkg/metricskey"
)

// Operation names used as the metric tag.
const (
	OpComplete       = "complete"
	OpCompleteStream = "complete_stream"
	OpChat           = "chat"
	OpChatStream     = "chat_stream"
)

// Call tracks a single provider call.
type Call struct {
	Provider  string
	Model     string
	Operation string
	Started   time.Time
}

// Start records the request metrics and returns the call tracker.
func Start(provider llms.ProviderType, model, operation string, messages []llms.Message) *Call {
	c := &Call{
		Provider:  provider.String(),
		Model:     model,
		Operation: operation,
		Started:   time.Now(),
	}
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), c.Provider, c.Model)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(llmutils.CountMessagesContentSize(messages)), c.Provider, c.Model)
	return c
}

// StartPrompt is Start for a single prompt.
func StartPrompt(provider llms.ProviderType, model, operation, prompt string) *Call {
	return Start(provider, model, operation, []llms.Message{llms.UserMessage(prompt)})
}

// Chunk records a stream chunk.
func (c *Call) Chunk(text string) {
	metricskey.StatsLLMStreamChunks.IncrCounter(1, c.Provider, c.Model)
	metricskey.StatsLLMBytesReceived.IncrCounter(float64(len(text)), c.Provider, c.Model)
}

// Done records the duration and the result of the call.
func (c *Call) Done(text string, err error) {
	metricskey.PerfLLMCall.MeasureSince(c.Started, c.Provider, c.Model, c.Operation)
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, c.Provider, c.Model, c.Operation)
		return
	}
	metricskey.StatsLLMCallsSucceeded.IncrCounter(1, c.Provider, c.Model, c.Operation)
	if text != "" {
		metricskey.StatsLLMBytesReceived.IncrCounter(float64(len(text)), c.Provider, c.Model)
	}
}
