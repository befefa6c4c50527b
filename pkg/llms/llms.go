package llms

import (
	"context"
	"iter"
	"strings"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is any OpenAI-compatible HTTP endpoint.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAzure is Azure OpenAI.
	ProviderAzure ProviderType = "AZURE"
	// ProviderBedrock is AWS Bedrock.
	ProviderBedrock ProviderType = "BEDROCK"
	// ProviderGoogleAI is Google Gemini.
	ProviderGoogleAI ProviderType = "GOOGLEAI"
)

// ParseProviderType returns the provider type for the given name,
// names are case-insensitive.
func ParseProviderType(name string) (ProviderType, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "OPENAI", "OPEN_AI":
		return ProviderOpenAI, true
	case "AZURE", "AZURE_OPENAI":
		return ProviderAzure, true
	case "BEDROCK", "AWS_BEDROCK":
		return ProviderBedrock, true
	case "GEMINI", "GOOGLEAI", "GOOGLE":
		return ProviderGoogleAI, true
	}
	return "", false
}

//go:generate mockgen -destination=../../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/effective-security/llmfacade/pkg/llms Model

// Model is the capability contract every provider adapter implements.
type Model interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GetName returns the default model name.
	GetName() string
	// Complete runs a single free-text completion.
	Complete(ctx context.Context, prompt string, options ...CallOption) (Outcome, error)
	// Chat runs a full conversation turn.
	Chat(ctx context.Context, messages []Message, options ...CallOption) (Outcome, error)
	// ChatStream returns a single-use sequence of text deltas.
	// The transport is opened on the first pull and released when
	// the sequence ends or the caller stops ranging.
	ChatStream(ctx context.Context, messages []Message, options ...CallOption) iter.Seq2[string, error]
	// Vision runs a chat turn with the images injected into the final user message.
	Vision(ctx context.Context, prompt string, imagePaths []string, options ...CallOption) (Outcome, error)
}

// CompletionStreamer is implemented by the models with a native streaming completion endpoint,
// see CapabilityCompletion.
type CompletionStreamer interface {
	// CompleteStream returns a single-use sequence of completion text deltas.
	CompleteStream(ctx context.Context, prompt string, options ...CallOption) iter.Seq2[string, error]
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// CapabilityCompletion is a native free-text completion endpoint.
	CapabilityCompletion Capability = 1 << iota
	// CapabilityChat is chat completion.
	CapabilityChat
	// CapabilityStreaming is streaming chat.
	CapabilityStreaming
	// CapabilityVision is image input.
	CapabilityVision
	// CapabilityGuidedJSON is schema constrained output.
	CapabilityGuidedJSON
	// CapabilitySystemPrompt is a first class system role.
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityCompletion |
		CapabilityChat |
		CapabilityStreaming |
		CapabilityVision |
		CapabilityGuidedJSON |
		CapabilitySystemPrompt,

	ProviderAzure: CapabilityCompletion |
		CapabilityChat |
		CapabilityStreaming |
		CapabilityVision |
		CapabilityGuidedJSON |
		CapabilitySystemPrompt,

	// Bedrock has no standalone completion in Converse, it is routed through chat
	ProviderBedrock: CapabilityChat |
		CapabilityStreaming |
		CapabilityVision |
		CapabilityGuidedJSON |
		CapabilitySystemPrompt,

	ProviderGoogleAI: CapabilityChat |
		CapabilityStreaming |
		CapabilityVision |
		CapabilityGuidedJSON |
		CapabilitySystemPrompt,
}

// ProviderCapabilities returns the capability mask of the provider.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

// Supports returns true if the provider supports the capability.
func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}

func (p ProviderType) String() string {
	return string(p)
}
