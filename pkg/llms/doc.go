// Package llms provides a unified interface over several LLM providers:
// OpenAI-compatible HTTP endpoints, Azure OpenAI, AWS Bedrock and Google Gemini.
//
// Each subpackage implements the Model interface for one provider and owns
// its payload building and response unwrapping. The internal directories
// contain the provider wire clients.
//
// The `llms.go` file contains the Model interface and provider capabilities.
//
// The `message.go` file contains the canonical message form, every adapter
// translates a copy of it.
//
// The `options.go` file provides the call options with their defaults.
//
// The `errors.go` and `outcome.go` files contain the error taxonomy and the
// Outcome type returned by the calls.
package llms
