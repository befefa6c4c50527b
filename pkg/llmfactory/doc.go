// Package llmfactory creates provider models, from explicit client options
// or from a configuration file with model selection by name or provider type.
package llmfactory
