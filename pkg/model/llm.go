package model

import (
	"context"
	"time"
)

// VisionAnalysis is the normalized payload a vision/LLM backend extracts from
// its chat response. Field names mirror the JSON keys requested in every
// mode prompt.
type VisionAnalysis struct {
	Title             string   `json:"title" jsonschema:"description=Title of the subject or a short description when unknown"`
	Artist            string   `json:"artist" jsonschema:"description=Artist, architect, builder or location"`
	Year              string   `json:"year,omitempty" jsonschema:"description=Year, period, season or time of day"`
	Type              string   `json:"type" jsonschema:"description=Medium or kind of subject"`
	Description       string   `json:"description"`
	HistoricalContext string   `json:"historicalContext,omitempty"`
	StyleAnalysis     string   `json:"styleAnalysis,omitempty"`
	Emotions          []string `json:"emotions" jsonschema:"minItems=1,maxItems=5"`
}

// QuickMetadata is the cheap identification answer used for cache lookups.
type QuickMetadata struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   string `json:"year,omitempty"`
}

// VisionAnalyzer is implemented by each remote vision/LLM backend.
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, image Image, mode Mode) (VisionAnalysis, GenerationMetadata, error)
	QuickMetadata(ctx context.Context, image Image) (QuickMetadata, GenerationMetadata, error)
}

type GenerationMetadata map[string]string

const (
	MetadataKeyProvider       = "provider"
	MetadataKeyModel          = "model"
	MetadataKeyLatencyMs      = "latency_ms"
	MetadataKeyInputTokens    = "input_tokens"
	MetadataKeyOutputTokens   = "output_tokens"
	MetadataKeyTotalTokens    = "total_tokens"
	MetadataKeyResponseID     = "response_id"
	MetadataKeyResponseStatus = "response_status"
	MetadataKeyParseFallback  = "parse_fallback"
)

type ProviderOption interface {
	apply(*ProviderConfig)
}

type providerOptionFunc func(*ProviderConfig)

func (f providerOptionFunc) apply(cfg *ProviderConfig) {
	f(cfg)
}

// ProviderConfig carries the settings shared by every remote client. Nil
// pointers mean "use the provider default".
type ProviderConfig struct {
	URL         string
	AuthToken   string
	Model       *string
	MaxTokens   *int
	Temperature *float64
	Region      string
	HTTPTimeout time.Duration
}

func ResolveProviderOpts(opts ...ProviderOption) ProviderConfig {
	cfg := ProviderConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	return cfg
}

func WithURL(value string) ProviderOption {
	return providerOptionFunc(func(cfg *ProviderConfig) {
		cfg.URL = value
	})
}

func WithAuthToken(value string) ProviderOption {
	return providerOptionFunc(func(cfg *ProviderConfig) {
		cfg.AuthToken = value
	})
}

func WithModel(value string) ProviderOption {
	return providerOptionFunc(func(cfg *ProviderConfig) {
		cfg.Model = &value
	})
}

func WithMaxTokens(value int) ProviderOption {
	return providerOptionFunc(func(cfg *ProviderConfig) {
		cfg.MaxTokens = &value
	})
}

func WithTemperature(value float64) ProviderOption {
	return providerOptionFunc(func(cfg *ProviderConfig) {
		cfg.Temperature = &value
	})
}

func WithRegion(value string) ProviderOption {
	return providerOptionFunc(func(cfg *ProviderConfig) {
		cfg.Region = value
	})
}

func WithHTTPTimeout(value time.Duration) ProviderOption {
	return providerOptionFunc(func(cfg *ProviderConfig) {
		cfg.HTTPTimeout = value
	})
}
