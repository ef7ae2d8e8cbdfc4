package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	BackendBedrock = "bedrock"
	BackendOpenAI  = "openai"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port      string
	PublicURL string // advertised in /config.json; falls back to the listen address

	Backend string // bedrock or openai

	// Bedrock retrieve-and-generate settings.
	AWSRegion        string
	AWSEndpoint      string // override for local stacks, empty in real deployments
	KnowledgeBaseID  string
	ModelARN         string
	GuardrailID      string
	GuardrailVersion string
	ResultCount      int

	// OpenAI fallback backend.
	OpenAIKey   string
	OpenAIModel string

	// Optional stores. Empty values disable the feature.
	TranscriptTable string
	PostgresURI     string
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getenv("PORT", "8080"),
		Backend:          getenv("CHAT_BACKEND", BackendBedrock),
		AWSRegion:        getenv("AWS_REGION", "us-west-2"),
		AWSEndpoint:      os.Getenv("AWS_ENDPOINT_URL"),
		KnowledgeBaseID:  os.Getenv("KNOWLEDGE_BASE_ID"),
		ModelARN:         os.Getenv("MODEL_ARN"),
		GuardrailID:      os.Getenv("GUARDRAIL_ID"),
		GuardrailVersion: getenv("GUARDRAIL_VERSION", "DRAFT"),
		ResultCount:      10,
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getenv("OPENAI_MODEL", "gpt-4o-mini"),
		TranscriptTable:  os.Getenv("TRANSCRIPT_TABLE"),
		PostgresURI:      os.Getenv("POSTGRES_URI"),
	}

	if cfg.ModelARN == "" {
		cfg.ModelARN = fmt.Sprintf(
			"arn:aws:bedrock:%s::foundation-model/anthropic.claude-3-sonnet-20240229-v1:0",
			cfg.AWSRegion,
		)
	}

	if v := os.Getenv("RESULT_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid RESULT_COUNT %q", v)
		}
		cfg.ResultCount = n
	}

	cfg.PublicURL = getenv("PUBLIC_API_URL", "http://localhost:"+cfg.Port)

	switch cfg.Backend {
	case BackendBedrock:
		if cfg.KnowledgeBaseID == "" {
			return nil, fmt.Errorf("KNOWLEDGE_BASE_ID is not set")
		}
	case BackendOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
	default:
		return nil, fmt.Errorf("unknown CHAT_BACKEND %q", cfg.Backend)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
