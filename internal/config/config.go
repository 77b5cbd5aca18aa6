// Package config loads SpeakNode configuration from a YAML file with
// environment-variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
}

// HTTPConfig bounds the API surface.
type HTTPConfig struct {
	Addr              string `yaml:"addr"`
	MaxImportBytes    int64  `yaml:"max_import_bytes"`
	MaxImportElements int    `yaml:"max_import_elements"`
}

// LLMConfig names the models each stage uses. The router runs cold for
// deterministic tool choice; the synthesizer runs warmer for prose.
type LLMConfig struct {
	APIKey                 string  `yaml:"api_key"`
	RouterModel            string  `yaml:"router_model"`
	SynthesizerModel       string  `yaml:"synthesizer_model"`
	ExtractorModel         string  `yaml:"extractor_model"`
	TranslatorModel        string  `yaml:"translator_model"`
	SynthesizerTemperature float32 `yaml:"synthesizer_temperature"`
}

// EmbeddingConfig points at an OpenAI-compatible /v1/embeddings endpoint.
type EmbeddingConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// SearchConfig carries the intent keyword lists that toggle structural
// search groups, plus query caps.
type SearchConfig struct {
	TaskKeywords     []string `yaml:"task_keywords"`
	DecisionKeywords []string `yaml:"decision_keywords"`
	PeopleKeywords   []string `yaml:"people_keywords"`
	MeetingKeywords  []string `yaml:"meeting_keywords"`
	EntityKeywords   []string `yaml:"entity_keywords"`
	SemanticTopK     int      `yaml:"semantic_top_k"`
	QueryRowLimit    int      `yaml:"query_row_limit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir: "data",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			MaxImportBytes:    32 << 20,
			MaxImportElements: 50000,
		},
		LLM: LLMConfig{
			RouterModel:            "openai/gpt-4o-mini",
			SynthesizerModel:       "openai/gpt-4o-mini",
			ExtractorModel:         "openai/gpt-4o-mini",
			TranslatorModel:        "openai/gpt-4o-mini",
			SynthesizerTemperature: 0.7,
		},
		Embedding: EmbeddingConfig{
			Endpoint:   "http://localhost:11434/v1/embeddings",
			Model:      "all-minilm",
			Dimensions: 384,
		},
		Search: SearchConfig{
			TaskKeywords:     []string{"task", "action item", "todo", "to-do", "assigned", "deadline"},
			DecisionKeywords: []string{"decision", "decide", "decided", "agreed", "conclusion"},
			PeopleKeywords:   []string{"who", "person", "people", "attendee", "participant", "speaker"},
			MeetingKeywords:  []string{"meeting", "summary", "agenda", "session"},
			EntityKeywords:   []string{"entity", "technology", "organization", "concept", "project"},
			SemanticTopK:     5,
			QueryRowLimit:    100,
		},
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnv()
	if cfg.Embedding.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("SPEAKNODE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SPEAKNODE_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("SPEAKNODE_EMBED_ENDPOINT"); v != "" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv("SPEAKNODE_EMBED_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("SPEAKNODE_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embedding.Dimensions = n
		}
	}
}
