package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the backend. It is constructed once at
// process start and passed into component constructors.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Search    SearchConfig    `yaml:"search"`
	Vibes     VibesConfig     `yaml:"vibes"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Dir string `yaml:"dir"` // directory holding the bbolt database
}

// SearchConfig holds hybrid search configuration.
type SearchConfig struct {
	ProductWeight   float64 `yaml:"product_weight"`   // weight of attribute similarity
	VibeWeight      float64 `yaml:"vibe_weight"`      // weight of vibe similarity
	CandidateFactor int     `yaml:"candidate_factor"` // per-collection pool = factor * n
	TopK            int     `yaml:"top_k"`
}

// VibesConfig holds vibe generation configuration.
type VibesConfig struct {
	Method  string `yaml:"method"` // "rule_based", "llm", "hybrid"
	MaxTags int    `yaml:"max_tags"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "jina", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // environment variable for API key
	BaseURL   string `yaml:"base_url"`    // override for self-hosted endpoints
	Dimension int    `yaml:"dimension"`
}

// LLMConfig holds the structured-generation provider configuration.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // "openai", "groq", "ollama"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Dir: ".vibeshop",
		},
		Search: SearchConfig{
			ProductWeight:   0.4,
			VibeWeight:      0.6,
			CandidateFactor: 2,
			TopK:            5,
		},
		Vibes: VibesConfig{
			Method:  "hybrid",
			MaxTags: 12,
		},
		Embedding: EmbeddingConfig{
			Provider:  "mock",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 256,
		},
		LLM: LLMConfig{
			Provider:  "groq",
			Model:     "llama-3.1-8b-instant",
			APIKeyEnv: "GROQ_API_KEY",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, overlaying defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for vibeshop.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "vibeshop.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".vibeshop", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StoreDBPath returns the path to the bbolt database file.
func (c *Config) StoreDBPath(root string) string {
	return filepath.Join(root, c.Store.Dir, "store.db")
}

// EnsureStoreDir ensures the data directory exists.
func (c *Config) EnsureStoreDir(root string) error {
	return os.MkdirAll(filepath.Join(root, c.Store.Dir), 0755)
}
