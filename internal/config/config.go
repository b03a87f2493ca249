// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package config

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level deskbot configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Models    ModelsConfig              `mapstructure:"models"`
	Embedding EmbeddingConfig           `mapstructure:"embedding"`
	Vector    VectorConfig              `mapstructure:"vector"`
	Knowledge KnowledgeConfig           `mapstructure:"knowledge"`
	Memory    MemoryConfig              `mapstructure:"memory"`
	Data      DataConfig                `mapstructure:"data"`
}

// ServerConfig controls the HTTP endpoint.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// RateLimitRPS limits /api requests per client IP; 0 disables it.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// ProviderConfig holds credentials and endpoint for a model provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig controls generation model selection.
type ModelsConfig struct {
	Default     string        `mapstructure:"default"`
	Failover    []string      `mapstructure:"failover"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// VectorConfig selects the vector store backend and collection names.
type VectorConfig struct {
	Backend             string        `mapstructure:"backend"`
	Path                string        `mapstructure:"path"`
	KnowledgeCollection string        `mapstructure:"knowledge_collection"`
	MemoryCollection    string        `mapstructure:"memory_collection"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// TopicConfig declares one knowledge topic and its trigger words.
type TopicConfig struct {
	Name     string   `mapstructure:"name"`
	File     string   `mapstructure:"file"`
	Triggers []string `mapstructure:"triggers"`
}

// KnowledgeConfig controls the knowledge base and retrieval.
type KnowledgeConfig struct {
	Dir             string        `mapstructure:"dir"`
	Topics          []TopicConfig `mapstructure:"topics"`
	MaxContextChars int           `mapstructure:"max_context_chars"`
	ChunkChars      int           `mapstructure:"chunk_chars"`
	TopK            int           `mapstructure:"top_k"`
	MinRelevance    float64       `mapstructure:"min_relevance"`
}

// MemoryConfig controls session memory recall.
type MemoryConfig struct {
	RecallK      int `mapstructure:"recall_k"`
	HistoryLimit int `mapstructure:"history_limit"`
}

// DataConfig controls the read-only relational store used for data questions.
type DataConfig struct {
	Driver        string        `mapstructure:"driver"`
	DSN           string        `mapstructure:"dsn"`
	SchemaSummary string        `mapstructure:"schema_summary"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRows       int           `mapstructure:"max_rows"`
	PreviewRows   int           `mapstructure:"preview_rows"`
}

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.rate_limit_rps", 0.0)
	v.SetDefault("server.rate_limit_burst", 20)

	v.SetDefault("models.default", "openai/gpt-4o-mini")
	v.SetDefault("models.temperature", 0.0)
	v.SetDefault("models.max_tokens", 1024)
	v.SetDefault("models.timeout", 60*time.Second)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.timeout", 15*time.Second)

	v.SetDefault("vector.backend", "sqlite")
	v.SetDefault("vector.path", "deskbot-vectors.db")
	v.SetDefault("vector.knowledge_collection", "hostel_kb")
	v.SetDefault("vector.memory_collection", "user_memory")
	v.SetDefault("vector.timeout", 5*time.Second)

	v.SetDefault("knowledge.dir", "knowledge_base")
	v.SetDefault("knowledge.max_context_chars", 5000)
	v.SetDefault("knowledge.chunk_chars", 1200)
	v.SetDefault("knowledge.top_k", 6)
	v.SetDefault("knowledge.min_relevance", 0.25)

	v.SetDefault("memory.recall_k", 8)
	v.SetDefault("memory.history_limit", 10)

	v.SetDefault("data.driver", "sqlite")
	v.SetDefault("data.dsn", "hostel.db")
	v.SetDefault("data.schema_summary", "schema_pretext.txt")
	v.SetDefault("data.timeout", 15*time.Second)
	v.SetDefault("data.max_rows", 500)
	v.SetDefault("data.preview_rows", 8)
}

// SetupEnv maps DESK_-prefixed environment variables onto config keys,
// e.g. DESK_SERVER_LISTEN overrides server.listen.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("DESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix DESK_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, deskerr.Errorf(deskerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates a populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, deskerr.Errorf(deskerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, deskerr.Errorf(deskerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateVector()...)
	errs = append(errs, c.validateKnowledge()...)
	errs = append(errs, c.validateMemory()...)
	errs = append(errs, c.validateData()...)

	return errs
}

func invalid(format string, args ...any) error {
	return deskerr.Errorf(deskerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		return append(errs, invalid("server.listen must not be empty"))
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return append(errs, invalid("server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
	}
	port, err := strconv.Atoi(portStr)
	switch {
	case err != nil:
		errs = append(errs, invalid("server.listen port must be a number, got %q", portStr))
	case port < 1 || port > 65535:
		errs = append(errs, invalid("server.listen port must be between 1 and 65535, got %d", port))
	}

	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, invalid("server.rate_limit_rps must not be negative, got %g", c.Server.RateLimitRPS))
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		errs = append(errs, invalid("server.rate_limit_burst must be positive when a rate is set, got %d", c.Server.RateLimitBurst))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	refs := append([]string{c.Models.Default}, c.Models.Failover...)
	for i, ref := range refs {
		field := "models.default"
		if i > 0 {
			field = "models.failover[" + strconv.Itoa(i-1) + "]"
		}
		if ref == "" {
			errs = append(errs, invalid("%s must not be empty", field))
			continue
		}
		if !strings.Contains(ref, "/") {
			errs = append(errs, invalid("%s must be in \"provider/model\" format, got %q", field, ref))
			continue
		}
		// A nil providers map means no providers section was configured,
		// which is valid for a fresh install.
		if c.Providers != nil {
			if _, ok := c.Providers[ProviderFromModel(ref)]; !ok {
				errs = append(errs, invalid("%s %q references provider %q which is not configured",
					field, ref, ProviderFromModel(ref)))
			}
		}
	}

	if c.Models.MaxTokens <= 0 {
		errs = append(errs, invalid("models.max_tokens must be greater than 0, got %d", c.Models.MaxTokens))
	}
	if c.Models.Temperature < 0 || c.Models.Temperature > 2 {
		errs = append(errs, invalid("models.temperature must be between 0 and 2, got %g", c.Models.Temperature))
	}
	if c.Models.Timeout <= 0 {
		errs = append(errs, invalid("models.timeout must be positive, got %s", c.Models.Timeout))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	switch c.Embedding.Provider {
	case "openai", "google", "hash":
	default:
		errs = append(errs, invalid("embedding.provider must be one of [openai, google, hash], got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, invalid("embedding.dimensions must be greater than 0, got %d", c.Embedding.Dimensions))
	}
	if c.Embedding.Timeout <= 0 {
		errs = append(errs, invalid("embedding.timeout must be positive, got %s", c.Embedding.Timeout))
	}

	return errs
}

func (c *Config) validateVector() []error {
	var errs []error

	switch c.Vector.Backend {
	case "sqlite":
		if c.Vector.Path == "" {
			errs = append(errs, invalid("vector.path must not be empty for the sqlite backend"))
		}
	case "memory":
	default:
		errs = append(errs, invalid("vector.backend must be one of [sqlite, memory], got %q", c.Vector.Backend))
	}

	for _, name := range []struct{ key, value string }{
		{"vector.knowledge_collection", c.Vector.KnowledgeCollection},
		{"vector.memory_collection", c.Vector.MemoryCollection},
	} {
		if !collectionName.MatchString(name.value) {
			errs = append(errs, invalid("%s must match %s, got %q", name.key, collectionName, name.value))
		}
	}
	if c.Vector.KnowledgeCollection != "" && c.Vector.KnowledgeCollection == c.Vector.MemoryCollection {
		errs = append(errs, invalid("vector.knowledge_collection and vector.memory_collection must differ"))
	}
	if c.Vector.Timeout <= 0 {
		errs = append(errs, invalid("vector.timeout must be positive, got %s", c.Vector.Timeout))
	}

	return errs
}

func (c *Config) validateKnowledge() []error {
	var errs []error

	if c.Knowledge.MaxContextChars <= 0 {
		errs = append(errs, invalid("knowledge.max_context_chars must be greater than 0, got %d", c.Knowledge.MaxContextChars))
	}
	if c.Knowledge.ChunkChars <= 0 {
		errs = append(errs, invalid("knowledge.chunk_chars must be greater than 0, got %d", c.Knowledge.ChunkChars))
	}
	if c.Knowledge.TopK <= 0 {
		errs = append(errs, invalid("knowledge.top_k must be greater than 0, got %d", c.Knowledge.TopK))
	}
	if c.Knowledge.MinRelevance < -1 || c.Knowledge.MinRelevance > 1 {
		errs = append(errs, invalid("knowledge.min_relevance must be between -1 and 1, got %g", c.Knowledge.MinRelevance))
	}

	seen := make(map[string]bool, len(c.Knowledge.Topics))
	for i, topic := range c.Knowledge.Topics {
		if topic.Name == "" {
			errs = append(errs, invalid("knowledge.topics[%d].name must not be empty", i))
			continue
		}
		if seen[topic.Name] {
			errs = append(errs, invalid("knowledge.topics[%d].name %q is duplicated", i, topic.Name))
		}
		seen[topic.Name] = true
		if len(topic.Triggers) == 0 {
			errs = append(errs, invalid("knowledge.topics[%d] %q must declare at least one trigger", i, topic.Name))
		}
	}

	return errs
}

func (c *Config) validateMemory() []error {
	var errs []error

	if c.Memory.RecallK <= 0 {
		errs = append(errs, invalid("memory.recall_k must be greater than 0, got %d", c.Memory.RecallK))
	}
	if c.Memory.HistoryLimit < 0 {
		errs = append(errs, invalid("memory.history_limit must not be negative, got %d", c.Memory.HistoryLimit))
	}

	return errs
}

func (c *Config) validateData() []error {
	var errs []error

	switch c.Data.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, invalid("data.driver must be one of [sqlite, postgres], got %q", c.Data.Driver))
	}
	if c.Data.DSN == "" {
		errs = append(errs, invalid("data.dsn must not be empty"))
	}
	if c.Data.Timeout <= 0 {
		errs = append(errs, invalid("data.timeout must be positive, got %s", c.Data.Timeout))
	}
	if c.Data.MaxRows <= 0 {
		errs = append(errs, invalid("data.max_rows must be greater than 0, got %d", c.Data.MaxRows))
	}
	if c.Data.PreviewRows <= 0 {
		errs = append(errs, invalid("data.preview_rows must be greater than 0, got %d", c.Data.PreviewRows))
	}

	return errs
}

// ProviderFromModel extracts the provider prefix from a "provider/model" string.
func ProviderFromModel(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	return model
}
