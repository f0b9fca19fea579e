package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/mnemo/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MNEMO_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MNEMO_LLM_PROVIDER, MNEMO_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("MNEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("storage.root", d.Storage.Root)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.api_key", d.LLM.APIKey)

	v.SetDefault("retrieve.method", d.Retrieve.Method)
	v.SetDefault("retrieve.top_k_category", d.Retrieve.TopKCategory)
	v.SetDefault("retrieve.top_k_item", d.Retrieve.TopKItem)
	v.SetDefault("retrieve.top_k_resource", d.Retrieve.TopKResource)
	v.SetDefault("retrieve.item_ranking", d.Retrieve.ItemRanking)
	v.SetDefault("retrieve.recency_decay_days", d.Retrieve.RecencyDecayDays)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)

	v.SetDefault("api.listen", d.API.Listen)

	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}

// FromViper materializes the effective Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Root: v.GetString("storage.root"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			APIKey:     v.GetString("embedding.api_key"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			Model:    v.GetString("llm.model"),
			Target:   v.GetString("llm.target"),
			APIKey:   v.GetString("llm.api_key"),
		},
		Retrieve: RetrieveConfig{
			Method:           v.GetString("retrieve.method"),
			TopKCategory:     v.GetUint("retrieve.top_k_category"),
			TopKItem:         v.GetUint("retrieve.top_k_item"),
			TopKResource:     v.GetUint("retrieve.top_k_resource"),
			ItemRanking:      v.GetString("retrieve.item_ranking"),
			RecencyDecayDays: v.GetFloat64("retrieve.recency_decay_days"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Listen:  v.GetString("metrics.listen"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Events: EventsConfig{
			Brokers: v.GetString("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
	}

	// The local ollama target default does not apply to hosted providers.
	if cfg.Embedding.Provider != "ollama" && cfg.Embedding.Target == defaultOllamaTarget {
		cfg.Embedding.Target = ""
	}
	if cfg.LLM.Provider != "ollama" && cfg.LLM.Target == defaultOllamaTarget {
		cfg.LLM.Target = ""
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
