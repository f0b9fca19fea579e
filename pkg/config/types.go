package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent mnemo configuration stored as config.toml
// in the .mnemo/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Retrieve  RetrieveConfig  `toml:"retrieve"`
	Metrics   MetricsConfig   `toml:"metrics"`
	API       APIConfig       `toml:"api"`
	Events    EventsConfig    `toml:"events"`
}

// StorageConfig holds where agent memory databases live. An empty Root
// means the resolved .mnemo/ directory.
type StorageConfig struct {
	Root string `toml:"root,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty" validate:"omitempty,oneof=ollama openai"`
	Target     string `toml:"target,omitempty" validate:"omitempty,url"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty" validate:"lte=8192"`
	APIKey     string `toml:"api_key,omitempty"`
}

// LLMConfig holds the chat model used for extraction, summaries and
// LLM-ranked retrieval.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty" validate:"omitempty,oneof=ollama openai anthropic"`
	Model    string `toml:"model,omitempty"`
	Target   string `toml:"target,omitempty" validate:"omitempty,url"`
	APIKey   string `toml:"api_key,omitempty"`
}

// RetrieveConfig holds retrieval defaults applied when a caller passes none.
type RetrieveConfig struct {
	Method           string  `toml:"method,omitempty" validate:"omitempty,oneof=embedding llm"`
	TopKCategory     uint    `toml:"top_k_category,omitempty" validate:"lte=100"`
	TopKItem         uint    `toml:"top_k_item,omitempty" validate:"lte=1000"`
	TopKResource     uint    `toml:"top_k_resource,omitempty" validate:"lte=1000"`
	ItemRanking      string  `toml:"item_ranking,omitempty" validate:"omitempty,oneof=similarity salience"`
	RecencyDecayDays float64 `toml:"recency_decay_days,omitempty" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus collectors. Listen, when set, makes
// long-running commands serve /metrics on that address.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled,omitempty"`
	Listen  string `toml:"listen,omitempty" validate:"omitempty,hostname_port"`
}

// APIConfig holds the HTTP API server settings used by "mnemo serve".
type APIConfig struct {
	Listen string `toml:"listen,omitempty" validate:"omitempty,hostname_port"`
}

// EventsConfig controls publishing of memory events. Events are published
// to Kafka only when Brokers is set.
type EventsConfig struct {
	// Brokers is a comma separated list of Kafka bootstrap addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty" validate:"required_with=Brokers"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.root": stringKey(func(c *Config) *string { return &c.Storage.Root }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),

	"llm.provider": stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.target":   stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.api_key":  stringKey(func(c *Config) *string { return &c.LLM.APIKey }),

	"retrieve.method":             stringKey(func(c *Config) *string { return &c.Retrieve.Method }),
	"retrieve.top_k_category":     uintKey("retrieve.top_k_category", func(c *Config) *uint { return &c.Retrieve.TopKCategory }),
	"retrieve.top_k_item":         uintKey("retrieve.top_k_item", func(c *Config) *uint { return &c.Retrieve.TopKItem }),
	"retrieve.top_k_resource":     uintKey("retrieve.top_k_resource", func(c *Config) *uint { return &c.Retrieve.TopKResource }),
	"retrieve.item_ranking":       stringKey(func(c *Config) *string { return &c.Retrieve.ItemRanking }),
	"retrieve.recency_decay_days": floatKey("retrieve.recency_decay_days", func(c *Config) *float64 { return &c.Retrieve.RecencyDecayDays }),

	"metrics.enabled": boolKey("metrics.enabled", func(c *Config) *bool { return &c.Metrics.Enabled }),
	"metrics.listen":  stringKey(func(c *Config) *string { return &c.Metrics.Listen }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"events.brokers": stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":   stringKey(func(c *Config) *string { return &c.Events.Topic }),
}
