// Package boot resolves the effective configuration of a mnemo command and
// builds the memory engine it runs against.
package boot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/config"
	"github.com/papercomputeco/mnemo/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/mnemo/pkg/embeddings/utils"
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/eventstream"
	"github.com/papercomputeco/mnemo/pkg/eventstream/kafka"
	"github.com/papercomputeco/mnemo/pkg/eventstream/nop"
	"github.com/papercomputeco/mnemo/pkg/llm/chat"
	"github.com/papercomputeco/mnemo/pkg/logger"
	"github.com/papercomputeco/mnemo/pkg/metrics"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

// EngineFlags are the registry keys accepted by every engine-backed command.
var EngineFlags = []string{
	config.FlagStorageRoot,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagLLMTarget,
}

// RetrieveFlags are the registry keys of the retrieval knobs.
var RetrieveFlags = []string{
	config.FlagMethod,
	config.FlagTopKCategory,
	config.FlagTopKItem,
	config.FlagTopKResource,
	config.FlagRanking,
}

var uintFlags = map[string]bool{
	config.FlagEmbeddingDims: true,
	config.FlagTopKCategory:  true,
	config.FlagTopKItem:      true,
	config.FlagTopKResource:  true,
}

// AddFlags registers the registry flags named by keys on cmd. Values are
// read back through viper in Load, so the flag targets are not kept.
func AddFlags(cmd *cobra.Command, keys ...[]string) {
	for _, set := range keys {
		for _, key := range set {
			if uintFlags[key] {
				var v uint
				config.AddUintFlag(cmd, config.Flags, key, &v)
				continue
			}
			var v string
			config.AddStringFlag(cmd, config.Flags, key, &v)
		}
	}
}

// Runtime is everything a command needs to talk to the memory engine.
type Runtime struct {
	Config  *config.Config
	Root    string
	Logger  *slog.Logger
	Metrics *metrics.Manager
	Engine  *engine.Engine

	embedder  embeddings.Embedder
	publisher eventstream.Publisher
}

// Load resolves configuration for cmd (flags > env > config.toml > defaults)
// and builds a Runtime. keys names the registry flags cmd registered.
func Load(cmd *cobra.Command, keys ...[]string) (*Runtime, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	v, err := config.InitViper(cfger.GetTargetDir())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	for _, set := range keys {
		config.BindRegisteredFlags(v, cmd, config.Flags, set)
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	root := cfg.Storage.Root
	if root == "" {
		root = cfger.GetTargetDir()
	}

	format := logger.FormatJSON
	if cliui.IsTerminal(os.Stderr) {
		format = logger.FormatPretty
	}
	log := logger.New(logger.WithDebug(debug), logger.WithFormat(format))
	return New(cfg, root, log)
}

// New builds a Runtime from an already resolved configuration.
func New(cfg *config.Config, root string, log *slog.Logger) (*Runtime, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}

	m := metrics.NewManager(metrics.Config{Enabled: cfg.Metrics.Enabled})

	emb, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
		Dimensions:   int(cfg.Embedding.Dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	call, err := chat.New(chat.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.Target,
	})
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	pub, err := newPublisher(cfg.Events, log)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	eng, err := engine.New(engine.Options{
		Root:       root,
		Embedder:   emb,
		Chat:       call,
		Logger:     log,
		Metrics:    m,
		Publisher:  pub,
		Dimensions: int(cfg.Embedding.Dimensions),
	})
	if err != nil {
		_ = emb.Close()
		_ = pub.Close()
		return nil, fmt.Errorf("creating memory engine: %w", err)
	}

	log.Debug("memory engine ready",
		"root", root,
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_model", cfg.Embedding.Model,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"events_topic", eventsTopic(cfg.Events),
	)

	return &Runtime{
		Config:    cfg,
		Root:      root,
		Logger:    log,
		Metrics:   m,
		Engine:    eng,
		embedder:  emb,
		publisher: pub,
	}, nil
}

// newPublisher returns a Kafka publisher when brokers are configured, else a
// no-op publisher.
func newPublisher(ec config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	if strings.TrimSpace(ec.Brokers) == "" {
		return nop.NewPublisher(), nil
	}
	return kafka.NewPublisher(kafka.Config{
		Brokers: strings.Split(ec.Brokers, ","),
		Topic:   ec.Topic,
	}, log)
}

func eventsTopic(ec config.EventsConfig) string {
	if strings.TrimSpace(ec.Brokers) == "" {
		return ""
	}
	return ec.Topic
}

// RetrieveOptions maps the retrieve section of the configuration onto
// engine options.
func (r *Runtime) RetrieveOptions() engine.RetrieveOptions {
	rc := r.Config.Retrieve
	return engine.RetrieveOptions{
		Method:           engine.Method(rc.Method),
		TopKCategory:     int(rc.TopKCategory),
		TopKItem:         int(rc.TopKItem),
		TopKResource:     int(rc.TopKResource),
		ItemRanking:      vector.Ranking(rc.ItemRanking),
		RecencyDecayDays: rc.RecencyDecayDays,
	}
}

// Close releases the engine stores, the embedder and the event publisher.
func (r *Runtime) Close() error {
	return errors.Join(r.Engine.Close(), r.embedder.Close(), r.publisher.Close())
}

// AddAgentFlag registers the required --agent flag.
func AddAgentFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "agent", "a", "", "Agent whose memory to use")
	_ = cmd.MarkFlagRequired("agent")
}
