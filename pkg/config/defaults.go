package config

const (
	defaultOllamaTarget = "http://localhost:11434"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "llama3.2"

	defaultRetrieveMethod   = "embedding"
	defaultTopKCategory     = 3
	defaultTopKItem         = 10
	defaultTopKResource     = 5
	defaultItemRanking      = "similarity"
	defaultRecencyDecayDays = 30

	defaultAPIListen = ":8082"

	defaultEventsTopic = "mnemo.memory"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Model:    defaultLLMModel,
			Target:   defaultOllamaTarget,
		},
		Retrieve: RetrieveConfig{
			Method:           defaultRetrieveMethod,
			TopKCategory:     defaultTopKCategory,
			TopKItem:         defaultTopKItem,
			TopKResource:     defaultTopKResource,
			ItemRanking:      defaultItemRanking,
			RecencyDecayDays: defaultRecencyDecayDays,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
	}
}
