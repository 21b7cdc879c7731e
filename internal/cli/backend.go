package cli

import (
	"fmt"

	"go.uber.org/zap"
	"vibeshop/internal/adapter/catalog"
	"vibeshop/internal/adapter/embedding"
	"vibeshop/internal/adapter/llm"
	"vibeshop/internal/adapter/store"
	"vibeshop/internal/adapter/vibes"
	"vibeshop/internal/port"
	"vibeshop/internal/usecase"
)

// backend wires the shared component graph used by the commands. The store
// is opened once per invocation and must be closed by the caller.
type backend struct {
	records   *store.BoltStore
	products  *catalog.ProductStore
	vibes     *catalog.VibeStore
	processor *usecase.Processor
	search    *usecase.HybridSearch
	orders    *usecase.OrderManager
}

func openBackend() (*backend, error) {
	cfg := GetConfig()
	log := GetLogger()

	if err := cfg.EnsureStoreDir(GetRootDir()); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	records, err := store.NewBoltStore(cfg.StoreDBPath(GetRootDir()))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	embedder, err := buildEmbedder()
	if err != nil {
		records.Close()
		return nil, err
	}

	vectors, err := store.NewBoltVectorIndex(records.DB(), embedder.Dimension(),
		catalog.CollectionProducts, catalog.CollectionVibes)
	if err != nil {
		records.Close()
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	products := catalog.NewProductStore(records, vectors, embedder)
	vibeStore := catalog.NewVibeStore(records, vectors, embedder)
	generator := vibes.NewGenerator(buildLLM(), cfg.Vibes.MaxTags, log)

	return &backend{
		records:   records,
		products:  products,
		vibes:     vibeStore,
		processor: usecase.NewProcessor(products, vibeStore, generator, log),
		search: usecase.NewHybridSearch(products, vibeStore,
			cfg.Search.ProductWeight, cfg.Search.VibeWeight, cfg.Search.CandidateFactor, log),
		orders: usecase.NewOrderManager(records, records, log),
	}, nil
}

func (b *backend) Close() error {
	return b.records.Close()
}

func buildEmbedder() (port.Embedder, error) {
	ec := GetConfig().Embedding
	switch ec.Provider {
	case "openai":
		if ec.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL)
		}
		return embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model)
	case "jina":
		return embedding.NewJinaEmbedder(ec.APIKeyEnv, ec.Model)
	case "ollama":
		return embedding.NewOllamaEmbedder(ec.Model, ec.BaseURL)
	case "mock", "":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", ec.Provider)
	}
}

// buildLLM returns nil when no provider can be constructed; the vibe
// generator degrades to rule-based extraction in that case.
func buildLLM() port.LLM {
	lc := GetConfig().LLM
	log := GetLogger()

	var (
		client port.LLM
		err    error
	)
	switch lc.Provider {
	case "openai":
		client, err = llm.NewOpenAIChat(lc.APIKeyEnv, lc.Model)
	case "groq":
		client, err = llm.NewGroqChat(lc.APIKeyEnv, lc.Model)
	case "ollama":
		client, err = llm.NewOllamaChat(lc.Model, lc.BaseURL)
	default:
		return nil
	}
	if err != nil {
		log.Warn("llm provider unavailable, vibe generation will fall back to rules",
			zap.Error(err))
		return nil
	}
	return client
}
