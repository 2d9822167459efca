// Package app assembles the RAG pipeline from a Config. The HTTP server and
// the sprintctl CLI share it so both run the exact same wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/ahmednasr/sprint-ai/internal/config"
	"github.com/ahmednasr/sprint-ai/internal/database"
	"github.com/ahmednasr/sprint-ai/internal/repository"
	"github.com/ahmednasr/sprint-ai/internal/service"
)

// App holds the built services and the resources that must be released.
type App struct {
	DB       *gorm.DB
	Mongo    *mongo.Client // nil unless CHUNK_STORE=mongo
	Projects *repository.ProjectGorm
	RAG      *service.RAGService

	closers []func() error
}

// Build opens the stores, picks the providers named in cfg and wires the
// pipeline. On error every resource opened so far is released.
func Build(ctx context.Context, cfg config.Config) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.DB, err = database.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return database.CloseSQLite(a.DB) })
	if err = repository.Migrate(a.DB); err != nil {
		return nil, err
	}
	a.Projects = repository.NewProjectRepository(a.DB)

	store, err := a.chunkStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := a.embedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	llm, err := a.llm(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ec := service.NewEmbeddingClient(embedder, cfg.EmbeddingDim, cfg.EmbeddingTimeout)
	gateway := service.NewGateway(llm, cfg.LLMTimeout, cfg.LLMRatePerSec)
	assembler := service.NewContextAssembler(ec, store, cfg.TopK, cfg.ContextWords)

	var summarizer service.Summarizer = service.TemplateSummarizer{}
	if cfg.SummarizerMode == config.SummarizerLLM {
		summarizer = service.NewLLMSummarizer(gateway)
	}

	a.RAG = service.NewRAGService(a.Projects, summarizer, ec, store, assembler, gateway, service.RAGOptions{
		ChunkWords:      cfg.ChunkWords,
		DefaultCapacity: cfg.DefaultCapacity,
	})
	log.Printf("Pipeline ready: store=%s embeddings=%s llm=%s summarizer=%s",
		cfg.ChunkStore, cfg.EmbeddingProvider, cfg.LLMProvider, cfg.SummarizerMode)
	return a, nil
}

func (a *App) chunkStore(ctx context.Context, cfg config.Config) (service.ChunkStore, error) {
	switch cfg.ChunkStore {
	case config.StoreMemory:
		return repository.NewChunkMemory(cfg.EmbeddingDim), nil
	case config.StoreMongo:
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.Mongo = client
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		log.Printf("Connected to MongoDB (db=%s collection=%s)", cfg.MongoDB, cfg.MongoChunkCollection)
		return repository.NewChunkMongo(ctx, client.Database(cfg.MongoDB), cfg.MongoChunkCollection, cfg.MongoVectorIndex, cfg.EmbeddingDim)
	default:
		return repository.NewChunkSQLite(a.DB, cfg.EmbeddingDim)
	}
}

func (a *App) embedder(ctx context.Context, cfg config.Config) (service.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderHash:
		return service.NewHashEmbedder(cfg.EmbeddingDim), nil
	case config.ProviderLocal:
		e, err := service.NewLocalEmbedder(cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, e.Close)
		return e, nil
	case config.ProviderVertex:
		e, err := service.NewVertexEmbedder(ctx, vertexConfig(cfg, cfg.EmbeddingModel))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, e.Close)
		return e, nil
	default:
		e, err := service.NewOpenAIEmbedder(service.OpenAIEmbedderConfig{
			APIKey:     cfg.EmbeddingAPIKey,
			BaseURL:    cfg.EmbeddingBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDim,
			Timeout:    cfg.EmbeddingTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, e.Close)
		return e, nil
	}
}

func (a *App) llm(ctx context.Context, cfg config.Config) (service.LLM, error) {
	switch cfg.LLMProvider {
	case config.ProviderStatic:
		return service.StaticLLM{}, nil
	case config.ProviderVertex:
		l, err := service.NewVertexLLM(ctx, vertexConfig(cfg, cfg.LLMModel))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l.Close)
		return l, nil
	default:
		l, err := service.NewOpenAILLM(service.OpenAILLMConfig{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l.Close)
		return l, nil
	}
}

func vertexConfig(cfg config.Config, model string) service.VertexConfig {
	return service.VertexConfig{
		ProjectID:       cfg.ProjectID,
		Location:        cfg.Location,
		Model:           model,
		CredentialsFile: cfg.CredentialsFile,
		Dimensions:      cfg.EmbeddingDim,
		Temperature:     float32(cfg.LLMTemperature),
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
