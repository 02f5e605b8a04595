package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xcro3dile/ragagent/internal/adapters/cache"
	"github.com/0xcro3dile/ragagent/internal/adapters/embedding"
	"github.com/0xcro3dile/ragagent/internal/adapters/filewatcher"
	"github.com/0xcro3dile/ragagent/internal/adapters/llm"
	"github.com/0xcro3dile/ragagent/internal/adapters/loader"
	"github.com/0xcro3dile/ragagent/internal/adapters/parser"
	"github.com/0xcro3dile/ragagent/internal/adapters/vectordb"
	"github.com/0xcro3dile/ragagent/internal/config"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
	"github.com/0xcro3dile/ragagent/internal/domain/usecases"
)

// app holds the assembled components for one process.
type app struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	loader  ports.DocumentLoader
	chunker *usecases.Chunker
	store   ports.VectorStore
	redis   *redis.Client
	holder  *usecases.IndexHolder
	query   *usecases.QueryUseCase

	cleanups []func()
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.assemble(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) assemble(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	pdf := parser.NewPythonPDFParser(cfg.Parser.PDFServiceURL)
	if cfg.Parser.ServiceDir != "" {
		stopPDF, err := pdf.StartService(ctx, cfg.Parser.ServiceDir)
		if err != nil {
			return err
		}
		a.cleanups = append(a.cleanups, stopPDF)
	}
	a.loader = loader.NewMultiLoader(pdf)

	var err error
	a.chunker, err = usecases.NewChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return err
	}

	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, embedding cache will miss", "error", err)
		}
	}

	a.store, err = buildStore(cfg)
	if err != nil {
		return err
	}

	reasoner, err := buildReasoner(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	idx, err := a.buildIndex(ctx, a.store)
	if err != nil {
		return err
	}
	logger.Info("index ready", "source", cfg.Source, "chunks", idx.Len(), "elapsed", time.Since(start))
	a.holder = usecases.NewIndexHolder(idx)

	agent, err := usecases.NewAgent(usecases.AgentConfig{
		Reasoner:         reasoner,
		Index:            a.holder,
		SystemPrompt:     cfg.Agent.SystemPrompt,
		MaxTurns:         cfg.Agent.MaxTurns,
		TopK:             cfg.Retrieval.TopK,
		ReasoningTimeout: time.Duration(cfg.Agent.ReasoningTimeoutSecs) * time.Second,
		ToolTimeout:      time.Duration(cfg.Agent.ToolTimeoutSecs) * time.Second,
		Logger:           logger.With("component", "agent"),
	})
	if err != nil {
		return err
	}
	a.query = usecases.NewQueryUseCase(agent, a.holder, cfg.Retrieval.TopK)
	return nil
}

// buildIndex ingests the source into store with a freshly built embedder.
// TF-IDF vocabularies belong to one corpus, so every build gets its own.
func (a *app) buildIndex(ctx context.Context, store ports.VectorStore) (*usecases.Index, error) {
	emb, err := a.buildEmbedder()
	if err != nil {
		return nil, err
	}
	ingest := usecases.NewIngestUseCase(a.loader, a.chunker, emb, store, usecases.IndexOptions{
		BatchSize:   a.cfg.Embedder.BatchSize,
		Concurrency: a.cfg.Embedder.Concurrency,
		MinScore:    a.cfg.Retrieval.MinScore,
		Logger:      a.logger.With("component", "ingest"),
	})
	return ingest.Ingest(ctx, a.cfg.Source)
}

func (a *app) buildEmbedder() (ports.EmbeddingService, error) {
	cfg := a.cfg.Embedder
	var (
		emb       ports.EmbeddingService
		namespace string
	)
	switch cfg.Type {
	case "tfidf":
		return embedding.NewTFIDFEmbedder(), nil
	case "openai":
		client, err := embedding.NewOpenAIAdapter(embedding.OpenAIConfig{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey(),
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb, namespace = client, "openai:"+cfg.OpenAI.Model
	case "ollama":
		client, err := embedding.NewOllamaAdapter(cfg.Ollama.URL, cfg.Ollama.Model)
		if err != nil {
			return nil, fmt.Errorf("ollama embedder init failed: %w", err)
		}
		emb, namespace = client, "ollama:"+cfg.Ollama.Model
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}

	if a.redis != nil {
		emb = cache.NewEmbeddingCache(emb, a.redis, namespace, time.Duration(a.cfg.Cache.TTLSecs)*time.Second)
	}
	return emb, nil
}

func buildStore(cfg *config.AppConfig) (ports.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return vectordb.NewInMemoryStore(), nil
	case "sqlite":
		store, err := vectordb.NewSQLiteStore(cfg.VectorStore.SQLite.Path, cfg.Collection)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		store, err := vectordb.NewQdrantStore(vectordb.QdrantConfig{
			Host:       q.Host,
			Port:       q.Port,
			APIKey:     q.APIKey,
			UseTLS:     q.UseTLS,
			Collection: cfg.Collection,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func buildReasoner(cfg *config.AppConfig) (ports.ReasoningService, error) {
	switch cfg.LLM.Type {
	case "openai":
		r, err := llm.NewOpenAIReasoner(llm.OpenAIConfig{
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			APIKey:  cfg.LLM.OpenAI.APIKey(),
			Model:   cfg.LLM.OpenAI.Model,
			Timeout: cfg.LLM.OpenAI.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("openai llm init failed: %w", err)
		}
		return r, nil
	case "ollama":
		r, err := llm.NewOllamaReasoner(cfg.LLM.Ollama.URL, cfg.LLM.Ollama.Model)
		if err != nil {
			return nil, fmt.Errorf("ollama llm init failed: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.LLM.Type)
	}
}

// watchSource rebuilds the index whenever the source file changes. A failed
// rebuild keeps serving the previous index.
func (a *app) watchSource(ctx context.Context) error {
	w, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions())
	if err != nil {
		return err
	}
	events, err := w.WatchFile(ctx, a.cfg.Source)
	if err != nil {
		w.Stop()
		return err
	}
	a.cleanups = append(a.cleanups, func() { w.Stop() })
	a.logger.Info("watching source for changes", "source", a.cfg.Source)

	go func() {
		for ev := range filewatcher.Debounce(ctx, events, 500*time.Millisecond) {
			if ev.Operation == ports.FileDeleted {
				a.logger.Warn("source removed, keeping current index", "path", ev.Path)
				continue
			}
			store := vectordb.NewInMemoryStore()
			idx, err := a.buildIndex(ctx, store)
			if err != nil {
				a.logger.Error("reindex failed, keeping current index", "error", err)
				store.Close()
				continue
			}
			if old := a.holder.Swap(idx); old != nil {
				a.logger.Info("index replaced", "chunks", idx.Len(), "previous_chunks", old.Len())
			}
		}
	}()
	return nil
}

// Close releases stores, clients and child processes.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	return errors.Join(errs...)
}
