package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"agentic-rag-be/internal/config"
	"agentic-rag-be/internal/controller"
	"agentic-rag-be/internal/observability"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/internal/repository/contract"
	"agentic-rag-be/internal/repository/implementation"
	"agentic-rag-be/internal/repository/memory"
	"agentic-rag-be/internal/service"
	"agentic-rag-be/pkg/embedding"
	"agentic-rag-be/pkg/events"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/llm/factory"
	pktNats "agentic-rag-be/pkg/nats"
	ragcontext "agentic-rag-be/pkg/rag/context"
	"agentic-rag-be/pkg/rag/executor"
	"agentic-rag-be/pkg/rag/intent"
	ragmemory "agentic-rag-be/pkg/rag/memory"
	"agentic-rag-be/pkg/rag/rerank"
	"agentic-rag-be/pkg/rag/response"
	"agentic-rag-be/pkg/rag/retrieval"
	"agentic-rag-be/pkg/rag/search"
	"agentic-rag-be/pkg/rag/tools"
	"agentic-rag-be/pkg/reliability"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const metricsNamespace = "agentic_rag"

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	MemoryController controller.IMemoryController
	SearchController controller.ISearchController
	SystemController controller.ISystemController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger    *logger.ZapLogger
	Metrics   *observability.Metrics
	Documents contract.DocumentRepository
	Embedder  *embedding.Service

	closers []func()
}

// models holds the three model roles. Any of them may be nil when its
// provider cannot be built; the graph is only assembled when all are present.
type models struct {
	primary llm.ToolCaller
	utility llm.LLMProvider
	local   llm.LLMProvider
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production", cfg.App.LogLevel)
	metrics := observability.NewMetrics(metricsNamespace)
	c := &Container{Logger: sysLogger, Metrics: metrics}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	bus := events.NewBus(pubSub)

	publisher := events.FanOut{bus}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(pktNats.DefaultConfig(cfg.App.NatsURL), sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = append(publisher, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 3. Infrastructure
	kv := newKVStore(cfg)
	c.Documents = newDocumentRepository(cfg, db)

	c.Embedder = embedding.NewService(
		newEmbeddingProvider(cfg),
		embedding.NewCache(embedding.DefaultCacheCapacity, embedding.DefaultCacheEvictBatch),
	).WithRetry(reliability.DefaultPolicy)
	metrics.WatchEmbeddingCache(c.Embedder.CacheSize)
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, c.Embedder.ModelName())

	store := search.NewStore(c.Documents, c.Embedder.ModelName(), sysLogger).WithObserver(metrics)
	retriever := retrieval.NewRetriever(c.Embedder, store, retrieval.Limits{
		UserLimit:       cfg.Retrieval.UserSearchLimit,
		UserCandidates:  cfg.Retrieval.UserSearchCandidates,
		AdminLimit:      cfg.Retrieval.AdminSearchLimit,
		AdminCandidates: cfg.Retrieval.AdminSearchCandidates,
	}, sysLogger)

	// 4. Models and RAG components
	m := newModels(cfg)

	// Summaries try the utility model first, then the local one.
	var summarizer ragmemory.ConversationSummarizer
	if m.utility != nil || m.local != nil {
		summarizer = ragmemory.NewSummarizer(llm.NewFallbackProvider(m.utility, m.local), sysLogger)
	}
	if cfg.Memory.MigrationAge >= cfg.Memory.ShortTermTTL {
		sysLogger.Warn("MEMORY", "Auto-migration disabled: migration age is not below short-term TTL", map[string]interface{}{
			"short_term_ttl": cfg.Memory.ShortTermTTL,
			"migration_age":  cfg.Memory.MigrationAge,
		})
	}
	memoryManager := ragmemory.NewManager(kv, ragmemory.Config{
		ShortTermTTL:         time.Duration(cfg.Memory.ShortTermTTL) * time.Second,
		LongTermTTL:          time.Duration(cfg.Memory.LongTermTTL) * time.Second,
		MaxShortTermMessages: cfg.Memory.MaxShortTermMessages,
		MigrationAge:         time.Duration(cfg.Memory.MigrationAge) * time.Second,
		MaxSummaries:         cfg.Memory.MaxConversationSummaries,
	}, summarizer, sysLogger).WithPublisher(publisher)

	toolRegistry := tools.NewRegistry(sysLogger)
	var graph *executor.Graph
	if m.primary != nil && m.utility != nil && m.local != nil {
		classifier := intent.NewClassifier(m.utility, sysLogger)
		reranker := rerank.NewReranker(m.utility, sysLogger)
		direct := response.NewDirectResponder(m.local, m.utility, sysLogger)

		toolRegistry = tools.NewDefaultRegistry(tools.Deps{
			Finder:     retriever,
			Reranker:   reranker,
			Summarizer: summarizer,
			Classifier: classifier,
			Replier:    direct,
		}, sysLogger)

		g, err := executor.NewGraph(executor.Deps{
			Memory:     memoryManager,
			Classifier: classifier,
			Retriever:  retriever,
			Reranker:   reranker,
			Context:    ragcontext.NewBuilder(cfg.Retrieval.RerankScoreThreshold, cfg.Retrieval.UserContextTopK, cfg.Retrieval.AdminContextTopK),
			Direct:     direct,
			Agent:      response.NewAgent(m.primary, sysLogger),
			Tools:      toolRegistry,
			Observer:   metrics,
		}, executor.Config{
			Mode:      executor.Mode(cfg.Retrieval.Mode),
			StepLimit: cfg.Retrieval.AgentStepLimit,
		}, sysLogger)
		if err != nil {
			sysLogger.Error("GRAPH", "Failed to build agent graph", map[string]interface{}{"error": err.Error()})
		} else {
			graph = g
			sysLogger.Info("GRAPH", "Agent graph ready", map[string]interface{}{"mode": g.Mode(), "tools": toolRegistry.Count()})
		}
	} else {
		sysLogger.Error("GRAPH", "Agent graph not initialised: model providers unavailable", nil)
	}

	// 5. Services
	var chatGraph service.ChatGraph
	if graph != nil {
		chatGraph = graph
	}
	chatService := service.NewChatService(chatGraph, publisher, metrics, sysLogger)
	memoryService := service.NewMemoryService(memoryManager, sysLogger)
	searchService := service.NewSearchService(c.Embedder, store, sysLogger)
	diagnosticsService := service.NewDiagnosticsService(
		graph != nil,
		memoryManager,
		c.Embedder,
		retriever,
		toolRegistry,
		sysLogger,
		sysLogger,
	)
	c.ConsumerService = service.NewConsumerService(bus, metrics, sysLogger)

	// 6. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.MemoryController = controller.NewMemoryController(memoryService)
	c.SearchController = controller.NewSearchController(searchService)
	c.SystemController = controller.NewSystemController(diagnosticsService, metrics.Handler())

	return c
}

// Close releases background connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newKVStore(cfg *config.Config) contract.KVStore {
	if cfg.Memory.Store == "memory" {
		log.Printf("[INFO] Using in-process memory store")
		return memory.NewKVStore()
	}

	opt, err := redisOptions(cfg.App)
	if err != nil {
		log.Fatalf("[FATAL] Invalid Redis configuration: %v", err)
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("[FATAL] Failed to connect to Redis: %v", err)
	}
	log.Printf("[INFO] Connected to Redis at %s", opt.Addr)
	return implementation.NewRedisKVStore(rdb)
}

func redisOptions(app config.AppConfig) (*redis.Options, error) {
	if app.RedisURL != "" {
		opt, err := redis.ParseURL(app.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		return opt, nil
	}
	return &redis.Options{
		Addr:     app.RedisHost + ":" + app.RedisPort,
		Password: app.RedisPassword,
		DB:       app.RedisDB,
	}, nil
}

func newDocumentRepository(cfg *config.Config, db *gorm.DB) contract.DocumentRepository {
	if cfg.Database.DocumentStore == "memory" {
		repo, err := memory.NewDocumentRepository()
		if err != nil {
			log.Fatalf("[FATAL] Failed to create in-memory document store: %v", err)
		}
		log.Printf("[INFO] Using in-memory document store")
		return repo
	}
	if db == nil {
		log.Fatalf("[FATAL] DOCUMENT_STORE=postgres requires a database connection")
	}
	return implementation.NewDocumentRepository(db)
}

func newEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	case "hash":
		return embedding.NewHashProvider(cfg.Ai.EmbeddingDimensions)
	default:
		return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDimensions)
	}
}

func newModels(cfg *config.Config) models {
	var m models

	primary, err := factory.NewToolCaller(factory.Spec{
		Provider:    "gemini",
		Model:       cfg.Ai.PrimaryModel,
		APIKey:      cfg.Keys.GoogleGemini,
		Temperature: cfg.Ai.PrimaryTemperature,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to initialize primary LLM: %v", err)
	} else {
		m.primary = primary
	}

	utility, err := factory.NewLLMProvider(factory.Spec{
		Provider:    "gemini",
		Model:       cfg.Ai.UtilityModel,
		APIKey:      cfg.Keys.GoogleGemini,
		Temperature: cfg.Ai.UtilityTemperature,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to initialize utility LLM: %v", err)
	} else {
		m.utility = utility
	}

	local, err := factory.NewLLMProvider(factory.Spec{
		Provider:    cfg.Ai.LocalLLMProvider,
		Model:       cfg.Ai.LocalLLMModel,
		BaseURL:     cfg.Ai.LocalLLMBaseURL,
		APIKey:      cfg.Ai.LocalLLMAPIKey,
		Temperature: cfg.Ai.PrimaryTemperature,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to initialize local LLM: %v", err)
	} else {
		m.local = local
	}

	log.Printf("[INFO] Models: primary=%s utility=%s local=%s/%s",
		cfg.Ai.PrimaryModel, cfg.Ai.UtilityModel, cfg.Ai.LocalLLMProvider, cfg.Ai.LocalLLMModel)
	return m
}
