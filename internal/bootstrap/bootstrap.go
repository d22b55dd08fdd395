package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicaccess/streetlaw/internal/config"
	"github.com/civicaccess/streetlaw/internal/core/ports"
	"github.com/civicaccess/streetlaw/internal/core/usecase"
	"github.com/civicaccess/streetlaw/internal/infrastructure/chunking"
	"github.com/civicaccess/streetlaw/internal/infrastructure/embedding/vertexhttp"
	"github.com/civicaccess/streetlaw/internal/infrastructure/extractor/statute"
	"github.com/civicaccess/streetlaw/internal/infrastructure/llm/gemini"
	"github.com/civicaccess/streetlaw/internal/infrastructure/queue/nats"
	"github.com/civicaccess/streetlaw/internal/infrastructure/repository/postgres"
	"github.com/civicaccess/streetlaw/internal/infrastructure/rerank/crossencoder"
	"github.com/civicaccess/streetlaw/internal/infrastructure/resilience"
	"github.com/civicaccess/streetlaw/internal/infrastructure/vector/memindex"
	"github.com/civicaccess/streetlaw/internal/infrastructure/vector/qdrant"
	"github.com/civicaccess/streetlaw/internal/observability/logging"
)

const indexProbeTimeout = 3 * time.Second

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue        *nats.Queue
	Interactions ports.InteractionRepository
	Extractor    ports.TextExtractor
	IndexMode    string

	IngestUC ports.DocumentIngestor
	AskUC    ports.LegalQueryService
	JudgeUC  ports.JudgeProcessor

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	interactions := postgres.NewInteractionRepository(db)
	if err := interactions.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure interactions schema: %w", err)
	}

	personas, err := config.LoadPersonas(cfg.PersonasPath)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, logger, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init judge queue: %w", err)
	}

	embedder := vertexhttp.New(cfg.EmbeddingURL, cfg.EmbeddingModelID, executor)
	encoder := crossencoder.New(cfg.RerankURL, executor)
	index, indexMode := selectIndex(ctx, cfg, logger)

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, executor)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	translator := gemini.NewTranslator(geminiClient, cfg.GeminiGenModel)
	generator := gemini.NewGenerator(geminiClient, cfg.GeminiGenModel)

	// The judge runs under its own policy so a flapping evaluation model
	// cannot trip the breakers shared by the request path.
	judgeClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, resilience.NewExecutor(resilience.JudgeConfig(), logger))
	if err != nil {
		queue.Close()
		_ = db.Close()
		_ = geminiClient.Close()
		return nil, fmt.Errorf("init gemini judge: %w", err)
	}
	judge := gemini.NewJudge(judgeClient, cfg.GeminiJudgeModel)

	chunker := chunking.NewSectionChunker()
	extractor := statute.NewExtractor()

	ingestUC := usecase.NewIngestUseCase(documents, chunker, embedder, index, cfg.EmbeddingModelID, logger)
	askUC := usecase.NewAskUseCase(
		translator, embedder, index, encoder, generator, interactions, queue, personas,
		usecase.AskParams{
			RetrievalTopK:     cfg.RetrievalTopK,
			RerankTopN:        cfg.RerankTopN,
			RerankThreshold:   cfg.RerankThreshold,
			GenerationTimeout: time.Duration(cfg.GenerationTimeoutS) * time.Second,
		},
		logger,
	)
	judgeUC := usecase.NewJudgeUseCase(interactions, judge, time.Duration(cfg.JudgeTimeoutS)*time.Second, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:        queue,
		Interactions: interactions,
		Extractor:    extractor,
		IndexMode:    indexMode,

		IngestUC: ingestUC,
		AskUC:    askUC,
		JudgeUC:  judgeUC,

		closeFn: func() {
			queue.Close()
			_ = geminiClient.Close()
			_ = judgeClient.Close()
			_ = db.Close()
		},
	}, nil
}

// selectIndex commits to one vector index for the process lifetime: the
// durable qdrant store when reachable, otherwise the in-memory fallback
// that serves traffic with reduced durability.
func selectIndex(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.VectorIndex, string) {
	qdrantIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbeddingModelID)

	probeCtx, cancel := context.WithTimeout(ctx, indexProbeTimeout)
	defer cancel()
	if err := qdrantIndex.Probe(probeCtx); err != nil {
		logger.Warn("vector_index_fallback", "mode", "ephemeral", "error", err)
		fallback := memindex.New(cfg.EmbeddingModelID)
		return fallback, fallback.Mode()
	}

	logger.Info("vector_index_selected", "mode", qdrantIndex.Mode(), "collection", cfg.QdrantCollection)
	return qdrantIndex, qdrantIndex.Mode()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
