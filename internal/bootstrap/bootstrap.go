package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studypath/studypath-backend/internal/config"
	"github.com/studypath/studypath-backend/internal/core/ports"
	"github.com/studypath/studypath-backend/internal/core/usecase"
	"github.com/studypath/studypath-backend/internal/infrastructure/chunking"
	"github.com/studypath/studypath-backend/internal/infrastructure/extractor/audio"
	"github.com/studypath/studypath-backend/internal/infrastructure/extractor/document"
	"github.com/studypath/studypath-backend/internal/infrastructure/extractor/image"
	"github.com/studypath/studypath-backend/internal/infrastructure/graph/neo4j"
	"github.com/studypath/studypath-backend/internal/infrastructure/llm/groq"
	"github.com/studypath/studypath-backend/internal/infrastructure/queue/nats"
	"github.com/studypath/studypath-backend/internal/infrastructure/repository/postgres"
	"github.com/studypath/studypath-backend/internal/infrastructure/resilience"
	"github.com/studypath/studypath-backend/internal/infrastructure/storage/localfs"
	"github.com/studypath/studypath-backend/internal/observability/metrics"
)

// App wires shared infrastructure for both binaries. The API reads the
// inbound ports and the relay side of the queue; the worker reads the
// pipeline executor.
type App struct {
	Config config.Config

	Queue    *nats.Queue
	IngestUC ports.AssetIngestor
	StartUC  ports.RunStarter
	StatusUC ports.RunReader
	TreesUC  ports.TreeReader
	QuizUC   ports.QuizService

	WorkerMetrics *metrics.WorkerMetrics
	PipelineUC    ports.RunExecutor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	assetRepo := postgres.NewAssetRepository(db)
	runRepo := postgres.NewRunRepository(db)
	bundleRepo := postgres.NewBundleRepository(db)
	treeRepo := postgres.NewTreeRepository(db)
	quizRepo := postgres.NewQuizRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSRunSubject, cfg.NATSProgressSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	groqClient := groq.New(cfg.GroqURL, cfg.GroqAPIKey, cfg.GroqExtractionModel, cfg.GroqSynthesisModel, cfg.GroqTranscribeModel)
	splitter := chunking.NewSplitter(cfg.ChunkWords)

	workerMetrics := metrics.NewWorkerMetrics("worker")
	bound := workerMetrics.Bound("worker")

	var projector ports.GraphProjector
	var closeProjector func()
	if cfg.Neo4jEnabled {
		p, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return nil, fmt.Errorf("init neo4j projector: %w", err)
		}
		projector = p
		closeProjector = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = p.Close(closeCtx)
		}
	}

	synthesizer := usecase.NewTreeSynthesizer(groqClient, logger, usecase.SynthesizerOptions{
		MaxDepth:           cfg.MaxTreeDepth,
		QuestionAttempts:   cfg.QuestionAttempts,
		QuestionsPerSecond: cfg.QuestionsPerSecond,
		QuestionTimeout:    time.Duration(cfg.QuestionTimeoutSeconds) * time.Second,
		Metrics:            bound,
	})

	pipelineUC := usecase.NewRunPipelineUseCase(usecase.RunPipelineDeps{
		Runs:    runRepo,
		Assets:  assetRepo,
		Bundles: bundleRepo,
		Trees:   treeRepo,
		Extractors: []ports.AssetExtractor{
			document.New(storage, groqClient, splitter, cfg.MaxDerivedImages, cfg.MinEmbeddedImageBytes),
			image.New(storage, groqClient),
			audio.New(storage, groqClient, splitter),
		},
		Consolidator:   usecase.NewConsolidator(),
		Synthesizer:    synthesizer,
		Progress:       queue,
		Projector:      projector,
		ExtractTimeout: time.Duration(cfg.ExtractTimeoutSeconds) * time.Second,
		Logger:         logger,
		Metrics:        bound,
	})

	return &App{
		Config: cfg,
		Queue:  queue,

		IngestUC: usecase.NewUploadAssetUseCase(assetRepo, storage),
		StartUC:  usecase.NewStartRunUseCase(runRepo, assetRepo, queue),
		StatusUC: usecase.NewRunStatusUseCase(runRepo),
		TreesUC:  usecase.NewListTreesUseCase(treeRepo),
		QuizUC:   usecase.NewQuizUseCase(quizRepo),

		WorkerMetrics: workerMetrics,
		PipelineUC:    pipelineUC,

		closeFn: func() {
			queue.Close()
			if closeProjector != nil {
				closeProjector()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
