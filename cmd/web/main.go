package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/myrjola/foundit/internal/ai"
	"github.com/myrjola/foundit/internal/anomaly"
	"github.com/myrjola/foundit/internal/broker"
	"github.com/myrjola/foundit/internal/claims"
	"github.com/myrjola/foundit/internal/embedding"
	"github.com/myrjola/foundit/internal/envstruct"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/iforest"
	"github.com/myrjola/foundit/internal/logging"
	"github.com/myrjola/foundit/internal/matching"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/pprofserver"
	"github.com/myrjola/foundit/internal/reportindex"
	"github.com/myrjola/foundit/internal/repositories"
	"github.com/myrjola/foundit/internal/sqlite"
	"github.com/myrjola/foundit/internal/storage"
)

type application struct {
	logger         *slog.Logger
	items          *repositories.ItemRepository
	chats          *repositories.ChatRepository
	chatEvents     *broker.Broker[string, models.Message]
	reports        *repositories.ReportRepository
	claims         *claims.Service
	questions      *ai.Client
	images         *storage.ImageStore
	detector       *anomaly.Detector
	reportIndex    *reportindex.Index
	maxUploadBytes int64
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"FOUNDIT_ADDR" envDefault:"localhost:4000"`
	// PprofAddr is the address for the pprof server. Empty disables it.
	PprofAddr string `env:"FOUNDIT_PPROF_ADDR" envDefault:""`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FOUNDIT_SQLITE_URL" envDefault:"./foundit.sqlite3"`
	// ImageStoreURL is the afs base URL item photos are stored under, e.g. file:///var/lib/foundit or
	// mem://localhost/images.
	ImageStoreURL  string `env:"FOUNDIT_IMAGE_STORE_URL" envDefault:"./data"`
	MaxUploadBytes int64  `env:"FOUNDIT_MAX_UPLOAD_BYTES" envDefault:"10485760"`

	OpenAIAPIKey  string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:""`
	VisionModel   string        `env:"FOUNDIT_VISION_MODEL" envDefault:"gpt-4o-mini"`
	VisionTimeout time.Duration `env:"FOUNDIT_VISION_TIMEOUT" envDefault:"30s"`

	EmbeddingProvider string        `env:"FOUNDIT_EMBEDDING_PROVIDER" envDefault:"fastembed"`
	EmbeddingModel    string        `env:"FOUNDIT_EMBEDDING_MODEL" envDefault:"sentence-transformers/all-MiniLM-L6-v2"`
	EmbeddingCacheDir string        `env:"FOUNDIT_EMBEDDING_CACHE_DIR" envDefault:"local_cache"`
	EmbeddingCacheTTL time.Duration `env:"FOUNDIT_EMBEDDING_CACHE_TTL" envDefault:"1h"`

	ClaimAttemptsPerMinute float64 `env:"FOUNDIT_CLAIM_ATTEMPTS_PER_MINUTE" envDefault:"5"`
	ClaimAttemptBurst      int     `env:"FOUNDIT_CLAIM_ATTEMPT_BURST" envDefault:"5"`

	AnomalyTrees int   `env:"FOUNDIT_ANOMALY_TREES" envDefault:"100"`
	AnomalySeed  int64 `env:"FOUNDIT_ANOMALY_SEED" envDefault:"0"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if cfg.AnomalySeed < 0 {
		return errors.New("anomaly seed must not be negative", slog.Int64("seed", cfg.AnomalySeed))
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()

	var embedder embedding.Provider
	if embedder, err = embedding.NewProvider(embedding.Config{
		Provider: cfg.EmbeddingProvider,
		Model:    cfg.EmbeddingModel,
		CacheDir: cfg.EmbeddingCacheDir,
		CacheTTL: cfg.EmbeddingCacheTTL,
	}); err != nil {
		return errors.Wrap(err, "new embedding provider", slog.String("provider", cfg.EmbeddingProvider))
	}
	defer func() {
		if closeErr := embedder.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close embedding provider", errors.SlogError(closeErr))
		}
	}()

	items := repositories.NewItemRepository(db, logger)
	chats := repositories.NewChatRepository(db, logger)
	reports := repositories.NewReportRepository(db, logger)

	var index *reportindex.Index
	if index, err = reportindex.New(embedder, logger); err != nil {
		return errors.Wrap(err, "new report index")
	}
	if err = index.Rebuild(ctx, reports); err != nil {
		return errors.Wrap(err, "rebuild report index")
	}

	chatEvents := broker.New[string, models.Message]()
	go chatEvents.Start()
	defer chatEvents.Stop()

	app := application{
		logger:     logger,
		items:      items,
		chats:      chats,
		chatEvents: chatEvents,
		reports:    reports,
		claims: claims.NewService(items, chats, matching.NewScorer(),
			claims.NewLimiter(cfg.ClaimAttemptsPerMinute, cfg.ClaimAttemptBurst), logger),
		questions: ai.NewClient(ai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.VisionModel,
			Timeout: cfg.VisionTimeout,
		}, logger),
		images: storage.NewImageStore(cfg.ImageStoreURL, logger),
		detector: anomaly.NewDetector(embedder, iforest.Config{
			Trees:      cfg.AnomalyTrees,
			MaxSamples: 0,
			Seed:       uint64(cfg.AnomalySeed),
		}, logger),
		reportIndex:    index,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}

	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	// A missing .env file is fine, the environment can be configured by other means.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env file", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
