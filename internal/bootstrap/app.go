package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/exams"
	"quizgen-backend/internal/extract"
	"quizgen-backend/internal/generation"
	"quizgen-backend/internal/llm"
	anthropicllm "quizgen-backend/internal/llm/anthropic"
	geminillm "quizgen-backend/internal/llm/gemini"
	openaillm "quizgen-backend/internal/llm/openai"
	"quizgen-backend/internal/services/health"
	"quizgen-backend/internal/shared/auth"
	"quizgen-backend/internal/shared/config"
	"quizgen-backend/internal/shared/server"
	"quizgen-backend/internal/shared/server/middleware"
	"quizgen-backend/internal/shared/storage/db"
	"quizgen-backend/internal/shared/storage/kv"
	"quizgen-backend/internal/shared/storage/object"
	localstore "quizgen-backend/internal/shared/storage/object/local"
	s3store "quizgen-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore
	LLM    llm.Client
	Tokens *auth.Tokens
	Health *health.Service

	DocumentsRepo     documents.Repo
	TestsRepo         exams.Repo
	DocumentsService  *documents.Service
	ExamsService      *exams.Service
	GenerationService *generation.Service
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := BuildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    client,
		Tokens: tokens,
		Health: health.NewService(),
	}
	app.Redis = buildRedis(ctx, cfg)

	buildServices(app)
	limiter := buildLimiter(app)

	if app.DB != nil {
		app.Health.Register("database", app.DB.PingContext)
	}
	if app.Redis != nil {
		app.Health.Register("redis", func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		Tokens:            app.Tokens,
		Health:            app.Health,
		Limiter:           limiter,
		DocumentHandler:   documents.NewHandler(app.DocumentsService),
		ExamHandler:       exams.NewHandler(app.ExamsService),
		GenerationHandler: generation.NewHandler(app.GenerationService),
	})

	return app, nil
}

// Close releases connections held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// BuildLLM constructs the configured provider wrapped in the retry policy.
func BuildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "", "openai":
		client, err = openaillm.NewClient(openaillm.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			Model:     cfg.ResolvedLLMModel(),
			MaxTokens: cfg.LLMMaxTokens,
		})
	case "anthropic":
		client, err = anthropicllm.NewClient(anthropicllm.Config{
			APIKey:    cfg.AnthropicAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			Model:     cfg.ResolvedLLMModel(),
			MaxTokens: cfg.LLMMaxTokens,
		})
	case "gemini":
		client, err = geminillm.NewClient(ctx, geminillm.Config{
			APIKey:    cfg.GeminiAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			Model:     cfg.ResolvedLLMModel(),
			MaxTokens: cfg.LLMMaxTokens,
		})
	case "mock":
		log.Printf("bootstrap: LLM_PROVIDER=mock; completions return an error until canned responses are queued")
		client = llm.NewMockClient()
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}

	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = cfg.LLMMaxRetries
	if cfg.LLMTimeoutSeconds > 0 {
		retry.AttemptTimeout = time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	}
	provider := cfg.LLMProvider
	if provider == "" {
		provider = "openai"
	}
	return llm.WithRetry(client, provider, retry), nil
}

func buildRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	client, err := kv.Connect(ctx, kv.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Printf("bootstrap: redis unavailable; using in-memory rate limiter: %v", err)
		return nil
	}
	return client
}

func buildLimiter(app *App) middleware.Limiter {
	perMinute := app.Config.GenerateRatePerMinute
	if perMinute <= 0 {
		return nil
	}
	if app.Redis != nil {
		return &middleware.RedisLimiter{
			Client: app.Redis,
			Limit:  perMinute,
			Window: time.Minute,
			Prefix: "quizgen:ratelimit:",
		}
	}
	return middleware.NewMemoryLimiter(perMinute, app.Config.GenerateRateBurst, nil)
}

func buildServices(app *App) {
	var docRepo documents.Repo
	var testRepo exams.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		testRepo = &exams.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		testRepo = exams.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store:    app.Store,
		Repo:     docRepo,
		MaxBytes: app.Config.MaxDocumentBytes,
	}

	app.DocumentsRepo = docRepo
	app.TestsRepo = testRepo
	app.DocumentsService = docSvc
	app.ExamsService = &exams.Service{Repo: testRepo}
	app.GenerationService = NewGenerationService(app.Config, docSvc, app.LLM, testRepo)
}

// NewGenerationService wires the pipeline from configuration.
func NewGenerationService(cfg config.Config, docs *documents.Service, client llm.Client, tests exams.Repo) *generation.Service {
	return &generation.Service{
		Documents: docs,
		Aggregator: &generation.Aggregator{
			Source:      docs,
			Extractor:   extract.PDFExtractor{},
			Concurrency: cfg.ExtractConcurrency,
		},
		LLM:            client,
		Tests:          tests,
		Model:          cfg.ResolvedLLMModel(),
		Temperature:    cfg.LLMTemperature,
		MaxTokens:      cfg.LLMMaxTokens,
		RepairAttempts: cfg.RepairAttempts,
		MaxBatch:       cfg.MaxBatchDocuments,
		Timeout:        time.Duration(cfg.GenerationTimeoutSeconds) * time.Second,
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
