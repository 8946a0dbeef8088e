package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration.
type Config struct {
	Port            string   `toml:"port"`
	Env             string   `toml:"env"`
	CORSAllowOrigin []string `toml:"cors_allow_origins"`
	DatabaseURL     string   `toml:"database_url"`
	JWTSecret       string   `toml:"jwt_secret"`

	ObjectStoreType string `toml:"object_store"`
	LocalStoreDir   string `toml:"local_store_dir"`
	AWSRegion       string `toml:"aws_region"`
	S3Bucket        string `toml:"s3_bucket"`
	S3Prefix        string `toml:"s3_prefix"`
	SSEKMSKeyID     string `toml:"sse_kms_key_id"`

	LLMProvider       string  `toml:"llm_provider"`
	LLMModel          string  `toml:"llm_model"`
	LLMBaseURL        string  `toml:"llm_base_url"`
	LLMTemperature    float64 `toml:"llm_temperature"`
	LLMMaxTokens      int     `toml:"llm_max_tokens"`
	LLMTimeoutSeconds int     `toml:"llm_timeout_seconds"`
	LLMMaxRetries     int     `toml:"llm_max_retries"`
	RepairAttempts    int     `toml:"repair_attempts"`
	OpenAIAPIKey      string  `toml:"-"`
	AnthropicAPIKey   string  `toml:"-"`
	GeminiAPIKey      string  `toml:"-"`

	GenerationTimeoutSeconds int   `toml:"generation_timeout_seconds"`
	MaxBatchDocuments        int   `toml:"max_batch_documents"`
	MaxDocumentBytes         int64 `toml:"max_document_bytes"`
	ExtractConcurrency       int   `toml:"extract_concurrency"`
	MaxConcurrentGenerations int   `toml:"max_concurrent_generations"`
	GenerateRatePerMinute    int   `toml:"generate_rate_per_minute"`
	GenerateRateBurst        int   `toml:"generate_rate_burst"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"-"`
	RedisDB       int    `toml:"redis_db"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Port:                     "8080",
		Env:                      "dev",
		CORSAllowOrigin:          []string{"http://localhost:5173"},
		ObjectStoreType:          "local",
		LocalStoreDir:            "./data",
		LLMProvider:              "openai",
		LLMTemperature:           0.2,
		LLMMaxTokens:             4096,
		LLMTimeoutSeconds:        45,
		LLMMaxRetries:            2,
		RepairAttempts:           1,
		GenerationTimeoutSeconds: 150,
		MaxBatchDocuments:        10,
		MaxDocumentBytes:         20 << 20,
		ExtractConcurrency:       4,
		MaxConcurrentGenerations: 8,
		GenerateRatePerMinute:    6,
		GenerateRateBurst:        3,
	}
}

// Load reads configuration from defaults, an optional TOML file and
// environment variables, in increasing order of precedence.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()

	path := getEnv("CONFIG_FILE", "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			log.Printf("config: decode %s failed, ignoring file: %v", path, err)
			cfg = Defaults()
		}
	}

	applyEnv(&cfg)
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	if cfg.Env == "production" && cfg.JWTSecret == "" {
		log.Printf("JWT_SECRET is required in production")
	}

	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	cfg.ObjectStoreType = getEnv("OBJECT_STORE", cfg.ObjectStoreType)
	cfg.LocalStoreDir = getEnv("LOCAL_STORE_DIR", cfg.LocalStoreDir)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)
	cfg.SSEKMSKeyID = getEnv("SSE_KMS_KEY_ID", cfg.SSEKMSKeyID)

	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMTemperature = getEnvFloat("LLM_TEMPERATURE", cfg.LLMTemperature)
	cfg.LLMMaxTokens = getEnvInt("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	cfg.LLMTimeoutSeconds = getEnvInt("LLM_TIMEOUT_SECONDS", cfg.LLMTimeoutSeconds)
	cfg.LLMMaxRetries = getEnvInt("LLM_MAX_RETRIES", cfg.LLMMaxRetries)
	cfg.RepairAttempts = getEnvInt("REPAIR_ATTEMPTS", cfg.RepairAttempts)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)

	cfg.GenerationTimeoutSeconds = getEnvInt("GENERATION_TIMEOUT_SECONDS", cfg.GenerationTimeoutSeconds)
	cfg.MaxBatchDocuments = getEnvInt("MAX_BATCH_DOCUMENTS", cfg.MaxBatchDocuments)
	cfg.MaxDocumentBytes = int64(getEnvInt("MAX_DOCUMENT_BYTES", int(cfg.MaxDocumentBytes)))
	cfg.ExtractConcurrency = getEnvInt("EXTRACT_CONCURRENCY", cfg.ExtractConcurrency)
	cfg.MaxConcurrentGenerations = getEnvInt("MAX_CONCURRENT_GENERATIONS", cfg.MaxConcurrentGenerations)
	cfg.GenerateRatePerMinute = getEnvInt("GENERATE_RATE_PER_MINUTE", cfg.GenerateRatePerMinute)
	cfg.GenerateRateBurst = getEnvInt("GENERATE_RATE_BURST", cfg.GenerateRateBurst)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: %s invalid float: %v", key, err)
		return def
	}
	return val
}

// ResolvedLLMModel returns LLMModel, falling back to the default model of
// the configured provider.
func (c Config) ResolvedLLMModel() string {
	if model := strings.TrimSpace(c.LLMModel); model != "" {
		return model
	}
	switch strings.ToLower(strings.TrimSpace(c.LLMProvider)) {
	case "", "openai":
		return "gpt-4"
	case "anthropic":
		return "claude-sonnet-4-5"
	case "gemini":
		return "gemini-2.5-flash"
	default:
		return ""
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	case "", "dev", "development":
		return "dev"
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
