package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	LLMProvider string
	LLMModel    string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMTimeout  time.Duration

	StateStore    string
	StateFile     string
	DatabaseURL   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisKey      string

	InterviewConfigPath string
	ValidationDelay     time.Duration
	ValidationDelaySet  bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	stateStore := normalizeStateStore(getEnv("STATE_STORE", ""), dbURL)

	if env == "production" && stateStore == "memory" {
		log.Printf("STATE_STORE=memory in production; interviews will not survive a restart")
	}

	delay, delaySet := getEnvDuration("INTERVIEW_VALIDATION_DELAY")

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:                 env,
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:         normalizeProvider(getEnv("LLM_PROVIDER", "static")),
		LLMModel:            getEnv("LLM_MODEL", ""),
		LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:           firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("OPENAI_API_KEY"), os.Getenv("GROQ_API_KEY")),
		LLMTimeout:          time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
		StateStore:          stateStore,
		StateFile:           getEnv("STATE_FILE", "./data/interview-state.json"),
		DatabaseURL:         dbURL,
		SQLitePath:          getEnv("SQLITE_PATH", "./data/interview.db"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisKey:            getEnv("REDIS_KEY", "interview:state"),
		InterviewConfigPath: getEnv("INTERVIEW_CONFIG", ""),
		ValidationDelay:     delay,
		ValidationDelaySet:  delaySet,
	}
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
	if err != nil || val <= 0 {
		log.Printf("config env %s invalid integer %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return 0, false
	}
	return val, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
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
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "none", "off":
		return "none"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai", "groq":
		return "openai"
	default:
		return "static"
	}
}

// normalizeStateStore picks the persistence backend. An explicit STATE_STORE
// wins; otherwise a DATABASE_URL implies postgres and everything else falls
// back to a JSON file.
func normalizeStateStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory":
		return "memory"
	case "file", "json":
		return "file"
	case "postgres", "pg":
		return "postgres"
	case "sqlite":
		return "sqlite"
	case "redis":
		return "redis"
	}
	if strings.TrimSpace(dbURL) != "" {
		return "postgres"
	}
	return "file"
}
