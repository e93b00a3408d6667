package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Memory    MemoryConfig
	Keys      APIKeys
	Ai        AIConfig
	Retrieval RetrievalConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisDB            int
	RedisPassword      string
	OtelEnabled        bool
	OtelEndpoint       string
	OtelSampleRatio    float64
}

type DatabaseConfig struct {
	Connection    string
	DocumentStore string // "postgres" or "memory"
}

// MemoryConfig durations are in seconds. MigrationAge is compared against
// ShortTermTTL minus the remaining TTL, so auto-migration only runs when
// MigrationAge is below ShortTermTTL. The defaults (3600 and 7200) leave it
// off; raise SHORT_TERM_MEMORY_TTL to enable it.
type MemoryConfig struct {
	Store                    string // "redis" or "memory"
	ShortTermTTL             int
	LongTermTTL              int
	MaxShortTermMessages     int
	MigrationAge             int
	MaxConversationSummaries int
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	PrimaryModel        string
	PrimaryTemperature  float64
	UtilityModel        string
	UtilityTemperature  float64
	EmbeddingProvider   string // "gemini", "ollama" or "hash"
	EmbeddingModel      string
	EmbeddingDimensions int
	OllamaBaseURL       string
	LocalLLMProvider    string // "openai" or "ollama"
	LocalLLMBaseURL     string
	LocalLLMModel       string
	LocalLLMAPIKey      string
}

type RetrievalConfig struct {
	Mode                  string // "parallel" or "sequential"
	UserSearchLimit       int
	UserSearchCandidates  int
	AdminSearchLimit      int
	AdminSearchCandidates int
	RerankScoreThreshold  float64
	UserContextTopK       int
	AdminContextTopK      int
	AgentStepLimit        int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/agentic-rag.log"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			RedisHost:          getEnv("REDIS_HOST", "localhost"),
			RedisPort:          getEnv("REDIS_PORT", "6379"),
			RedisDB:            getEnvAsInt("REDIS_DB", 0),
			RedisPassword:      getEnv("REDIS_PASSWORD", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			OtelSampleRatio:    getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
		Database: DatabaseConfig{
			Connection:    getEnv("DB_CONNECTION_STRING", ""),
			DocumentStore: getEnv("DOCUMENT_STORE", "postgres"),
		},
		Memory: MemoryConfig{
			Store:                    getEnv("MEMORY_STORE", "redis"),
			ShortTermTTL:             getEnvAsInt("SHORT_TERM_MEMORY_TTL", 3600),
			LongTermTTL:              getEnvAsInt("LONG_TERM_MEMORY_TTL", 2592000),
			MaxShortTermMessages:     getEnvAsInt("MAX_SHORT_TERM_MESSAGES", 20),
			MigrationAge:             getEnvAsInt("MEMORY_MIGRATION_AGE", 7200),
			MaxConversationSummaries: getEnvAsInt("MAX_CONVERSATION_SUMMARIES", 50),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_API_KEY", ""),
		},
		Ai: AIConfig{
			PrimaryModel:        getEnv("PRIMARY_LLM_MODEL", "gemini-2.0-flash"),
			PrimaryTemperature:  getEnvAsFloat("PRIMARY_LLM_TEMPERATURE", 0.3),
			UtilityModel:        getEnv("UTILITY_LLM_MODEL", "gemini-2.5-flash"),
			UtilityTemperature:  getEnvAsFloat("UTILITY_LLM_TEMPERATURE", 0.1),
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", "models/gemini-embedding-exp-03-07"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LocalLLMProvider:    getEnv("LOCAL_LLM_PROVIDER", "openai"),
			LocalLLMBaseURL:     getEnv("LOCAL_LLM_BASE_URL", "http://localhost:8080/v1"),
			LocalLLMModel:       getEnv("LOCAL_LLM_MODEL", "local-model"),
			LocalLLMAPIKey:      getEnv("LOCAL_LLM_API_KEY", ""),
		},
		Retrieval: RetrievalConfig{
			Mode:                  strings.ToLower(getEnv("RETRIEVAL_MODE", "parallel")),
			UserSearchLimit:       getEnvAsInt("USER_SEARCH_LIMIT", 10),
			UserSearchCandidates:  getEnvAsInt("USER_SEARCH_CANDIDATES", 20),
			AdminSearchLimit:      getEnvAsInt("ADMIN_SEARCH_LIMIT", 5),
			AdminSearchCandidates: getEnvAsInt("ADMIN_SEARCH_CANDIDATES", 10),
			RerankScoreThreshold:  getEnvAsFloat("RERANK_SCORE_THRESHOLD", 0.5),
			UserContextTopK:       getEnvAsInt("USER_CONTEXT_TOP_K", 10),
			AdminContextTopK:      getEnvAsInt("ADMIN_CONTEXT_TOP_K", 5),
			AgentStepLimit:        getEnvAsInt("AGENT_STEP_LIMIT", 30),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
