// Package config centralises all environment configuration for the server and
// the sprintctl CLI. It should be imported only by `cmd/*`, `internal/app` and
// test code. Business-logic layers receive already-built values via
// dependency injection.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend and provider names.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
	ProviderLocal  = "local"  // embeddings only
	ProviderHash   = "hash"   // embeddings only
	ProviderStatic = "static" // generation only

	SummarizerTemplate = "template"
	SummarizerLLM      = "llm"
)

// Config holds every runtime option.
// Keep it flat and simple: prefer primitive types over embedding structs.
type Config struct {
	// Network
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Data stores
	DBPath               string
	ChunkStore           string
	MongoURI             string
	MongoDB              string
	MongoChunkCollection string
	MongoVectorIndex     string

	// Embeddings
	EmbeddingProvider string
	EmbeddingBaseURL  string
	EmbeddingAPIKey   string
	EmbeddingModel    string
	EmbeddingDim      int
	EmbeddingTimeout  time.Duration

	// Generation
	LLMProvider    string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMRatePerSec  float64
	LLMTemperature float64

	// Google Cloud
	ProjectID       string
	Location        string
	CredentialsFile string

	// RAG tuning
	TopK            int
	ChunkWords      int
	ContextWords    int
	SummarizerMode  string
	DefaultCapacity int
}

// Load parses the environment (and an optional .env file) into Config.
func Load() Config {
	// godotenv.Load() is a no-op if .env doesn't exist, so it is safe in production.
	_ = godotenv.Load()

	return Config{
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  getDuration("READ_TIMEOUT_SEC", 5),
		WriteTimeout: getDuration("WRITE_TIMEOUT_SEC", 120),

		DBPath:               getEnv("DB_PATH", "sprint.db"),
		ChunkStore:           strings.ToLower(getEnv("CHUNK_STORE", StoreSQLite)),
		MongoURI:             os.Getenv("MONGODB_URI"),
		MongoDB:              getEnv("MONGODB_DB", "sprint_ai"),
		MongoChunkCollection: getEnv("MONGODB_CHUNK_COLLECTION", "chunk_embedding"),
		MongoVectorIndex:     os.Getenv("MONGODB_VECTOR_INDEX"),

		EmbeddingProvider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOpenAI)),
		EmbeddingBaseURL:  os.Getenv("EMBEDDING_BASE_URL"),
		EmbeddingAPIKey:   os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:    os.Getenv("EMBEDDING_MODEL"),
		EmbeddingDim:      getInt("EMBEDDING_DIM", 384),
		EmbeddingTimeout:  getDuration("EMBEDDING_TIMEOUT_SEC", 30),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:     os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		LLMTimeout:     getDuration("LLM_TIMEOUT_SEC", 60),
		LLMRatePerSec:  getFloat("LLM_RATE_PER_SEC", 0),
		LLMTemperature: getFloat("LLM_TEMPERATURE", 0.2),

		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		Location:        getEnv("GCP_LOCATION", "us-central1"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),

		TopK:            getInt("RAG_TOP_K", 3),
		ChunkWords:      getInt("RAG_CHUNK_WORDS", 500),
		ContextWords:    getInt("RAG_CONTEXT_WORDS", 1500),
		SummarizerMode:  strings.ToLower(getEnv("SUMMARIZER_MODE", SummarizerTemplate)),
		DefaultCapacity: getInt("DEFAULT_SPRINT_CAPACITY", 20),
	}
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.ChunkStore {
	case StoreSQLite, StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" {
			add("MONGODB_URI is required when CHUNK_STORE=%s", StoreMongo)
		}
	default:
		add("CHUNK_STORE must be one of sqlite, mongo, memory (got %q)", c.ChunkStore)
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI:
		if c.EmbeddingAPIKey == "" && c.EmbeddingBaseURL == "" {
			add("EMBEDDING_API_KEY or EMBEDDING_BASE_URL is required for the openai embedding provider")
		}
	case ProviderVertex:
		if c.ProjectID == "" {
			add("GCP_PROJECT_ID is required for the vertex embedding provider")
		}
	case ProviderLocal, ProviderHash:
	default:
		add("EMBEDDING_PROVIDER must be one of openai, vertex, local, hash (got %q)", c.EmbeddingProvider)
	}

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.LLMAPIKey == "" && c.LLMBaseURL == "" {
			add("LLM_API_KEY or LLM_BASE_URL is required for the openai llm provider")
		}
	case ProviderVertex:
		if c.ProjectID == "" {
			add("GCP_PROJECT_ID is required for the vertex llm provider")
		}
	case ProviderStatic:
	default:
		add("LLM_PROVIDER must be one of openai, vertex, static (got %q)", c.LLMProvider)
	}

	if c.SummarizerMode != SummarizerTemplate && c.SummarizerMode != SummarizerLLM {
		add("SUMMARIZER_MODE must be template or llm (got %q)", c.SummarizerMode)
	}
	if c.EmbeddingDim <= 0 {
		add("EMBEDDING_DIM must be positive")
	}
	if c.TopK <= 0 || c.ChunkWords <= 0 || c.ContextWords <= 0 {
		add("RAG_TOP_K, RAG_CHUNK_WORDS and RAG_CONTEXT_WORDS must be positive")
	}
	if c.DefaultCapacity <= 0 {
		add("DEFAULT_SPRINT_CAPACITY must be positive")
	}
	return errors.Join(errs...)
}

// getEnv returns env[key] if set, otherwise defaultVal.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt reads an integer from env, falling back to defaultVal.
func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("invalid %s=%q; using default %d", key, v, defaultVal)
	}
	return defaultVal
}

// getFloat reads a float from env, falling back to defaultVal.
func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid %s=%q; using default %g", key, v, defaultVal)
	}
	return defaultVal
}

// getDuration reads an integer (seconds) from env, falling back to defaultSec.
func getDuration(key string, defaultSec int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			return time.Duration(sec) * time.Second
		}
		log.Printf("invalid %s=%q; using default %ds", key, v, defaultSec)
	}
	return time.Duration(defaultSec) * time.Second
}
