package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultRelayTimeoutSeconds = 60
)

type Config struct {
	DatabaseURL   string
	HTTPPort      string
	LogLevel      string
	JWTSecret     string
	SigningSecret string

	LLMProvider  string
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModel     string
	GeminiAPIKey string
	GeminiModel  string

	RelayTimeout time.Duration
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		DatabaseURL:   getEnv("DATABASE_URL", "deepchat.db"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		SigningSecret: getEnv("SIGNING_SECRET", ""),

		LLMProvider:  getEnv("LLM_PROVIDER", ProviderOpenAI),
		LLMAPIKey:    getEnv("LLM_API_KEY", getEnv("DEEPSEEK_API_KEY", "")),
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.deepseek.com"),
		LLMModel:     getEnv("LLM_MODEL", "deepseek-chat"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),

		RelayTimeout: time.Duration(getEnvAsInt("RELAY_TIMEOUT_SECONDS", defaultRelayTimeoutSeconds)) * time.Second,
	}

	// The server's write deadline is derived from this, so it must stay positive.
	if AppConfig.RelayTimeout <= 0 {
		log.Warnf("RELAY_TIMEOUT_SECONDS must be positive, using %d", defaultRelayTimeoutSeconds)
		AppConfig.RelayTimeout = defaultRelayTimeoutSeconds * time.Second
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	switch AppConfig.LLMProvider {
	case ProviderOpenAI:
		if AppConfig.LLMAPIKey == "" {
			log.Warn("LLM_API_KEY is not set, completion requests will be sent unauthenticated")
		}
	case ProviderGemini:
		if AppConfig.GeminiAPIKey == "" {
			log.Fatal("GEMINI_API_KEY environment variable is required when LLM_PROVIDER=gemini")
		}
	default:
		log.Fatalf("Unknown LLM_PROVIDER %q (expected %q or %q)", AppConfig.LLMProvider, ProviderOpenAI, ProviderGemini)
	}

	if AppConfig.SigningSecret == "" {
		log.Warn("SIGNING_SECRET is not set, identity webhooks will be rejected")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
