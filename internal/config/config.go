package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Store   StoreConfig
	Auth    AuthConfig
}

type AppConfig struct {
	Environment        string
	LogFilePath        string
	WireLogPath        string
	Port               string // stub server only
	UploadsDir         string // stub server only
	CorsAllowedOrigins string
}

type BackendConfig struct {
	BaseURL      string
	WebsocketURL string
	// SendContext controls whether prior transcript turns are attached
	// to outbound questions. Simpler backends ignore the field.
	SendContext    bool
	RequestTimeout int // seconds, feedback/citation calls
}

type StoreConfig struct {
	Backend  string // "memory" | "redis"
	RedisURL string
}

type AuthConfig struct {
	Token string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/chat.log"),
			WireLogPath:        getEnv("WIRE_LOG_PATH", "logs/channel.log"),
			Port:               getEnv("APP_PORT", "8000"),
			UploadsDir:         getEnv("UPLOADS_DIR", "./uploads"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
			WebsocketURL:   getEnv("BACKEND_WS_URL", "ws://localhost:8000/ws/query"),
			SendContext:    getEnvAsBool("SEND_CHAT_CONTEXT", true),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 600),
		},
		Store: StoreConfig{
			Backend:  getEnv("SESSION_STORE", "memory"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Auth: AuthConfig{
			Token: getEnv("AUTH_TOKEN", ""),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
