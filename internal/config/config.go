package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Ollama  OllamaConfig
	Upload  UploadConfig
	Session SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type OllamaConfig struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

type UploadConfig struct {
	Dir               string
	MaxFileSize       int64
	AllowedExtensions []string
}

type SessionConfig struct {
	TimeoutSeconds int
	Store          string // "memory" or "redis"
	RedisURL       string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		},
		Ollama: OllamaConfig{
			BaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:          getEnv("OLLAMA_MODEL", "deepseek-r1:8b"),
			TimeoutSeconds: getEnvAsInt("OLLAMA_TIMEOUT_SECONDS", 120),
		},
		Upload: UploadConfig{
			Dir:               getEnv("UPLOAD_DIR", "./uploads"),
			MaxFileSize:       getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024),
			AllowedExtensions: getEnvAsSlice("ALLOWED_EXTENSIONS", []string{"pdf", "jpg", "jpeg", "png", "txt"}),
		},
		Session: SessionConfig{
			TimeoutSeconds: getEnvAsInt("SESSION_TIMEOUT_SECONDS", 3600),
			Store:          getEnv("SESSION_STORE", "memory"),
			RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
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

func getEnvAsInt64(key string, fallback int64) int64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
