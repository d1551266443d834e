package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port            string
	DatabasePath    string
	LogLevel        string
	DefaultCurrency string

	// RefundLookbackDays bounds the search window when matching a failed
	// transaction against its original charge.
	RefundLookbackDays int

	// RestoreChunkSize must stay well under SQLite's host-parameter limit
	// (999 on older builds); the inbox sync restores ids in chunks of this size.
	RestoreChunkSize int

	// ListenerQueueSize is the buffer of the live-message queue.
	ListenerQueueSize int

	// MaxScanBodyBytes caps the JSON payload accepted on the scan endpoint.
	MaxScanBodyBytes int64
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	restoreChunkSize := getEnvAsInt("RESTORE_CHUNK_SIZE", 500)
	if restoreChunkSize < 1 || restoreChunkSize > 900 {
		log.Printf("WARNING: RESTORE_CHUNK_SIZE %d outside safe range [1,900], using 500", restoreChunkSize)
		restoreChunkSize = 500
	}

	maxScanBodyBytesStr := getEnv("MAX_SCAN_BODY_BYTES", "16777216")
	maxScanBodyBytes, err := strconv.ParseInt(maxScanBodyBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_SCAN_BODY_BYTES format '%s'. Using default 16MB. Error: %v", maxScanBodyBytesStr, err)
		maxScanBodyBytes = 16 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./everypaisa.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "INR"),
		RefundLookbackDays: getEnvAsInt("REFUND_LOOKBACK_DAYS", 30),
		RestoreChunkSize:   restoreChunkSize,
		ListenerQueueSize:  getEnvAsInt("LISTENER_QUEUE_SIZE", 256),
		MaxScanBodyBytes:   maxScanBodyBytes,
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, DefaultCurrency=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.DefaultCurrency)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}
