package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string
	BackupDir string

	ClientID          int64
	EngagementID      int64
	DefaultToEntityID int64
	CreatedUser       string

	UseDB            bool
	SingleRecordMode bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		BackupDir: getEnv("BACKUP_DIR", filepath.Join(cwd, "data", "blobs")),

		ClientID:          getEnvInt64("CLIENT_ID", 1),
		EngagementID:      getEnvInt64("ENGAGEMENT_ID", 1),
		DefaultToEntityID: getEnvInt64("DEFAULT_TO_ENTITY_ID", 1),
		CreatedUser:       getEnv("CREATED_USER", "system"),

		UseDB:            getEnvBool("USE_DB", true),
		SingleRecordMode: getEnvBool("SINGLE_RECORD_MODE", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
