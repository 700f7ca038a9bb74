package config

import (
	"os"
)

type Config struct {
	// Database
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Server
	Port string
	Host string

	// Local snapshot cache directory
	CacheDir string

	// When true the service never attempts remote synchronization
	OfflineMode bool
}

func Load() *Config {
	return &Config{
		DBUser:      getEnv("DB_USER", "server"),
		DBPassword:  getEnv("DB_PASSWORD", "secret_app"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "3306"),
		DBName:      getEnv("DB_NAME", "roadside"),
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "0.0.0.0"),
		CacheDir:    getEnv("CACHE_DIR", ".cache"),
		OfflineMode: getEnv("OFFLINE_MODE", "") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
