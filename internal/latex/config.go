package latex

import (
	"os"
	"strconv"
	"time"
)

// Config holds renderer configuration from environment variables.
type Config struct {
	TempDir        string
	WorkerPoolSize int
	CleanupAfter   time.Duration
}

// LoadConfig reads renderer configuration from environment variables.
func LoadConfig() *Config {
	cleanupMin := getEnvInt("EQRENDER_CLEANUP_AFTER_MINUTES", 60)

	return &Config{
		TempDir:        getEnv("EQRENDER_TEMP_DIR", "/tmp/eqrender-jobs"),
		WorkerPoolSize: getEnvInt("EQRENDER_WORKER_POOL_SIZE", 4),
		CleanupAfter:   time.Duration(cleanupMin) * time.Minute,
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
