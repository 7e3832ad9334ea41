package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the service reads from the environment.
// Values are handed to constructors explicitly; nothing reads the
// environment after Load returns.
type Config struct {
	Env      string // development or production
	HTTPPort int

	UploadDir string
	TempDir   string
	OutputDir string

	MaxFileSize   int64 // bytes, per uploaded file
	MaxBatchFiles int

	ConvertTimeout    time.Duration
	CleanupRetries    int
	CleanupRetryDelay time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	OutputTTL     time.Duration
	SweepInterval time.Duration

	HistoryDBPath string // empty disables history

	FFmpegPath  string
	FFprobePath string
	SofficePath string
	MagickPath  string
	UnoconvPath string
}

func Load() *Config {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Env = getEnv("ENV", "development")
	cfg.HTTPPort = getEnvInt("HTTP_PORT", 5000)
	cfg.UploadDir = getEnv("UPLOAD_DIR", "./data/uploads")
	cfg.TempDir = getEnv("TEMP_DIR", "./data/temp")
	cfg.OutputDir = getEnv("OUTPUT_DIR", "./data/output")
	cfg.MaxFileSize = getEnvInt64("MAX_FILE_SIZE", 500*1024*1024)
	cfg.MaxBatchFiles = getEnvInt("MAX_BATCH_FILES", 10)
	cfg.ConvertTimeout = getEnvDuration("CONVERT_TIMEOUT", 10*time.Minute)
	cfg.CleanupRetries = getEnvInt("CLEANUP_RETRIES", 3)
	cfg.CleanupRetryDelay = getEnvDuration("CLEANUP_RETRY_DELAY", time.Second)
	cfg.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", 100)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute)
	cfg.OutputTTL = getEnvDuration("OUTPUT_TTL", time.Hour)
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)
	cfg.HistoryDBPath = getEnv("HISTORY_DB_PATH", "./data/history.db")
	cfg.FFmpegPath = getEnv("FFMPEG_PATH", "ffmpeg")
	cfg.FFprobePath = getEnv("FFPROBE_PATH", "ffprobe")
	cfg.SofficePath = getEnv("SOFFICE_PATH", "soffice")
	cfg.MagickPath = getEnv("MAGICK_PATH", "magick")
	cfg.UnoconvPath = getEnv("UNOCONV_PATH", "unoconv")
	return cfg
}

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

func (c *Config) Development() bool { return c.Env != "production" }

// EnsureDirs creates the three working directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.UploadDir, c.TempDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
