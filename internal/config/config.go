// README: Config loader with env defaults for HTTP, datasets, distance provider, ranking, and optional infra.
package config

import (
	"os"
	"strconv"
	"time"
)

type RankingConfig struct {
	Concurrency int
	DefaultTop  int
}

type DistanceConfig struct {
	MapsAPIKey string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
	}
	Data struct {
		Dir string
		URL string
	}
	Model struct {
		CoefficientsFile string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Distance DistanceConfig
	Ranking  RankingConfig
	AI       struct {
		GeminiKey string
	}
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("RIDESCORE_HTTP_ADDR", ":8080")
	cfg.Log.Level = envOrDefault("RIDESCORE_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("RIDESCORE_LOG_FORMAT", "json")
	cfg.Data.Dir = envOrDefault("RIDESCORE_DATA_DIR", "./data")
	cfg.Data.URL = os.Getenv("RIDESCORE_DATA_URL")
	cfg.Model.CoefficientsFile = os.Getenv("RIDESCORE_COEFFICIENTS_FILE")
	cfg.DB.DSN = os.Getenv("RIDESCORE_DB_DSN")
	cfg.Redis.Addr = os.Getenv("RIDESCORE_REDIS_ADDR")
	cfg.Distance.MapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Distance.Timeout = envOrDefaultDuration("RIDESCORE_DISTANCE_TIMEOUT", 3*time.Second)
	cfg.Distance.CacheTTL = envOrDefaultDuration("RIDESCORE_DISTANCE_CACHE_TTL", 24*time.Hour)
	cfg.Ranking.Concurrency = envOrDefaultInt("RIDESCORE_RANK_CONCURRENCY", 8)
	cfg.Ranking.DefaultTop = envOrDefaultInt("RIDESCORE_RANK_DEFAULT_TOP", 10)
	cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
