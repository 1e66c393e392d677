package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Graph   GraphConfig
	Redis   RedisConfig
	Match   MatchConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the listing graph. An empty URI
// selects the in-memory repository, which is the development default.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// RedisConfig describes the optional listing cache. An empty Addr disables
// caching entirely.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// MatchConfig carries every tunable of the matching engine. Weights must sum
// to 1.
type MatchConfig struct {
	MaxK     int
	MinScore float64

	WeightValueBalance     float64
	WeightCategoryAffinity float64
	WeightConditionMatch   float64
	WeightDistanceScore    float64
	WeightTrustScore       float64
	WeightDesireMatch      float64

	ChainLMax          int
	ChainBeamN         int
	ChainMaxResults    int
	ChainMinEdgeScore  float64
	ChainMinScore      float64
	ChainMaxTotalKm    float64
	ExpandWorkers      int
	RetryBudget        int
	RepoCallTimeout    time.Duration
	PairDeadline       time.Duration
	ChainDeadline      time.Duration
	ZoneThresholdsKm   [5]float64
	CategoryAffinities string // path to the YAML affinity table, optional
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultGraphSessions   = 10
	defaultCacheTTL        = 30 * time.Second
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
			AllowedOriginsCSV: os.Getenv("CORS_ALLOWED_ORIGINS"),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       os.Getenv("GRAPH_DATABASE"),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphSessions),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       parseIntWithDefault("REDIS_DB", 0),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	cfg.Redis.CacheTTL = defaultCacheTTL
	if v := os.Getenv("CACHE_TTL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		cfg.Redis.CacheTTL = parsed
	}

	match, err := loadMatch()
	if err != nil {
		return Config{}, err
	}
	cfg.Match = match

	return cfg, nil
}

func loadMatch() (MatchConfig, error) {
	m := MatchConfig{
		MaxK:     parseIntWithDefault("MATCH_MAX_K", 20),
		MinScore: parseFloatWithDefault("MATCH_MIN_SCORE", 0.3),

		WeightValueBalance:     parseFloatWithDefault("MATCH_WEIGHT_VALUE_BALANCE", 0.22),
		WeightCategoryAffinity: parseFloatWithDefault("MATCH_WEIGHT_CATEGORY_AFFINITY", 0.18),
		WeightConditionMatch:   parseFloatWithDefault("MATCH_WEIGHT_CONDITION_MATCH", 0.10),
		WeightDistanceScore:    parseFloatWithDefault("MATCH_WEIGHT_DISTANCE_SCORE", 0.15),
		WeightTrustScore:       parseFloatWithDefault("MATCH_WEIGHT_TRUST_SCORE", 0.10),
		WeightDesireMatch:      parseFloatWithDefault("MATCH_WEIGHT_DESIRE_MATCH", 0.25),

		ChainLMax:          parseIntWithDefault("CHAIN_L_MAX", 4),
		ChainBeamN:         parseIntWithDefault("CHAIN_BEAM_N", 15),
		ChainMaxResults:    parseIntWithDefault("CHAIN_MAX_RESULTS", 10),
		ChainMinEdgeScore:  parseFloatWithDefault("CHAIN_MIN_EDGE_SCORE", 0.5),
		ChainMinScore:      parseFloatWithDefault("CHAIN_MIN_SCORE", 0.55),
		ChainMaxTotalKm:    parseFloatWithDefault("CHAIN_MAX_TOTAL_KM", 200),
		ExpandWorkers:      parseIntWithDefault("MATCH_EXPAND_WORKERS", 8),
		RetryBudget:        parseIntWithDefault("MATCH_RETRY_BUDGET", 2),
		RepoCallTimeout:    parseMillisWithDefault("MATCH_REPO_CALL_MS", 300*time.Millisecond),
		PairDeadline:       parseMillisWithDefault("MATCH_PAIR_DEADLINE_MS", time.Second),
		ChainDeadline:      parseMillisWithDefault("MATCH_CHAIN_DEADLINE_MS", 5*time.Second),
		CategoryAffinities: os.Getenv("CATEGORY_AFFINITY_PATH"),
	}

	sum := m.WeightValueBalance + m.WeightCategoryAffinity + m.WeightConditionMatch +
		m.WeightDistanceScore + m.WeightTrustScore + m.WeightDesireMatch
	if math.Abs(sum-1) > 1e-6 {
		return MatchConfig{}, fmt.Errorf("match weights must sum to 1, got %.6f", sum)
	}

	thresholds, err := parseZoneThresholds(os.Getenv("ZONE_THRESHOLDS_KM"))
	if err != nil {
		return MatchConfig{}, err
	}
	m.ZoneThresholdsKm = thresholds

	return m, nil
}

// parseZoneThresholds reads a comma-separated 5-tuple of strictly increasing
// positive kilometre thresholds.
func parseZoneThresholds(raw string) ([5]float64, error) {
	out := [5]float64{5, 15, 30, 50, 100}
	if raw == "" {
		return out, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 5 {
		return out, fmt.Errorf("ZONE_THRESHOLDS_KM wants 5 values, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("invalid ZONE_THRESHOLDS_KM value %q: %w", p, err)
		}
		if v <= 0 {
			return out, fmt.Errorf("ZONE_THRESHOLDS_KM values must be positive, got %v", v)
		}
		if i > 0 && v <= out[i-1] {
			return out, fmt.Errorf("ZONE_THRESHOLDS_KM must be strictly increasing")
		}
		out[i] = v
	}
	return out, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parseMillisWithDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
