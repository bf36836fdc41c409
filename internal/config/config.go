package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oddsmux/lineledger/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                         string
	ServiceName                    string
	ServiceVersion                 string
	HTTPAddr                       string
	DBURL                          string
	DBMaxRetries                   int
	DBRetryBackoff                 time.Duration
	CacheEnabled                   bool
	CacheTTL                       time.Duration
	CORSAllowedOrigins             []string
	ReadTimeout                    time.Duration
	WriteTimeout                   time.Duration
	PprofEnabled                   bool
	PprofAddr                      string
	UptraceEnabled                 bool
	UptraceDSN                     string
	UptraceLogsEnabled             bool
	LogShipEnabled                 bool
	LogShipEndpoint                string
	LogShipToken                   string
	LogShipTimeout                 time.Duration
	LogShipMinLevel                logging.Level
	PyroscopeEnabled               bool
	PyroscopeServerAddress         string
	PyroscopeAppName               string
	PyroscopeAuthToken             string
	PyroscopeBasicAuthUser         string
	PyroscopeBasicAuthPassword     string
	PyroscopeUploadRate            time.Duration
	OddsFeedEnabled                bool
	OddsFeedBaseURL                string
	OddsFeedToken                  string
	OddsFeedTimeout                time.Duration
	OddsFeedMaxRetries             int
	OddsFeedRetryBackoff           time.Duration
	OddsFeedPollInterval           time.Duration
	OddsFeedCircuitEnabled         bool
	OddsFeedCircuitFailureCount    int
	OddsFeedCircuitOpenTimeout     time.Duration
	OddsFeedCircuitHalfOpenMaxReq  int
	StatsFeedEnabled               bool
	StatsFeedBaseURL               string
	StatsFeedToken                 string
	StatsFeedTimeout               time.Duration
	StatsFeedMaxRetries            int
	StatsFeedRetryBackoff          time.Duration
	StatsFeedPollInterval          time.Duration
	StatsFeedCircuitEnabled        bool
	StatsFeedCircuitFailureCount   int
	StatsFeedCircuitOpenTimeout    time.Duration
	StatsFeedCircuitHalfOpenMaxReq int
	FeedSports                     []string
	BookmakerPriority              []string
	StalenessThreshold             time.Duration
	IdentityStartTolerance         time.Duration
	IdentityAmbiguityMargin        time.Duration
	LockSweepWorkers               int
	ArchiveMarketWorkers           int
	IngestMaxWorkers               int
	InternalJobToken               string
	LogLevel                       logging.Level
}

func Load() (Config, error) {
	var cfg Config

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}
	cfg.AppEnv = appEnv
	cfg.ServiceName = getEnv("SERVICE_NAME", "lineledger-api")
	cfg.ServiceVersion = getEnv("SERVICE_VERSION", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.DBURL = strings.TrimSpace(getEnv("DB_URL", ""))

	dbMaxRetries, err := getEnvAsInt("DB_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_RETRIES: %w", err)
	}
	if dbMaxRetries < 1 {
		return Config{}, fmt.Errorf("DB_MAX_RETRIES must be >= 1")
	}
	cfg.DBMaxRetries = dbMaxRetries

	dbRetryBackoff, err := time.ParseDuration(getEnv("DB_RETRY_BACKOFF", "200ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_RETRY_BACKOFF: %w", err)
	}
	cfg.DBRetryBackoff = dbRetryBackoff

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cfg.CacheEnabled = cacheEnabled

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}
	cfg.CacheTTL = cacheTTL

	cfg.CORSAllowedOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	readTimeout, err := time.ParseDuration(getEnv("HTTP_READ_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.ReadTimeout = readTimeout

	writeTimeout, err := time.ParseDuration(getEnv("HTTP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.WriteTimeout = writeTimeout

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	cfg.PprofEnabled = pprofEnabled
	cfg.PprofAddr = getEnv("PPROF_ADDR", ":6060")

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceEnabled = uptraceEnabled
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}
	cfg.UptraceLogsEnabled = uptraceLogsEnabled

	logShipEnabled, err := strconv.ParseBool(getEnv("LOGSHIP_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOGSHIP_ENABLED: %w", err)
	}
	cfg.LogShipEnabled = logShipEnabled
	cfg.LogShipEndpoint = strings.TrimSpace(getEnv("LOGSHIP_ENDPOINT", ""))
	if cfg.LogShipEnabled && cfg.LogShipEndpoint == "" {
		return Config{}, fmt.Errorf("LOGSHIP_ENDPOINT is required when LOGSHIP_ENABLED=true")
	}
	cfg.LogShipToken = strings.TrimSpace(getEnv("LOGSHIP_TOKEN", ""))

	logShipTimeout, err := time.ParseDuration(getEnv("LOGSHIP_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOGSHIP_TIMEOUT: %w", err)
	}
	if logShipTimeout <= 0 {
		return Config{}, fmt.Errorf("LOGSHIP_TIMEOUT must be > 0")
	}
	cfg.LogShipTimeout = logShipTimeout
	cfg.LogShipMinLevel = parseLogLevel(getEnv("LOGSHIP_MIN_LEVEL", "error"))

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeEnabled = pyroscopeEnabled
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName)
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))

	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	cfg.PyroscopeUploadRate = pyroscopeUploadRate

	if err := loadFeedConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLifecycleConfig(&cfg); err != nil {
		return Config{}, err
	}

	cfg.InternalJobToken = strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))
	cfg.LogLevel = parseLogLevel(getEnv("APP_LOG_LEVEL", "info"))

	return cfg, nil
}

func loadFeedConfig(cfg *Config) error {
	oddsEnabled, err := strconv.ParseBool(getEnv("ODDSFEED_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_ENABLED: %w", err)
	}
	cfg.OddsFeedEnabled = oddsEnabled
	cfg.OddsFeedBaseURL = strings.TrimSpace(getEnv("ODDSFEED_BASE_URL", ""))
	if cfg.OddsFeedEnabled && cfg.OddsFeedBaseURL == "" {
		return fmt.Errorf("ODDSFEED_BASE_URL is required when ODDSFEED_ENABLED=true")
	}
	cfg.OddsFeedToken = strings.TrimSpace(getEnv("ODDSFEED_TOKEN", ""))

	oddsTimeout, err := time.ParseDuration(getEnv("ODDSFEED_TIMEOUT", "10s"))
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_TIMEOUT: %w", err)
	}
	if oddsTimeout <= 0 {
		return fmt.Errorf("ODDSFEED_TIMEOUT must be > 0")
	}
	cfg.OddsFeedTimeout = oddsTimeout

	oddsMaxRetries, err := getEnvAsInt("ODDSFEED_MAX_RETRIES", 3)
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_MAX_RETRIES: %w", err)
	}
	if oddsMaxRetries < 1 {
		return fmt.Errorf("ODDSFEED_MAX_RETRIES must be >= 1")
	}
	cfg.OddsFeedMaxRetries = oddsMaxRetries

	oddsRetryBackoff, err := time.ParseDuration(getEnv("ODDSFEED_RETRY_BACKOFF", "250ms"))
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_RETRY_BACKOFF: %w", err)
	}
	cfg.OddsFeedRetryBackoff = oddsRetryBackoff

	oddsPollInterval, err := time.ParseDuration(getEnv("ODDSFEED_POLL_INTERVAL", "60s"))
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_POLL_INTERVAL: %w", err)
	}
	if oddsPollInterval <= 0 {
		return fmt.Errorf("ODDSFEED_POLL_INTERVAL must be > 0")
	}
	cfg.OddsFeedPollInterval = oddsPollInterval

	oddsCircuitEnabled, err := strconv.ParseBool(getEnv("ODDSFEED_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_CIRCUIT_ENABLED: %w", err)
	}
	cfg.OddsFeedCircuitEnabled = oddsCircuitEnabled

	oddsCircuitFailureCount, err := getEnvAsInt("ODDSFEED_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if oddsCircuitFailureCount < 1 {
		return fmt.Errorf("ODDSFEED_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	cfg.OddsFeedCircuitFailureCount = oddsCircuitFailureCount

	oddsCircuitOpenTimeout, err := time.ParseDuration(getEnv("ODDSFEED_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if oddsCircuitOpenTimeout <= 0 {
		return fmt.Errorf("ODDSFEED_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cfg.OddsFeedCircuitOpenTimeout = oddsCircuitOpenTimeout

	oddsCircuitHalfOpenMaxReq, err := getEnvAsInt("ODDSFEED_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return fmt.Errorf("parse ODDSFEED_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if oddsCircuitHalfOpenMaxReq < 1 {
		return fmt.Errorf("ODDSFEED_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	cfg.OddsFeedCircuitHalfOpenMaxReq = oddsCircuitHalfOpenMaxReq

	statsEnabled, err := strconv.ParseBool(getEnv("STATSFEED_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse STATSFEED_ENABLED: %w", err)
	}
	cfg.StatsFeedEnabled = statsEnabled
	cfg.StatsFeedBaseURL = strings.TrimSpace(getEnv("STATSFEED_BASE_URL", ""))
	if cfg.StatsFeedEnabled && cfg.StatsFeedBaseURL == "" {
		return fmt.Errorf("STATSFEED_BASE_URL is required when STATSFEED_ENABLED=true")
	}
	cfg.StatsFeedToken = strings.TrimSpace(getEnv("STATSFEED_TOKEN", ""))

	statsTimeout, err := time.ParseDuration(getEnv("STATSFEED_TIMEOUT", "10s"))
	if err != nil {
		return fmt.Errorf("parse STATSFEED_TIMEOUT: %w", err)
	}
	if statsTimeout <= 0 {
		return fmt.Errorf("STATSFEED_TIMEOUT must be > 0")
	}
	cfg.StatsFeedTimeout = statsTimeout

	statsMaxRetries, err := getEnvAsInt("STATSFEED_MAX_RETRIES", 3)
	if err != nil {
		return fmt.Errorf("parse STATSFEED_MAX_RETRIES: %w", err)
	}
	if statsMaxRetries < 1 {
		return fmt.Errorf("STATSFEED_MAX_RETRIES must be >= 1")
	}
	cfg.StatsFeedMaxRetries = statsMaxRetries

	statsRetryBackoff, err := time.ParseDuration(getEnv("STATSFEED_RETRY_BACKOFF", "250ms"))
	if err != nil {
		return fmt.Errorf("parse STATSFEED_RETRY_BACKOFF: %w", err)
	}
	cfg.StatsFeedRetryBackoff = statsRetryBackoff

	statsPollInterval, err := time.ParseDuration(getEnv("STATSFEED_POLL_INTERVAL", "120s"))
	if err != nil {
		return fmt.Errorf("parse STATSFEED_POLL_INTERVAL: %w", err)
	}
	if statsPollInterval <= 0 {
		return fmt.Errorf("STATSFEED_POLL_INTERVAL must be > 0")
	}
	cfg.StatsFeedPollInterval = statsPollInterval

	statsCircuitEnabled, err := strconv.ParseBool(getEnv("STATSFEED_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return fmt.Errorf("parse STATSFEED_CIRCUIT_ENABLED: %w", err)
	}
	cfg.StatsFeedCircuitEnabled = statsCircuitEnabled

	statsCircuitFailureCount, err := getEnvAsInt("STATSFEED_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return fmt.Errorf("parse STATSFEED_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if statsCircuitFailureCount < 1 {
		return fmt.Errorf("STATSFEED_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	cfg.StatsFeedCircuitFailureCount = statsCircuitFailureCount

	statsCircuitOpenTimeout, err := time.ParseDuration(getEnv("STATSFEED_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return fmt.Errorf("parse STATSFEED_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if statsCircuitOpenTimeout <= 0 {
		return fmt.Errorf("STATSFEED_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cfg.StatsFeedCircuitOpenTimeout = statsCircuitOpenTimeout

	statsCircuitHalfOpenMaxReq, err := getEnvAsInt("STATSFEED_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return fmt.Errorf("parse STATSFEED_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if statsCircuitHalfOpenMaxReq < 1 {
		return fmt.Errorf("STATSFEED_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	cfg.StatsFeedCircuitHalfOpenMaxReq = statsCircuitHalfOpenMaxReq

	cfg.FeedSports = splitCSV(getEnv("FEED_SPORTS", "basketball,football"))
	if (cfg.OddsFeedEnabled || cfg.StatsFeedEnabled) && len(cfg.FeedSports) == 0 {
		return fmt.Errorf("FEED_SPORTS must list at least one sport when a feed is enabled")
	}

	return nil
}

func loadLifecycleConfig(cfg *Config) error {
	cfg.BookmakerPriority = splitCSV(getEnv("BOOKMAKER_PRIORITY", "pinnacle,draftkings,fanduel,betmgm,caesars"))
	if len(cfg.BookmakerPriority) == 0 {
		return fmt.Errorf("BOOKMAKER_PRIORITY must list at least one bookmaker")
	}

	stalenessThreshold, err := time.ParseDuration(getEnv("STALENESS_THRESHOLD", "6h"))
	if err != nil {
		return fmt.Errorf("parse STALENESS_THRESHOLD: %w", err)
	}
	if stalenessThreshold <= 0 {
		return fmt.Errorf("STALENESS_THRESHOLD must be > 0")
	}
	cfg.StalenessThreshold = stalenessThreshold

	identityTolerance, err := time.ParseDuration(getEnv("IDENTITY_START_TOLERANCE", "12h"))
	if err != nil {
		return fmt.Errorf("parse IDENTITY_START_TOLERANCE: %w", err)
	}
	if identityTolerance <= 0 {
		return fmt.Errorf("IDENTITY_START_TOLERANCE must be > 0")
	}
	cfg.IdentityStartTolerance = identityTolerance

	ambiguityMargin, err := time.ParseDuration(getEnv("IDENTITY_AMBIGUITY_MARGIN", "0s"))
	if err != nil {
		return fmt.Errorf("parse IDENTITY_AMBIGUITY_MARGIN: %w", err)
	}
	if ambiguityMargin < 0 {
		return fmt.Errorf("IDENTITY_AMBIGUITY_MARGIN must be >= 0")
	}
	cfg.IdentityAmbiguityMargin = ambiguityMargin

	lockSweepWorkers, err := getEnvAsInt("LOCK_SWEEP_WORKERS", 8)
	if err != nil {
		return fmt.Errorf("parse LOCK_SWEEP_WORKERS: %w", err)
	}
	if lockSweepWorkers < 1 {
		return fmt.Errorf("LOCK_SWEEP_WORKERS must be >= 1")
	}
	cfg.LockSweepWorkers = lockSweepWorkers

	archiveMarketWorkers, err := getEnvAsInt("ARCHIVE_MARKET_WORKERS", 4)
	if err != nil {
		return fmt.Errorf("parse ARCHIVE_MARKET_WORKERS: %w", err)
	}
	if archiveMarketWorkers < 1 {
		return fmt.Errorf("ARCHIVE_MARKET_WORKERS must be >= 1")
	}
	cfg.ArchiveMarketWorkers = archiveMarketWorkers

	ingestMaxWorkers, err := getEnvAsInt("INGEST_MAX_WORKERS", 8)
	if err != nil {
		return fmt.Errorf("parse INGEST_MAX_WORKERS: %w", err)
	}
	if ingestMaxWorkers < 1 {
		return fmt.Errorf("INGEST_MAX_WORKERS must be >= 1")
	}
	cfg.IngestMaxWorkers = ingestMaxWorkers

	return nil
}

// SlogLevel maps the zap log level onto the slog scale for handlers
// built on log/slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case logging.LevelDebug:
		return slog.LevelDebug
	case logging.LevelWarn:
		return slog.LevelWarn
	case logging.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
