package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	VaultConfig    VaultConfig    `json:"vault"`
	AuthConfig     AuthConfig     `json:"auth"`
	DataConfig     DataConfig     `json:"data"`
	EngineConfig   EngineConfig   `json:"engine"`
	ScreenerConfig ScreenerConfig `json:"screener"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`  // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // JSON output instead of console
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for the bar cache
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
	BarTTL   int    `json:"bar_ttl"` // Seconds to keep cached bar series
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path for the data-provider credentials
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	OperatorUser        string        `json:"operator_user"`
	OperatorPassHash    string        `json:"operator_pass_hash"` // bcrypt hash
}

// DataConfig holds market-data provider configuration
type DataConfig struct {
	Provider string `json:"provider"`  // "csv" is the only built-in provider
	CSVDir   string `json:"csv_dir"`   // Directory with <SYMBOL>.csv files
	BarLimit int    `json:"bar_limit"` // Default bars fetched per symbol
}

// EngineConfig groups the pattern-engine tunables
type EngineConfig struct {
	Detector      DetectorConfig      `json:"detector"`
	Consolidation ConsolidationConfig `json:"consolidation"`
	Scorer        ScorerConfig        `json:"scorer"`
	Simulator     SimulatorConfig     `json:"simulator"`
}

// DetectorConfig holds the move-boundary search tunables.
// Every scoring weight and gate threshold is exposed here; the
// heuristics are tuning policy, not contract.
type DetectorConfig struct {
	Lookback               int     `json:"lookback"`                 // Bars scanned back from today
	MinBars                int     `json:"min_bars"`                 // Below this the search reports no move
	MinDuration            int     `json:"min_duration"`             // Minimum move length in bars
	MaxDuration            int     `json:"max_duration"`             // Moves must be sharp, not slow grinds
	RequiredMoveADRMult    float64 `json:"required_move_adr_mult"`   // Move must clear ADR x this
	MinVelocityADRMult     float64 `json:"min_velocity_adr_mult"`    // move%/duration floor as ADR multiple
	MinUpDayRatio          float64 `json:"min_up_day_ratio"`         // Fraction of green bars in the move
	MinAvgVolumeRatio      float64 `json:"min_avg_volume_ratio"`     // Avg move volume vs 50-bar baseline
	MinPeakVolumeRatio     float64 `json:"min_peak_volume_ratio"`    // Best single bar vs baseline
	MinMomentumConsistency float64 `json:"min_momentum_consistency"` // Share of bars with 5-bar momentum > ADR
	VelocityWeight         float64 `json:"velocity_weight"`
	PeakVolumeWeight       float64 `json:"peak_volume_weight"`
	MagnitudeWeight        float64 `json:"magnitude_weight"`
	PreConsolidationBonus  float64 `json:"pre_consolidation_bonus"`  // Multiplier when a quiet base precedes the move
	PostConsolidationBonus float64 `json:"post_consolidation_bonus"` // Multiplier when a quiet period follows
	PostConsolidationMiss  float64 `json:"post_consolidation_miss"`  // Multiplier when it does not
	PostWindow             int     `json:"post_window"`              // Bars after the move checked for quiet
	PeakExtension          int     `json:"peak_extension"`           // Bars walked past the raw peak
}

// ConsolidationConfig holds the consolidation-validation tunables
type ConsolidationConfig struct {
	MinBars          int     `json:"min_bars"`            // Bars required after the move end
	FloorRatio       float64 `json:"floor_ratio"`         // Hard floor vs first consolidation close
	EntryRangeADRTol float64 `json:"entry_range_adr_tol"` // First-bar range tolerance in ADR units
}

// ScorerConfig holds the criterion-set configuration
type ScorerConfig struct {
	MinCriteriaMet       int     `json:"min_criteria_met"`       // Criteria needed for pattern_found
	TrendTolerancePct    float64 `json:"trend_tolerance_pct"`    // Close vs SMA50 band
	MinADR               float64 `json:"min_adr"`                // ADR band, too quiet below
	MaxADR               float64 `json:"max_adr"`                // ADR band, too erratic above
	MinDollarVolume      float64 `json:"min_dollar_volume"`      // 20-bar average close*volume floor
	VolumeAnomalyZScore  float64 `json:"volume_anomaly_z_score"` // Single-bar z-score that disqualifies
	EnableRegressionFit  bool    `json:"enable_regression_fit"`  // Optional linear-fit criterion
	EnableRangeStability bool    `json:"enable_range_stability"` // Optional erratic-range criterion
}

// SimulatorConfig holds the trade state-machine tunables
type SimulatorConfig struct {
	MinConfidence      float64 `json:"min_confidence"`        // Score required to confirm a pattern
	PositionFraction   float64 `json:"position_fraction"`     // Capital fraction per entry
	BreakoutLookback   int     `json:"breakout_lookback"`     // Reference-high window for the entry trigger
	VolumeConfirmMult  float64 `json:"volume_confirm_mult"`   // Entry volume vs 50-bar baseline
	StopLossPct        float64 `json:"stop_loss_pct"`         // Below entry
	TakeProfitPct      float64 `json:"take_profit_pct"`       // Above entry
	MaxHoldingDays     int     `json:"max_holding_days"`
	TrendExitSMAPeriod int     `json:"trend_exit_sma_period"` // Close below this SMA triggers trend exit
	TrendExitConfirm   int     `json:"trend_exit_confirm"`    // Consecutive closes required
}

// ScreenerConfig holds batch-run configuration
type ScreenerConfig struct {
	InitialCapital   float64 `json:"initial_capital"`
	SymbolTimeout    int     `json:"symbol_timeout"`    // Seconds per symbol, fetch + simulate
	ProgressInterval int     `json:"progress_interval"` // Symbols between progress events (min 1)
	JobTTL           int     `json:"job_ttl"`           // Seconds finished jobs stay pollable
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with defaults only
		cfg = &Config{}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills zero-valued engine tunables with the reference values.
// A config file only needs to name the knobs it changes.
func applyDefaults(cfg *Config) {
	if cfg.EngineConfig.Detector.Lookback == 0 {
		cfg.EngineConfig.Detector = DefaultDetectorConfig()
	}
	if cfg.EngineConfig.Consolidation.MinBars == 0 {
		cfg.EngineConfig.Consolidation = DefaultConsolidationConfig()
	}
	if cfg.EngineConfig.Scorer.MinCriteriaMet == 0 {
		cfg.EngineConfig.Scorer = DefaultScorerConfig()
	}
	if cfg.EngineConfig.Simulator.PositionFraction == 0 {
		cfg.EngineConfig.Simulator = DefaultSimulatorConfig()
	}

	if cfg.ScreenerConfig.InitialCapital == 0 {
		cfg.ScreenerConfig.InitialCapital = 10000
	}
	if cfg.ScreenerConfig.SymbolTimeout == 0 {
		cfg.ScreenerConfig.SymbolTimeout = 30
	}
	if cfg.ScreenerConfig.ProgressInterval == 0 {
		cfg.ScreenerConfig.ProgressInterval = 1
	}
	if cfg.ScreenerConfig.JobTTL == 0 {
		cfg.ScreenerConfig.JobTTL = 3600
	}
	if cfg.DataConfig.BarLimit == 0 {
		cfg.DataConfig.BarLimit = 250
	}
	if cfg.RedisConfig.BarTTL == 0 {
		cfg.RedisConfig.BarTTL = 900
	}
}

// DefaultDetectorConfig returns the reference move-search tuning
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Lookback:               45,
		MinBars:                30,
		MinDuration:            5,
		MaxDuration:            6,
		RequiredMoveADRMult:    3.0,
		MinVelocityADRMult:     0.6,
		MinUpDayRatio:          0.5,
		MinAvgVolumeRatio:      1.2,
		MinPeakVolumeRatio:     1.8,
		MinMomentumConsistency: 0.6,
		VelocityWeight:         2.0,
		PeakVolumeWeight:       1.5,
		MagnitudeWeight:        1.0,
		PreConsolidationBonus:  1.3,
		PostConsolidationBonus: 1.5,
		PostConsolidationMiss:  0.7,
		PostWindow:             10,
		PeakExtension:          8,
	}
}

// DefaultConsolidationConfig returns the reference consolidation tuning
func DefaultConsolidationConfig() ConsolidationConfig {
	return ConsolidationConfig{
		MinBars:          3,
		FloorRatio:       0.80,
		EntryRangeADRTol: 1.0,
	}
}

// DefaultScorerConfig returns the reference criterion-set tuning
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		MinCriteriaMet:      4,
		TrendTolerancePct:   15.0,
		MinADR:              1.0,
		MaxADR:              12.0,
		MinDollarVolume:     1_000_000,
		VolumeAnomalyZScore: 3.0,
	}
}

// DefaultSimulatorConfig returns the reference simulator tuning
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		MinConfidence:      60,
		PositionFraction:   0.95,
		BreakoutLookback:   5,
		VolumeConfirmMult:  1.3,
		StopLossPct:        5.0,
		TakeProfitPct:      15.0,
		MaxHoldingDays:     30,
		TrendExitSMAPeriod: 10,
		TrendExitConfirm:   2,
	}
}

// DefaultEngineConfig groups the reference tuning of all four engine stages
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Detector:      DefaultDetectorConfig(),
		Consolidation: DefaultConsolidationConfig(),
		Scorer:        DefaultScorerConfig(),
		Simulator:     DefaultSimulatorConfig(),
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", firstNonZero(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", firstNonEmpty(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", firstNonEmpty(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", firstNonZero(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", firstNonZero(cfg.ServerConfig.WriteTimeout, 60))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", firstNonZero(cfg.ServerConfig.ShutdownTimeout, 10))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", firstNonEmpty(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.LoggingConfig.JSONFormat)) == "true"

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolString(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", firstNonEmpty(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", firstNonZero(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", firstNonEmpty(cfg.DatabaseConfig.User, "screener"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", firstNonEmpty(cfg.DatabaseConfig.Database, "screener"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", firstNonEmpty(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", firstNonEmpty(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", firstNonZero(cfg.RedisConfig.PoolSize, 10))

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", firstNonEmpty(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", firstNonEmpty(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", firstNonEmpty(cfg.VaultConfig.SecretPath, "screener/data-provider"))
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", boolString(cfg.VaultConfig.TLSEnabled)) == "true"

	// Auth config
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", boolString(cfg.AuthConfig.Enabled)) == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", firstNonZeroDuration(cfg.AuthConfig.AccessTokenDuration, 12*time.Hour))
	cfg.AuthConfig.OperatorUser = getEnvOrDefault("AUTH_OPERATOR_USER", firstNonEmpty(cfg.AuthConfig.OperatorUser, "operator"))
	cfg.AuthConfig.OperatorPassHash = getEnvOrDefault("AUTH_OPERATOR_PASS_HASH", cfg.AuthConfig.OperatorPassHash)

	// Data config
	cfg.DataConfig.Provider = getEnvOrDefault("DATA_PROVIDER", firstNonEmpty(cfg.DataConfig.Provider, "csv"))
	cfg.DataConfig.CSVDir = getEnvOrDefault("DATA_CSV_DIR", firstNonEmpty(cfg.DataConfig.CSVDir, "./data"))
	cfg.DataConfig.BarLimit = getEnvIntOrDefault("DATA_BAR_LIMIT", cfg.DataConfig.BarLimit)
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func firstNonZero(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func firstNonZeroDuration(v, fallback time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return fallback
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    60,
			ShutdownTimeout: 10,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			JSONFormat: false,
		},
		DataConfig: DataConfig{
			Provider: "csv",
			CSVDir:   "./data",
			BarLimit: 250,
		},
		EngineConfig: EngineConfig{
			Detector:      DefaultDetectorConfig(),
			Consolidation: DefaultConsolidationConfig(),
			Scorer:        DefaultScorerConfig(),
			Simulator:     DefaultSimulatorConfig(),
		},
		ScreenerConfig: ScreenerConfig{
			InitialCapital:   10000,
			SymbolTimeout:    30,
			ProgressInterval: 1,
			JobTTL:           3600,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
