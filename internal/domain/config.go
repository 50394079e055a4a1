package domain

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the complete riskd configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Model artifact locations
	Models ModelConfig `json:"models"`

	// Bulk scoring data source
	Data DataConfig `json:"data"`

	// Business-policy constants for risk tiering
	Policy PolicyConfig `json:"policy"`

	// Observability
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ModelConfig holds paths to the trained model artifacts.
// Artifacts are loaded once at startup and immutable thereafter.
type ModelConfig struct {
	FraudArtifactPath string `json:"fraudArtifactPath"`
	LoanArtifactPath  string `json:"loanArtifactPath"`
}

// DataConfig holds the bulk scoring source location.
// The workbook is re-read on every bulk request; there is no caching layer.
type DataConfig struct {
	WorkbookPath string `json:"workbookPath"`
}

// BulkFlagPolicy selects which scored rows the bulk endpoint returns.
type BulkFlagPolicy string

const (
	// BulkFlagTop returns the top-N rows by risk score regardless of the
	// model's anomaly classification.
	BulkFlagTop BulkFlagPolicy = "top"

	// BulkFlagAnomalies returns only rows the model classified as
	// anomalous, still ranked by risk and capped at N.
	BulkFlagAnomalies BulkFlagPolicy = "anomalies"
)

// PolicyConfig holds the risk tier cutpoints and bulk result policy.
// These are business-policy constants, not model outputs.
type PolicyConfig struct {
	FraudHighCut   int            `json:"fraudHighCut"`   // risk >= cut -> HIGH
	FraudMediumCut int            `json:"fraudMediumCut"` // risk >= cut -> MEDIUM
	LoanHighCut    int            `json:"loanHighCut"`
	LoanMediumCut  int            `json:"loanMediumCut"`
	TopN           int            `json:"topN"`
	BulkFlag       BulkFlagPolicy `json:"bulkFlag"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Models: ModelConfig{
			FraudArtifactPath: "./artifacts/fraud_iforest.json",
			LoanArtifactPath:  "./artifacts/loan_logistic.json",
		},
		Data: DataConfig{
			WorkbookPath: "./Data.xlsx",
		},
		Policy: PolicyConfig{
			FraudHighCut:   80,
			FraudMediumCut: 50,
			LoanHighCut:    70,
			LoanMediumCut:  40,
			TopN:           50,
			BulkFlag:       BulkFlagTop,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig builds the configuration from defaults, a .env file if one
// exists, and environment variable overrides.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file, relying on environment", "error", err)
	}

	cfg := DefaultConfig()

	if v := os.Getenv("RISKD_HOST"); v != "" {
		cfg.Server.Host = v
	}
	cfg.Server.Port = envInt("RISKD_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = envInt("RISKD_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = envInt("RISKD_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	if v := os.Getenv("RISKD_FRAUD_MODEL"); v != "" {
		cfg.Models.FraudArtifactPath = v
	}
	if v := os.Getenv("RISKD_LOAN_MODEL"); v != "" {
		cfg.Models.LoanArtifactPath = v
	}
	if v := os.Getenv("RISKD_WORKBOOK"); v != "" {
		cfg.Data.WorkbookPath = v
	}

	cfg.Policy.FraudHighCut = envInt("RISKD_FRAUD_HIGH_CUT", cfg.Policy.FraudHighCut)
	cfg.Policy.FraudMediumCut = envInt("RISKD_FRAUD_MEDIUM_CUT", cfg.Policy.FraudMediumCut)
	cfg.Policy.LoanHighCut = envInt("RISKD_LOAN_HIGH_CUT", cfg.Policy.LoanHighCut)
	cfg.Policy.LoanMediumCut = envInt("RISKD_LOAN_MEDIUM_CUT", cfg.Policy.LoanMediumCut)
	cfg.Policy.TopN = envInt("RISKD_TOP_N", cfg.Policy.TopN)

	switch BulkFlagPolicy(os.Getenv("RISKD_BULK_POLICY")) {
	case BulkFlagTop:
		cfg.Policy.BulkFlag = BulkFlagTop
	case BulkFlagAnomalies:
		cfg.Policy.BulkFlag = BulkFlagAnomalies
	case "":
		// keep default
	default:
		slog.Warn("unknown RISKD_BULK_POLICY, keeping default",
			"value", os.Getenv("RISKD_BULK_POLICY"),
			"default", cfg.Policy.BulkFlag,
		)
	}

	if v := os.Getenv("RISKD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RISKD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return cfg
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, keeping default", "key", key, "value", v)
		return fallback
	}
	return n
}
