// Package config defines the data structures related to configuration and
// includes functions for loading, validating and watching the config.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/currency"
	"github.com/iwvelando/credit-simulator/pkg/validation"
)

// Configuration holds all configuration for credit-simulator.
type Configuration struct {
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
	Simulation SimulationConfig `yaml:"simulation,omitempty"`
	Catalog    CatalogConfig    `yaml:"catalog,omitempty"`
	Store      StoreConfig      `yaml:"store,omitempty"`
	Notify     NotifyConfig     `yaml:"notify,omitempty"`
	Archive    ArchiveConfig    `yaml:"archive,omitempty"`
	Exchange   ExchangeConfig   `yaml:"exchange,omitempty"`
	Profile    Profile          `yaml:"profile,omitempty"`

	v *viper.Viper
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
	Locale string `yaml:"locale,omitempty"` // BCP-47 tag, e.g. es-AR
}

// SimulationConfig tunes how offers are built.
type SimulationConfig struct {
	UVAIncomeLimit float64 // percent of income flagged in UVA projections
	Rules          bool    // evaluate product eligibility expressions
}

// CatalogConfig selects where products come from. Static products are read
// from Families, keyed by product family.
type CatalogConfig struct {
	Source   string // static, postgres
	Families map[string][]Product
}

// Product is a catalog entry as written in the configuration file.
type Product struct {
	ID                 string
	Denomination       string
	Family             string
	InstitutionCode    string
	InstitutionName    string
	MinIncome          float64
	MinTenureMonths    int
	MaxPaymentToIncome float64
	MaxTEA             float64
	MaxCFT             float64
	MinAmount          float64
	MaxAmount          float64
	MaxTermMonths      int
	MaxAge             int
	MaxLTV             float64
	PaymentPer100k     float64
	Eligibility        string
}

// StoreConfig selects and configures simulation persistence.
type StoreConfig struct {
	Backend       string // memory, redis, postgres
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	PostgresDSN   string
	Migrate       bool // apply migrations on startup
}

// NotifyConfig selects how applicants are notified of saved simulations.
type NotifyConfig struct {
	Backend  string // log, kafka
	Brokers  []string
	Topic    string
	Template string
}

// ArchiveConfig configures CSV report archiving to object storage.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// ExchangeConfig holds the peso/dollar rate used to quote offers in dollars.
type ExchangeConfig struct {
	Rate     float64 // ARS per USD
	Currency string  // currency offers are reported in
}

// Profile is the applicant profile used by the simulate command.
type Profile struct {
	ProductType       string
	Amount            float64
	MonthlyIncome     float64
	Age               int
	EmploymentMonths  int
	TermMonths        int
	AppraisalValue    float64
	ExpectedInflation *float64
	Email             string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("output.locale", "es-AR")
	v.SetDefault("simulation.uvaIncomeLimit", 30.0)
	v.SetDefault("simulation.rules", true)
	v.SetDefault("catalog.source", CatalogStatic)
	v.SetDefault("store.backend", constants.StoreMemory)
	v.SetDefault("store.ttl", "720h")
	v.SetDefault("store.redisAddr", "localhost:6379")
	v.SetDefault("store.postgresDSN", "")
	v.SetDefault("notify.backend", constants.NotifierLog)
	v.SetDefault("notify.topic", "credit-simulations")
	v.SetDefault("notify.template", "simulation-saved")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "credit-simulations")
	v.SetDefault("exchange.rate", 0.0)
	v.SetDefault("exchange.currency", constants.CurrencyARS)
	return v
}

// Catalog sources.
const (
	CatalogStatic   = "static"
	CatalogPostgres = "postgres"
)

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Any key can be overridden with a CREDITSIM_ prefixed
// environment variable, e.g. CREDITSIM_STORE_BACKEND.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r. The result
// cannot be watched for changes.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	configuration.v = v
	return &configuration, nil
}

// WatchCatalog calls onChange with the reloaded catalog whenever the
// configuration file changes. Reloads that fail to decode are logged and
// ignored so the previous catalog stays in effect.
func (c *Configuration) WatchCatalog(logger *zap.Logger, onChange func(credit.Catalog)) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		logger.Warn("configuration was not loaded from a file, catalog reload disabled",
			zap.String("op", "config.WatchCatalog"))
		return
	}

	c.v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		var reloaded Configuration
		if err := c.v.Unmarshal(&reloaded); err != nil {
			logger.Error("failed to reload configuration",
				zap.String("op", "config.WatchCatalog"),
				zap.String("file", event.Name),
				zap.Error(err),
			)
			return
		}
		for _, warning := range validation.ValidateCatalog(reloaded.Catalog.ToCatalog()) {
			logger.Warn("catalog warning", zap.String("op", "config.WatchCatalog"), zap.String("warning", warning))
		}
		logger.Info("catalog reloaded",
			zap.String("op", "config.WatchCatalog"),
			zap.String("file", event.Name),
		)
		onChange(reloaded.Catalog.ToCatalog())
	})
	c.v.WatchConfig()
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, err.Error())
	}

	switch c.Catalog.Source {
	case CatalogStatic:
		if len(c.Catalog.Families) == 0 {
			warnings = append(warnings, "static catalog has no products; every simulation will be empty")
		}
		warnings = append(warnings, validation.ValidateCatalog(c.Catalog.ToCatalog())...)
	case CatalogPostgres:
		if c.Store.PostgresDSN == "" {
			warnings = append(warnings, "postgres catalog requires store.postgresDSN")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown catalog source %q", c.Catalog.Source))
	}

	switch c.Store.Backend {
	case constants.StoreMemory:
	case constants.StoreRedis:
		if c.Store.RedisAddr == "" {
			warnings = append(warnings, "redis store requires store.redisAddr")
		}
	case constants.StorePostgres:
		if c.Store.PostgresDSN == "" {
			warnings = append(warnings, "postgres store requires store.postgresDSN")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown store backend %q", c.Store.Backend))
	}

	switch c.Notify.Backend {
	case constants.NotifierLog:
	case constants.NotifierKafka:
		if len(c.Notify.Brokers) == 0 || c.Notify.Topic == "" {
			warnings = append(warnings, "kafka notifier requires notify.brokers and notify.topic")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown notify backend %q", c.Notify.Backend))
	}

	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		warnings = append(warnings, "archive requires archive.endpoint and archive.bucket")
	}

	if _, err := currency.ParseCode(c.Exchange.Currency); err != nil {
		warnings = append(warnings, err.Error())
	} else if c.Exchange.Currency == constants.CurrencyUSD && c.Exchange.Rate <= 0 {
		warnings = append(warnings, "reporting in USD requires a positive exchange.rate")
	}

	return warnings
}
