// Package constants provides shared constants for the credit-simulator application.
package constants

import "time"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// ReferenceAmountUnit is the loan amount a product's reference payment is quoted for.
	ReferenceAmountUnit = 100000.0

	// MaxProjectionMonths caps ad-hoc UVA projections (50 years)
	MaxProjectionMonths = 600

	// MaxScheduleMonths caps ad-hoc amortization schedules (50 years)
	MaxScheduleMonths = 600

	// Expected annual inflation accepted for UVA projections, in percent
	MinAnnualInflation = -100.0
	MaxAnnualInflation = 1000.0
)

// Product families
const (
	FamilyMortgage       = "mortgage"
	FamilyPersonal       = "personal"
	FamilyCollateralized = "collateralized"
)

// Currency codes
const (
	CurrencyARS = "ARS"
	CurrencyUSD = "USD"
)

// Wizard stages and progress weights
const (
	StepFinancing = "financing"
	StepResults   = "results"

	ConfigurationWeight = 33
	FinancingWeight     = 33
	ResultsWeight       = 34
)

// ReferenceCodePrefix prefixes every persisted simulation reference code.
const ReferenceCodePrefix = "SIM"

// ReferenceCodeSuffixLength is the number of base36 characters after the timestamp.
const ReferenceCodeSuffixLength = 9

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "CREDITSIM"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum JSON request body (256 KB)
	DefaultMaxRequestSizeBytes int64 = 256 * 1024

	// DefaultSessionCookie names the cookie carrying the comparison session id
	DefaultSessionCookie = "creditsim_session"

	// DefaultSessionIdleTTL is how long an untouched comparison basket is kept
	DefaultSessionIdleTTL = 30 * time.Minute
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Notifier backends
const (
	NotifierLog   = "log"
	NotifierKafka = "kafka"
)
