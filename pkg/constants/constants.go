// Package constants provides shared constants for the heloc-forecast application.
package constants

// DateTimeLayout is the format used for month labels in config files and in
// every output format.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyEpsilon is the balance below which a loan counts as paid off.
	// Floating point residue such as 1e-9 must never keep a loan alive.
	CurrencyEpsilon = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Simulation defaults
const (
	// DefaultMonthsToProject is the hard iteration cap (50 years).
	DefaultMonthsToProject = 600

	// NearPayoffRatio is the fraction of the HELOC limit under which the
	// remaining mortgage balance makes a final lump-sum draw safe.
	NearPayoffRatio = 0.10

	// DefaultPMIEliminationLTV is the loan-to-value ratio under which
	// mortgage insurance stops being charged.
	DefaultPMIEliminationLTV = 0.78

	// MaxAnnualRate is the exclusive upper bound for an annual rate expressed
	// as a decimal fraction; 6.5 instead of 0.065 is rejected.
	MaxAnnualRate = 1.0
)

// Frequency multipliers converting a cash flow amount to its monthly
// equivalent.
const (
	WeeklyPerMonth   = 4.33
	BiWeeklyPerMonth = 2.17
	MonthlyPerMonth  = 1.0
	AnnualPerMonth   = 1.0 / MonthsPerYear
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the machine-readable JSON output format
	OutputFormatJSON = "json"

	// OutputFormatPDF writes a PDF report to the configured output file
	OutputFormatPDF = "pdf"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultDatabaseFile is the default SQLite run store location
	DefaultDatabaseFile = "heloc-forecast.db"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRequestTimeoutSeconds bounds the wall-clock time of one simulate request
	DefaultRequestTimeoutSeconds = 10

	// DefaultRateLimitPerMinute is the number of simulate requests allowed per client per minute
	DefaultRateLimitPerMinute = 30

	// DefaultCacheTTLMinutes is how long cached simulation results live
	DefaultCacheTTLMinutes = 60

	// DefaultCacheMaxEntries bounds the in-memory result cache
	DefaultCacheMaxEntries = 10000
)

// Persistence defaults
const (
	// InsertBatchSize is the number of monthly rows written per INSERT statement
	InsertBatchSize = 200
)

// Optimizer defaults
const (
	// DefaultMaxExtraIncome caps the extra monthly income the payoff solver searches
	DefaultMaxExtraIncome = 10000.0

	// OptimizerMaxIterations bounds the bisection
	OptimizerMaxIterations = 60
)
