package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/meridian/internal/gazetteer"
	"github.com/UnknownOlympus/meridian/internal/geo"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported gazetteer sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config holds the configuration settings for the reverse geocoding service.
//
// Fields:
// - Env: The current environment (local, development, production).
// - LogLevel: Optional override of the environment's log level.
// - BindAddress: Address of the public query server.
// - Port: The port for the monitoring server (/healthz, /metrics, /reload).
// - Source: Where places come from, file or postgres.
// - DataFile: Path of the gazetteer file for the file source.
// - Delimiter: Field delimiter of the gazetteer file.
// - WatchForChanges: Reload the snapshot when the gazetteer file changes.
// - WatchDebounce: Window in which file events are merged into one reload.
// - RefreshInterval: Periodic reload interval, zero disables it.
// - DistanceUnit: Unit of reported distances.
// - MaxResults: Upper bound of results per query.
// - Quota: Per client rate limit.
// - CORSOrigins: Origins allowed to call the query server.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env             string         `yaml:"env"`
	LogLevel        string         `yaml:"log_level"`
	BindAddress     string         `yaml:"bind_address"`
	Port            int            `yaml:"monitoring_port"`
	Source          string         `yaml:"source"`
	DataFile        string         `yaml:"data_file"`
	Delimiter       rune           `yaml:"delimiter"`
	WatchForChanges bool           `yaml:"watch_for_changes"`
	WatchDebounce   time.Duration  `yaml:"watch_debounce"`
	RefreshInterval time.Duration  `yaml:"refresh_interval"`
	DistanceUnit    geo.Unit       `yaml:"distance_unit"`
	MaxResults      int            `yaml:"max_results"`
	Quota           QuotaConfig    `yaml:"quota"`
	CORSOrigins     []string       `yaml:"cors_origins"`
	Database        PostgresConfig `yaml:"postgres"`
}

// QuotaConfig describes a token bucket: Burst tokens, one token back every Interval.
type QuotaConfig struct {
	Burst    int           `yaml:"burst_size"`
	Interval time.Duration `yaml:"interval"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Name     string `yaml:"db_name"`  // Name is the name of the database.
}

// MustLoad reads the configuration from the environment, honouring a .env file, and
// panics on values it cannot parse.
func MustLoad() *Config {
	_ = godotenv.Load()

	vpr := newViper()

	port, err := strconv.Atoi(vpr.GetString("monitoring_port"))
	if err != nil {
		panic("failed to parse monitoring port from configuration")
	}

	source := strings.ToLower(vpr.GetString("source"))
	if source != SourceFile && source != SourcePostgres {
		panic("unsupported source type in configuration, must be file or postgres")
	}

	delimiter, err := gazetteer.ParseDelimiter(vpr.GetString("delimiter"))
	if err != nil {
		panic("failed to parse delimiter from configuration")
	}

	watch, err := strconv.ParseBool(vpr.GetString("watch_for_changes"))
	if err != nil {
		panic("failed to parse watch flag from configuration")
	}

	debounce, err := time.ParseDuration(vpr.GetString("watch_debounce"))
	if err != nil {
		panic("failed to parse watch debounce from configuration")
	}

	refresh, err := parseInterval(vpr.GetString("refresh_interval"))
	if err != nil {
		panic("failed to parse refresh interval from configuration")
	}

	unit, err := geo.ParseUnit(vpr.GetString("distance_unit"))
	if err != nil {
		panic("failed to parse distance unit from configuration")
	}

	maxResults, err := strconv.Atoi(vpr.GetString("max_results"))
	if err != nil || maxResults < 1 {
		panic("failed to parse max results from configuration, must be a positive integer")
	}

	burst, err := strconv.Atoi(vpr.GetString("quota_burst_size"))
	if err != nil || burst < 1 {
		panic("failed to parse quota burst size from configuration")
	}

	quotaMillis, err := strconv.Atoi(vpr.GetString("quota_interval"))
	if err != nil || quotaMillis < 1 {
		panic("failed to parse quota interval from configuration")
	}

	return &Config{
		Env:             vpr.GetString("env"),
		LogLevel:        vpr.GetString("log_level"),
		BindAddress:     vpr.GetString("bind_address"),
		Port:            port,
		Source:          source,
		DataFile:        vpr.GetString("data_file"),
		Delimiter:       delimiter,
		WatchForChanges: watch,
		WatchDebounce:   debounce,
		RefreshInterval: refresh,
		DistanceUnit:    unit,
		MaxResults:      maxResults,
		Quota: QuotaConfig{
			Burst:    burst,
			Interval: time.Duration(quotaMillis) * time.Millisecond,
		},
		CORSOrigins: splitList(vpr.GetString("cors_origins")),
		Database: PostgresConfig{
			Host:     vpr.GetString("db.host"),
			Port:     vpr.GetString("db.port"),
			User:     vpr.GetString("db.username"),
			Password: vpr.GetString("db.password"),
			Name:     vpr.GetString("db.name"),
		},
	}
}

func newViper() *viper.Viper {
	vpr := viper.New()
	vpr.SetEnvPrefix("GEOCODER")
	vpr.AutomaticEnv()

	vpr.SetDefault("env", "production")
	vpr.SetDefault("log_level", "")
	vpr.SetDefault("bind_address", "127.0.0.1:5353")
	vpr.SetDefault("monitoring_port", "8080")
	vpr.SetDefault("source", SourceFile)
	vpr.SetDefault("data_file", "./cities.txt")
	vpr.SetDefault("delimiter", "tab")
	vpr.SetDefault("watch_for_changes", "true")
	vpr.SetDefault("watch_debounce", "500ms")
	vpr.SetDefault("refresh_interval", "0")
	vpr.SetDefault("distance_unit", string(geo.Kilometres))
	vpr.SetDefault("max_results", "100")
	vpr.SetDefault("quota_burst_size", "10")
	vpr.SetDefault("quota_interval", "1000")
	vpr.SetDefault("cors_origins", "*")

	// Database settings keep their unprefixed names.
	_ = vpr.BindEnv("db.host", "DB_HOST")
	_ = vpr.BindEnv("db.port", "DB_PORT")
	_ = vpr.BindEnv("db.username", "DB_USERNAME")
	_ = vpr.BindEnv("db.password", "DB_PASSWORD")
	_ = vpr.BindEnv("db.name", "DB_NAME")
	vpr.SetDefault("db.port", "5432")

	return vpr
}

// parseInterval accepts a Go duration or a bare number of seconds.
func parseInterval(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
