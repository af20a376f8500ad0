package config_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/geo"
	"github.com/stretchr/testify/assert"
)

func Test_MustLoadDefaults(t *testing.T) {
	cfg := config.MustLoad()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "127.0.0.1:5353", cfg.BindAddress)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.SourceFile, cfg.Source)
	assert.Equal(t, "./cities.txt", cfg.DataFile)
	assert.Equal(t, '\t', cfg.Delimiter)
	assert.True(t, cfg.WatchForChanges)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, geo.Kilometres, cfg.DistanceUnit)
	assert.Equal(t, 100, cfg.MaxResults)
	assert.Equal(t, 10, cfg.Quota.Burst)
	assert.Equal(t, time.Second, cfg.Quota.Interval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "5432", cfg.Database.Port)
}

func Test_MustLoadFromEnv(t *testing.T) {
	t.Setenv("GEOCODER_ENV", "local")
	t.Setenv("GEOCODER_LOG_LEVEL", "warn")
	t.Setenv("GEOCODER_BIND_ADDRESS", "0.0.0.0:9000")
	t.Setenv("GEOCODER_MONITORING_PORT", "9090")
	t.Setenv("GEOCODER_SOURCE", "Postgres")
	t.Setenv("GEOCODER_DATA_FILE", "/srv/cities500.txt.gz")
	t.Setenv("GEOCODER_DELIMITER", "comma")
	t.Setenv("GEOCODER_WATCH_FOR_CHANGES", "false")
	t.Setenv("GEOCODER_WATCH_DEBOUNCE", "2s")
	t.Setenv("GEOCODER_REFRESH_INTERVAL", "15m")
	t.Setenv("GEOCODER_DISTANCE_UNIT", "m")
	t.Setenv("GEOCODER_MAX_RESULTS", "25")
	t.Setenv("GEOCODER_QUOTA_BURST_SIZE", "3")
	t.Setenv("GEOCODER_QUOTA_INTERVAL", "250")
	t.Setenv("GEOCODER_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("DB_HOST", "testHost")
	t.Setenv("DB_PORT", "12345")
	t.Setenv("DB_USERNAME", "admin")
	t.Setenv("DB_PASSWORD", "adminpass")
	t.Setenv("DB_NAME", "testName")

	cfg := config.MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:9000", cfg.BindAddress)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, config.SourcePostgres, cfg.Source)
	assert.Equal(t, "/srv/cities500.txt.gz", cfg.DataFile)
	assert.Equal(t, ',', cfg.Delimiter)
	assert.False(t, cfg.WatchForChanges)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, geo.Metres, cfg.DistanceUnit)
	assert.Equal(t, 25, cfg.MaxResults)
	assert.Equal(t, 3, cfg.Quota.Burst)
	assert.Equal(t, 250*time.Millisecond, cfg.Quota.Interval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Equal(t, "testName", cfg.Database.Name)
}

func TestMustLoad_RefreshIntervalSeconds(t *testing.T) {
	t.Setenv("GEOCODER_REFRESH_INTERVAL", "30")

	assert.Equal(t, 30*time.Second, config.MustLoad().RefreshInterval)
}

func TestMustLoad_Errors(t *testing.T) {
	tests := []struct {
		key   string
		value string
		panic string
	}{
		{"GEOCODER_MONITORING_PORT", "error_value", "failed to parse monitoring port from configuration"},
		{"GEOCODER_SOURCE", "redis", "unsupported source type in configuration, must be file or postgres"},
		{"GEOCODER_DELIMITER", "\n", "failed to parse delimiter from configuration"},
		{"GEOCODER_WATCH_FOR_CHANGES", "sometimes", "failed to parse watch flag from configuration"},
		{"GEOCODER_WATCH_DEBOUNCE", "soon", "failed to parse watch debounce from configuration"},
		{"GEOCODER_REFRESH_INTERVAL", "hourly", "failed to parse refresh interval from configuration"},
		{"GEOCODER_DISTANCE_UNIT", "miles", "failed to parse distance unit from configuration"},
		{"GEOCODER_MAX_RESULTS", "0", "failed to parse max results from configuration, must be a positive integer"},
		{"GEOCODER_QUOTA_BURST_SIZE", "many", "failed to parse quota burst size from configuration"},
		{"GEOCODER_QUOTA_INTERVAL", "-5", "failed to parse quota interval from configuration"},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			assert.PanicsWithValue(t, tc.panic, func() {
				config.MustLoad()
			})
		})
	}
}
