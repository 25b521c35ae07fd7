package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixkme/flowtime/errs"
	"github.com/fixkme/flowtime/mlog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadDefault(t *testing.T) {
	conf, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, time.Second, conf.Interval())
	assert.Equal(t, 20*time.Millisecond, conf.IntegrateInterval())
	assert.Equal(t, mlog.InfoLevel, conf.Level())
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "app.json", `{"interval_ms": 250, "log_level": "debug", "metrics_addr": ":9100"}`)
	conf, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, conf.Interval())
	assert.Equal(t, mlog.DebugLevel, conf.Level())
	assert.Equal(t, ":9100", conf.MetricsAddr)
	assert.Contains(t, conf.JsonFormat(), `"interval_ms": 250`)
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "app.toml", `
metrics_addr = ":9200"

[log]
log_level = "warn"

[tick]
interval_ms = 50
use_wheel = true
wheel_resolution_ms = 5
`)
	conf, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, conf.Interval())
	assert.True(t, conf.UseWheel)
	assert.Equal(t, 5*time.Millisecond, conf.WheelResolution())
	assert.Equal(t, mlog.WarnLevel, conf.Level())
	assert.Equal(t, ":9200", conf.MetricsAddr)
}

func TestLoadTOMLUnknownField(t *testing.T) {
	p := writeFile(t, "app.toml", "bogus = 1\n")
	_, err := LoadConfig(p)
	assert.ErrorIs(t, err, errs.InvalidConfig)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FLOWTIME_INTERVAL_MS", "75")
	t.Setenv("FLOWTIME_USE_WHEEL", "true")
	conf, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 75*time.Millisecond, conf.Interval())
	assert.True(t, conf.UseWheel)
}

func TestEnvBadValue(t *testing.T) {
	env := map[string]string{
		"FLOWTIME_INTERVAL_MS": "abc",
		"FLOWTIME_USE_WHEEL":   "maybe",
	}
	conf := Default()
	err := loadConfigFromEnv(conf, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.ErrorIs(t, err, errs.InvalidConfig)
	assert.Contains(t, err.Error(), "FLOWTIME_INTERVAL_MS")
	assert.Contains(t, err.Error(), "FLOWTIME_USE_WHEEL")
}

func TestValidateAggregates(t *testing.T) {
	conf := Default()
	conf.IntervalMs = 0
	conf.IntegrateIntervalMs = -1
	conf.LogLevel = "loud"
	err := conf.Validate()
	require.ErrorIs(t, err, errs.InvalidConfig)
	assert.Contains(t, err.Error(), "interval_ms")
	assert.Contains(t, err.Error(), "integrate_interval_ms")
	assert.Contains(t, err.Error(), "loud")
}
