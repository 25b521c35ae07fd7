package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/fixkme/flowtime/errs"
	"github.com/fixkme/flowtime/mlog"
)

const EnvPrefix = "FLOWTIME_"

type AppConfig struct {
	LogConfig   `json:",inline" toml:"log"`
	TickConfig  `json:",inline" toml:"tick"`
	MetricsAddr string `json:"metrics_addr" toml:"metrics_addr"` // 为空不启动 /metrics
}

type LogConfig struct {
	LogPath   string `json:"log_path" toml:"log_path"`
	LogName   string `json:"log_name" toml:"log_name"`
	LogLevel  string `json:"log_level" toml:"log_level"`
	LogStdOut bool   `json:"log_std_out" toml:"log_std_out"`
}

type TickConfig struct {
	IntervalMs          int64 `json:"interval_ms" toml:"interval_ms"`                     // tick 命令间隔
	IntegrateIntervalMs int64 `json:"integrate_interval_ms" toml:"integrate_interval_ms"` // integrate 命令间隔
	UseWheel            bool  `json:"use_wheel" toml:"use_wheel"`                         // 多个 ticker 共用时间轮
	WheelResolutionMs   int64 `json:"wheel_resolution_ms" toml:"wheel_resolution_ms"`
}

func Default() *AppConfig {
	return &AppConfig{
		LogConfig: LogConfig{
			LogName:   "flowtime",
			LogLevel:  "info",
			LogStdOut: true,
		},
		TickConfig: TickConfig{
			IntervalMs:          1000,
			IntegrateIntervalMs: 20,
			WheelResolutionMs:   10,
		},
	}
}

// LoadConfig 文件按扩展名解析 (.toml 或 json), 然后环境变量覆盖, 最后校验.
// configFile 为空时只用默认值和环境变量.
func LoadConfig(configFile string) (*AppConfig, error) {
	conf := Default()
	if len(configFile) > 0 {
		if err := loadConfigFromFile(configFile, conf); err != nil {
			return nil, err
		}
	}
	if err := loadConfigFromEnv(conf, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func loadConfigFromFile(configFile string, conf *AppConfig) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(conf)
	default:
		err = json.Unmarshal(data, conf)
	}
	if err != nil {
		return errs.InvalidConfig.Printf("%s: %v", configFile, err)
	}
	return nil
}

func loadConfigFromEnv(conf *AppConfig, lookup func(string) (string, bool)) error {
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	i64 := func(key string, dst *int64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				err = multierr.Append(err, fmt.Errorf("%s%s: %w", EnvPrefix, key, perr))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = multierr.Append(err, fmt.Errorf("%s%s: %w", EnvPrefix, key, perr))
				return
			}
			*dst = b
		}
	}
	str("LOG_PATH", &conf.LogPath)
	str("LOG_NAME", &conf.LogName)
	str("LOG_LEVEL", &conf.LogLevel)
	boolean("LOG_STD_OUT", &conf.LogStdOut)
	i64("INTERVAL_MS", &conf.IntervalMs)
	i64("INTEGRATE_INTERVAL_MS", &conf.IntegrateIntervalMs)
	boolean("USE_WHEEL", &conf.UseWheel)
	i64("WHEEL_RESOLUTION_MS", &conf.WheelResolutionMs)
	str("METRICS_ADDR", &conf.MetricsAddr)
	if err != nil {
		return errs.InvalidConfig.Printf("%v", err)
	}
	return nil
}

// Validate 汇总所有字段错误
func (conf *AppConfig) Validate() error {
	var err error
	if conf.IntervalMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("interval_ms must be > 0, got %d", conf.IntervalMs))
	}
	if conf.IntegrateIntervalMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("integrate_interval_ms must be > 0, got %d", conf.IntegrateIntervalMs))
	}
	if conf.UseWheel && conf.WheelResolutionMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("wheel_resolution_ms must be > 0, got %d", conf.WheelResolutionMs))
	}
	if _, ok := mlog.ParseLevel(conf.LogLevel); !ok {
		err = multierr.Append(err, fmt.Errorf("unknown log_level %q", conf.LogLevel))
	}
	if err != nil {
		return errs.InvalidConfig.Printf("%v", err)
	}
	return nil
}

func (conf *AppConfig) Interval() time.Duration {
	return time.Duration(conf.IntervalMs) * time.Millisecond
}

func (conf *AppConfig) IntegrateInterval() time.Duration {
	return time.Duration(conf.IntegrateIntervalMs) * time.Millisecond
}

func (conf *AppConfig) WheelResolution() time.Duration {
	return time.Duration(conf.WheelResolutionMs) * time.Millisecond
}

func (conf *AppConfig) Level() mlog.Level {
	lv, _ := mlog.ParseLevel(conf.LogLevel)
	return lv
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
