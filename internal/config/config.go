// Package config loads the orchestrator's run configuration
// via viper, the way firestige-Otus/internal/config/config.go loads its
// GlobalConfig: a single YAML/JSON file overridable by SOCIALQ_-prefixed
// environment variables, unmarshaled with mapstructure and defaulted
// before validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// RunConfig is the top-level shape of the orchestrator's config file.
type RunConfig struct {
	Clients map[string]ClientConfig `mapstructure:"clients"`
	Meta    MetaConfig              `mapstructure:"meta"`
	Tasks   TasksConfig             `mapstructure:"tasks"`
	Sink    SinkConfig              `mapstructure:"sink"`
	Log     LogConfig               `mapstructure:"log"`
	Metrics MetricsConfig           `mapstructure:"metrics"`
	HTTP    HTTPConfig              `mapstructure:"http"`
	Loop    LoopConfig              `mapstructure:"loop"`
}

// ClientConfig holds one platform's wiring: its auth, its store location,
// and its pacing knobs ("platform -> {auth, pacing,
// progress_enabled, store_path, ignore_initial_quota_halt}").
type ClientConfig struct {
	Auth                   map[string]string `mapstructure:"auth"`
	DB                     DBConfig          `mapstructure:"db"`
	RequestDelaySeconds    float64           `mapstructure:"request_delay_seconds" validate:"min=0"`
	DelayRandomizeSeconds  float64           `mapstructure:"delay_randomize_seconds" validate:"min=0"`
	ProgressEnabled        bool              `mapstructure:"progress_enabled"`
	Active                 bool              `mapstructure:"active"`
	IgnoreInitialQuotaHalt bool              `mapstructure:"ignore_initial_quota_halt"`
}

func (c ClientConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

func (c ClientConfig) DelayRandomize() time.Duration {
	return time.Duration(c.DelayRandomizeSeconds * float64(time.Second))
}

// DBConfig selects a platform store's backend: a per-platform sqlite file
// or a shared postgres connection.
type DBConfig struct {
	Kind   string `mapstructure:"kind" validate:"omitempty,oneof=sqlite postgres"`
	DBPath string `mapstructure:"db_path" validate:"required_unless=Kind postgres"`
	DSN    string `mapstructure:"dsn" validate:"required_if=Kind postgres"`
}

// MetaConfig locates the catalog database tracked by internal/store.MetaStore.
type MetaConfig struct {
	Kind   string `mapstructure:"kind" validate:"omitempty,oneof=sqlite postgres"`
	DBPath string `mapstructure:"db_path" validate:"required_unless=Kind postgres"`
	DSN    string `mapstructure:"dsn" validate:"required_if=Kind postgres"`
}

// TasksConfig configures the filesystem task intake (internal/taskmanager).
type TasksConfig struct {
	Dir                string `mapstructure:"dir"`
	ProcessedDir       string `mapstructure:"processed_dir"`
	MoveProcessedTasks bool   `mapstructure:"move_processed_tasks"`
}

// SinkConfig configures the optional downstream best-effort POST sink.
type SinkConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoopConfig paces RunCollectLoop's two tickers (internal/orchestrator).
type LoopConfig struct {
	IntervalSeconds  float64 `mapstructure:"interval_seconds"`
	TaskScanInterval float64 `mapstructure:"task_scan_interval_seconds"`
}

func (l LoopConfig) Interval() time.Duration {
	return time.Duration(l.IntervalSeconds * float64(time.Second))
}

func (l LoopConfig) TaskScanIntervalDuration() time.Duration {
	return time.Duration(l.TaskScanInterval * float64(time.Second))
}

// Load reads path (yaml, json, or toml, inferred by extension) through
// viper, applies defaults, overlays SOCIALQ_-prefixed environment
// variables, and validates the result.
func Load(path string) (*RunConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("SOCIALQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("meta.kind", "sqlite")
	v.SetDefault("meta.db_path", "./data/meta.sqlite")
	v.SetDefault("tasks.dir", "./tasks/incoming")
	v.SetDefault("tasks.processed_dir", "./tasks/processed")
	v.SetDefault("tasks.move_processed_tasks", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("loop.interval_seconds", 60)
	v.SetDefault("loop.task_scan_interval_seconds", 30)
	v.SetDefault("sink.enabled", false)
	v.SetDefault("sink.timeout", 10*time.Second)
}

// validate checks the structural requirements the run config implies: at
// least one configured client, plus per-field checks (db kind/path/dsn
// pairing, non-negative delays) run through validator/v10, the same
// boundary-validation discipline internal/taskparser applies to task
// files.
func (cfg *RunConfig) validate() error {
	if len(cfg.Clients) == 0 {
		return fmt.Errorf("at least one client must be configured")
	}
	if err := validate.Struct(cfg.Meta); err != nil {
		return fmt.Errorf("meta: %w", err)
	}
	for name, c := range cfg.Clients {
		if err := validate.Struct(c); err != nil {
			return fmt.Errorf("clients.%s: %w", name, err)
		}
	}
	return nil
}
