package file

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// DefaultDirName is the directory under the user's home holding config and data.
const DefaultDirName = ".sercha-ingest"

// Duration is a time.Duration written as a Go duration string ("30s", "10m").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %w", domain.ErrInvalidInput, string(text), err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the worker configuration.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Objects   ObjectsConfig   `toml:"objects"`
	Queue     QueueConfig     `toml:"queue"`
	Sync      SyncConfig      `toml:"sync"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Upload    UploadConfig    `toml:"upload"`
	Log       LogConfig       `toml:"log"`
}

// StoreConfig locates the record store.
type StoreConfig struct {
	// Path is the SQLite data directory. Empty uses ~/.sercha-ingest/data.
	Path string `toml:"path"`
}

// ObjectsConfig locates durable object storage.
type ObjectsConfig struct {
	// Root is the object directory. Empty uses ~/.sercha-ingest/objects.
	Root string `toml:"root"`
}

// QueueConfig selects the trigger and event queue backends by DSN.
type QueueConfig struct {
	TriggersDSN string   `toml:"triggers_dsn"`
	EventsDSN   string   `toml:"events_dsn"`
	Visibility  Duration `toml:"visibility"`
}

// SyncConfig mirrors domain.SyncSettings.
type SyncConfig struct {
	Workers           int      `toml:"workers"`
	ItemConcurrency   int      `toml:"item_concurrency"`
	PageSize          int      `toml:"page_size"`
	TransferChunkSize int      `toml:"transfer_chunk_size"`
	MaxObjectSize     int64    `toml:"max_object_size"`
	RetryAttempts     int      `toml:"retry_attempts"`
	RetryBaseDelay    Duration `toml:"retry_base_delay"`
	RetryMaxDelay     Duration `toml:"retry_max_delay"`
	AdapterTimeout    Duration `toml:"adapter_timeout"`
	LeaseDuration     Duration `toml:"lease_duration"`
	NackDelay         Duration `toml:"nack_delay"`
}

// SchedulerConfig mirrors domain.SchedulerConfig.
type SchedulerConfig struct {
	Enabled             bool     `toml:"enabled"`
	Tick                Duration `toml:"tick"`
	PartialObjectMaxAge Duration `toml:"partial_object_max_age"`
}

// UploadConfig configures the manual upload watcher.
type UploadConfig struct {
	// Watch enables fsnotify triggers for upload connectors.
	Watch bool `toml:"watch"`

	// Debounce is the quiet period after the last file event before a trigger.
	Debounce Duration `toml:"debounce"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Verbose    bool          `toml:"verbose"`
	Format     logger.Format `toml:"format"`
	File       string        `toml:"file"`
	MaxSizeMB  int           `toml:"max_size_mb"`
	MaxBackups int           `toml:"max_backups"`
	MaxAgeDays int           `toml:"max_age_days"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	s := domain.DefaultSyncSettings()
	sch := domain.DefaultSchedulerConfig()
	return Config{
		Queue: QueueConfig{Visibility: Duration(15 * time.Minute)},
		Sync: SyncConfig{
			Workers:           s.Workers,
			ItemConcurrency:   s.ItemConcurrency,
			PageSize:          s.PageSize,
			TransferChunkSize: s.ChunkSize,
			MaxObjectSize:     s.MaxObjectSize,
			RetryAttempts:     s.RetryAttempts,
			RetryBaseDelay:    Duration(s.RetryBaseDelay),
			RetryMaxDelay:     Duration(s.RetryMaxDelay),
			AdapterTimeout:    Duration(s.AdapterTimeout),
			LeaseDuration:     Duration(s.LeaseDuration),
			NackDelay:         Duration(s.NackDelay),
		},
		Scheduler: SchedulerConfig{
			Enabled:             sch.Enabled,
			Tick:                Duration(sch.Tick),
			PartialObjectMaxAge: Duration(sch.PartialObjectMaxAge),
		},
		Upload: UploadConfig{Watch: true, Debounce: Duration(2 * time.Second)},
		Log: LogConfig{
			Format:     logger.FormatText,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultPath returns ~/.sercha-ingest/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDirName, "config.toml"), nil
}

// Load reads the config at path over the defaults.
// If path is empty, defaults to ~/.sercha-ingest/config.toml. A missing file
// is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML into cfg, keeping values for absent keys, and validates
// the result. Unknown keys are rejected.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return cfg.Validate()
}

// Save writes cfg to path with restricted permissions, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if err := c.SyncSettings().Validate(); err != nil {
		return err
	}
	if c.Scheduler.Enabled && c.Scheduler.Tick <= 0 {
		return fmt.Errorf("%w: scheduler tick must be positive", domain.ErrInvalidInput)
	}
	switch c.Log.Format {
	case "", logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q", domain.ErrInvalidInput, c.Log.Format)
	}
	return nil
}

// SyncSettings converts the [sync] table.
func (c Config) SyncSettings() domain.SyncSettings {
	return domain.SyncSettings{
		Workers:         c.Sync.Workers,
		ItemConcurrency: c.Sync.ItemConcurrency,
		PageSize:        c.Sync.PageSize,
		ChunkSize:       c.Sync.TransferChunkSize,
		MaxObjectSize:   c.Sync.MaxObjectSize,
		RetryAttempts:   c.Sync.RetryAttempts,
		RetryBaseDelay:  time.Duration(c.Sync.RetryBaseDelay),
		RetryMaxDelay:   time.Duration(c.Sync.RetryMaxDelay),
		AdapterTimeout:  time.Duration(c.Sync.AdapterTimeout),
		LeaseDuration:   time.Duration(c.Sync.LeaseDuration),
		NackDelay:       time.Duration(c.Sync.NackDelay),
	}
}

// SchedulerSettings converts the [scheduler] table.
func (c Config) SchedulerSettings() domain.SchedulerConfig {
	return domain.SchedulerConfig{
		Enabled:             c.Scheduler.Enabled,
		Tick:                time.Duration(c.Scheduler.Tick),
		PartialObjectMaxAge: time.Duration(c.Scheduler.PartialObjectMaxAge),
	}
}

// LogFile returns the rotating file settings, or false when file logging is off.
func (c Config) LogFile() (logger.FileConfig, bool) {
	if c.Log.File == "" {
		return logger.FileConfig{}, false
	}
	return logger.FileConfig{
		Path:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}, true
}
