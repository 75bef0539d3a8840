package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription used as a holiday source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// GoogleConfig holds the Google Calendar API settings for the holiday proxy.
type GoogleConfig struct {
	APIKey     string `yaml:"api_key" json:"-"`
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`
	// BaseURL is overridable so tests can point the provider at a fake.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// StorageConfig selects the persistent key/value backend.
type StorageConfig struct {
	// Driver is "disk" (diskv) or "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the diskv base directory or the SQLite file. Relative paths
	// are resolved against DataDir.
	Path string `yaml:"path" json:"path"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that decides what "today" is and which
	// date key a synced date-time lands on.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataDir is the base directory for storage and caches.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	Storage StorageConfig `yaml:"storage" json:"storage"`

	Google GoogleConfig `yaml:"google" json:"google"`

	// ICS feeds are consulted when the Google API is unavailable.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// RefreshCron is a cron-style schedule string (e.g. "0 */6 * * *")
	// used to re-warm the holiday proxy cache.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// Dev enables development-only endpoints such as store clearing.
	Dev bool `yaml:"dev" json:"dev"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen     = "127.0.0.1:3000"
	defaultTimezone   = "Local"
	defaultDataDir    = "~/.meno"
	defaultDriver     = "disk"
	defaultCalendarID = "en.ng#holiday@group.v.calendar.google.com"
	defaultRefresh    = "0 */6 * * *"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		Timezone: defaultTimezone,
		DataDir:  defaultDataDir,
		Storage: StorageConfig{
			Driver: defaultDriver,
			Path:   "store",
		},
		Google: GoogleConfig{
			CalendarID: defaultCalendarID,
		},
		ICS:         []ICSConfig{},
		RefreshCron: defaultRefresh,
		LogLevel:    "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	switch c.Storage.Driver {
	case "disk", "sqlite":
	default:
		// Unknown value; fall back to disk.
		c.Storage.Driver = defaultDriver
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == "sqlite" {
			c.Storage.Path = "meno.sqlite"
		} else {
			c.Storage.Path = "store"
		}
	}
	if c.Google.CalendarID == "" {
		c.Google.CalendarID = defaultCalendarID
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Load reads the YAML config at path, fills defaults and overlays the
// environment. A missing file is created with the defaults (mode 0600) on
// first run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// The defaults are still usable.
				return cfg, err
			}
			return cfg, ApplyEnv(cfg)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, ApplyEnv(&cfg)
}

// Save normalizes cfg and writes it as YAML through a temp file and a
// rename. The directory is created 0700 and the file ends up 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".meno-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// StoragePath resolves Storage.Path against DataDir, expanding "~".
func (c *Config) StoragePath() (string, error) {
	p := c.Storage.Path
	if !filepath.IsAbs(p) && p[0] != '~' {
		p = filepath.Join(c.DataDir, p)
	}
	return ExpandPath(p)
}

// CacheDir is where the ICS fetcher keeps its conditional-request cache.
func (c *Config) CacheDir() (string, error) {
	return ExpandPath(filepath.Join(c.DataDir, "ics-cache"))
}
