// Package config loads run settings from defaults, an optional YAML file,
// LDRAW2STL_* environment variables and command-line flags, in increasing
// order of priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ldraw2stl/internal/curve"
	"ldraw2stl/internal/fetch"
	"ldraw2stl/internal/logging"
	"ldraw2stl/internal/preview"
)

const (
	EnvPrefix = "LDRAW2STL"
	FileName  = ".ldraw2stl"

	// DefaultScaleFactor converts library units to the printed size used
	// by the project's base files.
	DefaultScaleFactor = 0.395
)

// Config holds all configurable paths and conversion settings.
type Config struct {
	PartsDir  string `mapstructure:"parts_dir"`
	OutputDir string `mapstructure:"output_dir"`
	BaseDir   string `mapstructure:"base_dir"`
	Workers   int    `mapstructure:"workers"`

	Fetch   FetchConfig   `mapstructure:"fetch"`
	Curve   CurveConfig   `mapstructure:"curve"`
	Scale   ScaleConfig   `mapstructure:"scale"`
	Preview PreviewConfig `mapstructure:"preview"`
	Log     LogConfig     `mapstructure:"log"`
}

type FetchConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
	URLs    []string      `mapstructure:"urls"`
}

type CurveConfig struct {
	Segments int `mapstructure:"segments"`
}

type ScaleConfig struct {
	Factor float64 `mapstructure:"factor"`
}

type PreviewConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Size        int  `mapstructure:"size"`
	Supersample int  `mapstructure:"supersample"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("parts_dir", "./parts")
	v.SetDefault("output_dir", "./STL")
	v.SetDefault("base_dir", "")
	v.SetDefault("workers", runtime.NumCPU())

	v.SetDefault("fetch.enabled", true)
	v.SetDefault("fetch.workers", fetch.DefaultWorkers)
	v.SetDefault("fetch.timeout", fetch.DefaultTimeout)
	v.SetDefault("fetch.urls", fetch.DefaultBaseURLs)

	v.SetDefault("curve.segments", curve.DefaultSegments)
	v.SetDefault("scale.factor", DefaultScaleFactor)

	v.SetDefault("preview.enabled", false)
	v.SetDefault("preview.size", preview.DefaultSize)
	v.SetDefault("preview.supersample", preview.DefaultSupersample)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads path into v, or .ldraw2stl.yaml from the working directory
// when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !(path == "" && errors.As(err, &notFound)) {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// Load unmarshals v and resolves defaults.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve fills empty or out-of-range fields with defaults and cleans paths.
func (c *Config) Resolve() {
	if c.PartsDir == "" {
		c.PartsDir = "parts"
	}
	c.PartsDir = filepath.Clean(c.PartsDir)
	if c.OutputDir == "" {
		c.OutputDir = "STL"
	}
	c.OutputDir = filepath.Clean(c.OutputDir)
	if c.BaseDir != "" {
		c.BaseDir = filepath.Clean(c.BaseDir)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = fetch.DefaultWorkers
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = fetch.DefaultTimeout
	}
	if len(c.Fetch.URLs) == 0 {
		c.Fetch.URLs = append([]string(nil), fetch.DefaultBaseURLs...)
	}
	for i, u := range c.Fetch.URLs {
		if !strings.HasSuffix(u, "/") {
			c.Fetch.URLs[i] = u + "/"
		}
	}

	if c.Curve.Segments <= 0 {
		c.Curve.Segments = curve.DefaultSegments
	}
	if c.Preview.Size <= 0 {
		c.Preview.Size = preview.DefaultSize
	}
	if c.Preview.Supersample <= 0 {
		c.Preview.Supersample = preview.DefaultSupersample
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format %q: want text or json", c.Log.Format))
	}
	if c.Scale.Factor < 0 {
		errs = append(errs, fmt.Errorf("config: scale.factor %g: must not be negative", c.Scale.Factor))
	}
	if c.Curve.Segments < 3 {
		errs = append(errs, fmt.Errorf("config: curve.segments %d: need at least 3", c.Curve.Segments))
	}
	for _, raw := range c.Fetch.URLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: fetch.urls: bad URL %q", raw))
		}
	}
	return errors.Join(errs...)
}

// Logging returns the logger configuration.
func (c *Config) Logging() *logging.Config {
	lc := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(c.Log.Level); err == nil {
		lc.Level = lvl
	}
	lc.Format = c.Log.Format
	return lc
}

// PreviewOptions returns render options, or nil when previews are off.
func (c *Config) PreviewOptions() *preview.Options {
	if !c.Preview.Enabled {
		return nil
	}
	opts := preview.DefaultOptions()
	opts.Size = c.Preview.Size
	opts.Supersample = c.Preview.Supersample
	return &opts
}
