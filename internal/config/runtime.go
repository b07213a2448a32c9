package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// AppName is used for the config directory and environment prefix
const AppName = "beatreel"

// RuntimeConfig holds settings that may be overridden by the config file,
// environment or command line. Nil or empty fields fall back to defaults.
type RuntimeConfig struct {
	BackgroundR *uint8
	BackgroundG *uint8
	BackgroundB *uint8

	CaptionR *uint8
	CaptionG *uint8
	CaptionB *uint8

	Codec    string // Preferred FFmpeg encoder name, empty for automatic selection
	Bitrate  int64  // Target bitrate in bits per second, 0 for default
	LogLevel string
	LogFile  string
}

type fileConfig struct {
	BackgroundColor string `toml:"background_color"`
	CaptionColor    string `toml:"caption_color"`
	Codec           string `toml:"codec"`
	Bitrate         int64  `toml:"bitrate"`
	LogLevel        string `toml:"log_level"`
	LogFile         string `toml:"log_file"`
}

// Load reads the TOML config at path, or the default location when path is
// empty, then applies BEATREEL_* environment overrides. A missing default
// file is not an error.
func Load(path string) (*RuntimeConfig, error) {
	cfg := &RuntimeConfig{}

	explicit := path != ""
	if !explicit {
		path = configFilePath()
	}

	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				return applyEnvOverrides(cfg)
			}
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := cfg.apply(fc); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	return applyEnvOverrides(cfg)
}

func (c *RuntimeConfig) apply(fc fileConfig) error {
	if fc.BackgroundColor != "" {
		if err := c.SetBackgroundColor(fc.BackgroundColor); err != nil {
			return fmt.Errorf("background_color: %w", err)
		}
	}
	if fc.CaptionColor != "" {
		if err := c.SetCaptionColor(fc.CaptionColor); err != nil {
			return fmt.Errorf("caption_color: %w", err)
		}
	}
	if fc.Bitrate < 0 {
		return fmt.Errorf("bitrate: must not be negative, got %d", fc.Bitrate)
	}
	c.Codec = fc.Codec
	c.Bitrate = fc.Bitrate
	c.LogLevel = fc.LogLevel
	c.LogFile = expandTilde(fc.LogFile)
	return nil
}

func applyEnvOverrides(cfg *RuntimeConfig) (*RuntimeConfig, error) {
	prefix := strings.ToUpper(AppName) + "_"

	if v := os.Getenv(prefix + "BACKGROUND_COLOR"); v != "" {
		if err := cfg.SetBackgroundColor(v); err != nil {
			return nil, fmt.Errorf("%sBACKGROUND_COLOR: %w", prefix, err)
		}
	}
	if v := os.Getenv(prefix + "CAPTION_COLOR"); v != "" {
		if err := cfg.SetCaptionColor(v); err != nil {
			return nil, fmt.Errorf("%sCAPTION_COLOR: %w", prefix, err)
		}
	}
	if v := os.Getenv(prefix + "CODEC"); v != "" {
		cfg.Codec = v
	}
	if v := os.Getenv(prefix + "BITRATE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%sBITRATE: invalid value %q", prefix, v)
		}
		cfg.Bitrate = n
	}
	if v := os.Getenv(prefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(prefix + "LOG_FILE"); v != "" {
		cfg.LogFile = expandTilde(v)
	}
	return cfg, nil
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, AppName)
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", AppName)
	} else {
		return ""
	}
	return filepath.Join(configDir, "config.toml")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB" into its components
func ParseHexColor(s string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: expected 6 hex digits", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}

	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// SetBackgroundColor parses and stores a hex background colour
func (c *RuntimeConfig) SetBackgroundColor(hex string) error {
	r, g, b, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	c.BackgroundR, c.BackgroundG, c.BackgroundB = &r, &g, &b
	return nil
}

// SetCaptionColor parses and stores a hex caption colour
func (c *RuntimeConfig) SetCaptionColor(hex string) error {
	r, g, b, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	c.CaptionR, c.CaptionG, c.CaptionB = &r, &g, &b
	return nil
}

// GetBackgroundColor returns the configured background colour, or the default
// unless all three components are set
func (c *RuntimeConfig) GetBackgroundColor() (r, g, b uint8) {
	if c.BackgroundR != nil && c.BackgroundG != nil && c.BackgroundB != nil {
		return *c.BackgroundR, *c.BackgroundG, *c.BackgroundB
	}
	return BackgroundColorR, BackgroundColorG, BackgroundColorB
}

// GetCaptionColor returns the configured caption colour, or the default
// unless all three components are set
func (c *RuntimeConfig) GetCaptionColor() (r, g, b uint8) {
	if c.CaptionR != nil && c.CaptionG != nil && c.CaptionB != nil {
		return *c.CaptionR, *c.CaptionG, *c.CaptionB
	}
	return CaptionColorR, CaptionColorG, CaptionColorB
}

// GetBitrate returns the configured bitrate or DefaultBitrate
func (c *RuntimeConfig) GetBitrate() int64 {
	if c.Bitrate > 0 {
		return c.Bitrate
	}
	return DefaultBitrate
}

// GetLogLevel returns the configured log level or "info"
func (c *RuntimeConfig) GetLogLevel() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return "info"
}
