package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Dedup   DedupConfig   `yaml:"dedup"`
	Extract ExtractConfig `yaml:"extract"`
	Log     LogConfig     `yaml:"log"`
}

type DedupConfig struct {
	FramesDir   string   `yaml:"frames_dir"`
	Threshold   int      `yaml:"threshold"`
	Hash        string   `yaml:"hash"`        // fingerprint algorithm name
	Concurrency int      `yaml:"concurrency"` // 0 means runtime.NumCPU()
	Extensions  []string `yaml:"extensions"`  // lower-case, with leading dot
}

type ExtractConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`  // ffmpeg binary
	FFprobe string `yaml:"ffprobe"` // ffprobe binary
	FPS     int    `yaml:"fps"`
	Format  string `yaml:"format"` // output image extension without dot
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Workers returns the effective number of hashing workers.
func (c *DedupConfig) Workers() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.NumCPU()
}

// SlogLevel parses Level, falling back to info.
func (c *LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// envInt reads an environment variable as a non-negative integer.
// An unset or empty variable yields defaultVal. Anything that does not
// parse, or is negative, is an error.
func envInt(key string, defaultVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %q is not an integer", key, s)
	}
	if n < 0 {
		return n, fmt.Errorf("%s: must not be negative, got %d", key, n)
	}
	return n, nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envList reads a comma separated list, e.g. ".jpg,.png".
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// Defaults returns the embedded defaults without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// Embedded file, cannot fail outside of development.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load returns the embedded defaults overridden by environment variables.
// Malformed numeric variables are reported together in the error.
func Load() (*Config, error) {
	cfg := Defaults()
	var errs []error
	intVar := func(key string, dst *int) {
		n, err := envInt(key, *dst)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = n
	}

	cfg.Dedup.FramesDir = envString("FRAME_DEDUP_DIR", cfg.Dedup.FramesDir)
	intVar("FRAME_DEDUP_THRESHOLD", &cfg.Dedup.Threshold)
	cfg.Dedup.Hash = envString("FRAME_DEDUP_HASH", cfg.Dedup.Hash)
	intVar("FRAME_DEDUP_CONCURRENCY", &cfg.Dedup.Concurrency)
	cfg.Dedup.Extensions = normalizeExtensions(envList("FRAME_DEDUP_EXTENSIONS", cfg.Dedup.Extensions))

	cfg.Extract.FFmpeg = envString("FFMPEG_PATH", cfg.Extract.FFmpeg)
	cfg.Extract.FFprobe = envString("FFPROBE_PATH", cfg.Extract.FFprobe)
	intVar("FRAME_DEDUP_EXTRACT_FPS", &cfg.Extract.FPS)
	cfg.Extract.Format = envString("FRAME_DEDUP_EXTRACT_FORMAT", cfg.Extract.Format)

	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

// normalizeExtensions lower-cases extensions and adds the leading dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// Validate checks values that cannot be fixed by falling back to defaults.
func (c *Config) Validate() error {
	if c.Dedup.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %d", c.Dedup.Threshold)
	}
	if len(c.Dedup.Extensions) == 0 {
		return fmt.Errorf("no image extensions configured")
	}
	if c.Extract.FPS <= 0 {
		return fmt.Errorf("extract fps must be positive, got %d", c.Extract.FPS)
	}
	return nil
}
