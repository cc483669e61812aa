package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// Config is the site/build configuration read from an optional YAML file.
// CLI flags override file values after Load.
type Config struct {
	Site   SiteConfig   `yaml:"site"`
	Build  BuildConfig  `yaml:"build"`
	Render RenderConfig `yaml:"render"`
}

// SiteConfig carries presentation settings that end up in every page.
type SiteConfig struct {
	Title    string `yaml:"title"`
	BaseURL  string `yaml:"base_url"` // prefix for every page URL, "/" by default
	Language string `yaml:"language"` // BCP 47 tag for <html lang>
}

// BuildConfig controls content discovery and parallelism.
type BuildConfig struct {
	Workers int      `yaml:"workers"`
	Drafts  bool     `yaml:"drafts"`
	Exclude []string `yaml:"exclude"` // doublestar globs relative to the content root
}

// RenderConfig controls Markdown rendering.
type RenderConfig struct {
	UnsafeHTML *bool `yaml:"unsafe_html"` // raw HTML passthrough; nil means enabled
	HardWraps  bool  `yaml:"hard_wraps"`
}

// AllowRawHTML reports whether raw HTML in Markdown is passed through.
func (r RenderConfig) AllowRawHTML() bool {
	return r.UnsafeHTML == nil || *r.UnsafeHTML
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a YAML configuration file, applies defaults and validates it.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, foundation.NotFoundError("configuration file not found").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", path).
			Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		if classified, ok := foundation.AsClassified(err); ok {
			return nil, classified.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "failed to parse config").Fatal().Build()
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Site.Title == "" {
		cfg.Site.Title = "Book"
	}
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = "/"
	}
	if cfg.Site.Language == "" {
		cfg.Site.Language = "en"
	}
	if cfg.Build.Workers == 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
}
