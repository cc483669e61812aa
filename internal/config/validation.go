package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/language"

	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// Validate checks the configuration and normalizes the base URL to end in "/".
func (c *Config) Validate() error {
	if c.Build.Workers < 1 {
		return foundation.ConfigError(fmt.Sprintf("build.workers must be at least 1, got %d", c.Build.Workers)).Build()
	}
	for _, pattern := range c.Build.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return foundation.ConfigError(fmt.Sprintf("build.exclude: invalid glob %q", pattern)).Build()
		}
	}
	if _, err := language.Parse(c.Site.Language); err != nil {
		return foundation.WrapError(err, foundation.CategoryConfig, fmt.Sprintf("site.language: invalid tag %q", c.Site.Language)).Fatal().Build()
	}
	base, err := normalizeBaseURL(c.Site.BaseURL)
	if err != nil {
		return err
	}
	c.Site.BaseURL = base
	return nil
}

func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", foundation.WrapError(err, foundation.CategoryConfig, "site.base_url is not a valid URL").Fatal().Build()
	}
	switch {
	case u.Scheme == "" && u.Host == "":
		if !strings.HasPrefix(u.Path, "/") {
			return "", foundation.ConfigError(fmt.Sprintf("site.base_url must be absolute or start with '/': %q", raw)).Build()
		}
	case u.Scheme != "http" && u.Scheme != "https":
		return "", foundation.ConfigError(fmt.Sprintf("site.base_url: unsupported scheme %q", u.Scheme)).Build()
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", foundation.ConfigError("site.base_url must not carry a query or fragment").Build()
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw, nil
}
