package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) normalize() {
	c.ArtifactDir = strings.TrimSpace(c.ArtifactDir)
	if c.ArtifactDir == "" {
		c.ArtifactDir = "."
	}
	urls := c.Feeds.URLs[:0]
	for _, u := range c.Feeds.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	c.Feeds.URLs = urls
	if c.Feeds.Attempts <= 0 {
		c.Feeds.Attempts = 1
	}
	if c.Ledger.FetchAttempts <= 0 {
		c.Ledger.FetchAttempts = 1
	}
	c.Social.ServerURL = strings.TrimRight(strings.TrimSpace(c.Social.ServerURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate checks structural settings. Credentials are checked at first use instead.
func (c Config) Validate() error {
	var errs []error
	if len(c.Feeds.URLs) == 0 {
		errs = append(errs, errors.New("feeds.urls: at least one feed is required"))
	}
	for _, u := range c.Feeds.URLs {
		if err := checkURL(u); err != nil {
			errs = append(errs, fmt.Errorf("feeds.urls: %w", err))
		}
	}
	if c.Feeds.RecencyHours <= 0 {
		errs = append(errs, errors.New("feeds.recency_hours must be positive"))
	}
	if c.Feeds.MaxItems <= 0 {
		errs = append(errs, errors.New("feeds.max_items must be positive"))
	}
	if c.Feeds.MaxBodyChars <= 0 {
		errs = append(errs, errors.New("feeds.max_body_chars must be positive"))
	}
	if c.Feeds.SummaryMinChars < 0 {
		errs = append(errs, errors.New("feeds.summary_min_chars must not be negative"))
	}
	if strings.TrimSpace(c.Ledger.LocalPath) == "" {
		errs = append(errs, errors.New("ledger.local_path is required"))
	}
	if c.Ledger.RemoteURL != "" {
		if err := checkURL(c.Ledger.RemoteURL); err != nil {
			errs = append(errs, fmt.Errorf("ledger.remote_url: %w", err))
		}
	}
	if c.Feeds.SkipArchived && c.Mirror.MongoURI == "" {
		errs = append(errs, errors.New("feeds.skip_archived requires mirror.mongo_uri"))
	}
	switch c.Logging.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: host is required", raw)
	}
	return nil
}
