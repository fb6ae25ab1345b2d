// Package social posts the episode announcement.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mattn/go-mastodon"
	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// Announcer posts a caption and a link and returns the status URL.
type Announcer interface {
	Announce(ctx context.Context, caption, url string) (string, error)
}

// Config holds the social server endpoint and token.
type Config struct {
	ServerURL   string
	AccessToken string
	Timeout     time.Duration
}

// MastodonAnnouncer posts public statuses.
type MastodonAnnouncer struct {
	client *mastodon.Client
	log    logrus.FieldLogger
}

// NewMastodonAnnouncer creates an announcer for the given server.
func NewMastodonAnnouncer(cfg Config, log logrus.FieldLogger) (*MastodonAnnouncer, error) {
	if cfg.ServerURL == "" || cfg.AccessToken == "" {
		return nil, errors.New("mastodon: server url and access token required")
	}
	client := mastodon.NewClient(&mastodon.Config{
		Server:      cfg.ServerURL,
		AccessToken: cfg.AccessToken,
	})
	if cfg.Timeout > 0 {
		client.Client = http.Client{Timeout: cfg.Timeout}
	}
	return &MastodonAnnouncer{client: client, log: logging.Component(log, "social")}, nil
}

// StatusText formats the announcement body.
func StatusText(caption, url string) string {
	return caption + "\n\nEscúchalo aquí: " + url
}

// Announce posts one public status. It is not retried.
func (a *MastodonAnnouncer) Announce(ctx context.Context, caption, url string) (string, error) {
	status, err := a.client.PostStatus(ctx, &mastodon.Toot{
		Status:     StatusText(caption, url),
		Visibility: "public",
	})
	if err != nil {
		return "", fmt.Errorf("post status: %w", err)
	}
	a.log.WithField("status_url", status.URL).Info("Episode announced")
	return status.URL, nil
}

// Noop is used when no social server is configured.
type Noop struct{}

// Announce does nothing.
func (Noop) Announce(ctx context.Context, caption, url string) (string, error) {
	return "", nil
}
