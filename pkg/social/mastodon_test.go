package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestAnnouncePostsPublicStatus(t *testing.T) {
	var form url.Values
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/statuses" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":  "1",
			"url": "https://mastodon.example/@startups/1",
		})
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	a, err := NewMastodonAnnouncer(Config{ServerURL: server.URL, AccessToken: "tok"}, logger)
	if err != nil {
		t.Fatalf("NewMastodonAnnouncer failed: %v", err)
	}

	statusURL, err := a.Announce(context.Background(), "Nuevo episodio", "https://cdn/ep.wav")
	if err != nil {
		t.Fatalf("Announce failed: %v", err)
	}
	if statusURL != "https://mastodon.example/@startups/1" {
		t.Errorf("Unexpected status url %q", statusURL)
	}
	if auth != "Bearer tok" {
		t.Errorf("Expected bearer token, got %q", auth)
	}
	if got := form.Get("status"); got != "Nuevo episodio\n\nEscúchalo aquí: https://cdn/ep.wav" {
		t.Errorf("Unexpected status text %q", got)
	}
	if got := form.Get("visibility"); got != "public" {
		t.Errorf("Expected public visibility, got %q", got)
	}
}

func TestAnnounceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	a, _ := NewMastodonAnnouncer(Config{ServerURL: server.URL, AccessToken: "bad"}, logger)
	if _, err := a.Announce(context.Background(), "x", "y"); err == nil || !strings.Contains(err.Error(), "post status") {
		t.Errorf("Expected post status error, got %v", err)
	}
}

func TestNewMastodonAnnouncerRequiresConfig(t *testing.T) {
	logger, _ := test.NewNullLogger()
	if _, err := NewMastodonAnnouncer(Config{ServerURL: "https://m"}, logger); err == nil {
		t.Error("Expected error without token")
	}
}

func TestNoop(t *testing.T) {
	if u, err := (Noop{}).Announce(context.Background(), "a", "b"); u != "" || err != nil {
		t.Errorf("Expected noop, got %q %v", u, err)
	}
}
