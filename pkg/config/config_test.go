package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if len(cfg.Feeds.URLs) != 10 {
		t.Errorf("Expected 10 default feeds, got %d", len(cfg.Feeds.URLs))
	}
	if cfg.Feeds.MaxItems != 6 {
		t.Errorf("Expected max items 6, got %d", cfg.Feeds.MaxItems)
	}
	if cfg.RecencyWindow() != 7*24*time.Hour {
		t.Errorf("Expected 7 day window, got %v", cfg.RecencyWindow())
	}
	if cfg.Feeds.SummaryMinChars != 200 || cfg.Feeds.MaxBodyChars != 4000 {
		t.Errorf("Unexpected body limits: %d/%d", cfg.Feeds.SummaryMinChars, cfg.Feeds.MaxBodyChars)
	}
	if cfg.Ledger.FetchAttempts != 1 {
		t.Errorf("Expected single catalog fetch attempt, got %d", cfg.Ledger.FetchAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}

	// Mutating the returned feeds must not leak into the package default.
	cfg.Feeds.URLs[0] = "changed"
	if DefaultFeeds[0] == "changed" {
		t.Error("Default() must copy the feed list")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	applyEnv(&cfg, envMap(map[string]string{
		"FEED_URLS":             "https://a.example/feed, https://b.example/rss",
		"GEMINI_API_KEY":        "key",
		"CLOUDINARY_CLOUD_NAME": "cloud",
		"PODCASTS_LOCAL_PATH":   "/tmp/podcasts.json",
		"PODCASTS_REMOTE_URL":   "https://example.com/podcasts.json",
		"MASTODON_URL":          "https://mastodon.example/",
		"MASTODON_TOKEN":        "tok",
		"ARTIFACT_DIR":          "/tmp/out",
	}))
	cfg.normalize()

	if len(cfg.Feeds.URLs) != 2 || cfg.Feeds.URLs[1] != "https://b.example/rss" {
		t.Errorf("Unexpected feeds: %v", cfg.Feeds.URLs)
	}
	if cfg.Gemini.APIKey != "key" {
		t.Errorf("Expected api key override, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Ledger.LocalPath != "/tmp/podcasts.json" {
		t.Errorf("Expected local path override, got %q", cfg.Ledger.LocalPath)
	}
	if cfg.Social.ServerURL != "https://mastodon.example" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.Social.ServerURL)
	}
	if !cfg.SocialEnabled() {
		t.Error("Expected social to be enabled")
	}
	if cfg.ArtifactDir != "/tmp/out" {
		t.Errorf("Expected artifact dir override, got %q", cfg.ArtifactDir)
	}
}

func TestLoadTOMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newscast.toml")
	content := `
artifact_dir = "/var/newscast"

[feeds]
urls = ["https://one.example/feed"]
max_items = 3

[ledger]
local_path = "/srv/podcasts.json"
remote_url = ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PODCASTS_LOCAL_PATH", "/env/podcasts.json")
	t.Setenv("PODCASTS_REMOTE_URL", "")
	t.Setenv("FEED_URLS", "")
	t.Setenv("ARTIFACT_DIR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ArtifactDir != "/var/newscast" {
		t.Errorf("Expected artifact dir from file, got %q", cfg.ArtifactDir)
	}
	if cfg.Feeds.MaxItems != 3 {
		t.Errorf("Expected max items 3 from file, got %d", cfg.Feeds.MaxItems)
	}
	if len(cfg.Feeds.URLs) != 1 {
		t.Errorf("Expected 1 feed from file, got %v", cfg.Feeds.URLs)
	}
	if cfg.Ledger.LocalPath != "/env/podcasts.json" {
		t.Errorf("Expected env to win over file, got %q", cfg.Ledger.LocalPath)
	}
	if cfg.Ledger.RemoteURL != "" {
		t.Errorf("Expected remote URL disabled by file, got %q", cfg.Ledger.RemoteURL)
	}
	// Values absent from the file keep their defaults.
	if cfg.Feeds.MaxBodyChars != 4000 {
		t.Errorf("Expected default max body chars, got %d", cfg.Feeds.MaxBodyChars)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Feeds.URLs = []string{"ftp://example.com/feed"}
	cfg.Feeds.MaxItems = 0
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error")
	}
}

func TestCredentialChecks(t *testing.T) {
	cfg := Default()
	err := cfg.RequireGemini()
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Expected ErrMissingCredential, got %v", err)
	}
	if err.Error() != "missing credential: GEMINI_API_KEY is not set" {
		t.Errorf("Unexpected message: %v", err)
	}

	cfg.Storage.CloudName = "c"
	cfg.Storage.APIKey = "k"
	err = cfg.RequireStorage()
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Expected ErrMissingCredential, got %v", err)
	}
	cfg.Storage.APISecret = "s"
	if err := cfg.RequireStorage(); err != nil {
		t.Errorf("Expected storage credentials to be complete, got %v", err)
	}
	if cfg.SocialEnabled() {
		t.Error("Expected social disabled by default")
	}
}

func TestMirrorSwitches(t *testing.T) {
	cfg := Default()
	if cfg.MongoEnabled() || cfg.PostgresEnabled() || cfg.SupabaseEnabled() {
		t.Error("Expected every mirror sink disabled by default")
	}

	applyEnv(&cfg, envMap(map[string]string{
		"MONGO_URI":     "mongodb://localhost:27017",
		"SUPABASE_URL":  "https://abcd.supabase.co",
		"SUPABASE_KEY":  "service",
		"SKIP_ARCHIVED": "true",
	}))
	if !cfg.MongoEnabled() {
		t.Error("Expected mongo enabled")
	}
	if !cfg.SupabaseEnabled() {
		t.Error("Expected supabase enabled with URL and key")
	}
	if !cfg.Feeds.SkipArchived {
		t.Error("Expected SKIP_ARCHIVED to set feeds.skip_archived")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestSkipArchivedNeedsMongo(t *testing.T) {
	cfg := Default()
	cfg.Feeds.SkipArchived = true
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when skip_archived is set without a mongo URI")
	}
}
