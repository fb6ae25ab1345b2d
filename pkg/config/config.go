// Package config builds the immutable run configuration: built-in defaults,
// an optional TOML file, a .env file and finally the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ErrMissingCredential is returned when a credential is needed but not configured.
var ErrMissingCredential = errors.New("missing credential")

// Feeds holds the content sources and the collection policy.
type Feeds struct {
	URLs            []string `toml:"urls"`
	RecencyHours    int      `toml:"recency_hours"`
	MaxItems        int      `toml:"max_items"`
	TimeoutSeconds  int      `toml:"timeout_seconds"`
	Attempts        int      `toml:"attempts"`
	SummaryMinChars int      `toml:"summary_min_chars"`
	MaxBodyChars    int      `toml:"max_body_chars"`
	ArticleTimeout  int      `toml:"article_timeout_seconds"`
	// SkipArchived drops items whose link is already in the article archive.
	// Needs a Mongo mirror.
	SkipArchived bool `toml:"skip_archived"`
}

// Gemini holds the generative service settings.
type Gemini struct {
	APIKey               string `toml:"api_key"`
	TextModel            string `toml:"text_model"`
	SpeechModel          string `toml:"speech_model"`
	TextBaseURL          string `toml:"text_base_url"`
	SpeechBaseURL        string `toml:"speech_base_url"`
	TextTimeoutSeconds   int    `toml:"text_timeout_seconds"`
	SpeechTimeoutSeconds int    `toml:"speech_timeout_seconds"`
}

// Storage holds the object storage credentials and naming.
type Storage struct {
	CloudName      string `toml:"cloud_name"`
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	Folder         string `toml:"folder"`
	PublicIDPrefix string `toml:"public_id_prefix"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Social holds the optional announcement endpoint.
type Social struct {
	ServerURL      string `toml:"server_url"`
	AccessToken    string `toml:"access_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Ledger holds the catalog locations.
type Ledger struct {
	RemoteURL      string `toml:"remote_url"`
	LocalPath      string `toml:"local_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	FetchAttempts  int    `toml:"fetch_attempts"`
}

// Mirror holds the optional database sinks.
type Mirror struct {
	MongoURI         string `toml:"mongo_uri"`
	MongoDatabase    string `toml:"mongo_database"`
	MongoCollection  string `toml:"mongo_collection"`
	PostgresDSN      string `toml:"postgres_dsn"`
	SupabaseURL      string `toml:"supabase_url"`
	SupabaseKey      string `toml:"supabase_key"`
	SupabasePassword string `toml:"supabase_password"`
}

// Logging holds log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full run configuration. It is built once and passed by value.
type Config struct {
	ArtifactDir string  `toml:"artifact_dir"`
	Feeds       Feeds   `toml:"feeds"`
	Gemini      Gemini  `toml:"gemini"`
	Storage     Storage `toml:"storage"`
	Social      Social  `toml:"social"`
	Ledger      Ledger  `toml:"ledger"`
	Mirror      Mirror  `toml:"mirror"`
	Logging     Logging `toml:"logging"`
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnv(&cfg, os.Getenv)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	if v := strings.TrimSpace(getenv("FEED_URLS")); v != "" {
		cfg.Feeds.URLs = splitList(v)
	}

	if v := strings.TrimSpace(getenv("SKIP_ARCHIVED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Feeds.SkipArchived = b
		}
	}

	setString(&cfg.ArtifactDir, "ARTIFACT_DIR")

	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.TextModel, "GEMINI_TEXT_MODEL")
	setString(&cfg.Gemini.SpeechModel, "GEMINI_SPEECH_MODEL")
	setInt(&cfg.Gemini.SpeechTimeoutSeconds, "GEMINI_SPEECH_TIMEOUT_SECONDS")

	setString(&cfg.Storage.CloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&cfg.Storage.APIKey, "CLOUDINARY_API_KEY")
	setString(&cfg.Storage.APISecret, "CLOUDINARY_API_SECRET")

	setString(&cfg.Social.ServerURL, "MASTODON_URL")
	setString(&cfg.Social.AccessToken, "MASTODON_TOKEN")

	setString(&cfg.Ledger.RemoteURL, "PODCASTS_REMOTE_URL")
	setString(&cfg.Ledger.LocalPath, "PODCASTS_LOCAL_PATH")

	setString(&cfg.Mirror.MongoURI, "MONGO_URI")
	setString(&cfg.Mirror.MongoDatabase, "MONGO_DB")
	setString(&cfg.Mirror.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.Mirror.SupabaseURL, "SUPABASE_URL")
	setString(&cfg.Mirror.SupabaseKey, "SUPABASE_KEY")
	setString(&cfg.Mirror.SupabasePassword, "SUPABASE_DB_PASSWORD")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MongoEnabled reports whether the article archive is configured.
func (c Config) MongoEnabled() bool {
	return c.Mirror.MongoURI != ""
}

// PostgresEnabled reports whether a direct Postgres episode table is configured.
func (c Config) PostgresEnabled() bool {
	return c.Mirror.PostgresDSN != ""
}

// SupabaseEnabled reports whether Supabase is configured, either by REST key or database password.
func (c Config) SupabaseEnabled() bool {
	return c.Mirror.SupabaseURL != "" && (c.Mirror.SupabaseKey != "" || c.Mirror.SupabasePassword != "")
}

// RecencyWindow returns the lookback horizon for feed items.
func (c Config) RecencyWindow() time.Duration {
	return time.Duration(c.Feeds.RecencyHours) * time.Hour
}

// RequireGemini reports a clear error when the generative service key is absent.
func (c Config) RequireGemini() error {
	if c.Gemini.APIKey == "" {
		return missing("GEMINI_API_KEY")
	}
	return nil
}

// RequireStorage reports which storage credential is absent, if any.
func (c Config) RequireStorage() error {
	switch {
	case c.Storage.CloudName == "":
		return missing("CLOUDINARY_CLOUD_NAME")
	case c.Storage.APIKey == "":
		return missing("CLOUDINARY_API_KEY")
	case c.Storage.APISecret == "":
		return missing("CLOUDINARY_API_SECRET")
	}
	return nil
}

// SocialEnabled reports whether announcements are configured.
func (c Config) SocialEnabled() bool {
	return c.Social.ServerURL != "" && c.Social.AccessToken != ""
}

func missing(name string) error {
	return fmt.Errorf("%w: %s is not set", ErrMissingCredential, name)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Timeout helpers keep the integer seconds in the file format and durations in code.
func (c Config) FeedTimeout() time.Duration    { return seconds(c.Feeds.TimeoutSeconds) }
func (c Config) ArticleTimeout() time.Duration { return seconds(c.Feeds.ArticleTimeout) }
func (c Config) TextTimeout() time.Duration    { return seconds(c.Gemini.TextTimeoutSeconds) }
func (c Config) SpeechTimeout() time.Duration  { return seconds(c.Gemini.SpeechTimeoutSeconds) }
func (c Config) StorageTimeout() time.Duration { return seconds(c.Storage.TimeoutSeconds) }
func (c Config) SocialTimeout() time.Duration  { return seconds(c.Social.TimeoutSeconds) }
func (c Config) LedgerTimeout() time.Duration  { return seconds(c.Ledger.TimeoutSeconds) }
