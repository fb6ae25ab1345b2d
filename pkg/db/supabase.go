package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds configuration required to connect to Supabase.
type SupabaseConfig struct {
	// ConnectionString is the Supabase Postgres connection string. When empty
	// it is built from URL and Password.
	ConnectionString string

	// URL is the project URL, e.g. https://[project-ref].supabase.co
	URL string

	// Key is the API key used for REST access (service_role for a server).
	Key string

	// Password is the database password, not the API key.
	Password string

	Pool PoolConfig
}

// SupabaseClient reaches Supabase either through a direct Postgres connection
// or, when only URL and key are configured, through the REST API.
type SupabaseClient struct {
	db  *sql.DB
	sdk *supabase.Client
	cfg SupabaseConfig
}

// NewSupabaseClient constructs a Supabase client. Call Connect before use.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect sets up the REST client when URL and key are present and the direct
// connection when a connection string or password is present. A failing direct
// connection is tolerated if REST access is available.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.URL != "" && c.cfg.Key != "" {
		sdk, err := supabase.NewClient(c.cfg.URL, c.cfg.Key, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.sdk = sdk
	}

	connStr, err := c.connectionString()
	if err != nil && c.sdk == nil {
		return err
	}
	if connStr != "" {
		// Supabase pools connections through a proxy that does not keep prepared statements.
		connStr = addConnectionParam(connStr, "statement_cache_capacity", "0")
		connStr = addConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

		db, err := openPGX(ctx, connStr, c.cfg.Pool)
		if err != nil && c.sdk == nil {
			return fmt.Errorf("supabase postgres: %w", err)
		}
		c.db = db
	}

	if c.db == nil && c.sdk == nil {
		return fmt.Errorf("either connection string/password or Supabase URL+key must be provided")
	}
	return nil
}

// Close closes the database connection.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the direct handle; nil in REST-only mode.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// HasDirectDB returns true if direct database connection is available.
func (c *SupabaseClient) HasDirectDB() bool {
	return c.db != nil
}

// SDK returns the REST client; nil when URL and key were not configured.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.sdk
}

// connectionString returns "" when neither a connection string nor a password is configured.
func (c *SupabaseClient) connectionString() (string, error) {
	if c.cfg.ConnectionString != "" {
		return c.cfg.ConnectionString, nil
	}
	if c.cfg.Password == "" {
		return "", nil
	}
	if c.cfg.URL == "" {
		return "", fmt.Errorf("supabase URL is required when connection string is not provided")
	}

	parsed, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}
	// Host is [project-ref].supabase.co
	projectRef, _, ok := strings.Cut(parsed.Host, ".")
	if !ok || projectRef == "" {
		return "", fmt.Errorf("invalid supabase URL format: expected [project-ref].supabase.co")
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(c.cfg.Password), projectRef), nil
}

// addConnectionParam adds a query parameter to the connection string if not already present.
func addConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}
