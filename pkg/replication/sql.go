package replication

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/edopalomino/generate-startupcafe/pkg/db"
	"github.com/edopalomino/generate-startupcafe/pkg/domain"
)

const episodeDDL = `
CREATE TABLE IF NOT EXISTS episode (
  url TEXT PRIMARY KEY,
  episodio INTEGER NOT NULL,
  titulo TEXT NOT NULL DEFAULT '',
  descripcion TEXT NOT NULL DEFAULT '',
  run_id TEXT NOT NULL DEFAULT '',
  published_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// The article table defaults crawled_at so rows without a timestamp still insert.
const articleDDL = `
CREATE TABLE IF NOT EXISTS article (
  url TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  text TEXT NOT NULL DEFAULT '',
  episode_url TEXT NOT NULL DEFAULT '',
  crawled_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// SQLSink writes episodes and their articles into Postgres through any DBProvider,
// which covers both a plain Postgres DSN and a direct Supabase connection.
type SQLSink struct {
	name string
	pg   db.DBProvider

	schemaOnce sync.Once
	schemaErr  error
}

// NewSQLSink creates a sink. name is used in logs and errors.
func NewSQLSink(name string, pg db.DBProvider) *SQLSink {
	return &SQLSink{name: name, pg: pg}
}

func (s *SQLSink) Name() string { return s.name }

// SaveEpisode inserts the record and its articles in one transaction.
// Rows whose url already exists are left untouched.
func (s *SQLSink) SaveEpisode(ctx context.Context, ep Episode) error {
	if s.pg == nil || s.pg.DB() == nil {
		return fmt.Errorf("postgres DB not connected")
	}
	if ep.Record.URL == "" {
		return fmt.Errorf("episode record has no url")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	tx, err := s.pg.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertEpisode = `
INSERT INTO episode (url, episodio, titulo, descripcion, run_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (url) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertEpisode,
		ep.Record.URL, ep.Record.Episodio, ep.Record.Titulo, ep.Record.Descripcion, ep.RunID); err != nil {
		return fmt.Errorf("insert episode url=%q: %w", ep.Record.URL, err)
	}

	if err := insertArticles(ctx, tx, ep.Record.URL, ep.Articles); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLSink) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		for _, ddl := range []string{episodeDDL, articleDDL} {
			if _, err := s.pg.DB().ExecContext(ctx, ddl); err != nil {
				s.schemaErr = fmt.Errorf("create schema: %w", err)
				return
			}
		}
	})
	return s.schemaErr
}

func insertArticles(ctx context.Context, tx *sql.Tx, episodeURL string, articles []*domain.Article) error {
	batch := articlesWithURL(articles)
	if len(batch) == 0 {
		return nil
	}

	const insertArticle = `
INSERT INTO article (url, title, text, episode_url, crawled_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (url) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, insertArticle)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range batch {
		if _, err := stmt.ExecContext(ctx, a.URL, a.Title, a.Text, episodeURL, a.CrawledAt); err != nil {
			return fmt.Errorf("insert article url=%q: %w", a.URL, err)
		}
	}
	return nil
}

// articlesWithURL drops nil entries and entries without a URL.
func articlesWithURL(articles []*domain.Article) []*domain.Article {
	out := make([]*domain.Article, 0, len(articles))
	for _, a := range articles {
		if a != nil && a.URL != "" {
			out = append(out, a)
		}
	}
	return out
}
