package replication

import (
	"context"
	"fmt"

	supabase "github.com/supabase-community/supabase-go"
)

// episodeRow is the REST payload for the episode table.
type episodeRow struct {
	URL         string `json:"url"`
	Episodio    int    `json:"episodio"`
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
	RunID       string `json:"run_id"`
}

// TableWriter upserts one row into a table keyed by onConflict.
type TableWriter interface {
	Upsert(table string, row any, onConflict string) error
}

// RESTSink writes episodes through the Supabase REST API. Used when only a
// project URL and API key are configured.
type RESTSink struct {
	writer TableWriter
}

// NewRESTSink creates a sink over an initialized Supabase SDK client.
func NewRESTSink(client *supabase.Client) *RESTSink {
	return &RESTSink{writer: supabaseWriter{client: client}}
}

func (s *RESTSink) Name() string { return "supabase-rest" }

// SaveEpisode upserts the episode row by url. Articles are not sent over REST.
func (s *RESTSink) SaveEpisode(ctx context.Context, ep Episode) error {
	if ep.Record.URL == "" {
		return fmt.Errorf("episode record has no url")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	row := episodeRow{
		URL:         ep.Record.URL,
		Episodio:    ep.Record.Episodio,
		Titulo:      ep.Record.Titulo,
		Descripcion: ep.Record.Descripcion,
		RunID:       ep.RunID,
	}
	if err := s.writer.Upsert("episode", row, "url"); err != nil {
		return fmt.Errorf("upsert episode url=%q: %w", ep.Record.URL, err)
	}
	return nil
}

type supabaseWriter struct {
	client *supabase.Client
}

func (w supabaseWriter) Upsert(table string, row any, onConflict string) error {
	if w.client == nil {
		return fmt.Errorf("supabase SDK not initialized")
	}
	_, _, err := w.client.From(table).Insert(row, true, onConflict, "minimal", "").Execute()
	return err
}
