package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/httpclient"
)

func catalogServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestLedger(t *testing.T, remoteURL, localPath string, timeout time.Duration) (*Ledger, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	client := httpclient.NewClient(httpclient.APIClient, httpclient.WithTimeout(5*time.Second))
	return New(client, Config{RemoteURL: remoteURL, LocalPath: localPath, Timeout: timeout}, logger), hook
}

func writeLocal(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write local catalog: %v", err)
	}
}

func readLocal(t *testing.T, path string) domain.Catalog {
	t.Helper()
	c, err := ReadCatalog(path)
	if err != nil {
		t.Fatalf("ReadCatalog failed: %v", err)
	}
	return c
}

var meta = domain.EpisodeMeta{
	URL:         "https://res.cloudinary.com/demo/video/upload/super-happy-dev/shd-2025-06-10-abc.wav",
	Titulo:      "Café, capital y código",
	Descripcion: "Los anfitriones analizan las rondas de inversión de la semana.",
}

func TestNextEpisodeNumber(t *testing.T) {
	tests := []struct {
		name     string
		episodes []int
		want     int
	}{
		{"empty", nil, 1},
		{"gap uses max not count", []int{1, 2, 5}, 6},
		{"unordered", []int{7, 3}, 8},
		{"single", []int{3}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c domain.Catalog
			for _, n := range tt.episodes {
				c = append(c, domain.EpisodeRecord{Episodio: n})
			}
			if got := NextEpisodeNumber(c); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAppendUsesRemoteCatalog(t *testing.T) {
	server := catalogServer(t, http.StatusOK, `[{"episodio":1,"titulo":"a","descripcion":"","url":"u1"},{"episodio":2,"titulo":"b","descripcion":"","url":"u2"},{"episodio":5,"titulo":"c","descripcion":"","url":"u5"}]`)
	local := filepath.Join(t.TempDir(), "podcasts.json")
	writeLocal(t, local, `[{"episodio":99}]`)

	l, _ := newTestLedger(t, server.URL, local, time.Second)
	res, err := l.Append(context.Background(), meta)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if res.Source != SourceRemote {
		t.Errorf("Expected remote source, got %s", res.Source)
	}
	if res.Record.Episodio != 6 {
		t.Errorf("Expected episodio 6, got %d", res.Record.Episodio)
	}

	got := readLocal(t, local)
	if len(got) != 4 {
		t.Fatalf("Expected 4 records (remote + new, local ignored), got %d", len(got))
	}
	if got[3].URL != meta.URL || got[3].Titulo != meta.Titulo || got[3].Descripcion != meta.Descripcion {
		t.Errorf("Unexpected appended record: %+v", got[3])
	}
}

func TestAppendFallsBackToLocalOnRemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	local := filepath.Join(t.TempDir(), "podcasts.json")
	writeLocal(t, local, `[{"episodio":3,"titulo":"Episodio tres","descripcion":"d","url":"https://cdn/3.wav"}]`)

	l, hook := newTestLedger(t, server.URL, local, 50*time.Millisecond)
	res, err := l.Append(context.Background(), meta)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if res.Source != SourceLocal {
		t.Errorf("Expected local source, got %s", res.Source)
	}
	if res.RemoteErr == nil {
		t.Error("Expected the remote failure to be reported")
	}

	got := readLocal(t, local)
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].Episodio != 3 || got[1].Episodio != 4 {
		t.Errorf("Expected episodes [3 4], got [%d %d]", got[0].Episodio, got[1].Episodio)
	}

	// The fallback must be distinguishable from an empty catalog in the logs.
	sawSource := false
	for _, e := range hook.AllEntries() {
		if e.Data["source"] == SourceLocal {
			sawSource = true
		}
	}
	if !sawSource {
		t.Error("Expected the catalog source to be logged")
	}
}

func TestAppendFallbackCases(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		local      string
		wantSource CatalogSource
		wantNumber int
	}{
		{"server error no local", http.StatusInternalServerError, "oops", "", SourceEmpty, 1},
		{"malformed json", http.StatusOK, `{"episodio":1}`, `[{"episodio":2}]`, SourceLocal, 3},
		{"truncated json", http.StatusOK, `[{"episodio":1}`, `[{"episodio":8}]`, SourceLocal, 9},
		{"record without number", http.StatusOK, `[{"titulo":"x"}]`, `[{"episodio":2}]`, SourceLocal, 3},
		{"not found", http.StatusNotFound, `[]`, `[{"episodio":2}]`, SourceLocal, 3},
		{"remote empty array", http.StatusOK, `[]`, `[{"episodio":2}]`, SourceRemote, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := catalogServer(t, tt.status, tt.body)
			local := filepath.Join(t.TempDir(), "podcasts.json")
			if tt.local != "" {
				writeLocal(t, local, tt.local)
			}

			l, _ := newTestLedger(t, server.URL, local, time.Second)
			res, err := l.Append(context.Background(), meta)
			if err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if res.Source != tt.wantSource {
				t.Errorf("Expected source %s, got %s", tt.wantSource, res.Source)
			}
			if res.Record.Episodio != tt.wantNumber {
				t.Errorf("Expected episodio %d, got %d", tt.wantNumber, res.Record.Episodio)
			}
		})
	}
}

func TestAppendWithoutRemoteCreatesNestedDirs(t *testing.T) {
	local := filepath.Join(t.TempDir(), "repo", "data", "podcasts.json")

	l, _ := newTestLedger(t, "", local, 0)
	res, err := l.Append(context.Background(), meta)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if res.Source != SourceEmpty || res.Record.Episodio != 1 {
		t.Errorf("Expected first episode from empty catalog, got %+v", res)
	}

	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	if !strings.HasPrefix(string(data), "[\n  {\n    \"episodio\": 1,") {
		t.Errorf("Expected 2-space indented output, got:\n%s", data)
	}
}

// Re-running with the same metadata appends again rather than merging.
// This documents current behavior; it is not deduplicated.
func TestAppendIsNotIdempotentAgainstLocal(t *testing.T) {
	local := filepath.Join(t.TempDir(), "podcasts.json")
	writeLocal(t, local, `[{"episodio":3}]`)
	l, _ := newTestLedger(t, "", local, 0)

	first, err := l.Append(context.Background(), meta)
	if err != nil {
		t.Fatalf("first Append failed: %v", err)
	}
	second, err := l.Append(context.Background(), meta)
	if err != nil {
		t.Fatalf("second Append failed: %v", err)
	}
	if first.Record.Episodio != 4 || second.Record.Episodio != 5 {
		t.Errorf("Expected episodes 4 then 5, got %d then %d", first.Record.Episodio, second.Record.Episodio)
	}
	got := readLocal(t, local)
	if len(got) != 3 || got[1].URL != got[2].URL {
		t.Errorf("Expected two distinct records for the same episode, got %+v", got)
	}
}

// A remote catalog that has not caught up overwrites the local one: the
// record from the first run is lost and the number is reused.
func TestAppendAgainstStaleRemoteReusesNumber(t *testing.T) {
	server := catalogServer(t, http.StatusOK, `[{"episodio":3}]`)
	local := filepath.Join(t.TempDir(), "podcasts.json")
	l, _ := newTestLedger(t, server.URL, local, time.Second)

	first, err := l.Append(context.Background(), domain.EpisodeMeta{URL: "https://cdn/a.wav", Titulo: "A"})
	if err != nil {
		t.Fatalf("first Append failed: %v", err)
	}
	second, err := l.Append(context.Background(), domain.EpisodeMeta{URL: "https://cdn/b.wav", Titulo: "B"})
	if err != nil {
		t.Fatalf("second Append failed: %v", err)
	}
	if first.Record.Episodio != 4 || second.Record.Episodio != 4 {
		t.Errorf("Expected episodio 4 twice, got %d and %d", first.Record.Episodio, second.Record.Episodio)
	}
	got := readLocal(t, local)
	if len(got) != 2 || got[1].URL != "https://cdn/b.wav" {
		t.Errorf("Expected remote plus the latest record only, got %+v", got)
	}
}

func TestAppendCorruptLocalIsFatal(t *testing.T) {
	server := catalogServer(t, http.StatusBadGateway, "")
	local := filepath.Join(t.TempDir(), "podcasts.json")
	writeLocal(t, local, "{not json")

	l, _ := newTestLedger(t, server.URL, local, time.Second)
	_, err := l.Append(context.Background(), meta)
	if !errors.Is(err, ErrCorruptLocal) {
		t.Fatalf("Expected ErrCorruptLocal, got %v", err)
	}
	data, _ := os.ReadFile(local)
	if string(data) != "{not json" {
		t.Error("Expected corrupt local file to be left untouched")
	}
}

func TestAppendPreservesUnknownKeys(t *testing.T) {
	server := catalogServer(t, http.StatusOK, `[{"episodio":1,"titulo":"a","descripcion":"b","url":"c","duracion":"12:30","tags":["ia"]}]`)
	local := filepath.Join(t.TempDir(), "podcasts.json")

	l, _ := newTestLedger(t, server.URL, local, time.Second)
	if _, err := l.Append(context.Background(), meta); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var raw []map[string]json.RawMessage
	data, _ := os.ReadFile(local)
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode written catalog: %v", err)
	}
	if string(raw[0]["duracion"]) != `"12:30"` || string(raw[0]["tags"]) != `["ia"]` {
		t.Errorf("Expected unknown keys preserved, got %v", raw[0])
	}
	if _, ok := raw[1]["duracion"]; ok {
		t.Error("Expected new record to carry only the known keys")
	}
}

func TestAppendFailsFastWhenLocked(t *testing.T) {
	local := filepath.Join(t.TempDir(), "podcasts.json")
	held := flock.New(local + ".lock")
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take lock: %v", err)
	}
	defer held.Unlock()

	l, _ := newTestLedger(t, "", local, 0)
	if _, err := l.Append(context.Background(), meta); !errors.Is(err, ErrCatalogLocked) {
		t.Fatalf("Expected ErrCatalogLocked, got %v", err)
	}
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Error("Expected no catalog to be written while locked")
	}
}

func TestLoadReportsSource(t *testing.T) {
	server := catalogServer(t, http.StatusOK, `[{"episodio":1},{"episodio":2}]`)
	l, _ := newTestLedger(t, server.URL, filepath.Join(t.TempDir(), "podcasts.json"), time.Second)

	c, source, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if source != SourceRemote || len(c) != 2 {
		t.Errorf("Expected 2 remote records, got %d from %s", len(c), source)
	}
}

func TestMetaRoundTripAndErrors(t *testing.T) {
	dir := t.TempDir()
	path := MetaPath(dir, "abc")
	if filepath.Base(path) != "episode-meta-abc.json" {
		t.Errorf("Unexpected meta path %s", path)
	}
	if err := WriteMeta(path, meta); err != nil {
		t.Fatalf("WriteMeta failed: %v", err)
	}
	got, err := ReadMeta(path)
	if err != nil {
		t.Fatalf("ReadMeta failed: %v", err)
	}
	if got != meta {
		t.Errorf("Expected %+v, got %+v", meta, got)
	}

	if _, err := ReadMeta(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrMissingMeta) {
		t.Errorf("Expected ErrMissingMeta, got %v", err)
	}
	if _, err := ReadMeta(""); !errors.Is(err, ErrMissingMeta) {
		t.Errorf("Expected ErrMissingMeta for empty path, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	writeLocal(t, bad, `{"titulo":"sin url"}`)
	if _, err := ReadMeta(bad); !errors.Is(err, ErrInvalidMeta) {
		t.Errorf("Expected ErrInvalidMeta, got %v", err)
	}
}

func TestNilLoggerIsAccepted(t *testing.T) {
	var log logrus.FieldLogger
	l := New(nil, Config{LocalPath: filepath.Join(t.TempDir(), "p.json")}, log)
	if _, err := l.Append(context.Background(), meta); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}
