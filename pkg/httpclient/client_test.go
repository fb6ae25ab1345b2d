package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchSetsBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(BrowserClient)
	resp, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Expected body 'ok', got %q", resp.Body)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Errorf("Expected browser User-Agent, got %q", gotUA)
	}
	if gotLang == "" {
		t.Error("Expected Accept-Language to be set")
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := NewClient(FeedClient).Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasSuffix(resp.URL, "/new") {
		t.Errorf("Expected final URL to end in /new, got %s", resp.URL)
	}
}

func TestFetchNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(FeedClient).Fetch(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", statusErr.StatusCode)
	}
	if statusErr.Retryable() {
		t.Error("Expected 404 not to be retryable")
	}
}

func TestGetWithRetryRecoversFromServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(FeedClient,
		WithRetry(3, 100*time.Millisecond, time.Second),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)

	resp, err := client.GetWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetWithRetry failed: %v", err)
	}
	if string(resp.Body) != "<rss/>" {
		t.Errorf("Expected body '<rss/>', got %q", resp.Body)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if len(sleeps) != 2 || sleeps[0] != 100*time.Millisecond || sleeps[1] != 200*time.Millisecond {
		t.Errorf("Expected backoff [100ms 200ms], got %v", sleeps)
	}
}

func TestGetWithRetryHonorsRetryAfter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "4")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(FeedClient,
		WithRetry(2, 100*time.Millisecond, 2*time.Second),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)

	if _, err := client.GetWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("GetWithRetry failed: %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Errorf("Expected one capped sleep of 2s, got %v", sleeps)
	}
}

func TestGetWithRetryDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(FeedClient,
		WithRetry(5, time.Millisecond, time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)

	if _, err := client.GetWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for 403")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestTimeoutIsEnforced(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(APIClient, WithTimeout(50*time.Millisecond))
	if _, err := client.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("Expected 7s, got %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("Expected 0 for garbage, got %v", got)
	}
}
