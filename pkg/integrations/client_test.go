package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matzehuels/podkit/pkg/cache"
	perrors "github.com/matzehuels/podkit/pkg/errors"
)

func newTestClient(t *testing.T, srv *httptest.Server, headers map[string]string) (*Client, cache.Cache) {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(c, "test:", time.Hour, headers)
	if srv != nil {
		client.http = srv.Client()
	}
	return client, c
}

func TestNewClient(t *testing.T) {
	client, c := newTestClient(t, nil, map[string]string{"User-Agent": "podkit"})

	if client.http == nil {
		t.Error("http client is nil")
	}
	if client.cache != c {
		t.Error("cache not set correctly")
	}
	if client.headers["User-Agent"] != "podkit" {
		t.Error("headers not set correctly")
	}
}

func TestNewClientNilCache(t *testing.T) {
	client := NewClient(nil, "test:", time.Hour, nil)
	if _, ok := client.cache.(cache.NullCache); !ok {
		t.Errorf("nil cache should become NullCache, got %T", client.cache)
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		gotUA = r.Header.Get("User-Agent")
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, map[string]string{"User-Agent": "podkit"})

	var resp response
	if err := client.Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("message = %q, want %q", resp.Message, "hello")
	}
	if gotUA != "podkit" {
		t.Errorf("User-Agent = %q, want podkit", gotUA)
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Alamofire/5.9.0/5.9.1\n"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)

	text, err := client.GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if text != "Alamofire/5.9.0/5.9.1\n" {
		t.Errorf("GetText() = %q", text)
	}
}

func TestClientGetStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		notFound  bool
		retryable bool
	}{
		{"404", http.StatusNotFound, true, false},
		{"500", http.StatusInternalServerError, false, true},
		{"429", http.StatusTooManyRequests, false, true},
		{"403", http.StatusForbidden, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client, _ := newTestClient(t, server, nil)
			_, err := client.GetBytes(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrNotFound); got != tt.notFound {
				t.Errorf("errors.Is(ErrNotFound) = %v, want %v", got, tt.notFound)
			}
			if got := cache.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClientCached(t *testing.T) {
	client, _ := newTestClient(t, nil, nil)
	ctx := context.Background()

	fetches := 0
	fetch := func(v *[]string) func() error {
		return func() error {
			fetches++
			*v = []string{"1.0", "1.1"}
			return nil
		}
	}

	var first []string
	if err := client.Cached(ctx, "versions", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	var second []string
	if err := client.Cached(ctx, "versions", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}

	if fetches != 1 {
		t.Errorf("fetches = %d, want 1 (second call should hit the cache)", fetches)
	}
	if len(second) != 2 || second[1] != "1.1" {
		t.Errorf("cached value = %v", second)
	}
}

func TestClientCachedRefresh(t *testing.T) {
	client, _ := newTestClient(t, nil, nil)
	ctx := context.Background()

	fetches := 0
	var value string
	fetch := func() error {
		fetches++
		value = "fetched"
		return nil
	}

	_ = client.Cached(ctx, "k", false, &value, fetch)
	if err := client.Cached(ctx, "k", true, &value, fetch); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetches != 2 {
		t.Errorf("fetches = %d, want 2", fetches)
	}
}

func TestClientCachedFetchError(t *testing.T) {
	client, c := newTestClient(t, nil, nil)
	ctx := context.Background()

	var value string
	err := client.Cached(ctx, "missing", false, &value, func() error { return ErrNotFound })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, hit, _ := c.Get(ctx, "test:missing"); hit {
		t.Error("failed fetch should not be cached")
	}
}

func TestLookupFailed(t *testing.T) {
	if LookupFailed("A", "", nil) != nil {
		t.Error("LookupFailed(nil) should be nil")
	}

	err := LookupFailed("FBAudienceNetwork", "6.15.0", ErrNotFound)
	if !perrors.Is(err, perrors.ErrCodeMetadataLookup) {
		t.Errorf("expected METADATA_LOOKUP, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("cause should stay reachable")
	}
	if got := perrors.UserMessage(err); got != "look up FBAudienceNetwork 6.15.0: resource not found" {
		t.Errorf("UserMessage = %q", got)
	}
}
