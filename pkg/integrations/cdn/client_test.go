package cdn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/podkit/pkg/cache"
	perrors "github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/integrations"
)

const alamofireSpec = `{"name":"Alamofire","version":"5.9.1","source":{"git":"https://github.com/Alamofire/Alamofire.git","tag":"5.9.1"},"frameworks":"CFNetwork"}`

func newServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/all_pods_versions_d_a_2.txt", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Write([]byte("Alamofire/5.8.0/5.9.1/6.0.0-beta.1\nAlamofireImage/4.3.0\n"))
	})
	mux.HandleFunc("/Specs/d/a/2/Alamofire/5.9.1/Alamofire.podspec.json", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Write([]byte(alamofireSpec))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestShardPrefix(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"Alamofire", []string{"d", "a", "2"}},
		{"FBAudienceNetwork", []string{"2", "1", "5"}},
		{"Google-Mobile-Ads-SDK", []string{"5", "9", "a"}},
	}
	for _, tt := range tests {
		if got := ShardPrefix(tt.name); !slices.Equal(got, tt.want) {
			t.Errorf("ShardPrefix(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClient_Versions(t *testing.T) {
	var hits int
	srv := newServer(t, &hits)
	c := NewClient(cache.NewNullCache(), time.Hour).WithBaseURL(srv.URL)

	got, err := c.Versions(context.Background(), "Alamofire")
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if want := []string{"5.8.0", "5.9.1", "6.0.0-beta.1"}; !slices.Equal(got, want) {
		t.Errorf("Versions = %v, want %v", got, want)
	}
}

func TestParseIndex(t *testing.T) {
	index := parseIndex("Alamofire/5.8.0/5.9.1\n\nAlamofireImage/4.3.0/\n  Bolts/1.9.1  \n")
	if got := index["Alamofire"]; !slices.Equal(got, []string{"5.8.0", "5.9.1"}) {
		t.Errorf("Alamofire = %v", got)
	}
	if got := index["AlamofireImage"]; !slices.Equal(got, []string{"4.3.0"}) {
		t.Errorf("AlamofireImage = %v", got)
	}
	if got := index["Bolts"]; !slices.Equal(got, []string{"1.9.1"}) {
		t.Errorf("Bolts = %v", got)
	}
	if len(index) != 3 {
		t.Errorf("len = %d, want 3", len(index))
	}
}

func TestClient_Lookup_Latest(t *testing.T) {
	var hits int
	srv := newServer(t, &hits)
	c := NewClient(cache.NewNullCache(), time.Hour).WithBaseURL(srv.URL + "/")

	spec, err := c.Lookup(context.Background(), "Alamofire", "")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if spec.Name != "Alamofire" || spec.Version != "5.9.1" {
		t.Errorf("spec = %s %s, want Alamofire 5.9.1", spec.Name, spec.Version)
	}
}

func TestClient_Lookup_Subspec(t *testing.T) {
	var hits int
	srv := newServer(t, &hits)
	c := NewClient(cache.NewNullCache(), time.Hour).WithBaseURL(srv.URL)

	spec, err := c.Lookup(context.Background(), "Alamofire/Core", "5.9.1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if spec.Name != "Alamofire" {
		t.Errorf("Name = %q, want root pod", spec.Name)
	}
}

func TestClient_Lookup_Cached(t *testing.T) {
	var hits int
	srv := newServer(t, &hits)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(fc, time.Hour).WithBaseURL(srv.URL)
	ctx := context.Background()

	for range 3 {
		if _, err := c.Lookup(ctx, "Alamofire", ""); err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}
	if hits != 2 {
		t.Errorf("server hits = %d, want 2 (index + spec once)", hits)
	}

	c.WithRefresh(true)
	if _, err := c.Lookup(ctx, "Alamofire", ""); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if hits != 4 {
		t.Errorf("server hits after refresh = %d, want 4", hits)
	}
}

func TestClient_Lookup_NotFound(t *testing.T) {
	var hits int
	srv := newServer(t, &hits)
	c := NewClient(cache.NewNullCache(), time.Hour).WithBaseURL(srv.URL)

	tests := []struct {
		name, version string
	}{
		{"Alamofire", "9.9.9"},
		{"FBAudienceNetwork", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Lookup(context.Background(), tt.name, tt.version)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, integrations.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if !perrors.Is(err, perrors.ErrCodeMetadataLookup) {
				t.Errorf("expected METADATA_LOOKUP, got %v", err)
			}
		})
	}
}
