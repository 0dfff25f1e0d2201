package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	perrors "github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/podspec"
)

type fakeGit struct {
	calls [][]string
	err   error
}

func (g *fakeGit) Clone(_ context.Context, url, dest, ref string) error {
	g.calls = append(g.calls, []string{url, dest, ref})
	if g.err != nil {
		return g.err
	}
	return os.MkdirAll(filepath.Join(dest, "Frameworks"), 0o755)
}

func archiveServer(t *testing.T, body []byte, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if strings.HasSuffix(r.URL.Path, "/missing.zip") {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func archiveSpec(name, url string) *podspec.Spec {
	return &podspec.Spec{Name: name, Source: podspec.Source{Kind: podspec.SourceArchive, URL: url}}
}

func leftovers(t *testing.T, root string) []string {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(root, ".download-*"))
	return matches
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{Skipped: "skipped", Installed: "installed", PendingManual: "pending-manual"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), want)
		}
	}
}

func TestFetch_Archive(t *testing.T) {
	var hits int
	srv := archiveServer(t, buildZip(t, frameworkEntries), &hits)
	root := t.TempDir()
	f := New(root, nil)
	ctx := context.Background()
	spec := archiveSpec("Foo", srv.URL+"/sdk/Foo-1.0.zip?token=x")

	outcome, err := f.Fetch(ctx, spec)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome != Installed {
		t.Errorf("outcome = %v, want installed", outcome)
	}
	if _, err := os.Stat(filepath.Join(f.Dir("Foo"), "Foo-1.0/Foo.xcframework/Info.plist")); err != nil {
		t.Errorf("archive not extracted into package dir: %v", err)
	}
	if left := leftovers(t, root); len(left) != 0 {
		t.Errorf("temp archive not removed: %v", left)
	}

	// Second run finds the directory and does no network work.
	outcome, err = f.Fetch(ctx, spec)
	if err != nil || outcome != Skipped {
		t.Errorf("second Fetch = (%v, %v), want skipped", outcome, err)
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}
}

func TestFetch_NoSource(t *testing.T) {
	f := New(t.TempDir(), nil)
	outcome, err := f.Fetch(context.Background(), &podspec.Spec{Name: "Umbrella"})
	if err != nil || outcome != Skipped {
		t.Errorf("Fetch = (%v, %v), want skipped", outcome, err)
	}
	if _, err := os.Stat(f.Dir("Umbrella")); !os.IsNotExist(err) {
		t.Error("no directory should be created for sourceless pods")
	}
}

func TestFetch_VCSWithoutVendoredPath(t *testing.T) {
	git := &fakeGit{}
	f := &Fetcher{Root: t.TempDir(), Git: git}
	spec := &podspec.Spec{Name: "Bar", Source: podspec.Source{Kind: podspec.SourceVCS, URL: "https://github.com/x/bar.git", Ref: "1.0"}}

	outcome, err := f.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome != PendingManual {
		t.Errorf("outcome = %v, want pending-manual", outcome)
	}
	entries, err := os.ReadDir(f.Dir("Bar"))
	if err != nil {
		t.Fatalf("package dir missing: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("package dir should be empty, has %d entries", len(entries))
	}
	if len(git.calls) != 0 {
		t.Errorf("git should not be called, got %v", git.calls)
	}
}

func TestFetch_VCSClone(t *testing.T) {
	git := &fakeGit{}
	f := &Fetcher{Root: t.TempDir(), Git: git}
	spec := &podspec.Spec{
		Name:         "Baz",
		Source:       podspec.Source{Kind: podspec.SourceVCS, URL: "https://github.com/x/baz.git", Ref: "v2.1.0"},
		VendoredPath: "Frameworks/Baz.xcframework",
	}

	outcome, err := f.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome != Installed {
		t.Errorf("outcome = %v, want installed", outcome)
	}
	want := []string{"https://github.com/x/baz.git", f.Dir("Baz"), "v2.1.0"}
	if len(git.calls) != 1 || !slices.Equal(git.calls[0], want) {
		t.Errorf("git calls = %v, want [%v]", git.calls, want)
	}
}

func TestFetch_VCSCloneFailure(t *testing.T) {
	git := &fakeGit{err: errors.New("repository not found")}
	f := &Fetcher{Root: t.TempDir(), Git: git}
	spec := &podspec.Spec{
		Name:         "Baz",
		Source:       podspec.Source{Kind: podspec.SourceVCS, URL: "https://github.com/x/baz.git"},
		VendoredPath: "Baz.xcframework",
	}

	_, err := f.Fetch(context.Background(), spec)
	if !perrors.Is(err, perrors.ErrCodeFetch) {
		t.Errorf("expected FETCH error, got %v", err)
	}
	if _, err := os.Stat(f.Dir("Baz")); !os.IsNotExist(err) {
		t.Error("failed clone should not leave a package dir behind")
	}
}

func TestFetch_Errors(t *testing.T) {
	var hits int
	srv := archiveServer(t, []byte("garbage"), &hits)

	tests := []struct {
		name     string
		url      string
		wantCode perrors.Code
	}{
		{"not found", srv.URL + "/missing.zip", perrors.ErrCodeFetch},
		{"unsupported", srv.URL + "/Foo.rar", perrors.ErrCodeUnsupportedArchive},
		{"corrupt", srv.URL + "/Foo.zip", perrors.ErrCodeFetch},
		{"bad scheme", "ftp://example.com/Foo.zip", perrors.ErrCodeFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			f := New(root, nil)
			_, err := f.Fetch(context.Background(), archiveSpec("Foo", tt.url))
			if !perrors.Is(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
			if !perrors.Is(err, perrors.ErrCodeFetch) {
				t.Errorf("expected FETCH wrapper, got %v", err)
			}
			if _, err := os.Stat(f.Dir("Foo")); !os.IsNotExist(err) {
				t.Error("failed install should not leave a package dir behind")
			}
			if left := leftovers(t, root); len(left) != 0 {
				t.Errorf("temp archive not removed: %v", left)
			}
		})
	}
}

func TestFetch_InvalidName(t *testing.T) {
	f := New(t.TempDir(), nil)
	_, err := f.Fetch(context.Background(), archiveSpec("../escape", "https://example.com/a.zip"))
	if !perrors.Is(err, perrors.ErrCodeInvalidPackage) {
		t.Errorf("expected INVALID_PACKAGE, got %v", err)
	}
}

func TestFetch_VCSRejectsEscapingVendoredPath(t *testing.T) {
	git := &fakeGit{}
	f := &Fetcher{Root: t.TempDir(), Git: git}
	spec := &podspec.Spec{
		Name:         "Baz",
		Source:       podspec.Source{Kind: podspec.SourceVCS, URL: "https://github.com/x/baz.git", Ref: "1.0"},
		VendoredPath: "../../Baz.xcframework",
	}

	_, err := f.Fetch(context.Background(), spec)
	if !perrors.Is(err, perrors.ErrCodeInvalidPath) || !perrors.Is(err, perrors.ErrCodeFetch) {
		t.Errorf("expected FETCH wrapping INVALID_PATH, got %v", err)
	}
	if len(git.calls) != 0 {
		t.Errorf("git should not be called, got %v", git.calls)
	}
}

func TestFetch_RejectsSubspec(t *testing.T) {
	f := New(t.TempDir(), nil)
	_, err := f.Fetch(context.Background(), archiveSpec("Firebase/Core", "https://example.com/a.zip"))
	if !perrors.Is(err, perrors.ErrCodeInvalidPackage) {
		t.Errorf("expected INVALID_PACKAGE, got %v", err)
	}
	if _, err := os.Stat(f.Dir("Firebase")); !os.IsNotExist(err) {
		t.Error("no directory should be created for a subspec")
	}
}

func TestFetchURL(t *testing.T) {
	var hits int
	srv := archiveServer(t, buildZip(t, frameworkEntries), &hits)
	f := New(t.TempDir(), nil)
	ctx := context.Background()

	outcome, err := f.FetchURL(ctx, "Google-Mobile-Ads-SDK", srv.URL+"/googlemobileadssdkios.zip")
	if err != nil || outcome != Installed {
		t.Fatalf("FetchURL = (%v, %v), want installed", outcome, err)
	}
	outcome, err = f.FetchURL(ctx, "Google-Mobile-Ads-SDK", srv.URL+"/googlemobileadssdkios.zip")
	if err != nil || outcome != Skipped {
		t.Errorf("second FetchURL = (%v, %v), want skipped", outcome, err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestCloneArgs(t *testing.T) {
	tests := []struct {
		ref  string
		want []string
	}{
		{"", []string{"clone", "--depth", "1", "--single-branch", "u", "d"}},
		{"v1.0", []string{"clone", "--depth", "1", "--single-branch", "--branch", "v1.0", "u", "d"}},
	}
	for _, tt := range tests {
		if got := cloneArgs("u", "d", tt.ref); !slices.Equal(got, tt.want) {
			t.Errorf("cloneArgs(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestArchiveName(t *testing.T) {
	tests := map[string]string{
		"https://dl.google.com/googleadmobadssdk/googlemobileadssdkios.zip": "googlemobileadssdkios.zip",
		"https://x/a/Foo-1.0.tar.gz?sig=abc":                                "Foo-1.0.tar.gz",
		"https://x/Foo.zip#frag":                                            "Foo.zip",
	}
	for in, want := range tests {
		if got := archiveName(in); got != want {
			t.Errorf("archiveName(%q) = %q, want %q", in, got, want)
		}
	}
}
