// Package fetch materializes pod payloads under the install root.
//
// Each root pod gets one directory, Root/<name>. A directory that already
// exists is never touched again, so re-running an install only downloads pods
// that are new to the Podfile. Delete the directory (or the whole root) to
// force a fresh download.
package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/observability"
	"github.com/matzehuels/podkit/pkg/podspec"
)

// Outcome reports what Fetch did for a pod.
type Outcome int

const (
	Skipped       Outcome = iota // Nothing to fetch, or already present
	Installed                    // Payload downloaded and unpacked
	PendingManual                // Placeholder created; operator must supply the payload
)

func (o Outcome) String() string {
	switch o {
	case Installed:
		return "installed"
	case PendingManual:
		return "pending-manual"
	default:
		return "skipped"
	}
}

// Fetcher downloads archives and clones repositories into Root.
type Fetcher struct {
	Root   string
	HTTP   *http.Client
	Git    GitRunner
	Logger *log.Logger
}

// New returns a Fetcher rooted at root using ExecGit and the default HTTP client.
func New(root string, logger *log.Logger) *Fetcher {
	return &Fetcher{Root: root, Git: ExecGit{}, Logger: logger}
}

// Dir returns the package directory for a root pod name.
func (f *Fetcher) Dir(name string) string {
	return filepath.Join(f.Root, name)
}

// Fetch materializes the payload of a root spec.
//
//   - no source URL, or Root/<name> exists: Skipped
//   - HTTP archive: download, unpack into Root/<name>, Installed
//   - git without a vendored framework path: empty Root/<name>, PendingManual
//   - git with a vendored path: shallow clone into Root/<name>, Installed
func (f *Fetcher) Fetch(ctx context.Context, spec *podspec.Spec) (Outcome, error) {
	start := time.Now()
	outcome, err := f.fetch(ctx, spec)
	if err == nil {
		observability.Resolve().OnFetch(ctx, spec.Name, outcome.String(), time.Since(start))
	}
	return outcome, err
}

func (f *Fetcher) fetch(ctx context.Context, spec *podspec.Spec) (Outcome, error) {
	if spec.Source.URL == "" {
		return Skipped, nil
	}
	if spec.IsSubspec() {
		return Skipped, errors.New(errors.ErrCodeInvalidPackage, "fetch %s: subspecs share the payload of their root pod", spec.Name)
	}
	if err := errors.ValidatePodName(spec.Name); err != nil {
		return Skipped, err
	}
	dir := f.Dir(spec.Name)
	if exists(dir) {
		f.logger().Debug("already present", "pod", spec.Name, "dir", dir)
		return Skipped, nil
	}
	if err := errors.ValidateURL(spec.Source.URL); err != nil {
		return Skipped, errors.Wrap(errors.ErrCodeFetch, err, "fetch %s", spec.Name)
	}

	switch spec.Source.Kind {
	case podspec.SourceArchive:
		return f.installArchive(ctx, spec.Name, spec.Source.URL, dir)
	case podspec.SourceVCS:
		if spec.VendoredPath == "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Skipped, errors.Wrap(errors.ErrCodeFetch, err, "create %s", dir)
			}
			f.logger().Warn("no vendored framework path, manual install required", "pod", spec.Name)
			return PendingManual, nil
		}
		if err := errors.ValidatePath(spec.VendoredPath); err != nil {
			return Skipped, errors.Wrap(errors.ErrCodeFetch, err, "vendored path of %s", spec.Name)
		}
		f.logger().Info("cloning", "pod", spec.Name, "url", spec.Source.URL, "ref", spec.Source.Ref)
		if err := f.git().Clone(ctx, spec.Source.URL, dir, spec.Source.Ref); err != nil {
			os.RemoveAll(dir)
			return Skipped, errors.Wrap(errors.ErrCodeFetch, err, "clone %s", spec.Name)
		}
		return Installed, nil
	default:
		return Skipped, nil
	}
}

// FetchURL downloads and unpacks an archive at a fixed URL into Root/<name>.
// It is used for pods whose podspec is too heavy to walk.
func (f *Fetcher) FetchURL(ctx context.Context, name, url string) (Outcome, error) {
	start := time.Now()
	if err := errors.ValidatePodName(name); err != nil {
		return Skipped, err
	}
	dir := f.Dir(name)
	if exists(dir) {
		return Skipped, nil
	}
	outcome, err := f.installArchive(ctx, name, url, dir)
	if err == nil {
		observability.Resolve().OnFetch(ctx, name, outcome.String(), time.Since(start))
	}
	return outcome, err
}

func (f *Fetcher) installArchive(ctx context.Context, name, url, dir string) (Outcome, error) {
	archive := archiveName(url)
	if _, ok := DetectFormat(archive); !ok {
		return Skipped, errors.Wrap(errors.ErrCodeFetch,
			errors.New(errors.ErrCodeUnsupportedArchive, "unsupported archive format: %s", archive),
			"install %s", name)
	}
	if err := os.MkdirAll(f.Root, 0o755); err != nil {
		return Skipped, errors.Wrap(errors.ErrCodeFetch, err, "create %s", f.Root)
	}

	f.logger().Info("downloading", "pod", name, "url", url)
	tmp, err := f.download(ctx, url, f.Root)
	if err != nil {
		return Skipped, errors.Wrap(errors.ErrCodeFetch, err, "download %s", name)
	}
	defer os.Remove(tmp)

	if err := Extract(tmp, archive, dir); err != nil {
		os.RemoveAll(dir)
		return Skipped, errors.Wrap(errors.ErrCodeFetch, err, "extract %s", archive)
	}
	return Installed, nil
}

func (f *Fetcher) git() GitRunner {
	if f.Git != nil {
		return f.Git
	}
	return ExecGit{}
}

func (f *Fetcher) logger() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return log.New(io.Discard)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
