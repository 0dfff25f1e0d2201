// Package podcli looks up podspecs through the local CocoaPods installation.
//
// It shells out to `pod spec cat`, which reads the spec repos cloned under
// ~/.cocoapods/repos. This is slower than the CDN but works with private spec
// repos the CDN cannot see.
package podcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/podkit/pkg/cache"
	"github.com/matzehuels/podkit/pkg/integrations"
	"github.com/matzehuels/podkit/pkg/podspec"
)

// Runner executes the pod command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs the `pod` binary found on PATH (or at Path).
type ExecRunner struct {
	Path string
}

// Run implements Runner. Stderr is attached to the returned error.
func (r ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	bin := r.Path
	if bin == "" {
		bin = "pod"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return nil, fmt.Errorf("pod %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return stdout.Bytes(), nil
}

// Client resolves pod names with `pod spec cat`.
type Client struct {
	runner  Runner
	cache   cache.Cache
	ttl     time.Duration
	refresh bool
}

// NewClient creates a client. A nil runner uses [ExecRunner]; a nil cache
// disables caching.
func NewClient(r Runner, c cache.Cache, ttl time.Duration) *Client {
	if r == nil {
		r = ExecRunner{}
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{runner: r, cache: c, ttl: ttl}
}

// WithRefresh makes every lookup bypass the cache.
func (c *Client) WithRefresh(refresh bool) *Client {
	c.refresh = refresh
	return c
}

// UpdateRepos runs `pod repo update` so subsequent lookups see newly
// published versions.
func (c *Client) UpdateRepos(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, "--silent", "repo", "update"); err != nil {
		return cache.Retryable(fmt.Errorf("%w: %v", integrations.ErrNetwork, err))
	}
	return nil
}

var notFoundPattern = regexp.MustCompile(`(?i)unable to find a pod|no pod found|unable to find a specification`)

// Lookup returns the podspec for name at version (latest when empty).
// Subspec names resolve to their root pod.
func (c *Client) Lookup(ctx context.Context, name, version string) (*podspec.Spec, error) {
	root, _ := podspec.SplitName(name)
	key := cache.Key("pod", "spec", root, version)

	if !c.refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			if spec, err := podspec.Parse(data); err == nil {
				return spec, nil
			}
		}
	}

	args := []string{"spec", "cat", "--regex", "^" + regexp.QuoteMeta(root) + "$"}
	if version != "" {
		args = append(args, "--version="+version)
	}
	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		if notFoundPattern.MatchString(err.Error()) {
			err = fmt.Errorf("%w: %v", integrations.ErrNotFound, err)
		}
		return nil, integrations.LookupFailed(root, version, err)
	}

	data := jsonBody(out)
	spec, err := podspec.Parse(data)
	if err != nil {
		return nil, integrations.LookupFailed(root, version, err)
	}
	_ = c.cache.Set(ctx, key, data, c.ttl)
	return spec, nil
}

// jsonBody drops any banner lines CocoaPods prints before the JSON document.
func jsonBody(out []byte) []byte {
	if i := bytes.IndexByte(out, '{'); i > 0 {
		return out[i:]
	}
	return out
}
