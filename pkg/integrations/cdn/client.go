package cdn

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/podkit/pkg/buildinfo"
	"github.com/matzehuels/podkit/pkg/cache"
	"github.com/matzehuels/podkit/pkg/integrations"
	"github.com/matzehuels/podkit/pkg/podspec"
)

// DefaultBaseURL is the public CocoaPods CDN.
const DefaultBaseURL = "https://cdn.cocoapods.org"

// Client resolves pod names against the CocoaPods CDN.
type Client struct {
	*integrations.Client
	baseURL string
	refresh bool
}

// NewClient creates a CDN client backed by c. Pass cache.NewNullCache() to
// disable caching.
func NewClient(c cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(c, "cdn:", ttl, map[string]string{"User-Agent": buildinfo.UserAgent()}),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at a mirror (or a test server).
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// WithRefresh makes every lookup bypass the cache.
func (c *Client) WithRefresh(refresh bool) *Client {
	c.refresh = refresh
	return c
}

// ShardPrefix returns the three shard directories for a root pod name.
func ShardPrefix(name string) []string {
	sum := md5.Sum([]byte(name))
	h := hex.EncodeToString(sum[:])
	return []string{h[0:1], h[1:2], h[2:3]}
}

// Versions returns every published version of a root pod, in index order.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	shard := ShardPrefix(name)

	var index map[string][]string
	err := c.Cached(ctx, "index:"+strings.Join(shard, "/"), c.refresh, &index, func() error {
		text, err := c.GetText(ctx, fmt.Sprintf("%s/all_pods_versions_%s.txt", c.baseURL, strings.Join(shard, "_")))
		if err != nil {
			return err
		}
		index = parseIndex(text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	versions, ok := index[name]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("%w: pod %s", integrations.ErrNotFound, name)
	}
	return versions, nil
}

// Lookup fetches and parses the podspec for name at version. An empty version
// selects the latest stable release. Subspec names resolve to their root pod.
func (c *Client) Lookup(ctx context.Context, name, version string) (*podspec.Spec, error) {
	root, _ := podspec.SplitName(name)

	spec, err := c.lookup(ctx, root, version)
	if err != nil {
		return nil, integrations.LookupFailed(root, version, err)
	}
	return spec, nil
}

func (c *Client) lookup(ctx context.Context, name, version string) (*podspec.Spec, error) {
	if version == "" {
		versions, err := c.Versions(ctx, name)
		if err != nil {
			return nil, err
		}
		version = Latest(versions)
	}

	shard := strings.Join(ShardPrefix(name), "/")
	var data []byte
	err := c.Cached(ctx, "spec:"+name+"@"+version, c.refresh, &data, func() error {
		var err error
		data, err = c.GetBytes(ctx, fmt.Sprintf("%s/Specs/%s/%s/%s/%s.podspec.json", c.baseURL, shard, name, version, name))
		return err
	})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s version %s", err, name, version)
		}
		return nil, err
	}
	return podspec.Parse(data)
}

func parseIndex(text string) map[string][]string {
	index := make(map[string][]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "/")
		index[parts[0]] = slices.DeleteFunc(parts[1:], func(v string) bool { return v == "" })
	}
	return index
}
