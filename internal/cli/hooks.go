package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/podkit/pkg/observability"
)

// debugHooks logs resolver, cache and HTTP events at debug level.
type debugHooks struct {
	logger *log.Logger
}

func installDebugHooks(l *log.Logger) {
	h := debugHooks{logger: l}
	observability.SetResolveHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h debugHooks) OnPackageStart(_ context.Context, name string) {
	h.logger.Debug("resolving", "pod", name)
}

func (h debugHooks) OnPackageComplete(_ context.Context, name string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("resolve failed", "pod", name, "took", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("resolved", "pod", name, "took", d.Round(time.Millisecond))
}

func (h debugHooks) OnFetch(_ context.Context, name, outcome string, d time.Duration) {
	h.logger.Debug("fetch", "pod", name, "outcome", outcome, "took", d.Round(time.Millisecond))
}

func (h debugHooks) OnCacheHit(_ context.Context, ns string) {
	h.logger.Debug("cache hit", "ns", ns)
}

func (h debugHooks) OnCacheMiss(_ context.Context, ns string) {
	h.logger.Debug("cache miss", "ns", ns)
}

func (h debugHooks) OnCacheSet(_ context.Context, ns string, size int) {
	h.logger.Debug("cache set", "ns", ns, "bytes", size)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "url", host+path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "url", host+path, "status", status, "took", d.Round(time.Millisecond))
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request failed", "method", method, "url", host+path, "err", err)
}
