// Package cli implements the podkit command-line interface.
//
// # Commands
//
//   - install: resolve the Podfile into the install root and write the build descriptor
//   - spec: print the podspec a pod resolves to
//   - cache: manage the podspec metadata cache
//   - completion: generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context and handed to the resolver and fetcher.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/podkit/pkg/cache"
	"github.com/matzehuels/podkit/pkg/config"
	"github.com/matzehuels/podkit/pkg/deps"
	"github.com/matzehuels/podkit/pkg/integrations/cdn"
	"github.com/matzehuels/podkit/pkg/integrations/podcli"
)

const appName = "podkit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// in and out back the operator prompt. They default to the process
	// terminal.
	in  io.Reader
	out io.Writer

	// runner executes the CocoaPods CLI for --source pod.
	runner podcli.Runner
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		in:     os.Stdin,
		out:    os.Stdout,
		runner: podcli.ExecRunner{},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cache.DefaultDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// newSpecSource builds the metadata client for cfg.Source. The CocoaPods CLI
// client is also returned on its own so callers can update its repos.
func (c *CLI) newSpecSource(cfg config.Config, store cache.Cache, refresh bool) (deps.SpecSource, *podcli.Client) {
	if cfg.Source == config.SourcePod {
		client := podcli.NewClient(c.runner, store, cfg.CacheTTL.Duration).WithRefresh(refresh)
		return client, client
	}
	return cdn.NewClient(store, cfg.CacheTTL.Duration).WithBaseURL(cfg.CDNURL).WithRefresh(refresh), nil
}
