package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/podkit/pkg/config"
	"github.com/matzehuels/podkit/pkg/depgraph"
	"github.com/matzehuels/podkit/pkg/deps"
	"github.com/matzehuels/podkit/pkg/descriptor"
	"github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/fetch"
	"github.com/matzehuels/podkit/pkg/podfile"
	"github.com/matzehuels/podkit/pkg/rules"
)

// installOpts holds the command-line flags for the install command. Flags
// that were set explicitly override podkit.toml.
type installOpts struct {
	configPath  string
	podfile     string
	installDir  string
	source      string
	prefixes    []string
	format      string
	graph       string
	refresh     bool
	yes         bool
	updateRepos bool
	noCache     bool
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var opts installOpts

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the pods declared in a Podfile and write the build descriptor",
		Long: `Install every pod declared in the Podfile, together with its dependencies
and subspecs, into the install directory. Linkable frameworks found in the
installed pods are written to config.xml (or config.json) in the install
directory.

Pods that fail to resolve are reported and skipped; the remaining pods are
still installed.

Examples:
  podkit install
  podkit install --podfile ios/Podfile --install-dir Source/ThirdParty/IOS
  podkit install --prefix AppLovinMediation --graph pods.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			return c.runInstall(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default: podkit.toml next to the Podfile)")
	f.StringVar(&opts.podfile, "podfile", "", "path to the Podfile (default: Podfile)")
	f.StringVar(&opts.installDir, "install-dir", "", "install root for pods and the descriptor (default: Pods)")
	f.StringVar(&opts.source, "source", "", "metadata source: cdn or pod (default: cdn)")
	f.StringSliceVar(&opts.prefixes, "prefix", nil, "only install declared pods with this name prefix (repeatable)")
	f.StringVar(&opts.format, "format", "", "descriptor format: xml or json (default: xml)")
	f.StringVar(&opts.graph, "graph", "", "write the dependency graph to this .dot or .svg file")
	f.BoolVar(&opts.refresh, "refresh", false, "bypass cached podspec metadata")
	f.BoolVarP(&opts.yes, "yes", "y", false, "do not wait for manual installs to be confirmed")
	f.BoolVar(&opts.updateRepos, "update-repos", false, "run 'pod repo update' first (--source pod)")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the metadata cache")

	return cmd
}

// config loads podkit.toml and applies explicitly set flags on top.
func (o *installOpts) config(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()

	path := o.configPath
	if path == "" {
		manifest := o.podfile
		if manifest == "" {
			manifest = config.Default().Podfile
		}
		path = filepath.Join(filepath.Dir(manifest), config.FileName)
	} else if _, err := os.Stat(path); err != nil {
		return config.Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if flags.Changed("podfile") {
		cfg.Podfile = o.podfile
	}
	if flags.Changed("install-dir") {
		cfg.InstallDir = o.installDir
	}
	if flags.Changed("source") {
		cfg.Source = o.source
	}
	if flags.Changed("prefix") {
		cfg.Prefixes = o.prefixes
	}
	if flags.Changed("format") {
		cfg.Format = o.format
	}
	return cfg, cfg.Validate()
}

func (c *CLI) runInstall(ctx context.Context, w io.Writer, cfg config.Config, opts installOpts) error {
	logger := loggerFromContext(ctx)

	decls, err := podfile.ParseFile(cfg.Podfile, cfg.PodfileOptions())
	if err != nil {
		return err
	}
	if len(decls) == 0 {
		printWarning(w, "No pods declared in %s", cfg.Podfile)
	}
	format, err := descriptor.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	store, err := newCache(opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	src, pod := c.newSpecSource(cfg, store, opts.refresh)
	if opts.updateRepos {
		var u repoUpdater
		if pod != nil {
			u = pod
		}
		if err := updateRepos(ctx, w, u); err != nil {
			return err
		}
	}

	ropts := cfg.ResolveOptions()
	ropts.Logger = logger
	resolver := deps.NewResolver(
		src,
		fetch.New(cfg.InstallDir, logger),
		rules.XCFramework{Root: cfg.InstallDir},
		ropts,
	)

	prog := newProgress(logger)
	st, report := resolver.Resolve(ctx, decls)
	prog.done("Resolved %d pod(s)", len(st.Seen))

	for _, r := range report.Results {
		if r.Err != nil {
			printError(w, "Failed to install '%s'", r.Name)
			continue
		}
		printSuccess(w, "Installed '%s'", r.Name)
	}
	printInfo(w, "Installed %d of %d pod(s)", report.Installed, report.Declared)
	if report.Err != nil {
		return report.Err
	}

	if swift := st.SwiftPackages(); len(swift) > 0 {
		printWarning(w, "Pods using Swift, enable Swift support in the plugin build:")
		for _, name := range swift {
			printDetail(w, "%s", name)
		}
	}

	if manual := st.ManualPackages(); len(manual) > 0 {
		if opts.yes {
			printWarning(w, "Manual installation required in %s:", cfg.InstallDir)
			for _, p := range manual {
				fmt.Fprintln(w, "  "+manualLine(p))
			}
		} else if err := c.confirmManual(manual, cfg.InstallDir); err != nil {
			return err
		}
		for _, name := range resolver.CollectManual(st) {
			printWarning(w, "No framework found for '%s'", name)
		}
	}

	path, err := descriptor.FromState(st).Write(cfg.InstallDir, format)
	if err != nil {
		return err
	}
	printSuccess(w, "Wrote build descriptor")
	printFile(w, path)

	if opts.graph != "" {
		if err := depgraph.WriteFile(opts.graph, depgraph.FromRun(st, report)); err != nil {
			return err
		}
		printSuccess(w, "Wrote dependency graph")
		printFile(w, opts.graph)
	}
	return nil
}

// repoUpdater is implemented by metadata sources backed by local spec repos.
type repoUpdater interface {
	UpdateRepos(ctx context.Context) error
}

func updateRepos(ctx context.Context, w io.Writer, u repoUpdater) error {
	if u == nil {
		printWarning(w, "--update-repos only applies to --source pod")
		return nil
	}
	s := newSpinner(ctx, w, "Updating CocoaPods repos...")
	s.Start()
	err := u.UpdateRepos(ctx)
	s.Stop()
	if err != nil {
		return fmt.Errorf("update repos: %w", err)
	}
	printSuccess(w, "Updated CocoaPods repos")
	return nil
}
