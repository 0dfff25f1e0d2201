package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/podkit/pkg/config"
	"github.com/matzehuels/podkit/pkg/podspec"
)

// specCommand creates the spec command, which prints the podspec a pod name
// resolves to without installing anything.
func (c *CLI) specCommand() *cobra.Command {
	var (
		version    string
		source     string
		configPath string
		refresh    bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "spec <name>",
		Short: "Print the podspec a pod resolves to",
		Example: `  podkit spec AppLovinMediationGoogleAdapter
  podkit spec Firebase/Analytics --version 10.22.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source") {
				cfg.Source = source
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := newCache(noCache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer store.Close()

			src, _ := c.newSpecSource(cfg, store, refresh)
			spec, err := src.Lookup(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			return printSpec(cmd.OutOrStdout(), spec)
		},
	}

	f := cmd.Flags()
	f.StringVar(&version, "version", "", "exact version (default: latest release)")
	f.StringVar(&source, "source", "", "metadata source: cdn or pod")
	f.StringVar(&configPath, "config", config.FileName, "config file")
	f.BoolVar(&refresh, "refresh", false, "bypass cached podspec metadata")
	f.BoolVar(&noCache, "no-cache", false, "disable the metadata cache")

	return cmd
}

func printSpec(w io.Writer, s *podspec.Spec) error {
	fmt.Fprintln(w, StyleTitle.Render(s.Name))
	printKeyValue(w, "Version", orDash(s.Version))
	source := s.Source.Kind.String()
	if s.Source.URL != "" {
		source += " " + s.Source.URL
	}
	if s.Source.Ref != "" {
		source += " @ " + s.Source.Ref
	}
	printKeyValue(w, "Source", source)
	printKeyValue(w, "Module", orDash(s.ModuleName))
	printKeyValue(w, "Vendored", orDash(s.VendoredPath))
	printKeyValue(w, "Frameworks", joinOrDash(s.Frameworks))
	printKeyValue(w, "Weak", joinOrDash(s.WeakFrameworks))
	printKeyValue(w, "Libraries", joinOrDash(s.Libraries))
	if s.Swift {
		printKeyValue(w, "Swift", "yes")
	}

	if names := s.DependencyNames(); len(names) > 0 {
		fmt.Fprintln(w, StyleDim.Render("Dependencies"))
		for _, name := range names {
			line := name
			if c := s.Dependencies[name]; len(c) > 0 {
				line += " " + StyleDim.Render(strings.Join(c, ", "))
			}
			fmt.Fprintln(w, "  "+line)
		}
	}

	if len(s.Subspecs) > 0 {
		fmt.Fprintln(w, StyleDim.Render("Subspecs"))
		for _, sub := range s.Subspecs {
			err := sub.Walk(func(n *podspec.Spec) error {
				indent := strings.Repeat("  ", strings.Count(n.Name, "/"))
				_, err := fmt.Fprintln(w, indent+n.Name)
				return err
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(list []string) string {
	return orDash(strings.Join(list, ", "))
}
