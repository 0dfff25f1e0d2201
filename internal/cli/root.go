package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/podkit/pkg/buildinfo"
	"github.com/matzehuels/podkit/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "podkit installs CocoaPods dependencies for Unreal plugins",
		Long: `podkit reads a CocoaPods Podfile, installs every declared pod and its
transitive dependencies into an install root, and writes the build descriptor
(config.xml) the plugin's module rules link against.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.Logger.GetLevel() <= LogDebug {
				installDebugHooks(c.Logger)
			} else {
				observability.Reset()
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.installCommand())
	root.AddCommand(c.specCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
