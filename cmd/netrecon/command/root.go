// Package command builds netrecon's cobra command tree.
package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/netrecon/netrecon/internal/config"
)

// Root builds the top-level "netrecon" command with its scan and query
// subcommands attached.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "netrecon",
		Short: "Host-discovery and port/service reconnaissance engine",
	}

	flags := registerPersistentFlags(root)
	root.AddCommand(newScanCommand(flags))
	root.AddCommand(newQueryCommand(flags))
	return root
}

func registerPersistentFlags(root *cobra.Command) *pflag.FlagSet {
	flags := root.PersistentFlags()
	flags.String("db", "", "path to the result store file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	return flags
}

func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	return config.Load(flags)
}
