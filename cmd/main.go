package cmd

import (
	"github.com/spf13/cobra"

	"github.com/streamstore/streamstore/cmd/compact"
	"github.com/streamstore/streamstore/cmd/start"
	"github.com/streamstore/streamstore/cmd/stats"
	"github.com/streamstore/streamstore/utils"
	"github.com/streamstore/streamstore/utils/log"
)

// flagPrintVersion set flag to show current streamstore version.
var flagPrintVersion bool

// Execute builds the command tree and executes commands.
func Execute() error {

	// c is the root command.
	c := &cobra.Command{
		Use: "streamstore",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Print version if specified.
			if flagPrintVersion {
				log.Info("version: %+v\n", utils.Tag)
				log.Info("commit hash: %+v\n", utils.GitHash)
				log.Info("utc build time: %+v\n", utils.BuildStamp)
				return nil
			}
			// Print information regarding usage.
			return cmd.Usage()
		},
	}

	// Adds subcommands and version flag.
	c.AddCommand(start.Cmd)
	c.AddCommand(compact.Cmd)
	c.AddCommand(stats.Cmd)
	c.Flags().BoolVarP(&flagPrintVersion, "version", "v", false, "show the version info and exit")

	return c.Execute()
}
