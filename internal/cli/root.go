// Package cli is the confdogma command-line surface: a spf13/cobra root
// command with serve, replica status, and purge sweep subcommands, in the
// style of a single static rootCmd with AddCommand calls from each
// subcommand's own init.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "confdogma",
	Short: "Content-addressed, replicated configuration repository",
	Long: `confdogma serves and replicates versioned configuration trees across a
cluster of replicas: every write lands in a shared replication log, every
replica applies it to its own content-addressed object store, and readers
get point-in-time consistent reads or long-polling watches over the
result.`,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("confdogma %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
