// Package cmd provides the CLI commands for lspcore.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// cfgFile is the path to the config file specified via --config flag.
	cfgFile string

	// verbose enables verbose output.
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lspcore",
	Short: "A reusable Language Server Protocol runtime and example server",
	Long: `lspcore is a framework for building Language Server Protocol servers
over stdio: framed JSON-RPC codec, lifecycle state machine, request
cancellation, and a type-safe handler router.

Example usage:
  lspcore serve              # run the bundled markdownls example server on stdio
  lspcore config init        # interactively write an lspcore config file
  lspcore trace search       # fuzzy-search a captured JSON-RPC trace`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: auto-discover)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(traceCmd)
}
