// Command rewind runs a retention engine behind an RPC endpoint and works with
// the bundles it exports.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/rewind/export"
)

var (
	configFile string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rewind",
	Short: "Keep the last N seconds of a session replay in memory",
	Long: `rewind holds a bounded window of session replay events and turns it into a
portable bundle on demand.

Examples:
  rewind serve --config rewind.yaml
  rewind export --addr http://localhost:7070 --reason crash -o crash.zip
  rewind inspect crash.zip`,
	Version:       export.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to engine config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
