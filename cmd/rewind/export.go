package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/rewind/export"
	"github.com/tailored-agentic-units/rewind/rpc"
)

var (
	exportAddr    string
	exportReason  string
	exportOutput  string
	exportTimeout time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Request a bundle from a running engine",
	Long: `Ask a running engine for a bundle of its current window and write it to a file.

Examples:
  rewind export -o replay.zip
  rewind export --addr http://10.0.0.5:7070 --reason crash -o crash.zip`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportAddr, "addr", "http://127.0.0.1:7070", "Engine base URL")
	exportCmd.Flags().StringVar(&exportReason, "reason", export.DefaultReason, "Reason recorded in the bundle metadata")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Bundle output path (required)")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 30*time.Second, "Request timeout")
	exportCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if exportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, exportTimeout)
		defer cancel()
	}

	client := rpc.NewClient(nil, exportAddr)
	data, err := client.Export(ctx, exportReason)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, sha256 %s)\n", exportOutput, len(data), export.Checksum(data))
	return nil
}
