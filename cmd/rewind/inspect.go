package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/export"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <bundle.zip>",
	Short: "Summarize an exported bundle",
	Long: `Read a bundle and print its metadata and an event summary.

The summary reports whether the recording starts with a full snapshot, which
a replay tool needs unless the recording began with the session.

Examples:
  rewind inspect crash.zip
  rewind inspect --json crash.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the summary as JSON")

	rootCmd.AddCommand(inspectCmd)
}

// bundleSummary is the inspect output.
type bundleSummary struct {
	File       string           `json:"file"`
	Bytes      int              `json:"bytes"`
	Checksum   string           `json:"sha256"`
	Events     int              `json:"events"`
	Kinds      map[string]int   `json:"kinds"`
	Anchored   bool             `json:"anchored"`
	FirstEvent int64            `json:"first_event,omitempty"`
	LastEvent  int64            `json:"last_event,omitempty"`
	Meta       *export.Metadata `json:"meta,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}

	bundle, err := export.Read(data)
	if err != nil {
		return err
	}

	summary := summarize(path, data, bundle)
	out := cmd.OutOrStdout()

	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(out, summary)
	return nil
}

func summarize(path string, data []byte, bundle *export.Bundle) bundleSummary {
	s := bundleSummary{
		File:     path,
		Bytes:    len(data),
		Checksum: export.Checksum(data),
		Events:   len(bundle.Events),
		Kinds:    make(map[string]int),
		Meta:     bundle.Meta,
	}
	for _, e := range bundle.Events {
		s.Kinds[e.Kind.String()]++
	}
	if n := len(bundle.Events); n > 0 {
		s.Anchored = bundle.Events[0].Kind == event.KindFullSnapshot
		s.FirstEvent = bundle.Events[0].Timestamp
		s.LastEvent = bundle.Events[n-1].Timestamp
	}
	return s
}

func printSummary(w io.Writer, s bundleSummary) {
	fmt.Fprintf(w, "Bundle:   %s (%d bytes)\n", s.File, s.Bytes)
	fmt.Fprintf(w, "SHA-256:  %s\n", s.Checksum)
	fmt.Fprintf(w, "Events:   %d\n", s.Events)
	if s.Events > 0 {
		span := time.Duration(s.LastEvent-s.FirstEvent) * time.Millisecond
		fmt.Fprintf(w, "Span:     %s (%s to %s)\n", span,
			time.UnixMilli(s.FirstEvent).UTC().Format(time.RFC3339Nano),
			time.UnixMilli(s.LastEvent).UTC().Format(time.RFC3339Nano))
		fmt.Fprintf(w, "Anchored: %t\n", s.Anchored)

		kinds := make([]string, 0, len(s.Kinds))
		for k := range s.Kinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-22s %d\n", k, s.Kinds[k])
		}
	}

	if s.Meta == nil {
		fmt.Fprintln(w, "Meta:     none")
		return
	}
	m := s.Meta
	fmt.Fprintf(w, "Reason:   %s\n", m.Reason)
	fmt.Fprintf(w, "Exported: %s\n", time.UnixMilli(m.Timestamp).UTC().Format(time.RFC3339Nano))
	if m.UserInfo != nil {
		fmt.Fprintf(w, "User:     %s\n", m.UserInfo.ID)
	}
	if m.RecordingID != "" {
		fmt.Fprintf(w, "Session:  %s\n", m.RecordingID)
	}
	fmt.Fprintf(w, "Tags:     %d\n", len(m.Tags))
	fmt.Fprintf(w, "Crumbs:   %d\n", len(m.Breadcrumbs))
	if m.UserAgent != "" {
		fmt.Fprintf(w, "Agent:    %s\n", m.UserAgent)
	}
}
