package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/rewind/engine"
	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/export"
	"github.com/tailored-agentic-units/rewind/observability"
	"github.com/tailored-agentic-units/rewind/rpc"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func startEngine(t *testing.T) (*engine.Engine, string) {
	t.Helper()

	e, err := engine.New(context.Background(), &engine.Config{}, engine.WithObserver(observability.NoOpObserver{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown(time.Second) })

	srv := httptest.NewServer(rpc.NewServer(e, nil).Handler())
	t.Cleanup(srv.Close)
	return e, srv.URL
}

func TestExportAndInspect(t *testing.T) {
	e, url := startEngine(t)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	require.NoError(t, e.AddEvent(ctx, event.Event{Timestamp: now, Kind: event.KindFullSnapshot, Payload: json.RawMessage(`{}`)}))
	require.NoError(t, e.AddEvent(ctx, event.Event{Timestamp: now + 5, Kind: event.KindIncrementalSnapshot, Payload: json.RawMessage(`{}`)}))
	require.NoError(t, e.SetTag(ctx, "build", "42"))

	path := filepath.Join(t.TempDir(), "bundle.zip")
	out := execute(t, "export", "--addr", url, "--reason", "cli-test", "-o", path)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, out, export.Checksum(data))

	out = execute(t, "inspect", "--json", path)

	var summary bundleSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Events)
	assert.True(t, summary.Anchored)
	assert.Equal(t, map[string]int{"full_snapshot": 1, "incremental_snapshot": 1}, summary.Kinds)
	require.NotNil(t, summary.Meta)
	assert.Equal(t, "cli-test", summary.Meta.Reason)
	assert.Equal(t, "42", summary.Meta.Tags["build"])

	inspectJSON = false
	out = execute(t, "inspect", path)
	assert.True(t, strings.Contains(out, "Anchored: true"), out)
	assert.Contains(t, out, "Reason:   cli-test")
}

func TestInspect_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a bundle"), 0o600))

	rootCmd.SetArgs([]string{"inspect", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, export.ErrInvalidBundle)
}

func TestLoadConfig_Default(t *testing.T) {
	configFile = ""
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), *cfg)
}
