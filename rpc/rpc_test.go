package rpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/tailored-agentic-units/rewind/engine"
	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/export"
	"github.com/tailored-agentic-units/rewind/observability"
	"github.com/tailored-agentic-units/rewind/rpc"
	"github.com/tailored-agentic-units/rewind/session"
)

type fixture struct {
	engine *engine.Engine
	client *rpc.Client
	server *httptest.Server
	clock  *atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := new(atomic.Int64)
	cfg := engine.DefaultConfig()
	cfg.Buffer.MaxAgeMs = 1000

	e, err := engine.New(context.Background(), &cfg,
		engine.WithObserver(observability.NoOpObserver{}),
		engine.WithClock(func() time.Time { return time.UnixMilli(clock.Load()) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown(time.Second) })

	srv := httptest.NewServer(rpc.NewServer(e, nil).Handler())
	t.Cleanup(srv.Close)

	return &fixture{
		engine: e,
		client: rpc.NewClient(srv.Client(), srv.URL),
		server: srv,
		clock:  clock,
	}
}

func rawEvent(ts int64, kind event.Kind, payload string) event.Event {
	return event.Event{Timestamp: ts, Kind: kind, Payload: json.RawMessage(payload)}
}

func TestClient_CommandSurface(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Store(500)
	require.NoError(t, f.client.AddEvent(ctx, rawEvent(0, event.KindFullSnapshot, `{"node":1}`)))
	require.NoError(t, f.client.AddEvent(ctx, rawEvent(400, event.KindIncrementalSnapshot, `{"source":2}`)))
	require.NoError(t, f.client.SetUserInfo(ctx, &session.UserInfo{ID: "u-7"}))
	require.NoError(t, f.client.SetTag(ctx, "env", "staging"))
	require.NoError(t, f.client.AddBreadcrumb(ctx, session.Breadcrumb{Category: "nav", Message: "opened settings"}))

	remote, err := f.client.Events(ctx)
	require.NoError(t, err)
	local, err := f.engine.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, local, remote)
	require.Len(t, remote, 2)

	data, err := f.client.Export(ctx, "user-report")
	require.NoError(t, err)

	bundle, err := export.Read(data)
	require.NoError(t, err)
	assert.Equal(t, local, bundle.Events)
	require.NotNil(t, bundle.Meta)
	assert.Equal(t, "user-report", bundle.Meta.Reason)
	assert.Equal(t, "u-7", bundle.Meta.UserInfo.ID)
	assert.Equal(t, map[string]string{"env": "staging"}, bundle.Meta.Tags)
	require.Len(t, bundle.Meta.Breadcrumbs, 1)
	assert.Equal(t, int64(500), bundle.Meta.Breadcrumbs[0].Timestamp)

	stats, err := f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 1, stats.Exports)
	assert.Equal(t, time.Second, stats.Window)
}

func TestClient_SetBufferSizeAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.client.AddEvent(ctx, rawEvent(0, event.KindFullSnapshot, `{}`)))
	require.NoError(t, f.client.SetBufferSize(ctx, 5*time.Second))

	events, err := f.client.Events(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	stats, err := f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, stats.Window)

	require.NoError(t, f.client.AddEvent(ctx, rawEvent(0, event.KindFullSnapshot, `{}`)))
	require.NoError(t, f.client.SetTag(ctx, "k", "v"))
	require.NoError(t, f.client.Clear(ctx))

	stats, err = f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Events)
}

func TestClient_InvalidBufferSize(t *testing.T) {
	f := newFixture(t)

	for _, window := range []time.Duration{0, -time.Second} {
		clientErr := f.client.SetBufferSize(context.Background(), window)
		engineErr := f.engine.SetBufferSize(context.Background(), window)

		assert.ErrorIs(t, clientErr, engine.ErrInvalidBufferSize)
		assert.ErrorIs(t, engineErr, engine.ErrInvalidBufferSize)
	}
}

func TestHandler_InvalidBufferSize(t *testing.T) {
	f := newFixture(t)
	raw := connect.NewClient[rpc.SetBufferSizeRequest, emptypb.Empty](
		f.server.Client(), f.server.URL+rpc.SetBufferSizeProcedure, connect.WithCodec(rpc.Codec{}),
	)

	_, err := raw.CallUnary(context.Background(), connect.NewRequest(&rpc.SetBufferSizeRequest{Milliseconds: 0}))

	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestClient_SubMillisecondBufferSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SetBufferSize(ctx, 500*time.Microsecond))
	require.NoError(t, f.client.SetBufferSize(ctx, 500*time.Microsecond))

	stats, err := f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, stats.Window)

	require.NoError(t, f.client.SetBufferSize(ctx, 1500*time.Microsecond))
	stats, err = f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Millisecond, stats.Window)
}

func TestClient_ExportFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddEvent(ctx, rawEvent(0, event.KindCustom, `{"broken":`)))

	_, err := f.client.Export(ctx, "crash")

	require.Error(t, err)
	assert.ErrorIs(t, err, export.ErrBuildFailed)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestClient_EngineClosed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Shutdown(time.Second))

	err := f.client.AddEvent(context.Background(), rawEvent(0, event.KindFullSnapshot, `{}`))

	assert.ErrorIs(t, err, engine.ErrClosed)
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ListenAndServe(t *testing.T) {
	e, err := engine.New(context.Background(), &engine.Config{}, engine.WithObserver(observability.NoOpObserver{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown(time.Second) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rpc.NewServer(e, nil).ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClient_ExportKeepsPayloadMarkup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := `{"node":{"text":"<div>a & b</div>"}}`
	require.NoError(t, f.client.AddEvent(ctx, rawEvent(0, event.KindFullSnapshot, payload)))
	require.NoError(t, f.client.AddEvent(ctx, event.Event{Timestamp: 1, Kind: event.KindCustom}))

	events, err := f.client.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, payload, string(events[0].Payload))

	data, err := f.client.Export(ctx, "markup")
	require.NoError(t, err)
	bundle, err := export.Read(data)
	require.NoError(t, err)
	assert.Equal(t, events, bundle.Events)
	assert.Contains(t, string(bundle.Recording), payload)
}

func TestCodec(t *testing.T) {
	codec := rpc.Codec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&emptypb.Empty{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	data, err = codec.Marshal(&rpc.SetTagRequest{Key: "a", Value: "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"a","value":"b"}`, string(data))

	data, err = codec.Marshal(&event.Event{Timestamp: 1, Kind: event.KindCustom, Payload: json.RawMessage(`{"text":"<b>a & b</b>"}`)})
	require.NoError(t, err)
	assert.Equal(t, `{"timestamp":1,"kind":5,"payload":{"text":"<b>a & b</b>"}}`, string(data))

	var empty emptypb.Empty
	require.NoError(t, codec.Unmarshal([]byte(`{"ignored":true}`), &empty))

	var req rpc.ExportDataRequest
	require.NoError(t, codec.Unmarshal([]byte(`{"reason":"crash"}`), &req))
	assert.Equal(t, "crash", req.Reason)
}
