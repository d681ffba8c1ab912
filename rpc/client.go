package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/tailored-agentic-units/rewind/engine"
	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/export"
	"github.com/tailored-agentic-units/rewind/session"
)

// Client calls a remote engine. Errors carry their Connect code and, where the
// server reported one, the matching engine or export sentinel error.
type Client struct {
	setBufferSize *connect.Client[SetBufferSizeRequest, emptypb.Empty]
	setUserInfo   *connect.Client[SetUserInfoRequest, emptypb.Empty]
	setTag        *connect.Client[SetTagRequest, emptypb.Empty]
	addBreadcrumb *connect.Client[session.Breadcrumb, emptypb.Empty]
	addEvent      *connect.Client[event.Event, emptypb.Empty]
	exportData    *connect.Client[ExportDataRequest, ExportDataResponse]
	clear         *connect.Client[emptypb.Empty, emptypb.Empty]
	events        *connect.Client[emptypb.Empty, EventsResponse]
	stats         *connect.Client[emptypb.Empty, engine.Stats]
}

// NewClient creates a Client for the engine served at baseURL. A nil
// httpClient uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)

	return &Client{
		setBufferSize: connect.NewClient[SetBufferSizeRequest, emptypb.Empty](httpClient, baseURL+SetBufferSizeProcedure, opts...),
		setUserInfo:   connect.NewClient[SetUserInfoRequest, emptypb.Empty](httpClient, baseURL+SetUserInfoProcedure, opts...),
		setTag:        connect.NewClient[SetTagRequest, emptypb.Empty](httpClient, baseURL+SetTagProcedure, opts...),
		addBreadcrumb: connect.NewClient[session.Breadcrumb, emptypb.Empty](httpClient, baseURL+AddBreadcrumbProcedure, opts...),
		addEvent:      connect.NewClient[event.Event, emptypb.Empty](httpClient, baseURL+AddEventProcedure, opts...),
		exportData:    connect.NewClient[ExportDataRequest, ExportDataResponse](httpClient, baseURL+ExportDataProcedure, opts...),
		clear:         connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+ClearProcedure, opts...),
		events:        connect.NewClient[emptypb.Empty, EventsResponse](httpClient, baseURL+EventsProcedure, opts...),
		stats:         connect.NewClient[emptypb.Empty, engine.Stats](httpClient, baseURL+StatsProcedure, opts...),
	}
}

// SetBufferSize validates window the way the engine does, then sends it in
// whole milliseconds, rounding up so a positive window never becomes zero.
func (c *Client) SetBufferSize(ctx context.Context, window time.Duration) error {
	if window <= 0 {
		return fmt.Errorf("%w: %v", engine.ErrInvalidBufferSize, window)
	}
	ms := int64((window + time.Millisecond - 1) / time.Millisecond)
	_, err := c.setBufferSize.CallUnary(ctx, connect.NewRequest(&SetBufferSizeRequest{Milliseconds: ms}))
	return fromConnectError(err)
}

func (c *Client) SetUserInfo(ctx context.Context, info *session.UserInfo) error {
	_, err := c.setUserInfo.CallUnary(ctx, connect.NewRequest(&SetUserInfoRequest{User: info}))
	return fromConnectError(err)
}

func (c *Client) SetTag(ctx context.Context, key, value string) error {
	_, err := c.setTag.CallUnary(ctx, connect.NewRequest(&SetTagRequest{Key: key, Value: value}))
	return fromConnectError(err)
}

func (c *Client) AddBreadcrumb(ctx context.Context, b session.Breadcrumb) error {
	_, err := c.addBreadcrumb.CallUnary(ctx, connect.NewRequest(&b))
	return fromConnectError(err)
}

func (c *Client) AddEvent(ctx context.Context, ev event.Event) error {
	_, err := c.addEvent.CallUnary(ctx, connect.NewRequest(&ev))
	return fromConnectError(err)
}

// Export requests a bundle from the remote engine.
func (c *Client) Export(ctx context.Context, reason string) ([]byte, error) {
	resp, err := c.exportData.CallUnary(ctx, connect.NewRequest(&ExportDataRequest{Reason: reason}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.Bundle, nil
}

func (c *Client) Clear(ctx context.Context) error {
	_, err := c.clear.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	return fromConnectError(err)
}

func (c *Client) Events(ctx context.Context) ([]event.Event, error) {
	resp, err := c.events.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	events := resp.Msg.Events
	if events == nil {
		events = []event.Event{}
	}
	for i := range events {
		events[i].Payload = event.NormalizePayload(events[i].Payload)
	}
	return events, nil
}

func (c *Client) Stats(ctx context.Context) (engine.Stats, error) {
	resp, err := c.stats.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return engine.Stats{}, fromConnectError(err)
	}
	return *resp.Msg, nil
}

func fromConnectError(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch connect.CodeOf(err) {
	case connect.CodeInvalidArgument:
		sentinel = engine.ErrInvalidBufferSize
	case connect.CodeUnavailable:
		sentinel = engine.ErrClosed
	case connect.CodeInternal:
		sentinel = export.ErrBuildFailed
	}
	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
