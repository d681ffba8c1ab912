// Package rpc exposes the engine command surface over the Connect protocol so
// an out-of-process capture layer can drive an engine.
//
// Messages are JSON. Commands with no result answer google.protobuf.Empty.
package rpc

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/rewind/engine"
	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/session"
)

// ServiceName is the fully-qualified Connect service name.
const ServiceName = "rewind.v1.EngineService"

// Procedure paths.
const (
	SetBufferSizeProcedure = "/" + ServiceName + "/SetBufferSize"
	SetUserInfoProcedure   = "/" + ServiceName + "/SetUserInfo"
	SetTagProcedure        = "/" + ServiceName + "/SetTag"
	AddBreadcrumbProcedure = "/" + ServiceName + "/AddBreadcrumb"
	AddEventProcedure      = "/" + ServiceName + "/AddEvent"
	ExportDataProcedure    = "/" + ServiceName + "/ExportData"
	ClearProcedure         = "/" + ServiceName + "/Clear"
	EventsProcedure        = "/" + ServiceName + "/Events"
	StatsProcedure         = "/" + ServiceName + "/Stats"
)

// Engine is the command surface served by NewHandler. Both *engine.Engine and
// *Client implement it.
type Engine interface {
	SetBufferSize(ctx context.Context, window time.Duration) error
	SetUserInfo(ctx context.Context, info *session.UserInfo) error
	SetTag(ctx context.Context, key, value string) error
	AddBreadcrumb(ctx context.Context, b session.Breadcrumb) error
	AddEvent(ctx context.Context, ev event.Event) error
	Export(ctx context.Context, reason string) ([]byte, error)
	Clear(ctx context.Context) error
	Events(ctx context.Context) ([]event.Event, error)
	Stats(ctx context.Context) (engine.Stats, error)
}

var (
	_ Engine = (*engine.Engine)(nil)
	_ Engine = (*Client)(nil)
)

type SetBufferSizeRequest struct {
	Milliseconds int64 `json:"milliseconds"`
}

// SetUserInfoRequest carries the identity to record. A nil User removes it.
type SetUserInfoRequest struct {
	User *session.UserInfo `json:"user"`
}

type SetTagRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type ExportDataRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ExportDataResponse carries the bundle bytes, base64-encoded on the wire.
type ExportDataResponse struct {
	Bundle []byte `json:"bundle"`
}

type EventsResponse struct {
	Events []event.Event `json:"events"`
}
