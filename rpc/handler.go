package rpc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/tailored-agentic-units/rewind/engine"
	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/export"
	"github.com/tailored-agentic-units/rewind/session"
)

type handler struct {
	engine Engine
}

// NewHandler serves e and returns the path prefix to mount the handler on.
func NewHandler(e Engine, opts ...connect.HandlerOption) (string, http.Handler) {
	h := &handler{engine: e}
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SetBufferSizeProcedure, connect.NewUnaryHandler(SetBufferSizeProcedure, h.setBufferSize, opts...))
	mux.Handle(SetUserInfoProcedure, connect.NewUnaryHandler(SetUserInfoProcedure, h.setUserInfo, opts...))
	mux.Handle(SetTagProcedure, connect.NewUnaryHandler(SetTagProcedure, h.setTag, opts...))
	mux.Handle(AddBreadcrumbProcedure, connect.NewUnaryHandler(AddBreadcrumbProcedure, h.addBreadcrumb, opts...))
	mux.Handle(AddEventProcedure, connect.NewUnaryHandler(AddEventProcedure, h.addEvent, opts...))
	mux.Handle(ExportDataProcedure, connect.NewUnaryHandler(ExportDataProcedure, h.exportData, opts...))
	mux.Handle(ClearProcedure, connect.NewUnaryHandler(ClearProcedure, h.clear, opts...))
	mux.Handle(EventsProcedure, connect.NewUnaryHandler(EventsProcedure, h.events, opts...))
	mux.Handle(StatsProcedure, connect.NewUnaryHandler(StatsProcedure, h.stats, opts...))

	return "/" + ServiceName + "/", mux
}

func (h *handler) setBufferSize(ctx context.Context, req *connect.Request[SetBufferSizeRequest]) (*connect.Response[emptypb.Empty], error) {
	window := time.Duration(req.Msg.Milliseconds) * time.Millisecond
	return empty(h.engine.SetBufferSize(ctx, window))
}

func (h *handler) setUserInfo(ctx context.Context, req *connect.Request[SetUserInfoRequest]) (*connect.Response[emptypb.Empty], error) {
	return empty(h.engine.SetUserInfo(ctx, req.Msg.User))
}

func (h *handler) setTag(ctx context.Context, req *connect.Request[SetTagRequest]) (*connect.Response[emptypb.Empty], error) {
	return empty(h.engine.SetTag(ctx, req.Msg.Key, req.Msg.Value))
}

func (h *handler) addBreadcrumb(ctx context.Context, req *connect.Request[session.Breadcrumb]) (*connect.Response[emptypb.Empty], error) {
	return empty(h.engine.AddBreadcrumb(ctx, *req.Msg))
}

func (h *handler) addEvent(ctx context.Context, req *connect.Request[event.Event]) (*connect.Response[emptypb.Empty], error) {
	return empty(h.engine.AddEvent(ctx, *req.Msg))
}

func (h *handler) exportData(ctx context.Context, req *connect.Request[ExportDataRequest]) (*connect.Response[ExportDataResponse], error) {
	data, err := h.engine.Export(ctx, req.Msg.Reason)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExportDataResponse{Bundle: data}), nil
}

func (h *handler) clear(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	return empty(h.engine.Clear(ctx))
}

func (h *handler) events(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[EventsResponse], error) {
	events, err := h.engine.Events(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EventsResponse{Events: events}), nil
}

func (h *handler) stats(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[engine.Stats], error) {
	stats, err := h.engine.Stats(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&stats), nil
}

func empty(err error) (*connect.Response[emptypb.Empty], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidBufferSize):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, engine.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, export.ErrBuildFailed):
		return connect.NewError(connect.CodeInternal, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeUnknown, err)
	}
}
