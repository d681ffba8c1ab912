// Package engine implements the processing engine: the single owner of one
// retention buffer and one session, driven by a command mailbox.
//
// Every method enqueues a command and a single goroutine applies commands in
// arrival order, so the buffer and session need no locks. Mutating commands
// return once queued; Export, Events and Stats wait for their reply. Anything
// queued before an Export is reflected in its bundle and anything queued
// after is not.
//
//	e, err := engine.New(ctx, &cfg)
//	defer e.Shutdown(time.Second)
//
//	e.AddEvent(ctx, ev)
//	bundle, err := e.Export(ctx, "crash")
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/rewind/buffer"
	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/export"
	"github.com/tailored-agentic-units/rewind/observability"
	"github.com/tailored-agentic-units/rewind/session"
)

// Option configures an Engine after config-driven initialization.
type Option func(*Engine)

// WithObserver overrides the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithClock overrides the wall clock used for pruning, breadcrumb stamping and
// export timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides slog.Default() for engine lifecycle logging.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSession overrides the config-created session.
func WithSession(s session.Session) Option {
	return func(e *Engine) { e.session = s }
}

// Stats is a point-in-time summary of engine state.
type Stats struct {
	Events         int           `json:"events"`
	Breadcrumbs    int           `json:"breadcrumbs"`
	Window         time.Duration `json:"window"`
	Oldest         int64         `json:"oldest,omitempty"`
	Newest         int64         `json:"newest,omitempty"`
	RecordingID    string        `json:"recording_id"`
	Exports        int           `json:"exports"`
	ExportFailures int           `json:"export_failures"`
	Processed      uint64        `json:"processed"`
	Queued         int           `json:"queued"`
}

// Engine owns a retention buffer and a session. Create one with New and stop
// it with Shutdown.
type Engine struct {
	buffer   *buffer.Buffer
	session  session.Session
	builder  *export.Builder
	env      export.Environment
	observer observability.Observer
	logger   *slog.Logger
	now      func() time.Time
	mailbox  *Mailbox[envelope]

	exports        int
	exportFailures int
	processed      uint64

	// commandID is the id of the envelope being applied, empty between
	// commands. Only the processing goroutine touches it.
	commandID string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Engine from configuration and starts its processing
// goroutine. Zero-valued config fields take their defaults. The engine stops
// when ctx is cancelled or Shutdown is called.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Engine, error) {
	c := DefaultConfig()
	c.Merge(cfg)

	observer, err := observability.Default.Lookup(c.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	sesh, err := session.New(&c.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	engineCtx, cancel := context.WithCancel(ctx)

	e := &Engine{
		session:  sesh,
		builder:  export.NewBuilder(&c.Export),
		env:      c.Export.Environment(),
		observer: observer,
		logger:   slog.Default(),
		now:      time.Now,
		ctx:      engineCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.observer == nil {
		e.observer = observability.NoOpObserver{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	e.buffer = buffer.FromConfig(&c.Buffer, buffer.WithClock(e.now))
	e.mailbox = NewMailbox[envelope](engineCtx, c.MailboxSize)

	e.emit(EventStart, observability.LevelInfo, "engine.New", map[string]any{
		"window_ms":    c.Buffer.MaxAgeMs,
		"mailbox_size": c.MailboxSize,
		"recording_id": e.session.ID(),
	})

	go e.loop()

	return e, nil
}

// SetBufferSize replaces the retention buffer with an empty one bounded by
// window. Buffered events are discarded.
func (e *Engine) SetBufferSize(ctx context.Context, window time.Duration) error {
	if window <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBufferSize, window)
	}
	return e.send(ctx, newEnvelope(CommandSetBufferSize, window, false))
}

// SetUserInfo replaces the recorded identity. A nil info removes it. info and
// its context map are copied before they are queued.
func (e *Engine) SetUserInfo(ctx context.Context, info *session.UserInfo) error {
	return e.send(ctx, newEnvelope(CommandSetUserInfo, info.Clone(), false))
}

// SetTag inserts or overwrites a tag.
func (e *Engine) SetTag(ctx context.Context, key, value string) error {
	return e.send(ctx, newEnvelope(CommandSetTag, tagArgs{key: key, value: value}, false))
}

// AddBreadcrumb records a breadcrumb, stamping the current time when its
// timestamp is zero. Its data map is copied before it is queued.
func (e *Engine) AddBreadcrumb(ctx context.Context, b session.Breadcrumb) error {
	b = b.Clone()
	if b.Timestamp == 0 {
		b.Timestamp = e.now().UnixMilli()
	}
	return e.send(ctx, newEnvelope(CommandAddBreadcrumb, b, false))
}

// AddEvent appends ev to the retention buffer. The event is copied and its
// payload normalized (see event.NormalizePayload) before it is queued, so
// Events and the exported recording agree byte for byte.
func (e *Engine) AddEvent(ctx context.Context, ev event.Event) error {
	return e.send(ctx, newEnvelope(CommandAddEvent, ev.Normalize(), false))
}

// Export builds a bundle from the current buffer and session. An empty reason
// is recorded as export.DefaultReason. A failed build leaves engine state
// unchanged and returns an error wrapping export.ErrBuildFailed.
func (e *Engine) Export(ctx context.Context, reason string) ([]byte, error) {
	v, err := e.request(ctx, newEnvelope(CommandExport, reason, true))
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Clear empties the buffer and resets the session.
func (e *Engine) Clear(ctx context.Context) error {
	return e.send(ctx, newEnvelope(CommandClear, nil, false))
}

// Events returns a copy of the buffered events, oldest first.
func (e *Engine) Events(ctx context.Context) ([]event.Event, error) {
	v, err := e.request(ctx, newEnvelope(CommandEvents, nil, true))
	if err != nil {
		return nil, err
	}
	return v.([]event.Event), nil
}

// Stats returns a summary of engine state.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	v, err := e.request(ctx, newEnvelope(CommandStats, nil, true))
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

// Shutdown stops the processing goroutine. Queued commands that have not
// started are dropped and their callers receive ErrClosed.
func (e *Engine) Shutdown(timeout time.Duration) error {
	e.logger.DebugContext(e.ctx, "shutting down engine", slog.Int("queued", e.mailbox.Len()))
	e.cancel()

	select {
	case <-e.done:
		e.emit(EventShutdown, observability.LevelInfo, "engine.Shutdown", nil)
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("engine shutdown timeout after %v", timeout)
	}
}

// Done is closed once the processing goroutine has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) send(ctx context.Context, env envelope) error {
	if err := e.mailbox.Send(ctx, env); err != nil {
		return fmt.Errorf("%s: %w", env.command, err)
	}
	return nil
}

func (e *Engine) request(ctx context.Context, env envelope) (any, error) {
	if err := e.send(ctx, env); err != nil {
		return nil, err
	}

	select {
	case res := <-env.reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", env.command, ctx.Err())
	case <-e.done:
		select {
		case res := <-env.reply:
			return res.value, res.err
		default:
			return nil, fmt.Errorf("%s: %w", env.command, ErrClosed)
		}
	}
}

func (e *Engine) loop() {
	defer close(e.done)

	for {
		env, err := e.mailbox.Receive()
		if err != nil {
			return
		}
		e.handle(env)
	}
}

func (e *Engine) handle(env envelope) {
	e.processed++
	e.commandID = env.id
	defer func() { e.commandID = "" }()

	var res result
	switch env.command {
	case CommandSetBufferSize:
		e.resetBuffer(env.duration())
	case CommandSetUserInfo:
		e.session.SetUser(env.user())
	case CommandSetTag:
		t := env.tag()
		e.session.SetTag(t.key, t.value)
	case CommandAddBreadcrumb:
		e.session.AddBreadcrumb(env.breadcrumb())
	case CommandAddEvent:
		e.addEvent(env.event())
	case CommandExport:
		res.value, res.err = e.export(env.reason())
	case CommandClear:
		e.clear()
	case CommandEvents:
		res.value = e.buffer.All()
	case CommandStats:
		res.value = e.stats()
	default:
		res.err = fmt.Errorf("unknown command %s (%s)", env.command, env.id)
	}

	if env.reply != nil {
		env.reply <- res
	}
}

func (e *Engine) addEvent(ev event.Event) {
	res := e.buffer.Add(ev)

	e.emit(EventEventAdded, observability.LevelVerbose, "engine.AddEvent", map[string]any{
		"kind": ev.Kind.String(),
	})

	if res.Pruned() {
		level := observability.LevelVerbose
		if res.Outcome == buffer.OutcomeUnanchored || res.Outcome == buffer.OutcomeCleared {
			level = observability.LevelWarning
		}
		e.emit(EventBufferPruned, level, "engine.AddEvent", map[string]any{
			"outcome":  res.Outcome.String(),
			"dropped":  res.Dropped,
			"retained": e.buffer.Len(),
		})
	}
}

// resetBuffer swaps in an empty buffer. Existing events are not migrated.
func (e *Engine) resetBuffer(window time.Duration) {
	dropped := e.buffer.Len()
	e.buffer.Clear()
	e.buffer = buffer.New(window, buffer.WithClock(e.now))

	e.emit(EventBufferReset, observability.LevelWarning, "engine.SetBufferSize", map[string]any{
		"window_ms": window.Milliseconds(),
		"dropped":   dropped,
	})
}

func (e *Engine) export(reason string) ([]byte, error) {
	events := e.buffer.All()
	meta := export.NewMetadata(e.session.Snapshot(), reason, e.env, e.now())

	data, err := e.builder.Build(events, meta)
	if err != nil {
		e.exportFailures++
		e.emit(EventExportFailed, observability.LevelError, "engine.Export", map[string]any{
			"reason": meta.Reason,
			"error":  err.Error(),
		})
		return nil, err
	}

	e.exports++
	e.emit(EventExportComplete, observability.LevelInfo, "engine.Export", map[string]any{
		"reason":   meta.Reason,
		"events":   len(events),
		"bytes":    len(data),
		"checksum": export.Checksum(data),
	})
	return data, nil
}

func (e *Engine) clear() {
	dropped := e.buffer.Len()
	e.buffer.Clear()
	e.session.Clear()

	e.emit(EventClear, observability.LevelInfo, "engine.Clear", map[string]any{
		"dropped":      dropped,
		"recording_id": e.session.ID(),
	})
}

func (e *Engine) stats() Stats {
	s := Stats{
		Events:         e.buffer.Len(),
		Breadcrumbs:    len(e.session.Breadcrumbs()),
		Window:         e.buffer.MaxAge(),
		RecordingID:    e.session.ID(),
		Exports:        e.exports,
		ExportFailures: e.exportFailures,
		Processed:      e.processed,
		Queued:         e.mailbox.Len(),
	}
	if oldest, newest, ok := e.buffer.Span(); ok {
		s.Oldest, s.Newest = oldest, newest
	}
	return s
}

// emit sends an event to the observer. Events raised while a command is
// applied carry its id as "command_id".
func (e *Engine) emit(typ observability.EventType, level observability.Level, source string, data map[string]any) {
	if e.commandID != "" {
		if data == nil {
			data = make(map[string]any, 1)
		}
		data["command_id"] = e.commandID
	}
	e.observer.OnEvent(e.ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: e.now(),
		Source:    source,
		Data:      data,
	})
}
