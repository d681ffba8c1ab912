package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/session"
)

// Command identifies an operation on the engine.
type Command int

const (
	CommandSetBufferSize Command = iota
	CommandSetUserInfo
	CommandSetTag
	CommandAddBreadcrumb
	CommandAddEvent
	CommandExport
	CommandClear
	CommandEvents
	CommandStats
)

var commandNames = [...]string{
	CommandSetBufferSize: "set_buffer_size",
	CommandSetUserInfo:   "set_user_info",
	CommandSetTag:        "set_tag",
	CommandAddBreadcrumb: "add_breadcrumb",
	CommandAddEvent:      "add_event",
	CommandExport:        "export",
	CommandClear:         "clear",
	CommandEvents:        "events",
	CommandStats:         "stats",
}

func (c Command) String() string {
	if c >= 0 && int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// envelope is one mailbox message. id is reported as "command_id" on observer
// events raised while it is applied. reply is nil for commands the caller
// does not wait on.
type envelope struct {
	id      string
	command Command
	args    any
	reply   chan result
}

type result struct {
	value any
	err   error
}

type tagArgs struct {
	key   string
	value string
}

func newEnvelope(cmd Command, args any, await bool) envelope {
	env := envelope{
		id:      uuid.Must(uuid.NewV7()).String(),
		command: cmd,
		args:    args,
	}
	if await {
		env.reply = make(chan result, 1)
	}
	return env
}

// Typed accessors for envelope arguments. The engine constructs every
// envelope, so a mismatch is a programming error.

func (e envelope) duration() time.Duration        { return e.args.(time.Duration) }
func (e envelope) user() *session.UserInfo        { return e.args.(*session.UserInfo) }
func (e envelope) tag() tagArgs                   { return e.args.(tagArgs) }
func (e envelope) breadcrumb() session.Breadcrumb { return e.args.(session.Breadcrumb) }
func (e envelope) event() event.Event             { return e.args.(event.Event) }
func (e envelope) reason() string                 { return e.args.(string) }
