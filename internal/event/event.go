package event

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// Kind is the closed set of lifecycle event kinds. Custom events share a
// single kind and carry their user-defined name separately.
type Kind string

const (
	KindHostInit             Kind = "HostInit"
	KindBeforeHostUp         Kind = "BeforeHostUp"
	KindHostUp               Kind = "HostUp"
	KindHostDown             Kind = "HostDown"
	KindBeforeHostTerminate  Kind = "BeforeHostTerminate"
	KindBeforeInstanceLaunch Kind = "BeforeInstanceLaunch"
	KindInstanceLaunchFailed Kind = "InstanceLaunchFailed"
	KindResumeComplete       Kind = "ResumeComplete"
	KindCustom               Kind = "CustomEvent"
)

// Event is an immutable description of something that happened to a farm or
// server. Only HandledObservers is appended after creation, during dispatch.
type Event struct {
	ID     string
	Kind   Kind
	FarmID int64

	// Server is the associated server record, nil for farm-level events.
	Server *server.Record

	// CustomName carries the user-defined name of a custom event.
	CustomName string

	Message   string
	ErrorText string
	ReasonID  int
	Suspended bool
	Volumes   []server.VolumeConfig

	// Counters recorded onto the audit row by the messaging observer.
	MsgExpected  int
	MsgCreated   int
	ScriptsCount int

	// HandledObservers maps observer name to handler elapsed time, filled
	// during dispatch.
	HandledObservers map[string]time.Duration

	CreatedAt time.Time
}

// Name returns the event's dispatch name: the user-defined name for custom
// events, the kind otherwise.
func (e *Event) Name() string {
	if e.Kind == KindCustom && e.CustomName != "" {
		return e.CustomName
	}
	return string(e.Kind)
}

// IsCustom reports whether the event routes to the generic custom handler.
func (e *Event) IsCustom() bool {
	return e.Kind == KindCustom
}

// ServerID returns the associated server's ID, empty when none.
func (e *Event) ServerID() string {
	if e.Server == nil {
		return ""
	}
	return e.Server.ServerID
}

func newEvent(kind Kind, rec *server.Record) *Event {
	ev := &Event{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Kind:      kind,
		Server:    rec,
		CreatedAt: time.Now().UTC(),
	}
	if rec != nil {
		ev.FarmID = rec.FarmID
	}
	return ev
}

func NewHostInit(rec *server.Record) *Event {
	ev := newEvent(KindHostInit, rec)
	ev.Message = fmt.Sprintf("Server %s sent HostInit", rec.ServerID)
	return ev
}

func NewBeforeHostUp(rec *server.Record) *Event {
	return newEvent(KindBeforeHostUp, rec)
}

func NewHostUp(rec *server.Record) *Event {
	ev := newEvent(KindHostUp, rec)
	ev.Message = fmt.Sprintf("Server %s is up and running", rec.ServerID)
	return ev
}

func NewHostDown(rec *server.Record) *Event {
	ev := newEvent(KindHostDown, rec)
	ev.Message = fmt.Sprintf("Server %s went down", rec.ServerID)
	return ev
}

func NewBeforeHostTerminate(rec *server.Record, reason string, suspended bool) *Event {
	ev := newEvent(KindBeforeHostTerminate, rec)
	ev.Message = reason
	ev.Suspended = suspended
	return ev
}

func NewBeforeInstanceLaunch(rec *server.Record) *Event {
	ev := newEvent(KindBeforeInstanceLaunch, rec)
	ev.Message = fmt.Sprintf("Launching server %s on %s", rec.ServerID, rec.Platform)
	return ev
}

func NewInstanceLaunchFailed(rec *server.Record, errText string) *Event {
	ev := newEvent(KindInstanceLaunchFailed, rec)
	ev.ErrorText = errText
	ev.Message = fmt.Sprintf("Cannot launch server %s: %s", rec.ServerID, errText)
	return ev
}

func NewResumeComplete(rec *server.Record) *Event {
	return newEvent(KindResumeComplete, rec)
}

// NewCustom builds a user-defined event. All custom events route to the
// generic custom handler on every observer.
func NewCustom(rec *server.Record, name string) *Event {
	ev := newEvent(KindCustom, rec)
	ev.CustomName = name
	ev.Message = fmt.Sprintf("Custom event %s", name)
	return ev
}
