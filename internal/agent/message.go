package agent

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// Message type names on the wire.
const (
	TypeHostInit            = "HostInit"
	TypeHostInitResponse    = "HostInitResponse"
	TypeHostUp              = "HostUp"
	TypeHostDown            = "HostDown"
	TypeHostUpdate          = "HostUpdate"
	TypeBeforeHostTerminate = "BeforeHostTerminate"
)

// Message is one typed agent protocol message, inbound or outbound.
type Message interface {
	// Type is the wire name of the concrete message kind.
	Type() string

	// GetMeta exposes the shared envelope (ID, handled-by markers).
	GetMeta() *Meta
}

// Meta is the shared message envelope. Handlers is the ordered list of
// behavior names that already extended this message; behaviors use it to
// stay idempotent when several of them layer onto the same message.
type Meta struct {
	ID       string   `json:"id"`
	Handlers []string `json:"handlers,omitempty"`
}

func (m *Meta) GetMeta() *Meta { return m }

// HandledBy reports whether a behavior already extended this message.
func (m *Meta) HandledBy(name string) bool {
	for _, h := range m.Handlers {
		if h == name {
			return true
		}
	}
	return false
}

// MarkHandled appends a behavior name to the handled-by list.
func (m *Meta) MarkHandled(name string) {
	m.Handlers = append(m.Handlers, name)
}

// NewMeta builds an envelope with a fresh message ID.
func NewMeta() Meta {
	return Meta{ID: ulid.MustNew(ulid.Now(), rand.Reader).String()}
}

// BaseInfo is the agent-reported base section of heartbeat-style messages.
type BaseInfo struct {
	APIPort       int    `json:"apiPort,omitempty"`
	MessagingPort int    `json:"messagingPort,omitempty"`
	Hostname      string `json:"hostname,omitempty"`
}

// HostInit is sent by the agent when the instance boots.
type HostInit struct {
	Meta
	RemoteIP string `json:"remoteIp,omitempty"`
	Version  string `json:"version,omitempty"`
}

func (*HostInit) Type() string { return TypeHostInit }

// HostUp is sent when the instance finished initialization.
type HostUp struct {
	Meta
	Volumes []server.VolumeConfig `json:"volumes,omitempty"`
	Base    *BaseInfo             `json:"base,omitempty"`
}

func (*HostUp) Type() string { return TypeHostUp }

// HostDown is sent when the instance is going away.
type HostDown struct {
	Meta
}

func (*HostDown) Type() string { return TypeHostDown }

// HostUpdate is the periodic heartbeat carrying current agent settings.
type HostUpdate struct {
	Meta
	Base *BaseInfo `json:"base,omitempty"`
}

func (*HostUpdate) Type() string { return TypeHostUpdate }

// BeforeHostTerminate is sent to the agent ahead of termination; behaviors
// attach the volume configuration the agent must detach cleanly.
type BeforeHostTerminate struct {
	Meta
	Suspend bool                  `json:"suspend,omitempty"`
	Volumes []server.VolumeConfig `json:"volumes,omitempty"`
}

func (*BeforeHostTerminate) Type() string { return TypeBeforeHostTerminate }

// DeployInfo bootstraps an automatic deployment task on the new host.
type DeployInfo struct {
	TaskID        string `json:"taskId"`
	ApplicationID int64  `json:"applicationId"`
	RemotePath    string `json:"remotePath"`
}

// BaseConfig is the generic per-server agent configuration assembled by the
// base behavior.
type BaseConfig struct {
	KeepScriptingLogsTime     int               `json:"keepScriptingLogsTime"`
	AbortInitOnScriptFail     bool              `json:"abortInitOnScriptFail"`
	DisableFirewallManagement bool              `json:"disableFirewallManagement"`
	ResumeStrategy            string            `json:"resumeStrategy"`
	Hostname                  string            `json:"hostname"`
	APIPort                   int               `json:"apiPort"`
	MessagingPort             int               `json:"messagingPort"`
	Update                    map[string]string `json:"update,omitempty"`
}

// HostInitResponse is the outbound answer to HostInit, carrying the full
// configuration the agent applies.
type HostInitResponse struct {
	Meta
	Volumes []server.VolumeConfig `json:"volumes,omitempty"`
	Base    *BaseConfig           `json:"base,omitempty"`
	Deploy  *DeployInfo           `json:"deploy,omitempty"`
}

func (*HostInitResponse) Type() string { return TypeHostInitResponse }

// wire wraps a message with its type tag for encoding.
type wire struct {
	Type string  `json:"type"`
	Body Message `json:"body"`
}

// Encode serializes a message with its type tag.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(wire{Type: msg.Type(), Body: msg})
}

// Decode parses a type-tagged message document into its concrete type.
func Decode(data []byte) (Message, error) {
	var env struct {
		Type string          `json:"type"`
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message envelope: %w", err)
	}

	var msg Message
	switch env.Type {
	case TypeHostInit:
		msg = &HostInit{}
	case TypeHostInitResponse:
		msg = &HostInitResponse{}
	case TypeHostUp:
		msg = &HostUp{}
	case TypeHostDown:
		msg = &HostDown{}
	case TypeHostUpdate:
		msg = &HostUpdate{}
	case TypeBeforeHostTerminate:
		msg = &BeforeHostTerminate{}
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}

	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, msg); err != nil {
			return nil, fmt.Errorf("decode %s body: %w", env.Type, err)
		}
	}
	return msg, nil
}
