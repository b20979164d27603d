package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// Known platform names. The factory is open: embedding code may register
// clients for names not listed here.
const (
	EC2        = "ec2"
	GCE        = "gce"
	OpenStack  = "openstack"
	CloudStack = "cloudstack"
	Nomad      = "nomad"
)

// ResumeStrategy tells the agent how a suspended server comes back.
type ResumeStrategy string

const (
	ResumeStrategyReboot       ResumeStrategy = "reboot"
	ResumeStrategyInit         ResumeStrategy = "init"
	ResumeStrategyNotSupported ResumeStrategy = "not-supported"
)

// Client is the per-platform operations surface the orchestration core
// needs. The concrete cloud SDK calls live behind it.
type Client interface {
	// LaunchServer asks the platform to start the machine described by the
	// record. The record's cloud-side identifiers are filled in on success.
	LaunchServer(ctx context.Context, record *server.Record) error

	// GetResumeStrategy reports how suspended servers resume on this platform.
	GetResumeStrategy() ResumeStrategy
}

// Factory holds registered platform clients keyed by platform name.
type Factory struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewFactory() *Factory {
	return &Factory{clients: make(map[string]Client)}
}

// Register binds a client to a platform name, replacing any previous one.
func (f *Factory) Register(name string, client Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[name] = client
}

// Client returns the client registered for a platform name.
func (f *Factory) Client(name string) (Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("no client registered for platform %q", name)
	}
	return client, nil
}
