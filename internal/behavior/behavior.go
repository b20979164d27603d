package behavior

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// Built-in behavior names. A farm role is a comma-separated set of these.
const (
	NameBase       = "base"
	NameMySQL      = "mysql"
	NamePostgreSQL = "postgresql"
	NamePercona    = "percona"
	NameMariaDB    = "mariadb"
	NameRedis      = "redis"
	NameMongoDB    = "mongodb"
	NameRabbitMQ   = "rabbitmq"
	NameHAProxy    = "haproxy"
	NameNginx      = "nginx"
	NameApache     = "apache"
	NameChef       = "chef"
	NameRouter     = "router"
)

// Behavior reacts to agent messages and server lifecycle transitions for
// one software role component. All hooks are optional in effect: a
// behavior that has nothing to do for a message returns nil.
type Behavior interface {
	Name() string

	// HandleMessage reacts to an inbound agent message, typically by
	// updating the server record or farm state.
	HandleMessage(ctx context.Context, rec *server.Record, msg agent.Message) error

	// ExtendMessage layers behavior-specific configuration onto an
	// outbound message before it is sent to the agent. Implementations
	// must be idempotent across repeated calls for the same message.
	ExtendMessage(ctx context.Context, rec *server.Record, msg agent.Message) error

	// Lifecycle hooks fired from the event pipeline.
	OnBeforeInstanceLaunch(ctx context.Context, rec *server.Record) error
	OnBeforeHostTerminate(ctx context.Context, rec *server.Record) error
	OnHostDown(ctx context.Context, rec *server.Record) error
}

// Nop is a no-op behavior base that concrete behaviors embed so they only
// implement the hooks they care about.
type Nop struct{}

func (Nop) HandleMessage(context.Context, *server.Record, agent.Message) error { return nil }
func (Nop) ExtendMessage(context.Context, *server.Record, agent.Message) error { return nil }
func (Nop) OnBeforeInstanceLaunch(context.Context, *server.Record) error       { return nil }
func (Nop) OnBeforeHostTerminate(context.Context, *server.Record) error        { return nil }
func (Nop) OnHostDown(context.Context, *server.Record) error                   { return nil }

// Constructor builds a behavior instance from the shared dependency set.
type Constructor func(deps Deps) Behavior

// Registry maps behavior names to constructors. The set is closed at
// startup; lookups for unknown names fail loudly instead of silently
// skipping a role component.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a named constructor. Registering the same name twice is a
// programming error.
func (r *Registry) Register(name string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.constructors[name]; ok {
		return fmt.Errorf("behavior %q already registered", name)
	}
	r.constructors[name] = ctor
	return nil
}

// New instantiates a behavior by name.
func (r *Registry) New(name string, deps Deps) (Behavior, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown behavior %q", name)
	}
	return ctor(deps), nil
}

// Names returns the registered behavior names sorted for stable output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltin fills a registry with the standard behavior set. Every
// name except base currently maps to the generic placeholder wired with
// its own name; database and proxy specific logic hangs off these slots.
func RegisterBuiltin(r *Registry) error {
	if err := r.Register(NameBase, func(deps Deps) Behavior { return NewBase(deps) }); err != nil {
		return err
	}
	for _, name := range []string{
		NameMySQL, NamePostgreSQL, NamePercona, NameMariaDB,
		NameRedis, NameMongoDB, NameRabbitMQ,
		NameHAProxy, NameNginx, NameApache,
		NameChef, NameRouter,
	} {
		name := name
		if err := r.Register(name, func(deps Deps) Behavior { return newGeneric(name) }); err != nil {
			return err
		}
	}
	return nil
}

// generic is the placeholder behavior for role components that need no
// message handling beyond what base provides.
type generic struct {
	Nop
	name string
}

func newGeneric(name string) *generic { return &generic{name: name} }

func (g *generic) Name() string { return g.name }
