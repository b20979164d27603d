package observer

import (
	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/behavior"
	"github.com/rkreddybogati/scalr/internal/domain/farm"
	"github.com/rkreddybogati/scalr/internal/event"
)

// BuiltinDeps carries the collaborators of the standard observer set.
type BuiltinDeps struct {
	DNS       DNSManager
	Storage   farm.Storage
	Outbox    agent.Outbox
	Behaviors *behavior.Dispatcher
	Logger    *zap.Logger
}

// Builtin returns a constructor for the standard observer set in dispatch
// order. Storage runs before Messaging so termination messages carry the
// volume layout the storage observer resolved.
func Builtin(deps BuiltinDeps) func() []event.Observer {
	return func() []event.Observer {
		return []event.Observer{
			NewDNSObserver(deps.DNS, deps.Logger),
			NewStorageObserver(deps.Storage, deps.Logger),
			NewMessagingObserver(deps.Outbox, deps.Behaviors, deps.Logger),
			NewBehaviorObserver(deps.Behaviors, deps.Logger),
		}
	}
}
