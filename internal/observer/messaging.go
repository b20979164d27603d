package observer

import (
	"context"

	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/behavior"
	"github.com/rkreddybogati/scalr/internal/event"
)

// MessagingObserver translates lifecycle events into agent protocol
// messages, letting the server's behavior chain extend each message before
// it is enqueued. It records on the event how many messages the transition
// was expected to produce and how many were actually enqueued; the audit
// row keeps both.
type MessagingObserver struct {
	event.NopObserver

	outbox    agent.Outbox
	behaviors *behavior.Dispatcher
	logger    *zap.Logger
}

func NewMessagingObserver(outbox agent.Outbox, behaviors *behavior.Dispatcher, logger *zap.Logger) *MessagingObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagingObserver{
		outbox:    outbox,
		behaviors: behaviors,
		logger:    logger.Named("observer.messaging"),
	}
}

func (o *MessagingObserver) Name() string { return "Messaging" }

// Reinit discards any connection state carried over a process fork. The
// outbox is rebuilt lazily on the next enqueue, so there is nothing to
// tear down here yet.
func (o *MessagingObserver) Reinit() error { return nil }

func (o *MessagingObserver) OnHostInit(ctx context.Context, ev *event.Event) error {
	msg := &agent.HostInitResponse{Meta: agent.NewMeta()}
	return o.send(ctx, ev, msg)
}

func (o *MessagingObserver) OnBeforeHostTerminate(ctx context.Context, ev *event.Event) error {
	msg := &agent.BeforeHostTerminate{
		Meta:    agent.NewMeta(),
		Suspend: ev.Suspended,
		Volumes: ev.Volumes,
	}
	return o.send(ctx, ev, msg)
}

func (o *MessagingObserver) send(ctx context.Context, ev *event.Event, msg agent.Message) error {
	if ev.Server == nil || o.outbox == nil {
		return nil
	}
	ev.MsgExpected++

	if o.behaviors != nil {
		if err := o.behaviors.ExtendMessage(ctx, ev.Server, msg); err != nil {
			o.logger.Error("cannot_extend_message",
				zap.String("server_id", ev.Server.ServerID),
				zap.String("message_type", msg.Type()),
				zap.Error(err))
			return err
		}
	}

	if err := o.outbox.Enqueue(ctx, ev.Server.ServerID, msg); err != nil {
		o.logger.Error("cannot_enqueue_message",
			zap.String("server_id", ev.Server.ServerID),
			zap.String("message_type", msg.Type()),
			zap.Error(err))
		return err
	}
	ev.MsgCreated++
	o.logger.Debug("message_enqueued",
		zap.String("server_id", ev.Server.ServerID),
		zap.String("message_type", msg.Type()))
	return nil
}
