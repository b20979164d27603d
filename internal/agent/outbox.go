package agent

import "context"

// Outbox enqueues outbound messages for delivery to a server's agent.
// Delivery itself runs asynchronously; Enqueue only records intent.
type Outbox interface {
	Enqueue(ctx context.Context, serverID string, msg Message) error
}
