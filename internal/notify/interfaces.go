package notify

import "context"

// Sink delivers notifications to a downstream transport (Redis queue, SQS,
// SNS, Pub/Sub, HTTP webhook).
type Sink interface {
	ID() string
	Type() string
	Publish(ctx context.Context, n Notification) error
}
