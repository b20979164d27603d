package webhook

import (
	"context"
	"time"
)

// DeliveryStatus is the lifecycle of one delivery record.
type DeliveryStatus string

const (
	DeliveryPending  DeliveryStatus = "pending"
	DeliveryComplete DeliveryStatus = "complete"
	DeliveryFailed   DeliveryStatus = "failed"
)

// Endpoint is one user-configured webhook target.
type Endpoint struct {
	ID          int64  `gorm:"primaryKey"`
	EnvID       int64  `gorm:"index;not null"`
	URL         string `gorm:"type:text;not null"`
	IsValid     bool   `gorm:"not null;default:false"`
	SecurityKey string `gorm:"type:varchar(64)"`
	CreatedAt   time.Time
}

func (Endpoint) TableName() string {
	return "webhook_endpoints"
}

// Subscription maps (event kind, farm, account, environment) to an ordered
// set of endpoints.
type Subscription struct {
	ID            int64  `gorm:"primaryKey"`
	EnvID         int64  `gorm:"index;not null"`
	AccountID     int64  `gorm:"index;not null"`
	Name          string `gorm:"type:varchar(100);not null"`
	PostData      string `gorm:"type:text"`
	SkipPrivateGV bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time

	// Endpoints are resolved by the store in configuration order.
	Endpoints []Endpoint `gorm:"-"`
}

func (Subscription) TableName() string {
	return "webhook_configs"
}

// SubscriptionEvent binds a subscription to a triggering event kind.
type SubscriptionEvent struct {
	SubscriptionID int64  `gorm:"primaryKey"`
	EventType      string `gorm:"primaryKey;type:varchar(100)"`
}

func (SubscriptionEvent) TableName() string {
	return "webhook_config_events"
}

// SubscriptionFarm scopes a subscription to a farm. FarmID 0 matches all
// farms of the account/environment.
type SubscriptionFarm struct {
	SubscriptionID int64 `gorm:"primaryKey"`
	FarmID         int64 `gorm:"primaryKey"`
}

func (SubscriptionFarm) TableName() string {
	return "webhook_config_farms"
}

// SubscriptionEndpoint binds a subscription to an endpoint, ordered.
type SubscriptionEndpoint struct {
	SubscriptionID int64 `gorm:"primaryKey"`
	EndpointID     int64 `gorm:"primaryKey"`
	Position       int   `gorm:"not null;default:0"`
}

func (SubscriptionEndpoint) TableName() string {
	return "webhook_config_endpoints"
}

// DeliveryRecord is an immutable append-only audit entry per
// (event, endpoint) pair, created at fan-out time. The delivery worker owns
// the status/attempt columns afterwards; the payload never changes.
type DeliveryRecord struct {
	ID             int64          `gorm:"primaryKey"`
	EventID        string         `gorm:"type:varchar(36);index:idx_wh_event_endpoint,unique;not null"`
	EndpointID     int64          `gorm:"index:idx_wh_event_endpoint,unique;not null"`
	SubscriptionID int64          `gorm:"index;not null"`
	EventType      string         `gorm:"type:varchar(100);not null"`
	ServerID       string         `gorm:"type:varchar(36)"`
	FarmID         int64          `gorm:"index"`
	Payload        string         `gorm:"type:text;not null"`
	Status         DeliveryStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Attempts       int            `gorm:"not null;default:0"`
	LastError      string         `gorm:"type:text"`
	ResponseCode   int            `gorm:"not null;default:0"`
	NextAttemptAt  *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DeliveryRecord) TableName() string {
	return "webhook_history"
}

// Store is the persistence surface of the webhook subsystem.
type Store interface {
	// FindByEvent resolves subscriptions matching the event kind scoped to
	// the farm, account and environment, endpoints resolved and ordered.
	FindByEvent(ctx context.Context, eventType string, farmID, accountID, envID int64) ([]Subscription, error)

	// CreateDelivery persists one new delivery record.
	CreateDelivery(ctx context.Context, record *DeliveryRecord) error

	// FetchDue claims up to limit pending/failed deliveries whose next
	// attempt is due, bumping their attempt counter.
	FetchDue(ctx context.Context, limit, maxAttempts int) ([]DeliveryRecord, error)

	// Endpoint resolves an endpoint by ID.
	Endpoint(ctx context.Context, id int64) (*Endpoint, error)

	// MarkDelivered finalizes a successful delivery.
	MarkDelivered(ctx context.Context, id int64, responseCode int) error

	// MarkFailed records a failed attempt and its retry time.
	MarkFailed(ctx context.Context, id int64, deliveryErr error, responseCode int, nextAttempt time.Time) error
}
