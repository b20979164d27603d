package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/webhook"
)

// WebhookStore is the gorm-backed persistence of the webhook subsystem.
type WebhookStore struct {
	db *gorm.DB
}

func NewWebhookStore(db *gorm.DB) *WebhookStore {
	return &WebhookStore{db: db}
}

func (s *WebhookStore) FindByEvent(ctx context.Context, eventType string, farmID, accountID, envID int64) ([]webhook.Subscription, error) {
	var subs []webhook.Subscription
	err := s.db.WithContext(ctx).
		Joins("JOIN webhook_config_events wce ON wce.subscription_id = webhook_configs.id").
		Joins("JOIN webhook_config_farms wcf ON wcf.subscription_id = webhook_configs.id").
		Where("wce.event_type = ?", eventType).
		Where("wcf.farm_id IN (0, ?)", farmID).
		Where("webhook_configs.account_id = ?", accountID).
		Where("webhook_configs.env_id = ?", envID).
		Order("webhook_configs.id asc").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}

	for i := range subs {
		endpoints, err := s.endpointsOf(ctx, subs[i].ID)
		if err != nil {
			return nil, err
		}
		subs[i].Endpoints = endpoints
	}
	return subs, nil
}

func (s *WebhookStore) endpointsOf(ctx context.Context, subscriptionID int64) ([]webhook.Endpoint, error) {
	var endpoints []webhook.Endpoint
	err := s.db.WithContext(ctx).
		Joins("JOIN webhook_config_endpoints wcep ON wcep.endpoint_id = webhook_endpoints.id").
		Where("wcep.subscription_id = ?", subscriptionID).
		Order("wcep.position asc, webhook_endpoints.id asc").
		Find(&endpoints).Error
	return endpoints, err
}

func (s *WebhookStore) CreateDelivery(ctx context.Context, record *webhook.DeliveryRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

// FetchDue claims a batch of due deliveries inside a transaction, bumping
// the attempt counter so concurrent workers never double-claim a record.
func (s *WebhookStore) FetchDue(ctx context.Context, limit, maxAttempts int) ([]webhook.DeliveryRecord, error) {
	var records []webhook.DeliveryRecord
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(
			`SELECT * FROM webhook_history
			 WHERE status IN (?, ?)
			   AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
			   AND attempts < ?
			 ORDER BY created_at ASC
			 LIMIT ?
			 FOR UPDATE SKIP LOCKED`,
			webhook.DeliveryPending,
			webhook.DeliveryFailed,
			now,
			maxAttempts,
			limit,
		).Scan(&records).Error; err != nil {
			return err
		}

		if len(records) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(records))
		for i := range records {
			ids = append(ids, records[i].ID)
			records[i].Attempts++
		}

		return tx.Model(&webhook.DeliveryRecord{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *WebhookStore) Endpoint(ctx context.Context, id int64) (*webhook.Endpoint, error) {
	var endpoint webhook.Endpoint
	if err := s.db.WithContext(ctx).First(&endpoint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("webhook endpoint %d not found", id)
		}
		return nil, err
	}
	return &endpoint, nil
}

func (s *WebhookStore) MarkDelivered(ctx context.Context, id int64, responseCode int) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&webhook.DeliveryRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        webhook.DeliveryComplete,
			"response_code": responseCode,
			"last_error":    "",
			"delivered_at":  now,
			"updated_at":    now,
		}).Error
}

func (s *WebhookStore) MarkFailed(ctx context.Context, id int64, deliveryErr error, responseCode int, nextAttempt time.Time) error {
	msg := ""
	if deliveryErr != nil {
		msg = deliveryErr.Error()
	}
	return s.db.WithContext(ctx).Model(&webhook.DeliveryRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          webhook.DeliveryFailed,
			"response_code":   responseCode,
			"last_error":      msg,
			"next_attempt_at": nextAttempt,
			"updated_at":      time.Now().UTC(),
		}).Error
}
