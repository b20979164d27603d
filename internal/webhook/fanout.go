package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/event"
	"github.com/rkreddybogati/scalr/internal/globalvar"
	"github.com/rkreddybogati/scalr/pkg/snowflake"
	"go.uber.org/zap"
)

// payloadTimeFormat mirrors the audit format of the original platform.
const payloadTimeFormat = "Mon 02 Jan 2006 15:04:05 MST"

// Payload is the JSON document delivered to each endpoint.
type Payload struct {
	EventName       string            `json:"eventName"`
	EventID         string            `json:"eventId"`
	Timestamp       string            `json:"timestamp"`
	ConfigurationID int64             `json:"configurationId"`
	EndpointID      int64             `json:"endpointId"`
	Data            map[string]string `json:"data"`
	UserData        string            `json:"userData"`
}

// Fanout resolves subscriptions for an event and creates delivery records.
type Fanout struct {
	store  Store
	vars   globalvar.Resolver
	ids    *snowflake.Node
	logger *zap.Logger
}

func NewFanout(store Store, vars globalvar.Resolver, ids *snowflake.Node, logger *zap.Logger) *Fanout {
	return &Fanout{
		store:  store,
		vars:   vars,
		ids:    ids,
		logger: logger.Named("webhook.fanout"),
	}
}

// Dispatch creates exactly one delivery record per (event, valid endpoint)
// pair across the subscriptions matching the event, and returns the number
// created. Subscriptions and endpoints are processed in resolution order.
func (f *Fanout) Dispatch(ctx context.Context, ev *event.Event, rec *server.Record) (int, error) {
	subs, err := f.store.FindByEvent(ctx, ev.Name(), rec.FarmID, rec.AccountID, rec.EnvID)
	if err != nil {
		return 0, fmt.Errorf("resolve subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	vars, err := f.vars.List(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("resolve global variables: %w", err)
	}

	created := 0
	// Subscriptions can share endpoints (a farm-level and an account-level
	// subscription pointing at the same URL); the first subscription to
	// resolve an endpoint wins and later ones skip it, keeping one delivery
	// per (event, endpoint) pair.
	seen := make(map[int64]struct{})
	for _, sub := range subs {
		payload := Payload{
			EventName:       ev.Name(),
			EventID:         ev.ID,
			Timestamp:       time.Now().UTC().Format(payloadTimeFormat),
			ConfigurationID: sub.ID,
			Data:            make(map[string]string, len(vars)),
		}

		for _, gv := range vars {
			// System variables are always delivered, even when the
			// subscription skips private ones.
			if gv.Private && sub.SkipPrivateGV && !gv.System {
				continue
			}
			payload.Data[gv.Name] = gv.Value
		}

		if sub.PostData != "" {
			payload.UserData = globalvar.Interpolate(sub.PostData, vars)
		}

		for _, ep := range sub.Endpoints {
			if !ep.IsValid {
				continue
			}
			if _, ok := seen[ep.ID]; ok {
				continue
			}
			seen[ep.ID] = struct{}{}

			payload.EndpointID = ep.ID
			encoded, err := json.Marshal(payload)
			if err != nil {
				return created, fmt.Errorf("encode payload: %w", err)
			}

			record := DeliveryRecord{
				ID:             f.ids.GenerateID(),
				EventID:        ev.ID,
				EndpointID:     ep.ID,
				SubscriptionID: sub.ID,
				EventType:      ev.Name(),
				ServerID:       rec.ServerID,
				FarmID:         rec.FarmID,
				Payload:        string(encoded),
				Status:         DeliveryPending,
				CreatedAt:      time.Now().UTC(),
			}
			if err := f.store.CreateDelivery(ctx, &record); err != nil {
				return created, fmt.Errorf("create delivery record: %w", err)
			}

			created++
		}
	}

	f.logger.Debug("webhooks_enqueued",
		zap.String("event_id", ev.ID),
		zap.Int("deliveries", created),
	)
	return created, nil
}
