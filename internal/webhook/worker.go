package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scalr",
	Subsystem: "webhooks",
	Name:      "deliveries_total",
	Help:      "Webhook delivery attempts by result.",
}, []string{"result"})

// WorkerConfig tunes the delivery loop.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RatePerSec   int
	Timeout      time.Duration
}

// Worker delivers pending webhook payloads. Delivery is out-of-band from
// fan-out: records stay authoritative in the database, the worker claims
// due batches and POSTs them with a global rate limit and a per-endpoint
// circuit breaker.
type Worker struct {
	store   Store
	cfg     WorkerConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	mu       sync.Mutex
	breakers map[int64]*gobreaker.CircuitBreaker
}

func NewWorker(store Store, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Worker{
		store:    store,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		logger:   logger.Named("webhook.worker"),
		breakers: make(map[int64]*gobreaker.CircuitBreaker),
	}
}

// Run polls for due deliveries until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if err := w.processBatch(ctx); err != nil {
		w.logger.Error("webhook_initial_poll_failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("webhook_poll_failed", zap.Error(err))
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	records, err := w.store.FetchDue(ctx, w.cfg.BatchSize, w.cfg.MaxAttempts)
	if err != nil {
		return err
	}

	for i := range records {
		w.deliver(ctx, &records[i])
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, record *DeliveryRecord) {
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	endpoint, err := w.store.Endpoint(ctx, record.EndpointID)
	if err != nil {
		w.fail(ctx, record, fmt.Errorf("resolve endpoint: %w", err), 0)
		return
	}

	breaker := w.breakerFor(endpoint.ID)
	code := 0
	_, err = breaker.Execute(func() (any, error) {
		var execErr error
		code, execErr = w.post(ctx, endpoint, record)
		return nil, execErr
	})
	if err != nil {
		w.fail(ctx, record, err, code)
		return
	}

	deliveriesTotal.WithLabelValues("ok").Inc()
	if err := w.store.MarkDelivered(ctx, record.ID, code); err != nil {
		w.logger.Error("mark_delivered_failed",
			zap.Int64("delivery_id", record.ID),
			zap.Error(err),
		)
	}
}

func (w *Worker) post(ctx context.Context, endpoint *Endpoint, record *DeliveryRecord) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewBufferString(record.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Scalr-Webhook-Id", fmt.Sprintf("%d", record.ID))
	if endpoint.SecurityKey != "" {
		req.Header.Set("X-Signature", sign(record.Payload, endpoint.SecurityKey))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (w *Worker) fail(ctx context.Context, record *DeliveryRecord, deliveryErr error, code int) {
	deliveriesTotal.WithLabelValues("error").Inc()
	w.logger.Warn("webhook_delivery_failed",
		zap.Int64("delivery_id", record.ID),
		zap.Int64("endpoint_id", record.EndpointID),
		zap.Int("attempts", record.Attempts),
		zap.Error(deliveryErr),
	)

	next := time.Now().UTC().Add(backoffDuration(record.Attempts))
	if err := w.store.MarkFailed(ctx, record.ID, deliveryErr, code, next); err != nil {
		w.logger.Error("mark_failed_failed",
			zap.Int64("delivery_id", record.ID),
			zap.Error(err),
		)
	}
}

func (w *Worker) breakerFor(endpointID int64) *gobreaker.CircuitBreaker {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cb, ok := w.breakers[endpointID]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("webhook-endpoint-%d", endpointID),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.TotalFailures >= 5
		},
	})
	w.breakers[endpointID] = cb
	return cb
}

func sign(payload, key string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func backoffDuration(attempt int) time.Duration {
	if attempt <= 1 {
		return 10 * time.Second
	}

	maxBackoff := 5 * time.Minute
	base := 10 * time.Second
	shift := attempt - 1
	if shift > 6 {
		shift = 6
	}

	d := base * time.Duration(1<<shift)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
