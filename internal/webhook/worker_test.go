package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type workerStore struct {
	due        []DeliveryRecord
	endpoints  map[int64]*Endpoint
	delivered  map[int64]int
	failed     map[int64]error
	failedNext map[int64]time.Time
}

func newWorkerStore() *workerStore {
	return &workerStore{
		endpoints:  make(map[int64]*Endpoint),
		delivered:  make(map[int64]int),
		failed:     make(map[int64]error),
		failedNext: make(map[int64]time.Time),
	}
}

func (s *workerStore) FindByEvent(ctx context.Context, eventType string, farmID, accountID, envID int64) ([]Subscription, error) {
	return nil, nil
}

func (s *workerStore) CreateDelivery(ctx context.Context, record *DeliveryRecord) error {
	return nil
}

func (s *workerStore) FetchDue(ctx context.Context, limit, maxAttempts int) ([]DeliveryRecord, error) {
	due := s.due
	s.due = nil
	return due, nil
}

func (s *workerStore) Endpoint(ctx context.Context, id int64) (*Endpoint, error) {
	return s.endpoints[id], nil
}

func (s *workerStore) MarkDelivered(ctx context.Context, id int64, responseCode int) error {
	s.delivered[id] = responseCode
	return nil
}

func (s *workerStore) MarkFailed(ctx context.Context, id int64, deliveryErr error, responseCode int, nextAttempt time.Time) error {
	s.failed[id] = deliveryErr
	s.failedNext[id] = nextAttempt
	return nil
}

func TestWorkerDeliversAndSigns(t *testing.T) {
	var gotBody string
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotSignature = r.Header.Get("X-Signature")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newWorkerStore()
	store.endpoints[100] = &Endpoint{ID: 100, URL: srv.URL, IsValid: true, SecurityKey: "s3cret"}
	store.due = []DeliveryRecord{{ID: 1, EndpointID: 100, Payload: `{"eventName":"HostUp"}`, Attempts: 1}}

	w := NewWorker(store, WorkerConfig{}, zap.NewNop())
	require.NoError(t, w.processBatch(context.Background()))

	assert.Equal(t, `{"eventName":"HostUp"}`, gotBody)

	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write([]byte(gotBody))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSignature)

	assert.Equal(t, http.StatusOK, store.delivered[1])
	assert.Empty(t, store.failed)
}

func TestWorkerNoSignatureWithoutKey(t *testing.T) {
	var hasSignature bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSignature = r.Header.Get("X-Signature") != ""
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	store := newWorkerStore()
	store.endpoints[100] = &Endpoint{ID: 100, URL: srv.URL, IsValid: true}
	store.due = []DeliveryRecord{{ID: 1, EndpointID: 100, Payload: `{}`, Attempts: 1}}

	w := NewWorker(store, WorkerConfig{}, zap.NewNop())
	require.NoError(t, w.processBatch(context.Background()))

	assert.False(t, hasSignature)
	assert.Equal(t, http.StatusAccepted, store.delivered[1])
}

func TestWorkerMarksFailedWithBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := newWorkerStore()
	store.endpoints[100] = &Endpoint{ID: 100, URL: srv.URL, IsValid: true}
	store.due = []DeliveryRecord{{ID: 1, EndpointID: 100, Payload: `{}`, Attempts: 2}}

	w := NewWorker(store, WorkerConfig{}, zap.NewNop())
	before := time.Now().UTC()
	require.NoError(t, w.processBatch(context.Background()))

	require.Contains(t, store.failed, int64(1))
	assert.ErrorContains(t, store.failed[1], "status 502")
	assert.Empty(t, store.delivered)
	assert.True(t, store.failedNext[1].After(before.Add(backoffDuration(2)-time.Second)))
}

func TestBackoffDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, backoffDuration(0))
	assert.Equal(t, 10*time.Second, backoffDuration(1))
	assert.Equal(t, 20*time.Second, backoffDuration(2))
	assert.Equal(t, 40*time.Second, backoffDuration(3))
	assert.Equal(t, 5*time.Minute, backoffDuration(7))
	assert.Equal(t, 5*time.Minute, backoffDuration(50))
}
