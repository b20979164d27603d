package event

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Service is the single entry point external code uses to notify the core
// of a lifecycle occurrence: it dispatches the event and then records it,
// whatever the dispatch outcome was.
type Service struct {
	dispatcher *Dispatcher
	store      *Store
	logger     *zap.Logger
}

func NewService(dispatcher *Dispatcher, store *Store, logger *zap.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		store:      store,
		logger:     logger.Named("event.service"),
	}
}

// FireEvent dispatches the event to every observer and persists the audit
// row. Dispatch errors propagate to the caller; persistence never does.
func (s *Service) FireEvent(ctx context.Context, farmID int64, ev *Event) error {
	start := time.Now()

	err := s.dispatcher.Fire(ctx, farmID, ev)

	if s.store != nil {
		s.store.Store(ctx, farmID, ev, time.Since(start))
	}

	return err
}
