package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/coldsats/lnwallet/internal/model"
	"github.com/coldsats/lnwallet/internal/repo"
)

// Reconciler applies gateway settlement notifications to the ledger.
// Delivery is at-least-once and handlers may run concurrently across
// replicas, so the whole path is a single conditional update plus a
// fire-and-forget publication.
type Reconciler struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

func NewReconciler(r repo.RepositoryInterface, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{repo: r, log: log}
}

// HandleReceiveSucceeded finalizes the transaction correlated to a settled
// gateway operation. A duplicate or unknown operation id is a no-op
// success. The returned error is non-nil only on store failure, in which
// case the consumer should not commit the offset and the event will be
// redelivered.
func (r *Reconciler) HandleReceiveSucceeded(ctx context.Context, evt model.ReceiveSucceeded) error {
	tx, applied, err := r.repo.SettleByTracker(ctx, evt.OperationID)
	if err != nil {
		r.log.Errorf("settle operation=%s: %v", evt.OperationID, err)
		return err
	}
	if !applied {
		r.log.Debugf("operation=%s already settled or unknown, skipping", evt.OperationID)
		return nil
	}
	r.log.Infow("transaction settled", "operation", evt.OperationID)

	if tx == nil || tx.ContextKind != model.ContextSharesSubscription {
		return nil
	}
	// The payment has physically settled; a publish failure must never
	// unwind the COMPLETE write. Downstream consumers dedupe on their own.
	event := model.DomainEvent{
		Topic:   model.TopicCollectionForShares,
		Context: model.ContextCollectionForShares,
		Payload: model.DomainEventPayload{
			PaymentTracker: tx.ContextTracker,
			PaymentStatus:  model.StatusComplete,
		},
	}
	if err := r.repo.PublishDomainEvent(ctx, event); err != nil {
		r.log.Warnf("publish %s for operation=%s: %v", event.Topic, evt.OperationID, err)
	}
	return nil
}
