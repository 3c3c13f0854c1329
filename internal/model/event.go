package model

// Domain event topics and contexts published on the shared bus.
const (
	TopicCollectionForShares   = "collection_for_shares"
	ContextCollectionForShares = "COLLECTION_FOR_SHARES"
)

// DomainEvent is the envelope written to the event bus. Delivery is
// at-least-once and unordered; consumers must be idempotent.
type DomainEvent struct {
	Topic   string             `json:"topic"`
	Context string             `json:"context"`
	Payload DomainEventPayload `json:"payload"`
}

type DomainEventPayload struct {
	PaymentTracker string `json:"paymentTracker"`
	PaymentStatus  string `json:"paymentStatus"`
}

// ReceiveSucceeded is the gateway's settlement notification, consumed from
// the gateway events topic.
type ReceiveSucceeded struct {
	Context     string `json:"context"`
	OperationID string `json:"operationId"`
}
