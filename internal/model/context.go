package model

import "encoding/json"

// Context kinds. The raw correlation payload attached to a transaction is
// decoded exactly once, at write time; a payload that fails to parse or
// carries no recognized key is recorded as ContextNone so the outcome is
// auditable instead of silently re-derived on every read.
const (
	ContextNone               = "none"
	ContextSharesSubscription = "shares-subscription"
)

// TxContext is the decoded form of the opaque correlation payload.
type TxContext struct {
	Kind      string
	TrackerID string
}

// DecodeTxContext parses the raw payload. Any malformed or unrecognized
// input maps to ContextNone; it never fails.
func DecodeTxContext(raw string) TxContext {
	if raw == "" {
		return TxContext{Kind: ContextNone}
	}
	var body struct {
		SharesSubscriptionTracker string `json:"sharesSubscriptionTracker"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return TxContext{Kind: ContextNone}
	}
	if body.SharesSubscriptionTracker == "" {
		return TxContext{Kind: ContextNone}
	}
	return TxContext{Kind: ContextSharesSubscription, TrackerID: body.SharesSubscriptionTracker}
}
