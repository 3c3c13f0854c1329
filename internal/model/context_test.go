package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTxContext(t *testing.T) {
	ctx := DecodeTxContext(`{"sharesSubscriptionTracker":"sub-42"}`)
	assert.Equal(t, ContextSharesSubscription, ctx.Kind)
	assert.Equal(t, "sub-42", ctx.TrackerID)

	for _, raw := range []string{
		"",
		"{not json",
		`{"somethingElse":"x"}`,
		`{"sharesSubscriptionTracker":""}`,
		"plain text",
	} {
		ctx := DecodeTxContext(raw)
		assert.Equal(t, ContextNone, ctx.Kind, "input %q", raw)
		assert.Empty(t, ctx.TrackerID)
	}
}
