package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/coldsats/lnwallet/internal/logger"
)

func newTestLimiter(t *testing.T) (*Limiter, redismock.ClientMock) {
	rdb, mock := redismock.NewClientMock()
	log, err := logger.NewLogger("info")
	assert.NoError(t, err)
	return NewLimiter(rdb, log, 5, time.Minute, 20, time.Hour), mock
}

func expectCheck(mock redismock.ClientMock, id string, burstVal, sustainedVal int64) {
	mock.ExpectTxPipeline()
	mock.ExpectIncr("rl:lnurl-withdraw:burst:" + id).SetVal(burstVal)
	mock.ExpectExpire("rl:lnurl-withdraw:burst:"+id, time.Minute).SetVal(true)
	mock.ExpectIncr("rl:lnurl-withdraw:sustained:" + id).SetVal(sustainedVal)
	mock.ExpectExpire("rl:lnurl-withdraw:sustained:"+id, time.Hour).SetVal(true)
	mock.ExpectTxPipelineExec()
}

func TestLimiter_BurstWindow(t *testing.T) {
	lim, mock := newTestLimiter(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		expectCheck(mock, "k1-abc", i, i)
	}
	expectCheck(mock, "k1-abc", 6, 6)

	for i := 0; i < 5; i++ {
		res := lim.Check(ctx, "k1-abc", "lnurl-withdraw")
		assert.True(t, res.Allowed, "attempt %d", i+1)
	}
	res := lim.Check(ctx, "k1-abc", "lnurl-withdraw")
	assert.False(t, res.Allowed)
	assert.Equal(t, WindowBurst, res.Window)
}

func TestLimiter_SustainedWindow(t *testing.T) {
	lim, mock := newTestLimiter(t)

	// burst long since expired, sustained still accumulating
	expectCheck(mock, "k1-slow", 1, 21)

	res := lim.Check(context.Background(), "k1-slow", "lnurl-withdraw")
	assert.False(t, res.Allowed)
	assert.Equal(t, WindowSustained, res.Window)
}

func TestLimiter_Reset(t *testing.T) {
	lim, mock := newTestLimiter(t)
	ctx := context.Background()

	mock.ExpectDel("rl:lnurl-withdraw:burst:k1-abc", "rl:lnurl-withdraw:sustained:k1-abc").SetVal(2)
	lim.Reset(ctx, "k1-abc", "lnurl-withdraw")

	expectCheck(mock, "k1-abc", 1, 1)
	res := lim.Check(ctx, "k1-abc", "lnurl-withdraw")
	assert.True(t, res.Allowed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_EmptyIdentifierBypasses(t *testing.T) {
	lim, mock := newTestLimiter(t)

	// no expectations registered: any redis call would fail the check path
	res := lim.Check(context.Background(), "", "lnurl-withdraw")
	assert.True(t, res.Allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_FailsOpenOnStorageError(t *testing.T) {
	lim, _ := newTestLimiter(t)

	// no expectations registered: the pipeline exec fails, which must allow
	res := lim.Check(context.Background(), "k1-abc", "lnurl-withdraw")
	assert.True(t, res.Allowed)
}
