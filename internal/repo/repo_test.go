package repo

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coldsats/lnwallet/internal/logger"
	"github.com/coldsats/lnwallet/internal/model"
)

func newTestRepo(t *testing.T) (*Repository, context.Context) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Transaction{}))

	rdb, _ := redismock.NewClientMock()
	return NewRepository(db, rdb, &kafka.Writer{}, must(logger.NewLogger("info"))), context.Background()
}

func TestCasStatus_SingleWinner(t *testing.T) {
	r, ctx := newTestRepo(t)
	tx := &model.Transaction{
		UserID:      "user-1",
		Type:        model.TypeWithdraw,
		AmountMsats: 100_000,
		Status:      model.StatusPending,
		Lightning:   model.Lightning{K1: "cafe0123456789"},
	}
	assert.NoError(t, r.CreateTransaction(ctx, tx))

	// first transition wins, the racing duplicate sees zero rows
	ok, err := r.CasStatus(ctx, tx.ID, model.StatusPending, model.StatusProcessing)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CasStatus(ctx, tx.ID, model.StatusPending, model.StatusProcessing)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.CasStatus(ctx, tx.ID, model.StatusProcessing, model.StatusComplete)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestSettleByTracker_Idempotent(t *testing.T) {
	r, ctx := newTestRepo(t)
	assert.NoError(t, r.CreateTransaction(ctx, &model.Transaction{
		UserID:         "user-1",
		Type:           model.TypeDeposit,
		AmountMsats:    250_000,
		Status:         model.StatusPending,
		PaymentTracker: "op-1",
	}))

	settled, applied, err := r.SettleByTracker(ctx, "op-1")
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.StatusComplete, settled.Status)

	_, applied, err = r.SettleByTracker(ctx, "op-1")
	assert.NoError(t, err)
	assert.False(t, applied)

	_, applied, err = r.SettleByTracker(ctx, "op-unknown")
	assert.NoError(t, err)
	assert.False(t, applied)
}

func TestUserSummary(t *testing.T) {
	r, ctx := newTestRepo(t)
	rows := []model.Transaction{
		{UserID: "user-1", Type: model.TypeDeposit, AmountMsats: 100_000, Status: model.StatusComplete},
		{UserID: "user-1", Type: model.TypeDeposit, AmountMsats: 50_000, Status: model.StatusComplete},
		{UserID: "user-1", Type: model.TypeWithdraw, AmountMsats: 30_000, Status: model.StatusPending},
		{UserID: "user-2", Type: model.TypeDeposit, AmountMsats: 999, Status: model.StatusComplete},
	}
	for i := range rows {
		assert.NoError(t, r.CreateTransaction(ctx, &rows[i]))
	}

	summary, err := r.UserSummary(ctx, "user-1")
	assert.NoError(t, err)
	assert.Len(t, summary, 2)

	byKey := map[string]SummaryRow{}
	for _, row := range summary {
		byKey[row.Type+"/"+row.Status] = row
	}
	assert.Equal(t, int64(150_000), byKey["DEPOSIT/COMPLETE"].TotalMsats)
	assert.Equal(t, int64(2), byKey["DEPOSIT/COMPLETE"].Transactions)
	assert.Equal(t, int64(30_000), byKey["WITHDRAW/PENDING"].TotalMsats)
}

func must(l *zap.SugaredLogger, err error) *zap.SugaredLogger {
	if err != nil {
		panic(err)
	}
	return l
}
