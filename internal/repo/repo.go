package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coldsats/lnwallet/internal/model"
)

// RepositoryInterface restricts Repo methods (mocked in unit tests).
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	CreateTransaction(ctx context.Context, t *model.Transaction) error
	FindByK1(ctx context.Context, k1 string) (*model.Transaction, error)
	CasStatus(ctx context.Context, id uint64, from, to string) (bool, error)
	SetInvoice(ctx context.Context, id uint64, invoice, tracker string) error
	SettleByTracker(ctx context.Context, operationID string) (*model.Transaction, bool, error)
	UserSummary(ctx context.Context, userID string) ([]SummaryRow, error)
	PublishDomainEvent(ctx context.Context, evt model.DomainEvent) error
	CacheDiscovery(ctx context.Context, k1 string, payload []byte, ttl time.Duration) error
	GetCachedDiscovery(ctx context.Context, k1 string) ([]byte, error)
}

// SummaryRow aggregates a user's ledger by type and status.
type SummaryRow struct {
	Type         string `json:"type"`
	Status       string `json:"status"`
	TotalMsats   int64  `json:"totalMsats"`
	Transactions int64  `json:"transactions"`
}

// Repository implements RepositoryInterface over postgres, redis and kafka.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// CreateTransaction inserts record.
func (r *Repository) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// FindByK1 fetches the transaction owning a withdrawal-point nonce.
func (r *Repository) FindByK1(ctx context.Context, k1 string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).Where("k1 = ?", k1).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CasStatus is the compare-and-set status transition. The ledger store's
// conditional update is the sole cross-instance serialization primitive:
// when two replicas race, exactly one sees a row affected.
func (r *Repository) CasStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetInvoice records the submitted invoice and its gateway operation id.
func (r *Repository) SetInvoice(ctx context.Context, id uint64, invoice, tracker string) error {
	return r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"invoice": invoice, "payment_tracker": tracker}).Error
}

// SettleByTracker completes the transaction correlated to a gateway
// operation id, provided it is not already terminal. Returns the settled
// row and whether this call performed the transition; zero rows affected is
// the idempotent no-op under duplicate delivery.
func (r *Repository) SettleByTracker(ctx context.Context, operationID string) (*model.Transaction, bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("payment_tracker = ? AND status NOT IN ?", operationID,
			[]string{model.StatusComplete, model.StatusFailed}).
		Updates(map[string]interface{}{"status": model.StatusComplete, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	var t model.Transaction
	if err := r.db.WithContext(ctx).Where("payment_tracker = ?", operationID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, true, nil
		}
		return nil, true, err
	}
	return &t, true, nil
}

// UserSummary aggregates msats per type and status for one user.
func (r *Repository) UserSummary(ctx context.Context, userID string) ([]SummaryRow, error) {
	var rows []SummaryRow
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("type, status, SUM(amount_msats) AS total_msats, COUNT(*) AS transactions").
		Where("user_id = ?", userID).
		Group("type, status").
		Scan(&rows).Error
	return rows, err
}

// PublishDomainEvent sends to Kafka. The writer is topic-less; each event
// names its own topic.
func (r *Repository) PublishDomainEvent(ctx context.Context, evt model.DomainEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: evt.Topic,
		Key:   []byte(evt.Payload.PaymentTracker),
		Value: payload,
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

func discoveryKey(k1 string) string { return fmt.Sprintf("lnurlw:discovery:%s", k1) }

// CacheDiscovery stores the first-step payload for the link's lifetime.
func (r *Repository) CacheDiscovery(ctx context.Context, k1 string, payload []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, discoveryKey(k1), payload, ttl).Err()
}

// GetCachedDiscovery reads Redis.
func (r *Repository) GetCachedDiscovery(ctx context.Context, k1 string) ([]byte, error) {
	return r.rdb.Get(ctx, discoveryKey(k1)).Bytes()
}
