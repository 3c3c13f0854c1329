package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TypeDeposit  = "DEPOSIT"
	TypeWithdraw = "WITHDRAW"
)

// Transaction statuses. COMPLETE and FAILED are terminal.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusComplete   = "COMPLETE"
	StatusFailed     = "FAILED"
)

// Lightning is the payment descriptor embedded in a transaction: either a
// BOLT11 invoice, or an LNURL withdrawal point identified by its single-use
// K1 nonce.
type Lightning struct {
	Invoice              string     `gorm:"column:invoice;size:2048"`
	K1                   string     `gorm:"column:k1;size:64;index"`
	ExpiresAt            *time.Time `gorm:"column:expires_at"`
	MaxWithdrawableMsats int64      `gorm:"column:max_withdrawable_msats"`
}

type Transaction struct {
	ID             uint64              `gorm:"primaryKey"`
	UserID         string              `gorm:"size:64;not null;index"`
	Type           string              `gorm:"size:32;not null"`
	AmountMsats    int64               `gorm:"not null"`
	AmountFiat     decimal.NullDecimal `gorm:"type:numeric(20,8)"`
	FiatCurrency   string              `gorm:"size:8"`
	Status         string              `gorm:"size:32;not null;default:'PENDING';index"`
	PaymentTracker string              `gorm:"size:128;index"`
	Lightning      Lightning           `gorm:"embedded"`
	ContextKind    string              `gorm:"size:32;not null;default:'none'"`
	ContextTracker string              `gorm:"size:128"`
	RawContext     string              `gorm:"type:text"`
	CreatedAt      time.Time           `gorm:"autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime"`
}

func (Transaction) TableName() string { return "transaction" }

// Terminal reports whether the status admits no further transitions.
func Terminal(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

// WithdrawalExpired compares the stored expiry against now; expiry is checked
// lazily at lookup, there is no background sweep.
func (t *Transaction) WithdrawalExpired(now time.Time) bool {
	return t.Lightning.ExpiresAt != nil && now.After(*t.Lightning.ExpiresAt)
}
