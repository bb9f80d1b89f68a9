package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeFee        TransactionType = "fee"
	TypeSend       TransactionType = "send"
	TypeReceive    TransactionType = "receive"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeFee, TypeSend, TypeReceive:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a ledger entry.
// Transitions are pending -> completed and pending -> failed; terminal
// states are immutable and corrections require a compensating entry.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Valid reports whether s is a known transaction status
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is an immutable record of a single balance mutation (or, for
// receive entries, of an inbound transfer awaiting chain confirmation).
type Transaction struct {
	ID       uuid.UUID         `gorm:"type:uuid;primaryKey"`
	WalletID uuid.UUID         `gorm:"type:uuid;index;not null"`
	Type     TransactionType   `gorm:"size:20;index;not null"`
	Amount   decimal.Decimal   `gorm:"type:numeric(20,8);not null"`
	Status   TransactionStatus `gorm:"size:20;index;not null"`

	// Descriptive metadata, not part of the balance arithmetic
	Address   string `gorm:"size:128"`
	Network   string `gorm:"size:32"`
	CoinType  string `gorm:"size:16"`
	Reference string `gorm:"size:128;index"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	// Relationships
	Wallet Wallet `gorm:"foreignKey:WalletID"`
}

// BeforeCreate assigns a transaction ID when the caller did not supply one
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
