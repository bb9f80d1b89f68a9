package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet represents a balance-holding account denominated in one currency
type Wallet struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID           string          `gorm:"size:64;index;not null"`
	Name              string          `gorm:"size:100"`
	Currency          string          `gorm:"size:10;not null"`
	Balance           decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0"`
	PasswordProtected bool            `gorm:"default:false"`
	PasswordHash      string          `gorm:"size:100"`
	CreatedAt         time.Time       `gorm:"index"`
	UpdatedAt         time.Time

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:WalletID"`
}

// BeforeCreate assigns a wallet ID when the caller did not supply one
func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
