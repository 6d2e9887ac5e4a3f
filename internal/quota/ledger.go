package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/novamoderation/novamod/internal/models"

	"gorm.io/gorm"
)

// ErrInsufficientBalance indicates a debit found no tokens left to charge.
var ErrInsufficientBalance = errors.New("quota: insufficient balance")

// Ledger manages per-account token balances.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger backed by GORM.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Debit charges one moderation token. The decrement is a single conditional
// UPDATE so that concurrent debits against the same account serialize at the
// store and the balance never goes negative.
func (l *Ledger) Debit(ctx context.Context, accountID uint64) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("quota: ledger not initialized")
	}
	res := l.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND token_balance > 0", accountID).
		Update("token_balance", gorm.Expr("token_balance - 1"))
	if res.Error != nil {
		return fmt.Errorf("quota: debit account %d: %w", accountID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// Balance returns the current token balance for an account.
func (l *Ledger) Balance(ctx context.Context, accountID uint64) (int64, error) {
	if l == nil || l.db == nil {
		return 0, fmt.Errorf("quota: ledger not initialized")
	}
	var row struct {
		TokenBalance int64 `gorm:"column:token_balance"`
	}
	err := l.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("token_balance").
		Where("id = ?", accountID).
		Take(&row).Error
	if err != nil {
		return 0, fmt.Errorf("quota: load balance for account %d: %w", accountID, err)
	}
	return row.TokenBalance, nil
}

// Credit adds tokens to an account. Used by provisioning, never by the
// request pipeline.
func (l *Ledger) Credit(ctx context.Context, accountID uint64, amount int64) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("quota: ledger not initialized")
	}
	if amount <= 0 {
		return fmt.Errorf("quota: credit amount must be positive, got %d", amount)
	}
	res := l.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("token_balance", gorm.Expr("token_balance + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("quota: credit account %d: %w", accountID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("quota: credit account %d: account not found", accountID)
	}
	return nil
}
