package services

import (
	"context"
	"errors"
	"fmt"
	"kitchen-challenge-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerEntryInput describes the event behind a balance change.
type LedgerEntryInput struct {
	Kind          models.LedgerKind
	ReferenceType string
	ReferenceID   string
	Note          string
}

// LedgerService owns account balances. Every mutation appends a LedgerEntry
// in the same transaction.
type LedgerService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Log   *zap.Logger
}

func NewLedgerService(db *gorm.DB, clock clockwork.Clock, logger *zap.Logger) *LedgerService {
	return &LedgerService{DB: db, Clock: clock, Log: logger}
}

// Deduct removes amount from the balance, failing with ErrInsufficientCredits
// when the balance is too low.
func (s *LedgerService) Deduct(ctx context.Context, accountID string, amount int64, entry LedgerEntryInput) (int64, error) {
	var balance int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.deductTx(tx, accountID, amount, entry)
		return err
	})
	return balance, err
}

// Credit adds amount to the balance.
func (s *LedgerService) Credit(ctx context.Context, accountID string, amount int64, entry LedgerEntryInput) (int64, error) {
	var balance int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.creditTx(tx, accountID, amount, entry)
		return err
	})
	return balance, err
}

// deductTx is the check-and-decrement as one conditional UPDATE; a concurrent
// spender that drains the balance first makes RowsAffected zero.
func (s *LedgerService) deductTx(tx *gorm.DB, accountID string, amount int64, entry LedgerEntryInput) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("deduct %d: %w", amount, ErrInvalidInput)
	}

	result := tx.Model(&models.Account{}).
		Where("id = ? AND credit_balance >= ?", accountID, amount).
		Update("credit_balance", gorm.Expr("credit_balance - ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.balanceTx(tx, accountID); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("deduct %d from %s: %w", amount, accountID, ErrInsufficientCredits)
	}

	balance, err := s.balanceTx(tx, accountID)
	if err != nil {
		return 0, err
	}
	if err := s.appendTx(tx, accountID, -amount, balance, entry); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *LedgerService) creditTx(tx *gorm.DB, accountID string, amount int64, entry LedgerEntryInput) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit %d: %w", amount, ErrInvalidInput)
	}

	result := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("credit_balance", gorm.Expr("credit_balance + ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}

	balance, err := s.balanceTx(tx, accountID)
	if err != nil {
		return 0, err
	}
	if err := s.appendTx(tx, accountID, amount, balance, entry); err != nil {
		return 0, err
	}
	return balance, nil
}

// recordTx appends a zero-amount audit entry (request submitted, rejected).
func (s *LedgerService) recordTx(tx *gorm.DB, accountID string, entry LedgerEntryInput) error {
	balance, err := s.balanceTx(tx, accountID)
	if err != nil {
		return err
	}
	return s.appendTx(tx, accountID, 0, balance, entry)
}

func (s *LedgerService) appendTx(tx *gorm.DB, accountID string, amount, balance int64, entry LedgerEntryInput) error {
	return tx.Create(&models.LedgerEntry{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Kind:          entry.Kind,
		Amount:        amount,
		BalanceAfter:  balance,
		ReferenceType: entry.ReferenceType,
		ReferenceID:   entry.ReferenceID,
		Note:          entry.Note,
		CreatedAt:     s.Clock.Now().UTC(),
	}).Error
}

func (s *LedgerService) balanceTx(tx *gorm.DB, accountID string) (int64, error) {
	var account models.Account
	if err := tx.Select("id", "credit_balance").First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
		}
		return 0, err
	}
	return account.CreditBalance, nil
}

func (s *LedgerService) Balance(ctx context.Context, accountID string) (int64, error) {
	return s.balanceTx(s.DB.WithContext(ctx), accountID)
}

// History returns the newest entries first.
func (s *LedgerService) History(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.LedgerEntry
	err := s.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
