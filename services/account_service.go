// services/account_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"kitchen-challenge-system/models"
	"strings"

	"gorm.io/gorm"
)

// AccountService exposes the account store to the rest of the core.
type AccountService struct {
	DB     *gorm.DB
	Badges *BadgeService
}

func NewAccountService(db *gorm.DB, badges *BadgeService) *AccountService {
	return &AccountService{DB: db, Badges: badges}
}

// activityCounters are the counters clients may bump through RecordActivity.
// challenges_won is owned by settlement.
var activityCounters = map[string]bool{
	models.CounterCompletedRecipes:     true,
	models.CounterRecipesCreated:       true,
	models.CounterRecipesShared:        true,
	models.CounterFriendsConnected:     true,
	models.CounterShoppingListsCreated: true,
	models.CounterConversionToolUses:   true,
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.DB.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &account, nil
}

// RecordActivity bumps an activity counter and awards any badge it unlocks.
func (s *AccountService) RecordActivity(ctx context.Context, accountID, counter string, delta int64) (*models.Account, []models.BadgeType, error) {
	if !activityCounters[counter] {
		return nil, nil, fmt.Errorf("unknown counter %q: %w", counter, ErrInvalidInput)
	}
	if delta <= 0 {
		return nil, nil, fmt.Errorf("delta %d: %w", delta, ErrInvalidInput)
	}

	var awarded []models.BadgeType
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := incrementCounterTx(tx, accountID, counter, delta); err != nil {
			return err
		}
		var err error
		awarded, err = s.Badges.autoAwardTx(tx, accountID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	account, err := s.GetAccount(ctx, accountID)
	return account, awarded, err
}

func incrementCounterTx(tx *gorm.DB, accountID, counter string, delta int64) error {
	result := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update(counter, gorm.Expr(counter+" + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}

// SearchAccounts matches display name or email.
func (s *AccountService) SearchAccounts(ctx context.Context, query string, limit int) ([]models.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.WithContext(ctx).Model(&models.Account{}).Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		term := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}

	var accounts []models.Account
	err := db.Order("display_name ASC").Find(&accounts).Error
	return accounts, err
}
