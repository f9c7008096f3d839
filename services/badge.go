package services

import (
	"context"
	"fmt"
	"kitchen-challenge-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Notifier *NotificationService
	Log      *zap.Logger
}

func NewBadgeService(db *gorm.DB, clock clockwork.Clock, notifier *NotificationService, logger *zap.Logger) *BadgeService {
	return &BadgeService{DB: db, Clock: clock, Notifier: notifier, Log: logger}
}

// autoAwardTx checks all badge triggers for an account after a counter update.
func (s *BadgeService) autoAwardTx(tx *gorm.DB, accountID string) ([]models.BadgeType, error) {
	var account models.Account
	if err := tx.First(&account, "id = ?", accountID).Error; err != nil {
		return nil, err
	}

	var held []string
	if err := tx.Model(&models.AccountBadge{}).
		Where("account_id = ?", accountID).
		Pluck("badge_type_id", &held).Error; err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(held))
	for _, id := range held {
		have[id] = true
	}

	var awarded []models.BadgeType
	for _, trigger := range models.BadgeTriggers {
		if have[trigger.ID] || !meetsThreshold(&account, trigger) {
			continue
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.AccountBadge{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			BadgeTypeID: trigger.ID,
			AwardedAt:   s.Clock.Now().UTC(),
		})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		if err := s.Notifier.notifyUserTx(tx, accountID, models.NotificationBadgeAwarded,
			fmt.Sprintf("You earned the %q badge!", trigger.Name), trigger.ID); err != nil {
			return nil, err
		}
		awarded = append(awarded, trigger)
		s.Log.Info("badge awarded", zap.String("badge", trigger.ID), zap.String("account_id", accountID))
	}
	return awarded, nil
}

func meetsThreshold(account *models.Account, trigger models.BadgeType) bool {
	value, ok := account.Counter(trigger.Counter)
	return ok && value >= trigger.Threshold
}

// ListForAccount returns the awarded badges with their catalog entry.
func (s *BadgeService) ListForAccount(ctx context.Context, accountID string) ([]models.AccountBadge, error) {
	var badges []models.AccountBadge
	err := s.DB.WithContext(ctx).
		Preload("BadgeType").
		Where("account_id = ?", accountID).
		Order("awarded_at ASC").
		Find(&badges).Error
	return badges, err
}
