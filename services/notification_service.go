// services/notification_service.go
package services

import (
	"context"
	"fmt"
	"kitchen-challenge-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// NotificationService is the polled notification sink.
type NotificationService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewNotificationService(db *gorm.DB, clock clockwork.Clock) *NotificationService {
	return &NotificationService{DB: db, Clock: clock}
}

// NotificationCounts is what the client polls.
type NotificationCounts struct {
	Total    int64 `json:"total_count"`
	Unviewed int64 `json:"unviewed_count"`
}

func (s *NotificationService) notifyUserTx(tx *gorm.DB, accountID string, kind models.NotificationKind, message, referenceID string) error {
	return tx.Create(&models.Notification{
		ID:          uuid.NewString(),
		AccountID:   &accountID,
		Audience:    models.AudienceUser,
		Kind:        kind,
		Message:     message,
		ReferenceID: referenceID,
		CreatedAt:   s.Clock.Now().UTC(),
	}).Error
}

func (s *NotificationService) notifyAdminsTx(tx *gorm.DB, kind models.NotificationKind, message, referenceID string) error {
	return tx.Create(&models.Notification{
		ID:          uuid.NewString(),
		Audience:    models.AudienceAdmin,
		Kind:        kind,
		Message:     message,
		ReferenceID: referenceID,
		CreatedAt:   s.Clock.Now().UTC(),
	}).Error
}

// markReviewedTx closes the admin notifications raised for a request.
func (s *NotificationService) markReviewedTx(tx *gorm.DB, referenceID string) error {
	return tx.Model(&models.Notification{}).
		Where("audience = ? AND reference_id = ? AND reviewed = ?", models.AudienceAdmin, referenceID, false).
		Update("reviewed", true).Error
}

// ListForAccount fetches notifications for the account, newest first.
func (s *NotificationService) ListForAccount(ctx context.Context, accountID string, unviewedOnly bool, limit int) ([]models.Notification, error) {
	query := s.DB.WithContext(ctx).
		Where("audience = ? AND account_id = ?", models.AudienceUser, accountID)
	if unviewedOnly {
		query = query.Where("viewed = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

// ListForAdmins returns admin notifications that still need a decision.
func (s *NotificationService) ListForAdmins(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.WithContext(ctx).
		Where("audience = ? AND reviewed = ?", models.AudienceAdmin, false).
		Order("created_at ASC").
		Find(&notifications).Error
	return notifications, err
}

// Counts returns the total and unviewed counts for the account.
// Clients poll this every 30 seconds.
func (s *NotificationService) Counts(ctx context.Context, accountID string) (NotificationCounts, error) {
	var counts NotificationCounts
	base := func() *gorm.DB {
		return s.DB.WithContext(ctx).Model(&models.Notification{}).
			Where("audience = ? AND account_id = ?", models.AudienceUser, accountID)
	}
	if err := base().Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := base().Where("viewed = ?", false).Count(&counts.Unviewed).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

// MarkViewed marks a single notification as viewed (idempotent)
func (s *NotificationService) MarkViewed(ctx context.Context, accountID, id string) error {
	result := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND account_id = ?", id, accountID).
		Update("viewed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllViewed marks every unviewed notification of the account and returns how many changed.
func (s *NotificationService) MarkAllViewed(ctx context.Context, accountID string) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("account_id = ? AND viewed = ?", accountID, false).
		Update("viewed", true)
	return result.RowsAffected, result.Error
}
