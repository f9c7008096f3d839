package models

import (
	"time"
)

// NotificationAudience selects who sees the notification.
type NotificationAudience string

const (
	AudienceUser  NotificationAudience = "user"
	AudienceAdmin NotificationAudience = "admin"
)

type NotificationKind string

const (
	NotificationTopUpSubmitted      NotificationKind = "topup_submitted"
	NotificationTopUpApproved       NotificationKind = "topup_approved"
	NotificationTopUpRejected       NotificationKind = "topup_rejected"
	NotificationWithdrawalSubmitted NotificationKind = "withdrawal_submitted"
	NotificationWithdrawalApproved  NotificationKind = "withdrawal_approved"
	NotificationWithdrawalRejected  NotificationKind = "withdrawal_rejected"
	NotificationChallengeWon        NotificationKind = "challenge_won"
	NotificationChallengeRefunded   NotificationKind = "challenge_refunded"
	NotificationCreditsGranted      NotificationKind = "credits_granted"
	NotificationBadgeAwarded        NotificationKind = "badge_awarded"
)

// Notification is a polled message. Admin notifications point at a pending
// request and are marked Reviewed once an admin decides on it.
type Notification struct {
	ID          string               `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID   *string              `gorm:"type:uuid;index" json:"account_id,omitempty"` // nil for admin audience
	Audience    NotificationAudience `gorm:"type:varchar(16);not null;index" json:"audience"`
	Kind        NotificationKind     `gorm:"type:varchar(32);not null" json:"kind"`
	Message     string               `gorm:"type:text;not null" json:"message"`
	ReferenceID string               `gorm:"index" json:"reference_id,omitempty"`
	Reviewed    bool                 `gorm:"not null;default:false" json:"reviewed"`
	Viewed      bool                 `gorm:"not null;default:false;index" json:"viewed"`
	CreatedAt   time.Time            `gorm:"not null" json:"created_at"`
}
