package models

import "time"

// Participation = one account's wager and progress in one challenge
type Participation struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID   string `gorm:"type:uuid;not null;uniqueIndex:idx_participation_account_challenge" json:"account_id"`
	ChallengeID string `gorm:"type:uuid;not null;uniqueIndex:idx_participation_account_challenge;index" json:"challenge_id"`

	WageredCredits int64   `json:"wagered_credits" gorm:"not null;default:0"`
	Progress       float64 `json:"progress" gorm:"not null;default:0;index"`

	// Settlement
	Credited   bool       `json:"credited" gorm:"not null;default:false"`
	CreditedAt *time.Time `json:"credited_at,omitempty"`
	Refunded   bool       `json:"refunded" gorm:"not null;default:false"`

	JoinedAt time.Time `json:"joined_at" gorm:"not null;index"`

	Account *Account `json:"account,omitempty" gorm:"foreignKey:AccountID"`

	Timestamps
}

// Achievement is written exactly once per won challenge.
type Achievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_achievement_account_challenge" json:"account_id"`
	ChallengeID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_achievement_account_challenge" json:"challenge_id"`
	ChallengeName string    `gorm:"not null" json:"challenge_name"`
	CreditsWon    int64     `gorm:"not null;default:0" json:"credits_won"`
	CompletedAt   time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Post is an image post, optionally tagged to a challenge the author joined.
type Post struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID   string  `gorm:"type:uuid;not null;index" json:"account_id"`
	ChallengeID *string `gorm:"type:uuid;index" json:"challenge_id,omitempty"`
	ImageURL    string  `gorm:"type:text" json:"image_url"`
	Message     string  `gorm:"type:text" json:"message"`
	Timestamps
}
