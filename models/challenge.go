package models

import (
	"math"
	"time"
)

type ChallengeState string

const (
	ChallengeStateCreated ChallengeState = "created"
	ChallengeStateActive  ChallengeState = "active"
	ChallengeStateEnded   ChallengeState = "ended"
)

// SettlementOutcome records how an ended challenge was closed out.
type SettlementOutcome string

const (
	OutcomePaid  SettlementOutcome = "paid"  // pool credited to the winner
	OutcomeVoid  SettlementOutcome = "void"  // wagers refunded
	OutcomeEmpty SettlementOutcome = "empty" // nobody joined
)

// Challenge is a timed competition. Participants wager CreditsRequired on join
// and the top-ranked participant takes the pool when the window closes.
type Challenge struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name            string    `json:"name" gorm:"not null"`
	Slug            string    `json:"slug" gorm:"index"`
	SearchKey       string    `json:"-" gorm:"index"`
	IconURL         string    `json:"icon_url" gorm:"type:text"`
	CreatorID       string    `json:"creator_id" gorm:"type:uuid;not null;index"`
	CreditsRequired int64     `json:"credits_required" gorm:"not null;default:0;check:credits_required >= 0"`
	Duration        int64     `json:"duration" gorm:"not null;default:0;check:duration >= 0"` // seconds
	StartedAt       time.Time `json:"started_at" gorm:"not null"`

	// Ended is a materialized flag; HasEnded is authoritative.
	Ended bool `json:"ended" gorm:"not null;default:false;index"`

	SettledAt       *time.Time        `json:"settled_at,omitempty" gorm:"index"`
	Outcome         SettlementOutcome `json:"outcome,omitempty" gorm:"type:varchar(16)"`
	WinnerAccountID *string           `json:"winner_account_id,omitempty" gorm:"type:uuid"`
	Pool            int64             `json:"pool" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Participations []Participation `json:"participations,omitempty" gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE"`

	// Calculated fields (not stored in DB)
	ParticipantsCount int64          `json:"participants_count,omitempty" gorm:"-"`
	State             ChallengeState `json:"state,omitempty" gorm:"-"`
}

// MaxDurationSeconds is the longest window a time.Duration can represent.
const MaxDurationSeconds = int64(math.MaxInt64 / time.Second)

func (c *Challenge) EndsAt() time.Time {
	seconds := min(c.Duration, MaxDurationSeconds)
	return c.StartedAt.Add(time.Duration(seconds) * time.Second)
}

func (c *Challenge) HasEnded(now time.Time) bool {
	return c.Ended || !now.Before(c.EndsAt())
}

func (c *Challenge) IsActive(now time.Time) bool {
	return !now.Before(c.StartedAt) && !c.HasEnded(now)
}

// StateAt reports the lifecycle state at now. Created only shows for a
// challenge whose start lies in the future relative to now.
func (c *Challenge) StateAt(now time.Time) ChallengeState {
	switch {
	case c.HasEnded(now):
		return ChallengeStateEnded
	case now.Before(c.StartedAt):
		return ChallengeStateCreated
	default:
		return ChallengeStateActive
	}
}

func (c *Challenge) IsSettled() bool {
	return c.SettledAt != nil
}
