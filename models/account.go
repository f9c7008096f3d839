package models

import (
	"time"
)

type AccountRole string

const (
	AccountRoleUser  AccountRole = "user"
	AccountRoleAdmin AccountRole = "admin"
)

// Account is the local record of a user: profile fields mirrored from the
// account service plus the credit balance and activity counters owned here.
type Account struct {
	ID           string      `gorm:"primaryKey;type:uuid" json:"id"`
	DisplayName  string      `gorm:"index;not null" json:"display_name"`
	Email        string      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string      `json:"-"`
	Role         AccountRole `gorm:"type:varchar(16);not null;default:'user'" json:"role"`

	// Never negative. The CHECK backs the conditional update in the ledger.
	CreditBalance int64 `gorm:"not null;default:0;check:credit_balance >= 0" json:"credit_balance"`

	// Activity counters
	CompletedRecipes     int64 `json:"completed_recipes" gorm:"not null;default:0"`
	RecipesCreated       int64 `json:"recipes_created" gorm:"not null;default:0"`
	RecipesShared        int64 `json:"recipes_shared" gorm:"not null;default:0"`
	FriendsConnected     int64 `json:"friends_connected" gorm:"not null;default:0"`
	ShoppingListsCreated int64 `json:"shopping_lists_created" gorm:"not null;default:0"`
	ConversionToolUses   int64 `json:"conversion_tool_uses" gorm:"not null;default:0"`
	ChallengesWon        int64 `json:"challenges_won" gorm:"not null;default:0"`

	Timestamps
}

// Counter returns the activity counter named by key, as used in badge thresholds.
func (a *Account) Counter(key string) (int64, bool) {
	switch key {
	case CounterCompletedRecipes:
		return a.CompletedRecipes, true
	case CounterRecipesCreated:
		return a.RecipesCreated, true
	case CounterRecipesShared:
		return a.RecipesShared, true
	case CounterFriendsConnected:
		return a.FriendsConnected, true
	case CounterShoppingListsCreated:
		return a.ShoppingListsCreated, true
	case CounterConversionToolUses:
		return a.ConversionToolUses, true
	case CounterChallengesWon:
		return a.ChallengesWon, true
	}
	return 0, false
}

// Counter names double as column names.
const (
	CounterCompletedRecipes     = "completed_recipes"
	CounterRecipesCreated       = "recipes_created"
	CounterRecipesShared        = "recipes_shared"
	CounterFriendsConnected     = "friends_connected"
	CounterShoppingListsCreated = "shopping_lists_created"
	CounterConversionToolUses   = "conversion_tool_uses"
	CounterChallengesWon        = "challenges_won"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
