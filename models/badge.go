package models

import (
	"time"
)

// BadgeType: static milestone config, seeded from BadgeTriggers
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:varchar(32)" json:"id"` // code, e.g. "MASTER_CHEF"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Counter     string `gorm:"type:varchar(32);not null" json:"counter"`
	Threshold   int64  `gorm:"not null" json:"threshold"`
}

// AccountBadge: awarded instance
type AccountBadge struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_account_badge" json:"account_id"`
	BadgeTypeID string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_account_badge" json:"badge_type_id"`
	AwardedAt   time.Time `gorm:"not null" json:"awarded_at"`

	BadgeType *BadgeType `json:"badge,omitempty" gorm:"foreignKey:BadgeTypeID"`
}

// Predefined milestone triggers
var BadgeTriggers = []BadgeType{
	{
		ID:          "FIRST_RECIPE",
		Name:        "First Recipe Completed",
		Description: "Completed your first recipe",
		Counter:     CounterCompletedRecipes,
		Threshold:   1,
	},
	{
		ID:          "MASTER_CHEF",
		Name:        "Master Chef",
		Description: "Completed 10 recipes",
		Counter:     CounterCompletedRecipes,
		Threshold:   10,
	},
	{
		ID:          "RECIPE_CREATOR",
		Name:        "Recipe Creator",
		Description: "Created your first recipe",
		Counter:     CounterRecipesCreated,
		Threshold:   1,
	},
	{
		ID:          "SOCIAL_BUTTERFLY",
		Name:        "Social Butterfly",
		Description: "Shared a recipe",
		Counter:     CounterRecipesShared,
		Threshold:   1,
	},
	{
		ID:          "SHOPPING_EXPERT",
		Name:        "Shopping Expert",
		Description: "Created 3 shopping lists",
		Counter:     CounterShoppingListsCreated,
		Threshold:   3,
	},
	{
		ID:          "CONVERSION_MASTER",
		Name:        "Conversion Master",
		Description: "Used conversion tools 5 times",
		Counter:     CounterConversionToolUses,
		Threshold:   5,
	},
	{
		ID:          "CHALLENGE_CHAMPION",
		Name:        "Challenge Champion",
		Description: "Won a challenge",
		Counter:     CounterChallengesWon,
		Threshold:   1,
	},
}
