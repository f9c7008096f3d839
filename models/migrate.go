package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate creates or updates every table and seeds the badge catalog.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Account{},
		&Challenge{},
		&Participation{},
		&Achievement{},
		&CreditRequest{},
		&CreditWithdrawRequest{},
		&LedgerEntry{},
		&Notification{},
		&Post{},
		&BadgeType{},
		&AccountBadge{},
	); err != nil {
		return err
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "counter", "threshold"}),
	}).Create(&BadgeTriggers).Error
}
