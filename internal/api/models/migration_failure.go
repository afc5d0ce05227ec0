package models

import "github.com/jinzhu/gorm"

type MigrationStage string

const (
	MigrationStageTransform MigrationStage = "transform"
	MigrationStageCreate    MigrationStage = "create"
	MigrationStageWriteBack MigrationStage = "write_back"
)

type MigrationFailure struct {
	gorm.Model

	RunID      string         `gorm:"type:varchar(64);not null"`
	CustomerID string         `gorm:"type:varchar(255);not null"`
	Stage      MigrationStage `gorm:"type:varchar(32);not null"`
	Error      string         `gorm:"type:text;not null"`
}
