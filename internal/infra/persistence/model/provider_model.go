// Package model contains the GORM-specific persistence structs. Mapping
// between these and the domain entities happens in the postgres package.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderModel is the GORM-specific struct for the 'providers' table.
// Working hours are stored as minutes from midnight; the delegated-access
// credential is flattened into nullable columns and is absent until the
// provider completes the calendar authorization flow.
type ProviderModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Name             string    `gorm:"type:varchar(255);not null"`
	Specialization   string    `gorm:"type:varchar(255)"`
	Description      string    `gorm:"type:text"`
	PhoneNumber      string    `gorm:"type:varchar(50)"`
	WorkStartMinutes int       `gorm:"type:smallint;not null"`
	WorkEndMinutes   int       `gorm:"type:smallint;not null"`
	CalendarID       string    `gorm:"type:varchar(255)"`
	AccessToken      string    `gorm:"type:text"`
	RefreshToken     string    `gorm:"type:text"`
	TokenExpiresAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// TableName explicitly sets the table name for GORM.
func (ProviderModel) TableName() string {
	return "providers"
}
