package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentModel is the GORM-specific struct for the 'appointments' table.
// The composite index on (provider_id, start_time) serves the overlap and
// listing queries, which are always scoped to one provider.
type AppointmentModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ProviderID      uuid.UUID `gorm:"type:uuid;not null;index:idx_appointments_provider_start,priority:1"`
	PatientName     string    `gorm:"type:varchar(255);not null"`
	PatientPhone    string    `gorm:"type:varchar(50);not null"`
	Notes           string    `gorm:"type:text"`
	StartTime       time.Time `gorm:"not null;index:idx_appointments_provider_start,priority:2"`
	EndTime         time.Time `gorm:"not null"`
	Status          string    `gorm:"type:varchar(20);not null;default:'scheduled';index"`
	ExternalEventID string    `gorm:"type:varchar(255)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName explicitly sets the table name for GORM.
func (AppointmentModel) TableName() string {
	return "appointments"
}
