package model

import (
	"time"

	"github.com/google/uuid"
)

// Transporter is a contracted logistics company. Reference data; the
// departure engine never mutates it.
type Transporter struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vehicle is one truck in a Transporter's catalog, identified globally by
// its plate number. Reusable across Activities.
type Vehicle struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransporterID uuid.UUID   `gorm:"type:uuid;not null;index" json:"transporter_id"`
	Transporter   *Transporter `gorm:"foreignKey:TransporterID" json:"-"`
	PlateNumber   string      `gorm:"type:varchar(20);uniqueIndex;not null" json:"plate_number"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
