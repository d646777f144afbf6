package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fulfillment status constants, shared by Activity and ActivityTransporter
const (
	StatusWaiting    = "WAITING"
	StatusOnProgress = "ON_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Activity represents one purchase order of bulk cargo to be hauled out
// by one or more transporters within a date window.
type Activity struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PONumber  string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"po_number"`
	Vendor    string          `gorm:"type:varchar(255);not null" json:"vendor"`
	Material  string          `gorm:"type:varchar(255);not null" json:"material"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"quantity"` // tonnes
	StartDate time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time       `gorm:"type:date;not null" json:"end_date"`
	Status    string          `gorm:"type:varchar(20);not null;default:'WAITING'" json:"status"`

	Transporters []ActivityTransporter `gorm:"foreignKey:ActivityID" json:"transporters,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ActivityTransporter is the fulfillment record of one Transporter's work
// under one Activity. Materialized lazily on the first departure that
// references the pair; the unique index resolves concurrent creation.
type ActivityTransporter struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActivityID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:ux_activity_transporter" json:"activity_id"`
	Activity      *Activity   `gorm:"foreignKey:ActivityID" json:"-"`
	TransporterID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:ux_activity_transporter" json:"transporter_id"`
	Transporter   *Transporter `gorm:"foreignKey:TransporterID" json:"transporter,omitempty"`
	Status        string      `gorm:"type:varchar(20);not null;default:'WAITING'" json:"status"`

	Allocations []VehicleAllocation `gorm:"foreignKey:PairID" json:"allocations,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (ActivityTransporter) TableName() string {
	return "activity_transporters"
}
