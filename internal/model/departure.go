package model

import (
	"time"

	"github.com/google/uuid"
)

// Verification status constants for DepartureRecord
const (
	VerificationValid    = "VALID"
	VerificationRejected = "REJECTED"
)

// VehicleAllocation authorizes one Vehicle to make departures for one
// ActivityTransporter pair. At most one row per (pair, vehicle).
type VehicleAllocation struct {
	ID        uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PairID    uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:ux_allocation_pair_vehicle" json:"pair_id"`
	Pair      *ActivityTransporter `gorm:"foreignKey:PairID" json:"-"`
	VehicleID uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:ux_allocation_pair_vehicle" json:"vehicle_id"`
	Vehicle   *Vehicle             `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// DepartureRecord is one logged truck departure. Identity is immutable
// once created; shift, date/time, vehicle reference, evidence, remarks
// and verification status may be edited afterward.
type DepartureRecord struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AllocationID uuid.UUID          `gorm:"type:uuid;not null;index" json:"allocation_id"`
	Allocation   *VehicleAllocation `gorm:"foreignKey:AllocationID" json:"allocation,omitempty"`
	SubmittedBy  uuid.UUID          `gorm:"type:uuid;not null;index" json:"submitted_by"`
	Submitter    *User              `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`

	Shift         string    `gorm:"type:varchar(10);not null" json:"shift"`
	DepartureDate time.Time `gorm:"type:date;not null;index" json:"departure_date"`
	DeliveryNote  string    `gorm:"type:varchar(100);not null" json:"delivery_note"`

	// Paths into the evidence blob store; empty only on the manual path.
	EvidenceFront string `gorm:"type:varchar(500)" json:"evidence_front"`
	EvidenceRear  string `gorm:"type:varchar(500)" json:"evidence_rear"`

	Remarks            string    `gorm:"type:text" json:"remarks"`
	VerificationStatus string    `gorm:"type:varchar(20);not null;default:'VALID'" json:"verification_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
