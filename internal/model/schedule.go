package model

import (
	"time"

	"github.com/google/uuid"
)

// Shift enumeration. Off means the person may not submit departures that
// day regardless of the current time.
const (
	Shift1   = "SHIFT_1"
	Shift2   = "SHIFT_2"
	Shift3   = "SHIFT_3"
	ShiftOff = "OFF"
)

// ScheduleAssignment maps (person, date) to a Shift. Maintained by
// administrators; the departure engine only reads it.
type ScheduleAssignment struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PersonID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_schedule_person_date_shift" json:"person_id"`
	Person   *User     `gorm:"foreignKey:PersonID" json:"-"`
	Date     time.Time `gorm:"type:date;not null;uniqueIndex:ux_schedule_person_date_shift" json:"date"`
	Shift    string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_schedule_person_date_shift" json:"shift"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
