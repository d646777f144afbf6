package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateActivity     = "CREATE_ACTIVITY"
	ActionUpdateActivity     = "UPDATE_ACTIVITY"
	ActionDeleteActivity     = "DELETE_ACTIVITY"
	ActionToggleActivity     = "TOGGLE_ACTIVITY_COMPLETION"
	ActionCompletePair       = "COMPLETE_TRANSPORTER"
	ActionReopenPair         = "REOPEN_TRANSPORTER"
	ActionCreateDeparture    = "CREATE_DEPARTURE"
	ActionCreateDepartureMan = "CREATE_DEPARTURE_MANUAL"
	ActionUpdateDeparture    = "UPDATE_DEPARTURE"
	ActionDeleteDeparture    = "DELETE_DEPARTURE"
	ActionVerifyDeparture    = "VERIFY_DEPARTURE"
	ActionCreateAllocation   = "CREATE_ALLOCATION"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
