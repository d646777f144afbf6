package service

import (
	"errors"
	"fmt"
)

// Rejection categories. Every engine rejection is recoverable by the
// caller retrying with corrected input or at a different time.
const (
	CategoryInput       = "INPUT"
	CategoryTemporal    = "TEMPORAL"
	CategoryState       = "STATE"
	CategoryReferential = "REFERENTIAL"
)

// Machine-readable rejection codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeTooEarly              = "TOO_EARLY"
	CodeTooLate               = "TOO_LATE"
	CodeNoSchedule            = "NO_SCHEDULE"
	CodeShiftMismatch         = "SHIFT_MISMATCH"
	CodeActivityClosed        = "ACTIVITY_CLOSED"
	CodeTransporterClosed     = "TRANSPORTER_CLOSED"
	CodeHasActiveTransporters = "HAS_ACTIVE_TRANSPORTERS"
	CodeMissingEvidence       = "MISSING_EVIDENCE"
	CodeUnknownVehicle        = "UNKNOWN_VEHICLE"
	CodeVehicleNotAllocated   = "VEHICLE_NOT_ALLOCATED"
	CodeInvalidInput          = "INVALID_INPUT"
)

// Rejection is a gate refusing an operation. Detail carries operation
// specific context (assigned shifts for SHIFT_MISMATCH, the active
// transporter count for HAS_ACTIVE_TRANSPORTERS).
type Rejection struct {
	Code     string
	Category string
	Message  string
	Detail   map[string]interface{}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code, category, message string) *Rejection {
	return &Rejection{Code: code, Category: category, Message: message}
}

func rejectf(code, category, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Category: category, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection if one is in its chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
