package service

import "backend/internal/model"

// Shift windows by wall-clock hour:
//
//	Shift1 [07:00, 15:00)
//	Shift2 [15:00, 23:00)
//	Shift3 [23:00, 07:00) — wraps midnight
const (
	shift1Start = 7
	shift2Start = 15
	shift3Start = 23
)

// ResolveShift maps an hour of day (0–23) to the shift window containing
// it. Total: every hour belongs to exactly one window.
func ResolveShift(hour int) string {
	switch {
	case hour >= shift1Start && hour < shift2Start:
		return model.Shift1
	case hour >= shift2Start && hour < shift3Start:
		return model.Shift2
	default:
		return model.Shift3
	}
}
