package model

import "time"

// Output is one result produced for a user, recorded for audit and offline
// analysis.
type Output struct {
	UserID    string
	ModelName string
	Version   string
	// Type names the operation that produced the payload, e.g. "spending_forecast".
	Type      string
	Status    Status
	Payload   any
	Metadata  map[string]any
	CreatedAt time.Time
}
