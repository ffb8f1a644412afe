package model

import "time"

// Overridable client fields.
const (
	OverrideSegment      = "segment"
	OverrideGeography    = "geography"
	OverridePaymentModel = "payment_model"
)

// Override is a user-entered correction applied to a client record before
// the index is built. ClientName is matched against normalized client names.
type Override struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Field      string    `json:"field"`
	Value      string    `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidOverrideField reports whether field can be overridden.
func ValidOverrideField(field string) bool {
	switch field {
	case OverrideSegment, OverrideGeography, OverridePaymentModel:
		return true
	}
	return false
}
