package models

import "time"

// OTPRecord is a stored one-time password. Only the bcrypt hash of the code
// is persisted; CreatedAt drives expiry. Several records may exist for one
// user at a time, lookups take the most recent.
type OTPRecord struct {
	ID        int64
	UserID    string
	OTPHash   string
	CreatedAt time.Time
}
