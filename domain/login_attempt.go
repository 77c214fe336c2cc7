package domain

import "time"

// LoginAttemptRecord is the brute-force counter kept per login identifier.
type LoginAttemptRecord struct {
	Identifier    string    `json:"identifier"`
	Count         int       `json:"count"`
	LastAttemptAt time.Time `json:"lastAttemptAt"`
}
