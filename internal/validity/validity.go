// Package validity classifies evidence records by their expiry timestamp.
// The state is computed on every read and never persisted, so clock or
// valid_until changes take effect immediately.
package validity

import "time"

// State is the temporal classification of an evidence record.
type State string

const (
	// NoExpiry means the record has no valid_until timestamp.
	NoExpiry State = "no_expiry"
	// Valid means the record expires more than ExpiringSoonWindow from now.
	Valid State = "valid"
	// ExpiringSoon means the record expires within ExpiringSoonWindow.
	ExpiringSoon State = "expiring_soon"
	// Expired means valid_until is in the past.
	Expired State = "expired"
)

// ExpiringSoonWindow is the horizon within which a still-valid record is
// reported as expiring soon.
const ExpiringSoonWindow = 30 * 24 * time.Hour

// Evaluate returns the validity state of a record with the given expiry
// timestamp as of now. A nil validUntil means the record never expires.
// The function is total and deterministic.
func Evaluate(now time.Time, validUntil *time.Time) State {
	if validUntil == nil {
		return NoExpiry
	}
	if validUntil.Before(now) {
		return Expired
	}
	if validUntil.Before(now.Add(ExpiringSoonWindow)) {
		return ExpiringSoon
	}
	return Valid
}
