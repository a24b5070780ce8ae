package models

import "time"

// ControlLink is a read model over the relationship between evidence and
// controls. The link lifecycle is owned elsewhere; this service only reads
// active-link counts for display.
type ControlLink struct {
	EvidenceID string
	ControlID  string
	Active     bool
	CreatedAt  time.Time
}
