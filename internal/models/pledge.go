package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pledge is one row of a tip history. The current pledge for a
// (Source, Destination) pair is the row with the latest Timestamp.
type Pledge struct {
	Source      string          `json:"source" db:"tipper"`
	Destination string          `json:"destination" db:"tippee"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Timestamp   time.Time       `json:"timestamp" db:"mtime"`
}

// PledgeKey identifies a single pledge mutation.
type PledgeKey struct {
	Source      string
	Destination string
	Timestamp   time.Time
}

func (p Pledge) Key() PledgeKey {
	return PledgeKey{Source: p.Source, Destination: p.Destination, Timestamp: p.Timestamp.UTC()}
}

// ExternalLink ties a participant to an account on another platform.
type ExternalLink struct {
	Participant string `json:"participant" db:"participant"`
	Platform    string `json:"platform" db:"platform"`
	UserID      string `json:"user_id" db:"user_id"`
}
