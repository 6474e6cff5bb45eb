package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeStatus is the processor-reported state of an exchange.
// The zero value means no status was recorded.
type ExchangeStatus string

const (
	ExchangeUnset     ExchangeStatus = ""
	ExchangeUnknown   ExchangeStatus = "unknown"
	ExchangeSucceeded ExchangeStatus = "succeeded"
	ExchangeFailed    ExchangeStatus = "failed"
	ExchangeOther     ExchangeStatus = "other"
)

// PaymentDirection tells which side of a team payment receives the money.
type PaymentDirection string

const (
	ToParticipant PaymentDirection = "to-participant"
	ToTeam        PaymentDirection = "to-team"
)

// Participant is an identity with a cached balance.
type Participant struct {
	Username    string          `json:"username" db:"username"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	ClaimedTime *time.Time      `json:"claimed_time" db:"claimed_time"` // nil for stub identities
	IsClosed    bool            `json:"is_closed" db:"is_closed"`
}

// LedgerEvent is one of Exchange, Transfer or Payment.
type LedgerEvent interface {
	ledgerEvent()
}

// Exchange moves money between a participant and a payment processor.
// A positive amount credits the participant, a negative one withdraws.
type Exchange struct {
	Participant string          `json:"participant" db:"participant"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Fee         decimal.Decimal `json:"fee" db:"fee"`
	Status      ExchangeStatus  `json:"status" db:"status"`
}

// Transfer moves money from tipper to tippee. Only settled transfers are logged.
type Transfer struct {
	Tipper string          `json:"tipper" db:"tipper"`
	Tippee string          `json:"tippee" db:"tippee"`
	Amount decimal.Decimal `json:"amount" db:"amount"`
}

// Payment moves money between a participant and a team.
type Payment struct {
	Participant string           `json:"participant" db:"participant"`
	Team        string           `json:"team" db:"team"`
	Amount      decimal.Decimal  `json:"amount" db:"amount"`
	Direction   PaymentDirection `json:"direction" db:"direction"`
}

func (Exchange) ledgerEvent() {}
func (Transfer) ledgerEvent() {}
func (Payment) ledgerEvent()  {}

// SettlementKind distinguishes an idle ledger from one with a payday batch running.
type SettlementKind int

const (
	SettlementIdle SettlementKind = iota
	SettlementInProgress
)

// SettlementState reports whether a settlement batch is executing.
type SettlementState struct {
	Kind    SettlementKind `json:"kind"`
	BatchID string         `json:"batch_id,omitempty"`
}

// Idle is the settlement state outside of any payday batch.
func Idle() SettlementState {
	return SettlementState{Kind: SettlementIdle}
}

// InProgress marks batchID as the currently running settlement.
func InProgress(batchID string) SettlementState {
	return SettlementState{Kind: SettlementInProgress, BatchID: batchID}
}

func (s SettlementState) IsInProgress() bool {
	return s.Kind == SettlementInProgress
}

func (s SettlementState) String() string {
	if s.IsInProgress() {
		return "in-progress:" + s.BatchID
	}
	return "idle"
}

// Snapshot is one consistent read of everything the audit looks at.
type Snapshot struct {
	Exchanges     []Exchange
	Transfers     []Transfer
	Payments      []Payment
	Participants  []Participant
	Settlement    SettlementState
	Pledges       []Pledge
	ExternalLinks map[string][]ExternalLink
	Absorptions   map[string]struct{}
}

// StoredBalances maps each participant to its cached balance.
func (s *Snapshot) StoredBalances() map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(s.Participants))
	for _, p := range s.Participants {
		balances[p.Username] = p.Balance
	}
	return balances
}

// Usernames returns every participant identity, sorted.
func (s *Snapshot) Usernames() []string {
	names := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		names = append(names, p.Username)
	}
	sort.Strings(names)
	return names
}

// Events returns the snapshot's exchanges, transfers and payments as one event stream.
func (s *Snapshot) Events() []LedgerEvent {
	events := make([]LedgerEvent, 0, len(s.Exchanges)+len(s.Transfers)+len(s.Payments))
	for _, e := range s.Exchanges {
		events = append(events, e)
	}
	for _, t := range s.Transfers {
		events = append(events, t)
	}
	for _, p := range s.Payments {
		events = append(events, p)
	}
	return events
}
