package services

import (
	"math/rand"
	"testing"

	"github.com/ruralpay/ledger-audit/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestContribution(t *testing.T) {
	tests := []struct {
		name     string
		event    models.LedgerEvent
		identity string
		want     string
	}{
		{"succeeded charge", models.Exchange{Participant: "alice", Amount: d("10.00"), Fee: d("0.61"), Status: models.ExchangeSucceeded}, "alice", "10.00"},
		{"unknown charge", models.Exchange{Participant: "alice", Amount: d("10.00"), Status: models.ExchangeUnknown}, "alice", "10.00"},
		{"failed charge", models.Exchange{Participant: "alice", Amount: d("10.00"), Status: models.ExchangeFailed}, "alice", "0"},
		{"other-status charge", models.Exchange{Participant: "alice", Amount: d("10.00"), Status: models.ExchangeOther}, "alice", "0"},
		{"payout subtracts fee", models.Exchange{Participant: "alice", Amount: d("-20.00"), Fee: d("0.25"), Status: models.ExchangeSucceeded}, "alice", "-20.25"},
		{"other-status payout counts", models.Exchange{Participant: "alice", Amount: d("-20.00"), Fee: d("0.25"), Status: models.ExchangeOther}, "alice", "-20.25"},
		{"failed payout", models.Exchange{Participant: "alice", Amount: d("-20.00"), Fee: d("0.25"), Status: models.ExchangeFailed}, "alice", "0"},
		{"charge without status", models.Exchange{Participant: "alice", Amount: d("10.00")}, "alice", "0"},
		{"payout without status", models.Exchange{Participant: "alice", Amount: d("-20.00"), Fee: d("0.25")}, "alice", "0"},
		{"exchange of someone else", models.Exchange{Participant: "bob", Amount: d("10.00"), Status: models.ExchangeSucceeded}, "alice", "0"},
		{"tipper loses", models.Transfer{Tipper: "alice", Tippee: "bob", Amount: d("3.00")}, "alice", "-3.00"},
		{"tippee gains", models.Transfer{Tipper: "alice", Tippee: "bob", Amount: d("3.00")}, "bob", "3.00"},
		{"self transfer", models.Transfer{Tipper: "alice", Tippee: "alice", Amount: d("3.00")}, "alice", "0"},
		{"payment to participant", models.Payment{Participant: "alice", Team: "tools", Amount: d("5.00"), Direction: models.ToParticipant}, "alice", "5.00"},
		{"payment to team", models.Payment{Participant: "alice", Team: "tools", Amount: d("5.00"), Direction: models.ToTeam}, "alice", "-5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Contribution(tt.event, tt.identity)
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestExpectedBalances(t *testing.T) {
	t.Run("end to end scenario", func(t *testing.T) {
		events := []models.LedgerEvent{
			models.Exchange{Participant: "P", Amount: d("500"), Status: models.ExchangeSucceeded},
			models.Transfer{Tipper: "P", Tippee: "Q", Amount: d("50")},
			models.Payment{Participant: "P", Team: "T", Amount: d("20"), Direction: models.ToParticipant},
		}

		expected := ExpectedBalances(events)
		assert.True(t, d("470").Equal(expected["P"]))
		assert.True(t, d("50").Equal(expected["Q"]))
		assert.Len(t, expected, 2)
	})

	t.Run("participants without events are absent", func(t *testing.T) {
		expected := ExpectedBalances(nil)
		assert.Empty(t, expected)
	})

	t.Run("exact decimal sums", func(t *testing.T) {
		var events []models.LedgerEvent
		for i := 0; i < 10; i++ {
			events = append(events, models.Transfer{Tipper: "alice", Tippee: "bob", Amount: d("0.10")})
		}
		expected := ExpectedBalances(events)
		assert.Equal(t, "1", expected["bob"].String())
		assert.Equal(t, "-1", expected["alice"].String())
	})
}

// Random ledgers reconcile cleanly against balances built event by event,
// and any perturbation of a stored balance is caught.
func TestBalanceClosureProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	people := []string{"alice", "bob", "carol", "dave", "erin"}
	statuses := []models.ExchangeStatus{models.ExchangeUnknown, models.ExchangeSucceeded, models.ExchangeFailed, models.ExchangeOther}
	amount := func() decimal.Decimal {
		return decimal.New(rng.Int63n(100000)+1, -2)
	}

	for round := 0; round < 200; round++ {
		stored := make(map[string]decimal.Decimal)
		for _, p := range people {
			stored[p] = decimal.Zero
		}

		var events []models.LedgerEvent
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			var e models.LedgerEvent
			switch rng.Intn(3) {
			case 0:
				a := amount()
				if rng.Intn(2) == 0 {
					a = a.Neg()
				}
				e = models.Exchange{Participant: people[rng.Intn(len(people))], Amount: a, Fee: decimal.New(rng.Int63n(100), -2), Status: statuses[rng.Intn(len(statuses))]}
			case 1:
				e = models.Transfer{Tipper: people[rng.Intn(len(people))], Tippee: people[rng.Intn(len(people))], Amount: amount()}
			default:
				dir := models.ToTeam
				if rng.Intn(2) == 0 {
					dir = models.ToParticipant
				}
				e = models.Payment{Participant: people[rng.Intn(len(people))], Team: "team", Amount: amount(), Direction: dir}
			}
			events = append(events, e)
			for _, p := range people {
				stored[p] = stored[p].Add(Contribution(e, p))
			}
		}

		assert.Empty(t, Reconcile(ExpectedBalances(events), stored), "round %d", round)

		victim := people[rng.Intn(len(people))]
		stored[victim] = stored[victim].Add(d("0.01"))
		violations := Reconcile(ExpectedBalances(events), stored)
		if assert.Len(t, violations, 1, "round %d", round) {
			assert.Equal(t, victim, violations[0].(models.BalanceMismatch).Identity)
		}
	}
}
