package services

import (
	"github.com/ruralpay/ledger-audit/internal/models"
	"github.com/shopspring/decimal"
)

// Contribution returns the signed amount event adds to identity's balance.
func Contribution(event models.LedgerEvent, identity string) decimal.Decimal {
	switch e := event.(type) {
	case models.Exchange:
		if e.Participant != identity {
			return decimal.Zero
		}
		return exchangeContribution(e)
	case models.Transfer:
		// A self-transfer nets to zero.
		total := decimal.Zero
		if e.Tipper == identity {
			total = total.Sub(e.Amount)
		}
		if e.Tippee == identity {
			total = total.Add(e.Amount)
		}
		return total
	case models.Payment:
		if e.Participant != identity {
			return decimal.Zero
		}
		return paymentContribution(e)
	}
	return decimal.Zero
}

func exchangeContribution(e models.Exchange) decimal.Decimal {
	switch {
	case e.Status == models.ExchangeUnset:
		// Rows without a status are not counted in either direction.
	case e.Amount.IsPositive():
		if e.Status == models.ExchangeSucceeded || e.Status == models.ExchangeUnknown {
			return e.Amount
		}
	case e.Amount.IsNegative():
		if e.Status != models.ExchangeFailed {
			return e.Amount.Sub(e.Fee)
		}
	}
	return decimal.Zero
}

func paymentContribution(p models.Payment) decimal.Decimal {
	switch p.Direction {
	case models.ToParticipant:
		return p.Amount
	case models.ToTeam:
		return p.Amount.Neg()
	}
	return decimal.Zero
}

// ExpectedBalances folds the event log into an expected balance per identity.
// Identities that appear in no event are absent from the result.
func ExpectedBalances(events []models.LedgerEvent) map[string]decimal.Decimal {
	expected := make(map[string]decimal.Decimal)
	add := func(identity string, amount decimal.Decimal) {
		expected[identity] = expected[identity].Add(amount)
	}

	for _, event := range events {
		switch e := event.(type) {
		case models.Exchange:
			add(e.Participant, exchangeContribution(e))
		case models.Transfer:
			add(e.Tipper, e.Amount.Neg())
			add(e.Tippee, e.Amount)
		case models.Payment:
			add(e.Participant, paymentContribution(e))
		}
	}
	return expected
}
