package services

import (
	"slices"

	"github.com/ruralpay/ledger-audit/internal/models"
	"github.com/shopspring/decimal"
)

// Reconcile compares every stored balance with its recomputed value.
// An identity without events is expected to hold zero.
func Reconcile(expected, stored map[string]decimal.Decimal) []models.Violation {
	var violations []models.Violation
	for _, identity := range sortedKeys(stored) {
		want := expected[identity]
		got := stored[identity]
		if !want.Equal(got) {
			violations = append(violations, models.BalanceMismatch{
				Identity: identity,
				Expected: want,
				Actual:   got,
			})
		}
	}
	return violations
}

// TeamBalances derives each team's balance from its payments: money paid to
// the team minus money paid out of it.
func TeamBalances(payments []models.Payment) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, p := range payments {
		switch p.Direction {
		case models.ToTeam:
			balances[p.Team] = balances[p.Team].Add(p.Amount)
		case models.ToParticipant:
			balances[p.Team] = balances[p.Team].Sub(p.Amount)
		}
	}
	return balances
}

// CheckTeamBalances reports every team whose derived balance is not zero.
// Nothing is reported while a settlement batch is running.
func CheckTeamBalances(payments []models.Payment, settlement models.SettlementState) []models.Violation {
	if settlement.IsInProgress() {
		return nil
	}

	balances := TeamBalances(payments)
	var violations []models.Violation
	for _, team := range sortedKeys(balances) {
		if delta := balances[team]; !delta.IsZero() {
			violations = append(violations, models.TeamBalanceNonZero{Team: team, Delta: delta})
		}
	}
	return violations
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
