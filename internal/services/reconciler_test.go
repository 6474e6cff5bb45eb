package services

import (
	"testing"

	"github.com/ruralpay/ledger-audit/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	t.Run("matching balances", func(t *testing.T) {
		expected := map[string]decimal.Decimal{"P": d("470")}
		stored := map[string]decimal.Decimal{"P": d("470.00")}

		assert.Empty(t, Reconcile(expected, stored))
	})

	t.Run("mismatch reports expected and actual", func(t *testing.T) {
		expected := map[string]decimal.Decimal{"P": d("470")}
		stored := map[string]decimal.Decimal{"P": d("450")}

		violations := Reconcile(expected, stored)
		require.Len(t, violations, 1)
		mismatch, ok := violations[0].(models.BalanceMismatch)
		require.True(t, ok)
		assert.Equal(t, "P", mismatch.Identity)
		assert.True(t, d("470").Equal(mismatch.Expected))
		assert.True(t, d("450").Equal(mismatch.Actual))
		assert.Equal(t, "balance_mismatch participant=P expected=470 actual=450", mismatch.String())
	})

	t.Run("stored balance without events must be zero", func(t *testing.T) {
		stored := map[string]decimal.Decimal{"idle": d("0.00"), "ghost": d("12.50")}

		violations := Reconcile(map[string]decimal.Decimal{}, stored)
		require.Len(t, violations, 1)
		assert.Equal(t, "ghost", violations[0].(models.BalanceMismatch).Identity)
	})

	t.Run("identities missing from stored are not checked", func(t *testing.T) {
		expected := map[string]decimal.Decimal{"unknown": d("5")}

		assert.Empty(t, Reconcile(expected, map[string]decimal.Decimal{}))
	})

	t.Run("violations sorted by identity", func(t *testing.T) {
		stored := map[string]decimal.Decimal{"zoe": d("1"), "adam": d("1"), "mia": d("1")}

		violations := Reconcile(nil, stored)
		require.Len(t, violations, 3)
		assert.Equal(t, "adam", violations[0].(models.BalanceMismatch).Identity)
		assert.Equal(t, "mia", violations[1].(models.BalanceMismatch).Identity)
		assert.Equal(t, "zoe", violations[2].(models.BalanceMismatch).Identity)
	})
}

func TestCheckTeamBalances(t *testing.T) {
	in := models.Payment{Participant: "alice", Team: "T", Amount: d("100"), Direction: models.ToTeam}
	out := models.Payment{Participant: "bob", Team: "T", Amount: d("100"), Direction: models.ToParticipant}

	t.Run("balanced team", func(t *testing.T) {
		assert.Empty(t, CheckTeamBalances([]models.Payment{in, out}, models.Idle()))
	})

	t.Run("only money in", func(t *testing.T) {
		violations := CheckTeamBalances([]models.Payment{in}, models.Idle())
		require.Len(t, violations, 1)
		v := violations[0].(models.TeamBalanceNonZero)
		assert.Equal(t, "T", v.Team)
		assert.True(t, d("100").Equal(v.Delta))
	})

	t.Run("only money out", func(t *testing.T) {
		violations := CheckTeamBalances([]models.Payment{out}, models.Idle())
		require.Len(t, violations, 1)
		v := violations[0].(models.TeamBalanceNonZero)
		assert.True(t, d("-100").Equal(v.Delta))
		assert.Equal(t, "team_balance_nonzero team=T delta=-100", v.String())
	})

	t.Run("suppressed during settlement", func(t *testing.T) {
		assert.Empty(t, CheckTeamBalances([]models.Payment{in}, models.InProgress("42")))
		assert.Empty(t, CheckTeamBalances([]models.Payment{out}, models.InProgress("42")))
	})

	t.Run("teams reported in slug order", func(t *testing.T) {
		payments := []models.Payment{
			{Participant: "a", Team: "zeta", Amount: d("1"), Direction: models.ToTeam},
			{Participant: "a", Team: "alpha", Amount: d("2"), Direction: models.ToTeam},
		}
		violations := CheckTeamBalances(payments, models.Idle())
		require.Len(t, violations, 2)
		assert.Equal(t, "alpha", violations[0].(models.TeamBalanceNonZero).Team)
		assert.Equal(t, "zeta", violations[1].(models.TeamBalanceNonZero).Team)
	})
}
