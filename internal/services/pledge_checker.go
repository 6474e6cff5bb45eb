package services

import "github.com/ruralpay/ledger-audit/internal/models"

// DuplicatePledgeRows returns every pledge row whose (source, destination,
// timestamp) key was already taken by an earlier row in log order. Amounts are
// ignored: two rows with the same key are duplicates even if they disagree.
func DuplicatePledgeRows(pledges []models.Pledge) []models.Pledge {
	seen := make(map[models.PledgeKey]struct{}, len(pledges))
	var excess []models.Pledge
	for _, p := range pledges {
		key := p.Key()
		if _, dup := seen[key]; dup {
			excess = append(excess, p)
			continue
		}
		seen[key] = struct{}{}
	}
	return excess
}

// FindDuplicatePledges counts the excess rows reported by DuplicatePledgeRows.
// A healthy pledge table yields zero.
func FindDuplicatePledges(pledges []models.Pledge) int {
	return len(DuplicatePledgeRows(pledges))
}
