package services

import (
	"slices"
	"strings"

	"github.com/ruralpay/ledger-audit/internal/models"
)

// FindOrphans returns the participants that have neither an external link nor
// an absorption record, sorted.
func FindOrphans(participants []string, links map[string][]models.ExternalLink, absorptions map[string]struct{}) []string {
	var orphans []string
	for _, identity := range dedupeSorted(participants) {
		if len(links[identity]) > 0 {
			continue
		}
		if _, absorbed := absorptions[identity]; absorbed {
			continue
		}
		orphans = append(orphans, identity)
	}
	return orphans
}

type pledgePair struct {
	source      string
	destination string
}

// CurrentPledges reduces a pledge history to the latest row per
// (source, destination) pair, ordered by source then destination.
//
// Rows sharing the latest timestamp of a pair make it ambiguous; such a pair
// resolves to its largest amount so it stays visible to the active-pledge
// check. The duplicate detector reports the tie itself.
func CurrentPledges(pledges []models.Pledge) []models.Pledge {
	latest := make(map[pledgePair]models.Pledge)
	for _, p := range pledges {
		pair := pledgePair{p.Source, p.Destination}
		cur, ok := latest[pair]
		switch {
		case !ok, p.Timestamp.After(cur.Timestamp):
			latest[pair] = p
		case p.Timestamp.Equal(cur.Timestamp) && p.Amount.GreaterThan(cur.Amount):
			latest[pair] = p
		}
	}

	current := make([]models.Pledge, 0, len(latest))
	for _, p := range latest {
		current = append(current, p)
	}
	slices.SortFunc(current, func(a, b models.Pledge) int {
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return strings.Compare(a.Destination, b.Destination)
	})
	return current
}

// FindOrphansWithActivePledges returns, sorted, the identities that give or
// receive a current pledge with a positive amount but have no external link.
func FindOrphansWithActivePledges(current []models.Pledge, links map[string][]models.ExternalLink) []string {
	var involved []string
	for _, p := range current {
		if !p.Amount.IsPositive() {
			continue
		}
		involved = append(involved, p.Source, p.Destination)
	}

	var orphans []string
	for _, identity := range dedupeSorted(involved) {
		if len(links[identity]) == 0 {
			orphans = append(orphans, identity)
		}
	}
	return orphans
}

func dedupeSorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
