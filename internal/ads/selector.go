package ads

import (
	"sort"

	"github.com/cityboard/listings/internal/models"
)

// Select derives the per-placement ordered ad lists for one page view.
// Input ads are expected to be pre-filtered to ACTIVE status and page
// membership by the repository query; Select applies the date-activity
// and geo-targeting filters, stable-sorts by position and partitions
// into the five fixed placement buckets.
//
// today is an ISO calendar date (YYYY-MM-DD). ISO dates order
// lexicographically the same as chronologically, so the activity check
// is a plain string comparison.
//
// Select is pure: no I/O, no mutation of its inputs, and the same
// inputs always yield the same buckets.
func Select(adList []*models.Ad, viewer models.ViewerContext, today string) models.PlacementBuckets {
	kept := make([]*models.Ad, 0, len(adList))
	for _, ad := range adList {
		if !activeOn(ad, today) {
			continue
		}
		if !matchesViewer(ad, viewer) {
			continue
		}
		kept = append(kept, ad)
	}

	// Stable sort keeps fetch order for equal positions.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PositionOrZero() < kept[j].PositionOrZero()
	})

	buckets := make(models.PlacementBuckets, len(models.Placements))
	for _, p := range models.Placements {
		buckets[p] = []*models.Ad{}
	}
	for _, ad := range kept {
		if _, ok := buckets[ad.Placement]; !ok {
			// Unknown placement values are dropped, not bucketed.
			continue
		}
		buckets[ad.Placement] = append(buckets[ad.Placement], ad)
	}
	return buckets
}

// activeOn checks the inclusive date window. A missing bound defaults
// to the evaluation day, so an ad with neither bound is active only on
// that exact day.
func activeOn(ad *models.Ad, today string) bool {
	start := today
	if ad.StartDate != nil {
		start = *ad.StartDate
	}
	end := today
	if ad.EndDate != nil {
		end = *ad.EndDate
	}
	return start <= today && today <= end
}

// matchesViewer applies the permissive geo policy: each of state, city
// and pincode matches when the ad is untargeted on that field, the
// viewer's value is unknown, or the two are equal. All three must
// match.
func matchesViewer(ad *models.Ad, viewer models.ViewerContext) bool {
	return fieldMatches(ad.TargetState, viewer.State) &&
		fieldMatches(ad.TargetCity, viewer.City) &&
		fieldMatches(ad.TargetPincode, viewer.Pincode)
}

func fieldMatches(target, actual string) bool {
	return target == "" || actual == "" || target == actual
}
