package orders

import (
	"sort"

	"bakehouse/models"
)

// Reconcile merges the orders read from the orders collection (primary)
// with those read from the shop mirror into one list for userID:
//   - entries are deduplicated by tracking id, or document id when the
//     tracking id is missing, and the primary copy wins;
//   - entries belonging to another user are then dropped, so a primary
//     header reassigned elsewhere hides its stale mirror copy too;
//   - the result is sorted newest first, ties broken by id.
//
// It does no I/O and never modifies its inputs.
func Reconcile(userID string, primary, mirror []models.Order) []models.Order {
	merged := make([]models.Order, 0, len(primary)+len(mirror))
	seenTracking := make(map[string]bool)
	seenID := make(map[string]bool)

	add := func(o models.Order) {
		if o.TrackingID != "" && seenTracking[o.TrackingID] {
			return
		}
		if o.ID != "" && seenID[o.ID] {
			return
		}
		if o.TrackingID != "" {
			seenTracking[o.TrackingID] = true
		}
		if o.ID != "" {
			seenID[o.ID] = true
		}
		merged = append(merged, o)
	}
	for _, o := range primary {
		add(o)
	}
	for _, o := range mirror {
		add(o)
	}

	out := make([]models.Order, 0, len(merged))
	for _, o := range merged {
		if o.UserID == userID {
			out = append(out, o)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// mirrorsAsOrders converts shop mirror documents for Reconcile.
func mirrorsAsOrders(mirrors []models.ShopOrder) []models.Order {
	out := make([]models.Order, 0, len(mirrors))
	for _, m := range mirrors {
		out = append(out, m.AsOrder())
	}
	return out
}
