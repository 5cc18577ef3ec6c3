package orders

import (
	"testing"
	"time"

	"bakehouse/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func ord(id, tracking, user, status string, age time.Duration) models.Order {
	return models.Order{ID: id, TrackingID: tracking, UserID: user, Status: status, CreatedAt: t0.Add(-age)}
}

func ids(list []models.Order) []string {
	out := make([]string, 0, len(list))
	for _, o := range list {
		out = append(out, o.ID)
	}
	return out
}

func TestReconcilePrefersPrimaryOnDuplicateTracking(t *testing.T) {
	primary := []models.Order{ord("o1", "TRK-A", "u1", "confirmed", time.Hour)}
	mirror := []models.Order{
		ord("o1", "TRK-A", "u1", "pending", time.Hour),
		ord("o2", "TRK-B", "u1", "pending", 2*time.Hour),
	}

	got := Reconcile("u1", primary, mirror)

	if diff := cmp.Diff([]string{"o1", "o2"}, ids(got)); diff != "" {
		t.Fatalf("order ids (-want +got):\n%s", diff)
	}
	assert.Equal(t, "confirmed", got[0].Status)
}

func TestReconcileDedupsByTrackingEvenWithDifferentIDs(t *testing.T) {
	primary := []models.Order{ord("o1", "TRK-A", "u1", "confirmed", 0)}
	mirror := []models.Order{ord("legacy-mirror-id", "TRK-A", "u1", "pending", 0)}

	got := Reconcile("u1", primary, mirror)
	assert.Equal(t, []string{"o1"}, ids(got))
}

func TestReconcileFallsBackToDocumentID(t *testing.T) {
	primary := []models.Order{ord("o1", "", "u1", "confirmed", 0)}
	mirror := []models.Order{ord("o1", "", "u1", "pending", 0), ord("o3", "", "u1", "pending", time.Minute)}

	got := Reconcile("u1", primary, mirror)
	assert.Equal(t, []string{"o1", "o3"}, ids(got))
	assert.Equal(t, "confirmed", got[0].Status)
}

func TestReconcileDropsOtherTenants(t *testing.T) {
	primary := []models.Order{
		ord("o1", "TRK-A", "u1", "pending", 0),
		ord("o2", "TRK-B", "intruder", "pending", 0),
	}
	mirror := []models.Order{ord("o3", "TRK-C", "u2", "pending", 0)}

	got := Reconcile("u1", primary, mirror)
	assert.Equal(t, []string{"o1"}, ids(got))
}

func TestReconcileReassignedPrimaryHidesStaleMirror(t *testing.T) {
	primary := []models.Order{ord("o1", "TRK-A", "someone-else", "pending", 0)}
	mirror := []models.Order{ord("o1", "TRK-A", "u1", "pending", 0)}

	assert.Empty(t, Reconcile("u1", primary, mirror))

	got := Reconcile("someone-else", primary, mirror)
	assert.Equal(t, []string{"o1"}, ids(got))
}

func TestReconcileReassignedPrimaryMatchedByIDOnly(t *testing.T) {
	primary := []models.Order{ord("o1", "", "someone-else", "pending", 0)}
	mirror := []models.Order{ord("o1", "", "u1", "pending", 0)}

	assert.Empty(t, Reconcile("u1", primary, mirror))
}

func TestReconcileSortsNewestFirstWithStableTies(t *testing.T) {
	primary := []models.Order{
		ord("b", "TRK-2", "u1", "", time.Hour),
		ord("a", "TRK-1", "u1", "", time.Hour),
		ord("c", "TRK-3", "u1", "", 0),
	}
	got := Reconcile("u1", primary, nil)
	if diff := cmp.Diff([]string{"c", "a", "b"}, ids(got)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestReconcileDoesNotTouchInputs(t *testing.T) {
	primary := []models.Order{ord("b", "TRK-2", "u1", "", time.Hour), ord("a", "TRK-1", "u1", "", 0)}
	before := append([]models.Order(nil), primary...)

	Reconcile("u1", primary, nil)
	if diff := cmp.Diff(before, primary); diff != "" {
		t.Fatalf("input changed (-before +after):\n%s", diff)
	}
}

func TestReconcileEmpty(t *testing.T) {
	got := Reconcile("u1", nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
