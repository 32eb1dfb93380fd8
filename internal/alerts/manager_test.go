package alerts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-tracker/server/internal/domain"
)

type fakeStore struct {
	alerts []domain.Alert
	nextID int64
	pets   map[int64]int64 // pet ID -> owning user ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{pets: map[int64]int64{}}
}

func (s *fakeStore) InsertAlert(_ context.Context, alert *domain.Alert) error {
	s.nextID++
	alert.ID = s.nextID
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *fakeStore) UnreadBatteryAlertExists(_ context.Context, petID int64) (bool, error) {
	for _, a := range s.alerts {
		if a.PetID == petID && a.Type == domain.AlertBattery && !a.IsRead {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) AlertsForUser(_ context.Context, userID int64, limit int) ([]domain.Alert, error) {
	var out []domain.Alert
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.pets[s.alerts[i].PetID] == userID {
			out = append(out, s.alerts[i])
		}
	}
	return out, nil
}

func (s *fakeStore) MarkAlertRead(_ context.Context, alertID, userID int64) error {
	for i, a := range s.alerts {
		if a.ID == alertID && s.pets[a.PetID] == userID {
			s.alerts[i].IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *fakeStore) byType(t domain.AlertType) []domain.Alert {
	var out []domain.Alert
	for _, a := range s.alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func TestCheckBattery_AboveThresholdNoAlert(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, nil)

	require.NoError(t, mgr.CheckBattery(context.Background(), 1, 21))
	assert.Empty(t, store.alerts)
}

func TestCheckBattery_Dedup(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, nil)
	ctx := context.Background()

	// First low report creates exactly one alert.
	require.NoError(t, mgr.CheckBattery(ctx, 1, 20))
	require.Len(t, store.byType(domain.AlertBattery), 1)
	assert.Equal(t, "Low battery: 20%", store.alerts[0].Message)
	assert.False(t, store.alerts[0].IsRead)

	// Second report while the first is unread is deduplicated.
	require.NoError(t, mgr.CheckBattery(ctx, 1, 15))
	assert.Len(t, store.byType(domain.AlertBattery), 1)

	// After the alert is read, a new low report alerts again.
	store.alerts[0].IsRead = true
	require.NoError(t, mgr.CheckBattery(ctx, 1, 10))
	assert.Len(t, store.byType(domain.AlertBattery), 2)
}

func TestCheckBattery_DedupIsPerPet(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, nil)
	ctx := context.Background()

	require.NoError(t, mgr.CheckBattery(ctx, 1, 10))
	require.NoError(t, mgr.CheckBattery(ctx, 2, 10))
	assert.Len(t, store.byType(domain.AlertBattery), 2)
}

func TestRaiseGeofenceAlert_NoDedup(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, nil)
	ctx := context.Background()

	require.NoError(t, mgr.RaiseGeofenceAlert(ctx, 1, "Backyard"))
	require.NoError(t, mgr.RaiseGeofenceAlert(ctx, 1, "Backyard"))

	geofence := store.byType(domain.AlertGeofence)
	require.Len(t, geofence, 2)
	assert.Equal(t, `Your pet left the zone "Backyard"!`, geofence[0].Message)
}

func TestMarkRead_OtherUsersPet(t *testing.T) {
	store := newFakeStore()
	store.pets[1] = 10
	mgr := NewManager(store, nil)
	ctx := context.Background()

	require.NoError(t, mgr.RaiseGeofenceAlert(ctx, 1, "Backyard"))

	err := mgr.MarkRead(ctx, store.alerts[0].ID, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, store.alerts[0].IsRead)

	require.NoError(t, mgr.MarkRead(ctx, store.alerts[0].ID, 10))
	assert.True(t, store.alerts[0].IsRead)
}

func TestList_CapAndOrder(t *testing.T) {
	store := newFakeStore()
	store.pets[1] = 10
	mgr := NewManager(store, nil)
	ctx := context.Background()

	for i := 0; i < ListLimit+10; i++ {
		require.NoError(t, mgr.RaiseGeofenceAlert(ctx, 1, "Backyard"))
	}

	list, err := mgr.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, ListLimit)
	// Newest first.
	assert.Greater(t, list[0].ID, list[1].ID)
}
