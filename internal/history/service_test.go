package history

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-tracker/server/internal/domain"
)

type fakeStore struct {
	pets      map[int64]int64 // pet ID -> owning user ID
	locations []domain.Location
}

func (f *fakeStore) PetForUser(_ context.Context, petID, userID int64) (*domain.Pet, error) {
	if f.pets[petID] != userID {
		return nil, domain.ErrNotFound
	}
	return &domain.Pet{ID: petID, UserID: userID}, nil
}

func (f *fakeStore) LocationPage(_ context.Context, petID int64, page, limit int, start, end *time.Time) ([]domain.Location, int, error) {
	var matched []domain.Location
	for _, l := range f.locations {
		if l.PetID != petID {
			continue
		}
		if start != nil && l.Timestamp.Before(*start) {
			continue
		}
		if end != nil && l.Timestamp.After(*end) {
			continue
		}
		matched = append(matched, l)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	from := (page - 1) * limit
	if from > total {
		from = total
	}
	to := from + limit
	if to > total {
		to = total
	}
	return matched[from:to], total, nil
}

func seedStore(petID int64, n int) *fakeStore {
	st := &fakeStore{pets: map[int64]int64{petID: 10}}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		st.locations = append(st.locations, domain.Location{
			ID:        int64(i + 1),
			PetID:     petID,
			Latitude:  1,
			Longitude: 2,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return st
}

func TestQuery_UnknownOrUnownedPet(t *testing.T) {
	svc := NewService(seedStore(1, 5))

	_, err := svc.Query(context.Background(), 99, 10, 1, 100, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Query(context.Background(), 1, 77, 1, 100, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuery_Pagination(t *testing.T) {
	svc := NewService(seedStore(1, 150))

	page, err := svc.Query(context.Background(), 1, 10, 2, 100, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 150, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Locations, 50)

	// Page 2 continues the descending order: oldest 50 of the 150.
	assert.Equal(t, int64(50), page.Locations[0].ID)
	assert.Equal(t, int64(1), page.Locations[49].ID)
}

func TestQuery_TimeRange(t *testing.T) {
	st := seedStore(1, 10)
	svc := NewService(st)

	start := st.locations[4].Timestamp
	end := st.locations[6].Timestamp

	page, err := svc.Query(context.Background(), 1, 10, 1, 100, &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Locations, 3)
	// Bounds are inclusive on both ends.
	assert.Equal(t, int64(7), page.Locations[0].ID)
	assert.Equal(t, int64(5), page.Locations[2].ID)
}

func TestQuery_DefaultsAppliedToBadPaging(t *testing.T) {
	svc := NewService(seedStore(1, 5))

	page, err := svc.Query(context.Background(), 1, 10, 0, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Len(t, page.Locations, 5)
	assert.Equal(t, 1, page.Pages)
}

func TestQuery_EmptyHistory(t *testing.T) {
	st := &fakeStore{pets: map[int64]int64{1: 10}}
	svc := NewService(st)

	page, err := svc.Query(context.Background(), 1, 10, 1, 100, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.Pages)
	assert.NotNil(t, page.Locations)
	assert.Empty(t, page.Locations)
}
