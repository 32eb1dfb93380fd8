package livefeed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-tracker/server/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	locations []domain.Location
	nextID    int64
}

func (f *fakeStore) add(petID int64) domain.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	loc := domain.Location{ID: f.nextID, PetID: petID, Timestamp: time.Now()}
	f.locations = append(f.locations, loc)
	return loc
}

func (f *fakeStore) LatestLocationID(_ context.Context, petID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for _, l := range f.locations {
		if l.PetID == petID && l.ID > max {
			max = l.ID
		}
	}
	return max, nil
}

func (f *fakeStore) LocationsSince(_ context.Context, petID, afterID int64) ([]domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Location
	for _, l := range f.locations {
		if l.PetID == petID && l.ID > afterID {
			out = append(out, l)
		}
	}
	return out, nil
}

func receiveOne(t *testing.T, ch <-chan domain.Location) domain.Location {
	t.Helper()
	select {
	case loc, ok := <-ch:
		require.True(t, ok, "channel closed before delivery")
		return loc
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fix")
		return domain.Location{}
	}
}

func TestSubscribe_DeliversOnlyNewFixes(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 3; i++ {
		store.add(1)
	}

	feed := New(store, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, 1)
	require.NoError(t, err)

	// The three pre-existing fixes are behind the watermark.
	fourth := store.add(1)

	got := receiveOne(t, ch)
	assert.Equal(t, fourth.ID, got.ID)
}

func TestSubscribe_DeliversInIDOrder(t *testing.T) {
	store := &fakeStore{}
	feed := New(store, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, 1)
	require.NoError(t, err)

	first := store.add(1)
	second := store.add(1)
	third := store.add(1)

	assert.Equal(t, first.ID, receiveOne(t, ch).ID)
	assert.Equal(t, second.ID, receiveOne(t, ch).ID)
	assert.Equal(t, third.ID, receiveOne(t, ch).ID)
}

func TestSubscribe_IgnoresOtherPets(t *testing.T) {
	store := &fakeStore{}
	feed := New(store, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, 1)
	require.NoError(t, err)

	store.add(2)
	mine := store.add(1)

	got := receiveOne(t, ch)
	assert.Equal(t, mine.ID, got.ID)
	assert.Equal(t, int64(1), got.PetID)
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	store := &fakeStore{}
	feed := New(store, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := feed.Subscribe(ctx, 1)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
