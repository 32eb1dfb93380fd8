package livefeed

import (
	"context"
	"log"
	"time"

	"pet-tracker/server/internal/domain"
	"pet-tracker/server/internal/metrics"
)

type Store interface {
	LatestLocationID(ctx context.Context, petID int64) (int64, error)
	LocationsSince(ctx context.Context, petID, afterID int64) ([]domain.Location, error)
}

// Feed delivers newly arrived fixes to subscribers by polling the store.
// Each subscriber holds only its own watermark; the polling query holds no
// locks across the wait interval, so ingestion is never blocked.
type Feed struct {
	store    Store
	interval time.Duration
}

func New(store Store, interval time.Duration) *Feed {
	return &Feed{store: store, interval: interval}
}

// Subscribe opens a per-pet subscription. The watermark snapshots the
// latest location ID at subscribe time, so only fixes arriving afterwards
// are delivered. New fixes arrive on the channel in ID order, at least once
// each. The channel closes when ctx is cancelled.
func (f *Feed) Subscribe(ctx context.Context, petID int64) (<-chan domain.Location, error) {
	watermark, err := f.store.LatestLocationID(ctx, petID)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.Location)
	go f.poll(ctx, petID, watermark, ch)
	return ch, nil
}

func (f *Feed) poll(ctx context.Context, petID, watermark int64, ch chan<- domain.Location) {
	defer close(ch)

	metrics.FeedSubscribers.Add(1)
	defer metrics.FeedSubscribers.Add(-1)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			locs, err := f.store.LocationsSince(ctx, petID, watermark)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("live feed poll failed for pet %d: %v", petID, err)
				continue
			}

			for _, loc := range locs {
				select {
				case ch <- loc:
					watermark = loc.ID
					metrics.FeedEventsDelivered.Add(1)
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
