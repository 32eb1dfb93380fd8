package history

import (
	"context"
	"time"

	"pet-tracker/server/internal/domain"
)

// DefaultLimit is the page size used when the caller does not supply one.
const DefaultLimit = 100

type Store interface {
	PetForUser(ctx context.Context, petID, userID int64) (*domain.Pet, error)
	LocationPage(ctx context.Context, petID int64, page, limit int, start, end *time.Time) ([]domain.Location, int, error)
}

// Page is one page of a pet's location history, newest first.
type Page struct {
	Locations   []domain.Location `json:"locations"`
	Total       int               `json:"total"`
	Pages       int               `json:"pages"`
	CurrentPage int               `json:"current_page"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Query returns the requested page of fixes filtered to the optional time
// range. The pet must belong to the user; otherwise NotFound. Page numbers
// are 1-based.
func (s *Service) Query(ctx context.Context, petID, userID int64, page, limit int, start, end *time.Time) (*Page, error) {
	if _, err := s.store.PetForUser(ctx, petID, userID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	locs, total, err := s.store.LocationPage(ctx, petID, page, limit, start, end)
	if err != nil {
		return nil, err
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	if locs == nil {
		locs = []domain.Location{}
	}

	return &Page{
		Locations:   locs,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
	}, nil
}
