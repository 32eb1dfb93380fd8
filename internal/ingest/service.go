package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"pet-tracker/server/internal/domain"
	"pet-tracker/server/internal/metrics"
)

// Registry resolves a device credential to its pet.
type Registry interface {
	Resolve(ctx context.Context, apiKey string) (*domain.Pet, error)
}

type Store interface {
	InsertLocation(ctx context.Context, loc *domain.Location) (int64, error)
	UpdatePetLiveness(ctx context.Context, petID int64, lastSeen time.Time, battery *int) error
}

// BatteryChecker is the alert manager's battery-alert entry point.
type BatteryChecker interface {
	CheckBattery(ctx context.Context, petID int64, level int) error
}

// GeofenceEvaluator checks a stored fix against the pet's zones.
type GeofenceEvaluator interface {
	Evaluate(ctx context.Context, petID int64, lat, lng float64) error
}

// Publisher pushes the stored fix to live consumers. Optional; failures are
// logged and never fail the ingestion.
type Publisher interface {
	PublishLocation(ctx context.Context, loc *domain.Location, battery *int) error
}

// Service handles one inbound device report synchronously: authenticate,
// validate, persist the fix, update liveness, then run the battery and
// geofence checks against the committed state.
type Service struct {
	registry  Registry
	store     Store
	battery   BatteryChecker
	geofences GeofenceEvaluator
	publisher Publisher
	now       func() time.Time
}

func NewService(registry Registry, store Store, battery BatteryChecker, geofences GeofenceEvaluator, publisher Publisher) *Service {
	return &Service{
		registry:  registry,
		store:     store,
		battery:   battery,
		geofences: geofences,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ingest records one fix and returns the new location ID.
//
// The location and pet liveness are committed before geofence evaluation
// runs, so a geofence alert never references a fix that does not exist yet.
// The fix and its alerts are not one atomic transaction.
func (s *Service) Ingest(ctx context.Context, report domain.TelemetryReport) (int64, error) {
	pet, err := s.registry.Resolve(ctx, report.APIKey)
	if err != nil {
		metrics.FixesRejected.Add(1)
		return 0, err
	}

	if report.Latitude == nil || report.Longitude == nil {
		metrics.FixesRejected.Add(1)
		return 0, fmt.Errorf("latitude and longitude are required: %w", domain.ErrInvalidInput)
	}

	ingestedAt := s.now()
	timestamp := report.Timestamp
	if timestamp.IsZero() {
		timestamp = ingestedAt
	}

	loc := &domain.Location{
		PetID:      pet.ID,
		Latitude:   *report.Latitude,
		Longitude:  *report.Longitude,
		Altitude:   report.Altitude,
		Speed:      report.Speed,
		Satellites: report.Satellites,
		HDOP:       report.HDOP,
		Timestamp:  timestamp,
	}

	locationID, err := s.store.InsertLocation(ctx, loc)
	if err != nil {
		return 0, err
	}
	loc.ID = locationID
	metrics.FixesReceived.Add(1)

	if err := s.store.UpdatePetLiveness(ctx, pet.ID, ingestedAt, report.Battery); err != nil {
		return 0, err
	}

	if report.Battery != nil {
		if err := s.battery.CheckBattery(ctx, pet.ID, *report.Battery); err != nil {
			log.Printf("battery check failed for pet %d: %v", pet.ID, err)
		}
	}

	if err := s.geofences.Evaluate(ctx, pet.ID, loc.Latitude, loc.Longitude); err != nil {
		log.Printf("geofence evaluation failed for pet %d: %v", pet.ID, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishLocation(ctx, loc, report.Battery); err != nil {
			log.Printf("location publish failed for pet %d: %v", pet.ID, err)
		}
	}

	return locationID, nil
}
