package geofence

import (
	"context"

	"pet-tracker/server/internal/domain"
	"pet-tracker/server/internal/geo"
)

type ZoneSource interface {
	ActiveZones(ctx context.Context, petID int64) ([]domain.GeofenceZone, error)
}

type Alerter interface {
	RaiseGeofenceAlert(ctx context.Context, petID int64, zoneName string) error
}

// Evaluator checks a fix against the pet's active zones.
type Evaluator struct {
	zones  ZoneSource
	alerts Alerter
}

func NewEvaluator(zones ZoneSource, alerts Alerter) *Evaluator {
	return &Evaluator{zones: zones, alerts: alerts}
}

// Evaluate raises one geofence alert for every active zone whose center is
// strictly farther than its radius from the fix. A pet that stays outside a
// zone alerts again on every pass; there is no exit-event suppression.
func (e *Evaluator) Evaluate(ctx context.Context, petID int64, lat, lng float64) error {
	zones, err := e.zones.ActiveZones(ctx, petID)
	if err != nil {
		return err
	}

	for _, zone := range zones {
		distance := geo.Distance(zone.CenterLat, zone.CenterLng, lat, lng)
		if distance > zone.RadiusMeters {
			if err := e.alerts.RaiseGeofenceAlert(ctx, petID, zone.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
