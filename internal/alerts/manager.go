package alerts

import (
	"context"
	"fmt"
	"log"
	"sync"

	"pet-tracker/server/internal/domain"
	"pet-tracker/server/internal/metrics"
)

// LowBatteryThreshold is the reported level at or below which a battery
// alert is raised.
const LowBatteryThreshold = 20

// ListLimit caps the number of alerts returned to a user.
const ListLimit = 50

type Store interface {
	InsertAlert(ctx context.Context, alert *domain.Alert) error
	UnreadBatteryAlertExists(ctx context.Context, petID int64) (bool, error)
	AlertsForUser(ctx context.Context, userID int64, limit int) ([]domain.Alert, error)
	MarkAlertRead(ctx context.Context, alertID, userID int64) error
}

// Publisher fans new alerts out to live consumers. Publish failures are
// logged, not surfaced: the alert row is already committed.
type Publisher interface {
	PublishAlert(ctx context.Context, alert *domain.Alert) error
}

// Manager creates, deduplicates and lists alerts. The battery check-then-
// create runs under a per-pet mutex so two near-simultaneous low-battery
// reports cannot both insert an unread alert.
type Manager struct {
	store     Store
	publisher Publisher

	mu       sync.Mutex
	petLocks map[int64]*sync.Mutex
}

func NewManager(store Store, publisher Publisher) *Manager {
	return &Manager{
		store:     store,
		publisher: publisher,
		petLocks:  make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) lockFor(petID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.petLocks[petID]
	if !ok {
		l = &sync.Mutex{}
		m.petLocks[petID] = l
	}
	return l
}

// RaiseGeofenceAlert unconditionally appends an unread geofence alert naming
// the violated zone. Called once per violated zone per evaluation pass.
func (m *Manager) RaiseGeofenceAlert(ctx context.Context, petID int64, zoneName string) error {
	alert := &domain.Alert{
		PetID:   petID,
		Type:    domain.AlertGeofence,
		Message: fmt.Sprintf("Your pet left the zone %q!", zoneName),
	}
	if err := m.store.InsertAlert(ctx, alert); err != nil {
		return err
	}
	metrics.GeofenceAlertsRaised.Add(1)
	m.publish(ctx, alert)
	return nil
}

// CheckBattery raises a battery alert when the level is at or below the
// threshold and the pet has no unread battery alert yet.
func (m *Manager) CheckBattery(ctx context.Context, petID int64, level int) error {
	if level > LowBatteryThreshold {
		return nil
	}

	lock := m.lockFor(petID)
	lock.Lock()
	defer lock.Unlock()

	exists, err := m.store.UnreadBatteryAlertExists(ctx, petID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alert := &domain.Alert{
		PetID:   petID,
		Type:    domain.AlertBattery,
		Message: fmt.Sprintf("Low battery: %d%%", level),
	}
	if err := m.store.InsertAlert(ctx, alert); err != nil {
		return err
	}
	metrics.BatteryAlertsRaised.Add(1)
	m.publish(ctx, alert)
	return nil
}

// List returns the user's alerts across all pets, newest first, capped at 50.
func (m *Manager) List(ctx context.Context, userID int64) ([]domain.Alert, error) {
	return m.store.AlertsForUser(ctx, userID, ListLimit)
}

// MarkRead transitions the alert to read. The ownership check joins through
// the pet; an alert belonging to another user's pet is NotFound.
func (m *Manager) MarkRead(ctx context.Context, alertID, userID int64) error {
	return m.store.MarkAlertRead(ctx, alertID, userID)
}

func (m *Manager) publish(ctx context.Context, alert *domain.Alert) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishAlert(ctx, alert); err != nil {
		log.Printf("alert publish failed for pet %d: %v", alert.PetID, err)
	}
}
