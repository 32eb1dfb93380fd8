package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-tracker/server/internal/domain"
)

type fakeRegistry struct {
	pets map[string]*domain.Pet
}

func (f *fakeRegistry) Resolve(_ context.Context, apiKey string) (*domain.Pet, error) {
	pet, ok := f.pets[apiKey]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return pet, nil
}

type fakeStore struct {
	locations []domain.Location
	nextID    int64

	livenessPet  int64
	livenessTime time.Time
	livenessBat  *int
	livenessHits int
}

func (f *fakeStore) InsertLocation(_ context.Context, loc *domain.Location) (int64, error) {
	f.nextID++
	loc.ID = f.nextID
	f.locations = append(f.locations, *loc)
	return loc.ID, nil
}

func (f *fakeStore) UpdatePetLiveness(_ context.Context, petID int64, lastSeen time.Time, battery *int) error {
	f.livenessPet = petID
	f.livenessTime = lastSeen
	f.livenessBat = battery
	f.livenessHits++
	return nil
}

type fakeBattery struct {
	checks []int
}

func (f *fakeBattery) CheckBattery(_ context.Context, _ int64, level int) error {
	f.checks = append(f.checks, level)
	return nil
}

type fakeEvaluator struct {
	calls           int
	lat, lng        float64
	locationsAtEval int
	store           *fakeStore
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ int64, lat, lng float64) error {
	f.calls++
	f.lat, f.lng = lat, lng
	f.locationsAtEval = len(f.store.locations)
	return nil
}

func newService(reg *fakeRegistry, st *fakeStore, bat *fakeBattery, eval *fakeEvaluator, now time.Time) *Service {
	s := NewService(reg, st, bat, eval, nil)
	s.now = func() time.Time { return now }
	return s
}

func ptr[T any](v T) *T { return &v }

func TestIngest_UnknownCredential(t *testing.T) {
	st := &fakeStore{}
	eval := &fakeEvaluator{store: st}
	svc := newService(&fakeRegistry{pets: map[string]*domain.Pet{}}, st, &fakeBattery{}, eval, time.Now())

	_, err := svc.Ingest(context.Background(), domain.TelemetryReport{
		APIKey:    "nope",
		Latitude:  ptr(1.0),
		Longitude: ptr(2.0),
	})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, st.locations)
	assert.Zero(t, st.livenessHits)
}

func TestIngest_MissingCoordinates(t *testing.T) {
	reg := &fakeRegistry{pets: map[string]*domain.Pet{"key": {ID: 7}}}
	st := &fakeStore{}
	eval := &fakeEvaluator{store: st}
	svc := newService(reg, st, &fakeBattery{}, eval, time.Now())

	for _, report := range []domain.TelemetryReport{
		{APIKey: "key"},
		{APIKey: "key", Latitude: ptr(1.0)},
		{APIKey: "key", Longitude: ptr(2.0)},
	} {
		_, err := svc.Ingest(context.Background(), report)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Empty(t, st.locations)
	assert.Zero(t, st.livenessHits)
	assert.Zero(t, eval.calls)
}

func TestIngest_Success(t *testing.T) {
	reg := &fakeRegistry{pets: map[string]*domain.Pet{"key": {ID: 7}}}
	st := &fakeStore{}
	bat := &fakeBattery{}
	eval := &fakeEvaluator{store: st}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(reg, st, bat, eval, now)

	id, err := svc.Ingest(context.Background(), domain.TelemetryReport{
		APIKey:    "key",
		Latitude:  ptr(-23.55),
		Longitude: ptr(-46.63),
		Altitude:  ptr(760.0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, st.locations, 1)
	loc := st.locations[0]
	assert.Equal(t, int64(7), loc.PetID)
	assert.Equal(t, -23.55, loc.Latitude)
	assert.Equal(t, now, loc.Timestamp)

	// Liveness updated with ingestion time.
	assert.Equal(t, int64(7), st.livenessPet)
	assert.Equal(t, now, st.livenessTime)
	assert.Nil(t, st.livenessBat)

	// No battery in the report means no battery check.
	assert.Empty(t, bat.checks)

	// Geofences evaluated for the stored coordinates, after the store.
	assert.Equal(t, 1, eval.calls)
	assert.Equal(t, -23.55, eval.lat)
	assert.Equal(t, -46.63, eval.lng)
	assert.Equal(t, 1, eval.locationsAtEval)
}

func TestIngest_BatteryStoredAndChecked(t *testing.T) {
	reg := &fakeRegistry{pets: map[string]*domain.Pet{"key": {ID: 7}}}
	st := &fakeStore{}
	bat := &fakeBattery{}
	eval := &fakeEvaluator{store: st}
	svc := newService(reg, st, bat, eval, time.Now())

	_, err := svc.Ingest(context.Background(), domain.TelemetryReport{
		APIKey:    "key",
		Latitude:  ptr(1.0),
		Longitude: ptr(2.0),
		Battery:   ptr(15),
	})
	require.NoError(t, err)

	require.NotNil(t, st.livenessBat)
	assert.Equal(t, 15, *st.livenessBat)
	assert.Equal(t, []int{15}, bat.checks)
}

func TestIngest_DeviceTimestampPreserved(t *testing.T) {
	reg := &fakeRegistry{pets: map[string]*domain.Pet{"key": {ID: 7}}}
	st := &fakeStore{}
	eval := &fakeEvaluator{store: st}
	svc := newService(reg, st, &fakeBattery{}, eval, time.Now())

	reported := time.Date(2026, 2, 28, 8, 30, 0, 0, time.UTC)
	_, err := svc.Ingest(context.Background(), domain.TelemetryReport{
		APIKey:    "key",
		Latitude:  ptr(1.0),
		Longitude: ptr(2.0),
		Timestamp: reported,
	})
	require.NoError(t, err)
	assert.Equal(t, reported, st.locations[0].Timestamp)
}
