package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pet-tracker/server/internal/config"
	"pet-tracker/server/internal/domain"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBMaxConns,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const petColumns = `
	id, user_id, name, species, breed, photo_url, device_id, api_key,
	is_online, battery_level, last_seen, created_at
`

func scanPet(row pgx.Row) (*domain.Pet, error) {
	var p domain.Pet
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Species, &p.Breed, &p.PhotoURL,
		&p.DeviceID, &p.APIKey, &p.IsOnline, &p.BatteryLevel, &p.LastSeen,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PetByAPIKey resolves a device credential to its pet. Returns
// domain.ErrNotFound when the credential is unknown; the registry turns
// that into an authentication failure.
func (s *Postgres) PetByAPIKey(ctx context.Context, apiKey string) (*domain.Pet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+petColumns+` FROM pets WHERE api_key = $1`, apiKey)
	pet, err := scanPet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pet lookup by api key failed: %w", err)
	}
	return pet, nil
}

// PetForUser fetches a pet only if it is owned by the given user.
func (s *Postgres) PetForUser(ctx context.Context, petID, userID int64) (*domain.Pet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+petColumns+` FROM pets WHERE id = $1 AND user_id = $2`, petID, userID)
	pet, err := scanPet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pet lookup failed: %w", err)
	}
	return pet, nil
}

func (s *Postgres) CreatePet(ctx context.Context, pet *domain.Pet) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pets (user_id, name, species, breed, photo_url, device_id, api_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_online, battery_level, created_at
	`,
		pet.UserID, pet.Name, pet.Species, pet.Breed, pet.PhotoURL,
		pet.DeviceID, pet.APIKey,
	).Scan(&pet.ID, &pet.IsOnline, &pet.BatteryLevel, &pet.CreatedAt)
	if err != nil {
		return fmt.Errorf("pet insert failed: %w", err)
	}
	return nil
}

// UpdatePetLiveness marks the pet online and stamps last_seen. When battery
// is non-nil the reported level is stored as well.
func (s *Postgres) UpdatePetLiveness(ctx context.Context, petID int64, lastSeen time.Time, battery *int) error {
	var err error
	if battery != nil {
		_, err = s.pool.Exec(ctx, `
			UPDATE pets SET is_online = TRUE, last_seen = $2, battery_level = $3
			WHERE id = $1
		`, petID, lastSeen, *battery)
	} else {
		_, err = s.pool.Exec(ctx, `
			UPDATE pets SET is_online = TRUE, last_seen = $2
			WHERE id = $1
		`, petID, lastSeen)
	}
	if err != nil {
		return fmt.Errorf("pet liveness update failed: %w", err)
	}
	return nil
}

const locationColumns = `
	id, pet_id, latitude, longitude, altitude, speed, satellites, hdop, timestamp
`

func scanLocations(rows pgx.Rows) ([]domain.Location, error) {
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		var l domain.Location
		err := rows.Scan(
			&l.ID, &l.PetID, &l.Latitude, &l.Longitude,
			&l.Altitude, &l.Speed, &l.Satellites, &l.HDOP, &l.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Postgres) InsertLocation(ctx context.Context, loc *domain.Location) (int64, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO locations (pet_id, latitude, longitude, altitude, speed, satellites, hdop, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		loc.PetID, loc.Latitude, loc.Longitude, loc.Altitude, loc.Speed,
		loc.Satellites, loc.HDOP, loc.Timestamp,
	).Scan(&loc.ID)
	if err != nil {
		return 0, fmt.Errorf("location insert failed: %w", err)
	}
	return loc.ID, nil
}

// LatestLocation returns the most recent fix by timestamp, ID as tiebreaker.
func (s *Postgres) LatestLocation(ctx context.Context, petID int64) (*domain.Location, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE pet_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, petID)

	var l domain.Location
	err := row.Scan(
		&l.ID, &l.PetID, &l.Latitude, &l.Longitude,
		&l.Altitude, &l.Speed, &l.Satellites, &l.HDOP, &l.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest location query failed: %w", err)
	}
	return &l, nil
}

// LatestLocationID returns the highest location ID for the pet, 0 when the
// pet has no fixes. Live feed subscriptions use it as the initial watermark.
func (s *Postgres) LatestLocationID(ctx context.Context, petID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM locations WHERE pet_id = $1`, petID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("latest location id query failed: %w", err)
	}
	return id, nil
}

// LocationsSince returns fixes with ID greater than afterID in ID order.
func (s *Postgres) LocationsSince(ctx context.Context, petID, afterID int64) ([]domain.Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE pet_id = $1 AND id > $2
		ORDER BY id ASC
	`, petID, afterID)
	if err != nil {
		return nil, fmt.Errorf("locations since query failed: %w", err)
	}
	return scanLocations(rows)
}

// LocationPage returns one page of fixes newest first plus the total match
// count. Page numbers are 1-based; nil time bounds are unconstrained.
func (s *Postgres) LocationPage(ctx context.Context, petID int64, page, limit int, start, end *time.Time) ([]domain.Location, int, error) {
	where := `pet_id = $1`
	args := []interface{}{petID}
	if start != nil {
		args = append(args, *start)
		where += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}
	if end != nil {
		args = append(args, *end)
		where += fmt.Sprintf(` AND timestamp <= $%d`, len(args))
	}

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM locations WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("location count query failed: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+locationColumns+` FROM locations
		WHERE %s
		ORDER BY timestamp DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("location page query failed: %w", err)
	}

	locs, err := scanLocations(rows)
	if err != nil {
		return nil, 0, err
	}
	return locs, total, nil
}

const zoneColumns = `
	id, pet_id, name, center_lat, center_lng, radius_meters, is_active, created_at
`

func scanZones(rows pgx.Rows) ([]domain.GeofenceZone, error) {
	defer rows.Close()

	var out []domain.GeofenceZone
	for rows.Next() {
		var z domain.GeofenceZone
		err := rows.Scan(
			&z.ID, &z.PetID, &z.Name, &z.CenterLat, &z.CenterLng,
			&z.RadiusMeters, &z.IsActive, &z.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// ActiveZones returns the zones geofence evaluation runs against.
func (s *Postgres) ActiveZones(ctx context.Context, petID int64) ([]domain.GeofenceZone, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+zoneColumns+` FROM geofence_zones WHERE pet_id = $1 AND is_active = TRUE`, petID)
	if err != nil {
		return nil, fmt.Errorf("active zones query failed: %w", err)
	}
	return scanZones(rows)
}

func (s *Postgres) ZonesByPet(ctx context.Context, petID int64) ([]domain.GeofenceZone, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+zoneColumns+` FROM geofence_zones WHERE pet_id = $1 ORDER BY id`, petID)
	if err != nil {
		return nil, fmt.Errorf("zones query failed: %w", err)
	}
	return scanZones(rows)
}

func (s *Postgres) CreateZone(ctx context.Context, zone *domain.GeofenceZone) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO geofence_zones (pet_id, name, center_lat, center_lng, radius_meters)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at
	`,
		zone.PetID, zone.Name, zone.CenterLat, zone.CenterLng, zone.RadiusMeters,
	).Scan(&zone.ID, &zone.IsActive, &zone.CreatedAt)
	if err != nil {
		return fmt.Errorf("zone insert failed: %w", err)
	}
	return nil
}

// DeleteZoneForUser removes a zone only when its pet belongs to the user.
func (s *Postgres) DeleteZoneForUser(ctx context.Context, zoneID, userID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM geofence_zones
		WHERE id = $1
		  AND pet_id IN (SELECT id FROM pets WHERE user_id = $2)
	`, zoneID, userID)
	if err != nil {
		return fmt.Errorf("zone delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) InsertAlert(ctx context.Context, alert *domain.Alert) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO alerts (pet_id, alert_type, message)
		VALUES ($1, $2, $3)
		RETURNING id, is_read, created_at
	`,
		alert.PetID, string(alert.Type), alert.Message,
	).Scan(&alert.ID, &alert.IsRead, &alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("alert insert failed: %w", err)
	}
	return nil
}

// UnreadBatteryAlertExists reports whether the pet already has an unread
// battery alert. The alert manager serializes callers per pet.
func (s *Postgres) UnreadBatteryAlertExists(ctx context.Context, petID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE pet_id = $1 AND alert_type = $2 AND is_read = FALSE
		)
	`, petID, string(domain.AlertBattery)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("battery alert check failed: %w", err)
	}
	return exists, nil
}

// AlertsForUser returns alerts across all of the user's pets, newest first.
func (s *Postgres) AlertsForUser(ctx context.Context, userID int64, limit int) ([]domain.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.pet_id, a.alert_type, a.message, a.is_read, a.created_at
		FROM alerts a
		JOIN pets p ON p.id = a.pet_id
		WHERE p.user_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("alerts query failed: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.PetID, &a.Type, &a.Message, &a.IsRead, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkAlertRead flips the alert to read when its pet belongs to the user.
// Re-marking an already-read alert is a no-op success.
func (s *Postgres) MarkAlertRead(ctx context.Context, alertID, userID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET is_read = TRUE
		WHERE id = $1
		  AND pet_id IN (SELECT id FROM pets WHERE user_id = $2)
	`, alertID, userID)
	if err != nil {
		return fmt.Errorf("alert update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
