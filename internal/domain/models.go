package domain

import "time"

// Pet owns the tracker device. The liveness fields (IsOnline, BatteryLevel,
// LastSeen) are written only by telemetry ingestion, never by user edits.
type Pet struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Breed     string    `json:"breed"`
	PhotoURL  string    `json:"photo_url"`
	DeviceID  string    `json:"device_id"`
	APIKey    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`

	IsOnline     bool       `json:"is_online"`
	BatteryLevel int        `json:"battery_level"`
	LastSeen     *time.Time `json:"last_seen"`
}

// Location is one GPS fix. Immutable once written; IDs are monotonic with
// insertion order and break timestamp ties in "latest" queries.
type Location struct {
	ID         int64     `json:"id"`
	PetID      int64     `json:"pet_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   *float64  `json:"altitude"`
	Speed      *float64  `json:"speed"`
	Satellites *int      `json:"satellites"`
	HDOP       *float64  `json:"hdop"`
	Timestamp  time.Time `json:"timestamp"`
}

// GeofenceZone is a circular perimeter around a center point. A fix strictly
// farther than RadiusMeters from the center violates the zone.
type GeofenceZone struct {
	ID           int64     `json:"id"`
	PetID        int64     `json:"pet_id"`
	Name         string    `json:"name"`
	CenterLat    float64   `json:"center_lat"`
	CenterLng    float64   `json:"center_lng"`
	RadiusMeters float64   `json:"radius_meters"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type AlertType string

const (
	AlertGeofence AlertType = "geofence"
	AlertBattery  AlertType = "battery"
)

// Alert is append-only except for IsRead, which flips unread->read once.
type Alert struct {
	ID        int64     `json:"id"`
	PetID     int64     `json:"pet_id"`
	Type      AlertType `json:"alert_type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TelemetryReport is one inbound device report. Latitude and Longitude are
// pointers so "missing" is distinguishable from zero; ingestion rejects nil.
type TelemetryReport struct {
	APIKey     string
	Latitude   *float64
	Longitude  *float64
	Altitude   *float64
	Speed      *float64
	Satellites *int
	HDOP       *float64
	Battery    *int
	Timestamp  time.Time
}
