package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"pet-tracker/server/internal/alerts"
	"pet-tracker/server/internal/domain"
	"pet-tracker/server/internal/history"
	"pet-tracker/server/internal/ingest"
	"pet-tracker/server/internal/livefeed"
)

// Store is the slice of the repository the handlers use directly. The
// telemetry, history and alert flows go through their services instead.
type Store interface {
	PetForUser(ctx context.Context, petID, userID int64) (*domain.Pet, error)
	CreatePet(ctx context.Context, pet *domain.Pet) error
	LatestLocation(ctx context.Context, petID int64) (*domain.Location, error)
	ZonesByPet(ctx context.Context, petID int64) ([]domain.GeofenceZone, error)
	CreateZone(ctx context.Context, zone *domain.GeofenceZone) error
	DeleteZoneForUser(ctx context.Context, zoneID, userID int64) error
}

type Handler struct {
	store   Store
	ingest  *ingest.Service
	history *history.Service
	alerts  *alerts.Manager
	feed    *livefeed.Feed
}

func NewHandler(store Store, ing *ingest.Service, hist *history.Service, mgr *alerts.Manager, feed *livefeed.Feed) *Handler {
	return &Handler{
		store:   store,
		ingest:  ing,
		history: hist,
		alerts:  mgr,
		feed:    feed,
	}
}

type gpsUpdateRequest struct {
	APIKey     string          `json:"api_key"`
	Latitude   json.RawMessage `json:"latitude"`
	Longitude  json.RawMessage `json:"longitude"`
	Altitude   *float64        `json:"altitude"`
	Speed      *float64        `json:"speed"`
	Satellites *int            `json:"satellites"`
	HDOP       *float64        `json:"hdop"`
	Battery    *int            `json:"battery"`
	Timestamp  string          `json:"timestamp"`
}

// HandleGPSUpdate is the device-facing ingestion endpoint.
func (h *Handler) HandleGPSUpdate(c echo.Context) error {
	var req gpsUpdateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return fmt.Errorf("malformed body: %w", domain.ErrInvalidInput)
	}

	report := domain.TelemetryReport{
		APIKey:     req.APIKey,
		Latitude:   parseCoordinate(req.Latitude),
		Longitude:  parseCoordinate(req.Longitude),
		Altitude:   req.Altitude,
		Speed:      req.Speed,
		Satellites: req.Satellites,
		HDOP:       req.HDOP,
		Battery:    req.Battery,
	}
	// Device clocks are unreliable; an unparseable timestamp falls back to
	// server time instead of rejecting the fix.
	if ts := parseTimeFilter(req.Timestamp); ts != nil {
		report.Timestamp = *ts
	}

	locationID, err := h.ingest.Ingest(c.Request().Context(), report)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "location updated",
		"location_id": locationID,
	})
}

// parseCoordinate turns a raw JSON value into a float pointer, nil when
// absent or non-numeric. Devices send coordinates both as numbers and as
// quoted numeric strings; both are accepted. Ingestion rejects nil.
func parseCoordinate(raw json.RawMessage) *float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

type createPetRequest struct {
	Name     string `json:"name"`
	Species  string `json:"species"`
	Breed    string `json:"breed"`
	PhotoURL string `json:"photo_url"`
}

// HandleCreatePet registers a pet and issues its device credential. The
// credential is returned only here, never on later reads.
func (h *Handler) HandleCreatePet(c echo.Context) error {
	var req createPetRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("malformed body: %w", domain.ErrInvalidInput)
	}
	if req.Name == "" {
		return fmt.Errorf("pet name is required: %w", domain.ErrInvalidInput)
	}
	if req.Species == "" {
		req.Species = "Dog"
	}

	id := uuid.New()
	pet := &domain.Pet{
		UserID:   currentUser(c),
		Name:     req.Name,
		Species:  req.Species,
		Breed:    req.Breed,
		PhotoURL: req.PhotoURL,
		DeviceID: "ESP32_" + strings.ToUpper(hex.EncodeToString(id[:6])),
		APIKey:   uuid.NewString(),
	}

	if err := h.store.CreatePet(c.Request().Context(), pet); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":   "pet created",
		"pet":       pet,
		"api_key":   pet.APIKey,
		"device_id": pet.DeviceID,
	})
}

// HandleLatestLocation returns the pet's most recent fix.
func (h *Handler) HandleLatestLocation(c echo.Context) error {
	petID, err := pathID(c, "petID")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.store.PetForUser(ctx, petID, currentUser(c)); err != nil {
		return err
	}

	loc, err := h.store.LatestLocation(ctx, petID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loc)
}

// HandleHistory returns a page of the pet's location history. Malformed
// date filters are ignored, not rejected.
func (h *Handler) HandleHistory(c echo.Context) error {
	petID, err := pathID(c, "petID")
	if err != nil {
		return err
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", history.DefaultLimit)
	start := parseTimeFilter(c.QueryParam("start_date"))
	end := parseTimeFilter(c.QueryParam("end_date"))

	result, err := h.history.Query(c.Request().Context(), petID, currentUser(c), page, limit, start, end)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// parseTimeFilter accepts ISO-8601 with or without zone, Z suffix included.
// Anything unparseable yields nil, which means "no bound".
func parseTimeFilter(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// HandleListZones lists all geofence zones of an owned pet.
func (h *Handler) HandleListZones(c echo.Context) error {
	petID, err := pathID(c, "petID")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.store.PetForUser(ctx, petID, currentUser(c)); err != nil {
		return err
	}

	zones, err := h.store.ZonesByPet(ctx, petID)
	if err != nil {
		return err
	}
	if zones == nil {
		zones = []domain.GeofenceZone{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"zones": zones})
}

type createZoneRequest struct {
	Name         string   `json:"name"`
	CenterLat    *float64 `json:"center_lat"`
	CenterLng    *float64 `json:"center_lng"`
	RadiusMeters *float64 `json:"radius_meters"`
}

// HandleCreateZone creates a geofence zone for an owned pet.
func (h *Handler) HandleCreateZone(c echo.Context) error {
	petID, err := pathID(c, "petID")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.store.PetForUser(ctx, petID, currentUser(c)); err != nil {
		return err
	}

	var req createZoneRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("malformed body: %w", domain.ErrInvalidInput)
	}
	if req.Name == "" || req.CenterLat == nil || req.CenterLng == nil || req.RadiusMeters == nil {
		return fmt.Errorf("name, center_lat, center_lng and radius_meters are required: %w", domain.ErrInvalidInput)
	}
	if *req.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters must be positive: %w", domain.ErrInvalidInput)
	}

	zone := &domain.GeofenceZone{
		PetID:        petID,
		Name:         req.Name,
		CenterLat:    *req.CenterLat,
		CenterLng:    *req.CenterLng,
		RadiusMeters: *req.RadiusMeters,
	}
	if err := h.store.CreateZone(ctx, zone); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "zone created",
		"zone":    zone,
	})
}

// HandleDeleteZone deletes a zone owned (through its pet) by the user.
func (h *Handler) HandleDeleteZone(c echo.Context) error {
	zoneID, err := pathID(c, "zoneID")
	if err != nil {
		return err
	}

	if err := h.store.DeleteZoneForUser(c.Request().Context(), zoneID, currentUser(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "zone deleted"})
}

// HandleListAlerts lists the user's alerts, newest first, capped at 50.
func (h *Handler) HandleListAlerts(c echo.Context) error {
	list, err := h.alerts.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	if list == nil {
		list = []domain.Alert{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"alerts": list})
}

// HandleMarkAlertRead acknowledges one alert.
func (h *Handler) HandleMarkAlertRead(c echo.Context) error {
	alertID, err := pathID(c, "alertID")
	if err != nil {
		return err
	}

	if err := h.alerts.MarkRead(c.Request().Context(), alertID, currentUser(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "alert marked as read"})
}

// HandleStream serves the live feed as server-sent events. One event per
// newly observed fix; the loop ends when the client disconnects.
func (h *Handler) HandleStream(c echo.Context) error {
	petID, err := pathID(c, "petID")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.store.PetForUser(ctx, petID, currentUser(c)); err != nil {
		return err
	}

	updates, err := h.feed.Subscribe(ctx, petID)
	if err != nil {
		return err
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	for loc := range updates {
		payload, err := json.Marshal(loc)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
			return nil
		}
		resp.Flush()
	}
	return nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s: %w", name, domain.ErrNotFound)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
