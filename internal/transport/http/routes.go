package http

import (
	nethttp "net/http"

	"github.com/labstack/echo/v4"

	"pet-tracker/server/internal/metrics"
)

// RegisterRoutes wires the device-facing and owner-facing API. The GPS
// update endpoint authenticates by device credential in the body, not by
// session; everything else requires an authenticated owner.
func RegisterRoutes(e *echo.Echo, h *Handler, sessions *SessionMiddleware) {
	e.GET("/metrics", echo.WrapHandler(nethttp.HandlerFunc(metrics.HandleMetrics)))

	api := e.Group("/api")

	// Device ingestion
	api.POST("/gps/update", h.HandleGPSUpdate)

	// Owner-facing routes
	owner := api.Group("", sessions.Wrap)
	owner.POST("/pets", h.HandleCreatePet)
	owner.GET("/pets/:petID/location", h.HandleLatestLocation)
	owner.GET("/pets/:petID/history", h.HandleHistory)
	owner.GET("/pets/:petID/geofence", h.HandleListZones)
	owner.POST("/pets/:petID/geofence", h.HandleCreateZone)
	owner.DELETE("/geofence/:zoneID", h.HandleDeleteZone)
	owner.GET("/alerts", h.HandleListAlerts)
	owner.POST("/alerts/:alertID/read", h.HandleMarkAlertRead)
	owner.GET("/pets/:petID/stream", h.HandleStream)
	owner.GET("/pets/:petID/ws", h.HandleStreamWS)
}
