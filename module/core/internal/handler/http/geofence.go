package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/geofence"
)

type monitorService interface {
	Start(ctx context.Context, defs []domain.GeofenceDefinition) (bool, error)
	Stop(ctx context.Context) error
	Definitions() []domain.GeofenceDefinition
	Definition(id string) (domain.GeofenceDefinition, bool)
	Statuses(ctx context.Context) ([]domain.GeofenceStatus, error)
	Status(ctx context.Context, id string) (*domain.GeofenceStatus, error)
}

type geofenceRequest struct {
	ID                string  `json:"id" binding:"required"`
	Label             string  `json:"label"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	RadiusMeters      float64 `json:"radius_meters" binding:"required"`
	DelayStartSeconds int     `json:"delay_start_seconds"`
	DelayStopSeconds  int     `json:"delay_stop_seconds"`
}

type startMonitoringRequest struct {
	Geofences []geofenceRequest `json:"geofences"`
}

type statusResponse struct {
	GeofenceID string `json:"geofence_id"`
	IsInside   bool   `json:"is_inside"`
	LastUpdate int64  `json:"last_update"`
}

type GeofenceHandler struct {
	monitor monitorService
}

func NewGeofenceHandler(monitor monitorService) *GeofenceHandler {
	return &GeofenceHandler{monitor: monitor}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.GET("/geofences", h.GetGeofences)
	r.GET("/geofences/status", h.GetStatuses)
	r.GET("/geofences/:geofence_id/status", h.GetStatus)
	r.GET("/geofences/:geofence_id/precision", h.GetPrecision)
	r.POST("/monitoring/start", h.StartMonitoring)
	r.POST("/monitoring/stop", h.StopMonitoring)
}

// GetGeofences renders the active set as a GeoJSON feature collection of
// site centers.
func (h *GeofenceHandler) GetGeofences(c *gin.Context) {
	fc := geojson.NewFeatureCollection()
	for _, gf := range h.monitor.Definitions() {
		f := geojson.NewFeature(gf.Center.Point())
		f.ID = gf.ID
		f.Properties["label"] = gf.Label
		f.Properties["radius_meters"] = gf.RadiusMeters
		f.Properties["delay_start_seconds"] = int(gf.DelayStart / time.Second)
		f.Properties["delay_stop_seconds"] = int(gf.DelayStop / time.Second)
		fc.Append(f)
	}
	c.JSON(http.StatusOK, fc)
}

func (h *GeofenceHandler) GetStatuses(c *gin.Context) {
	statuses, err := h.monitor.Statuses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch statuses"})
		return
	}

	results := make([]statusResponse, len(statuses))
	for i, st := range statuses {
		results[i] = toStatusResponse(&st)
	}
	c.JSON(http.StatusOK, results)
}

func (h *GeofenceHandler) GetStatus(c *gin.Context) {
	st, err := h.monitor.Status(c.Request.Context(), c.Param("geofence_id"))
	if errors.Is(err, domain.ErrStatusNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "status not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch status"})
		return
	}

	c.JSON(http.StatusOK, toStatusResponse(st))
}

func (h *GeofenceHandler) GetPrecision(c *gin.Context) {
	gf, ok := h.monitor.Definition(c.Param("geofence_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
		return
	}

	var acc *float64
	if raw := c.Query("accuracy"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid accuracy parameter"})
			return
		}
		acc = &v
	}

	c.JSON(http.StatusOK, geofence.CheckPreciseLocationNeeded(gf.RadiusMeters, acc))
}

func (h *GeofenceHandler) StartMonitoring(c *gin.Context) {
	var req startMonitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	defs := make([]domain.GeofenceDefinition, len(req.Geofences))
	for i, g := range req.Geofences {
		defs[i] = domain.GeofenceDefinition{
			ID:           g.ID,
			Label:        g.Label,
			Center:       domain.Coordinates{Lat: g.Latitude, Lon: g.Longitude},
			RadiusMeters: g.RadiusMeters,
			DelayStart:   time.Duration(g.DelayStartSeconds) * time.Second,
			DelayStop:    time.Duration(g.DelayStopSeconds) * time.Second,
		}
	}

	ok, err := h.monitor.Start(c.Request.Context(), defs)
	switch {
	case errors.Is(err, domain.ErrInvalidGeofence):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"started": false, "error": err.Error()})
	case !ok:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"started": false})
	default:
		c.JSON(http.StatusOK, gin.H{"started": true, "geofences": len(defs)})
	}
}

func (h *GeofenceHandler) StopMonitoring(c *gin.Context) {
	if err := h.monitor.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

func toStatusResponse(st *domain.GeofenceStatus) statusResponse {
	return statusResponse{
		GeofenceID: st.GeofenceID,
		IsInside:   st.IsInside,
		LastUpdate: st.LastUpdate.UnixMilli(),
	}
}
