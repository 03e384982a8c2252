package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/autotimer/module/core/domain"
)

type sampleService interface {
	SaveSample(ctx context.Context, rec *domain.SampleRecord) error
	GetLatest(ctx context.Context, deviceID string) (*domain.SampleRecord, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.SampleRecord, error)
	GetDevices(ctx context.Context) ([]domain.Device, error)
}

type samplePipeline interface {
	Process(ctx context.Context, sample *domain.LocationSample) error
}

type sampleRequest struct {
	DeviceID  string   `json:"device_id"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

type sampleResponse struct {
	DeviceID  string   `json:"device_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type SampleHandler struct {
	samples       sampleService
	pipeline      samplePipeline
	defaultDevice string
}

// NewSampleHandler attributes samples posted without a device_id to
// defaultDevice.
func NewSampleHandler(samples sampleService, pipeline samplePipeline, defaultDevice string) *SampleHandler {
	if defaultDevice == "" {
		defaultDevice = "http"
	}
	return &SampleHandler{samples: samples, pipeline: pipeline, defaultDevice: defaultDevice}
}

func (h *SampleHandler) Register(r *gin.RouterGroup) {
	r.POST("/samples", h.PostSample)
	r.GET("/devices", h.GetDevices)
	r.GET("/devices/:device_id/location", h.GetLatestSample)
	r.GET("/devices/:device_id/history", h.GetHistory)
}

// PostSample feeds one sample through the pipeline synchronously. A missing
// timestamp means now.
func (h *SampleHandler) PostSample(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	capturedAt := time.Now()
	if req.Timestamp > 0 {
		capturedAt = time.UnixMilli(req.Timestamp)
	}
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = h.defaultDevice
	}

	rec := &domain.SampleRecord{
		DeviceID:       deviceID,
		Lat:            *req.Latitude,
		Lon:            *req.Longitude,
		AccuracyMeters: req.Accuracy,
		CapturedAt:     capturedAt,
	}

	ctx := c.Request.Context()
	err := h.pipeline.Process(ctx, rec.Sample())
	switch {
	case errors.Is(err, domain.ErrInvalidSample):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, domain.ErrNotMonitoring):
		c.JSON(http.StatusConflict, gin.H{"error": "monitoring not started"})
		return
	case errors.Is(err, domain.ErrUnknownDevice):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	if serr := h.samples.SaveSample(ctx, rec); serr != nil {
		log.Printf("save sample error: %v", serr)
	}

	if err != nil {
		details := make([]string, 0)
		for _, e := range domain.SplitErrors(err) {
			details = append(details, e.Error())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sample partially processed", "details": details})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"processed": true})
}

func (h *SampleHandler) GetDevices(c *gin.Context) {
	devices, err := h.samples.GetDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}

	c.JSON(http.StatusOK, devices)
}

func (h *SampleHandler) GetLatestSample(c *gin.Context) {
	deviceID := c.Param("device_id")

	rec, err := h.samples.GetLatest(c.Request.Context(), deviceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}

	c.JSON(http.StatusOK, toSampleResponse(rec))
}

func (h *SampleHandler) GetHistory(c *gin.Context) {
	deviceID := c.Param("device_id")

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}

	query := &domain.HistoryQuery{
		DeviceID: deviceID,
		Start:    time.UnixMilli(start),
		End:      time.UnixMilli(end),
	}

	records, err := h.samples.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]sampleResponse, len(records))
	for i, rec := range records {
		results[i] = toSampleResponse(&rec)
	}
	c.JSON(http.StatusOK, results)
}

func toSampleResponse(rec *domain.SampleRecord) sampleResponse {
	return sampleResponse{
		DeviceID:  rec.DeviceID,
		Latitude:  rec.Lat,
		Longitude: rec.Lon,
		Accuracy:  rec.AccuracyMeters,
		Timestamp: rec.CapturedAt.UnixMilli(),
	}
}
