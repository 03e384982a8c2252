package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/autotimer/module/core/domain"
)

const defaultWorkDayLimit = 30

type timerService interface {
	ActiveSession(ctx context.Context) (*domain.ActiveSession, error)
	WorkDays(ctx context.Context, limit int) ([]domain.WorkDay, error)
	Mode() domain.TimerMode
}

// timerControls are the user overrides of the automatic timer.
type timerControls interface {
	CancelPending(ctx context.Context) ([]domain.PendingAction, error)
	ForceStop(ctx context.Context) (*domain.Notification, error)
	SetTimerMode(ctx context.Context, mode domain.TimerMode) error
}

type transitionLog interface {
	Transitions(ctx context.Context) ([]domain.TransitionRecord, error)
}

type settingsService interface {
	Get(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, settings domain.Settings) error
}

type settingsRequest struct {
	NotificationsEnabled *bool `json:"notifications_enabled"`
	AutoTimerEnabled     *bool `json:"auto_timer_enabled"`
}

type modeRequest struct {
	Mode domain.TimerMode `json:"mode" binding:"required"`
}

type TimerHandler struct {
	timer       timerService
	controls    timerControls
	transitions transitionLog
	settings    settingsService
}

func NewTimerHandler(timer timerService, controls timerControls, transitions transitionLog, settings settingsService) *TimerHandler {
	return &TimerHandler{timer: timer, controls: controls, transitions: transitions, settings: settings}
}

func (h *TimerHandler) Register(r *gin.RouterGroup) {
	r.GET("/timer", h.GetTimer)
	r.POST("/timer/cancel", h.CancelPending)
	r.POST("/timer/stop", h.ForceStop)
	r.PUT("/timer/mode", h.PutMode)
	r.GET("/workdays", h.GetWorkDays)
	r.GET("/transitions", h.GetTransitions)
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.PutSettings)
}

func (h *TimerHandler) GetTimer(c *gin.Context) {
	session, err := h.timer.ActiveSession(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch timer"})
		return
	}
	mode := h.timer.Mode()
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"active": false, "mode": mode})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":      true,
		"mode":        mode,
		"geofence_id": session.GeofenceID,
		"started_at":  session.StartedAt.UnixMilli(),
		"notes":       session.Notes,
	})
}

func (h *TimerHandler) CancelPending(c *gin.Context) {
	cancelled, err := h.controls.CancelPending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel pending actions"})
		return
	}
	if cancelled == nil {
		cancelled = []domain.PendingAction{}
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// ForceStop ends the running session immediately and records its work day.
func (h *TimerHandler) ForceStop(c *gin.Context) {
	n, err := h.controls.ForceStop(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stop timer"})
		return
	}
	if n == nil {
		c.JSON(http.StatusOK, gin.H{"saved": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true, "geofence_id": n.GeofenceID, "hours": n.Hours})
}

func (h *TimerHandler) PutMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.controls.SetTimerMode(c.Request.Context(), req.Mode)
	switch {
	case errors.Is(err, domain.ErrInvalidTimerMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set timer mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": req.Mode})
}

func (h *TimerHandler) GetWorkDays(c *gin.Context) {
	limit := defaultWorkDayLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = v
	}

	days, err := h.timer.WorkDays(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch work days"})
		return
	}
	c.JSON(http.StatusOK, days)
}

func (h *TimerHandler) GetTransitions(c *gin.Context) {
	records, err := h.transitions.Transitions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch transitions"})
		return
	}
	if records == nil {
		records = []domain.TransitionRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *TimerHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PutSettings applies a partial update; omitted fields keep their value.
func (h *TimerHandler) PutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	settings, err := h.settings.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch settings"})
		return
	}
	if req.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.AutoTimerEnabled != nil {
		settings.AutoTimerEnabled = *req.AutoTimerEnabled
	}

	if err := h.settings.Update(ctx, settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
