package config

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type dbPinger interface {
	PingContext(ctx context.Context) error
}

type amqpConnection interface {
	IsClosed() bool
}

type mqttConnection interface {
	IsConnected() bool
}

type monitorState interface {
	Monitoring() bool
}

type HealthChecker struct {
	db       dbPinger
	amqpConn amqpConnection
	mqtt     mqttConnection
	monitor  monitorState
}

func NewHealthChecker(db dbPinger, amqpConn amqpConnection, mqttClient mqttConnection, monitor monitorState) *HealthChecker {
	return &HealthChecker{db: db, amqpConn: amqpConn, mqtt: mqttClient, monitor: monitor}
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

// Handle reports dependency health. Monitoring being off is informational
// and never makes the service unhealthy.
func (h *HealthChecker) Handle(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		deps["postgres"] = gin.H{"status": "down", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		deps["postgres"] = gin.H{"status": "up"}
	}

	if h.amqpConn.IsClosed() {
		deps["rabbitmq"] = gin.H{"status": "down", "error": "connection closed"}
		status = http.StatusServiceUnavailable
	} else {
		deps["rabbitmq"] = gin.H{"status": "up"}
	}

	if !h.mqtt.IsConnected() {
		deps["mqtt"] = gin.H{"status": "down", "error": "not connected"}
		status = http.StatusServiceUnavailable
	} else {
		deps["mqtt"] = gin.H{"status": "up"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"monitoring":   h.monitor != nil && h.monitor.Monitoring(),
		"dependencies": deps,
	})
}
