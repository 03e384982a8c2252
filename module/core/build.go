package core

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/autotimer/module/core/domain"
	handler "github.com/nandanugg/autotimer/module/core/internal/handler/http"
	"github.com/nandanugg/autotimer/module/core/internal/handler/subscriber"
	"github.com/nandanugg/autotimer/module/core/internal/metrics"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/autotimer/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/autotimer/module/core/service"
	"github.com/nandanugg/autotimer/module/core/wire"
)

type Options struct {
	DeviceID     string
	EventCodec   string
	DefaultDelay time.Duration
	WriteRetries int
}

type Module struct {
	Monitor  *service.MonitorService
	Pipeline *service.Pipeline
	Timer    *service.TimerService
	Samples  *service.SampleService
	Settings *service.SettingsService

	geofenceHandler *handler.GeofenceHandler
	sampleHandler   *handler.SampleHandler
	timerHandler    *handler.TimerHandler
}

func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, reg prometheus.Registerer, opts Options) (*Module, error) {
	codec, err := wire.NewCodec(opts.EventCodec)
	if err != nil {
		return nil, fmt.Errorf("event codec: %w", err)
	}

	notificationPub, err := rabbitmq.NewNotificationPublisher(amqpConn, codec)
	if err != nil {
		return nil, fmt.Errorf("notification publisher: %w", err)
	}

	m := metrics.New(reg)

	statusRepo := postgres.NewStatusRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)

	timerSvc := service.NewTimerService(
		postgres.NewActionRepo(db),
		postgres.NewSessionRepo(db),
		postgres.NewWorkDayRepo(db),
		opts.DefaultDelay,
	)
	monitorSvc := service.NewMonitorService(statusRepo, timerSvc)
	dispatcher := service.NewDispatcher(settingsRepo, timerSvc, monitorSvc, notificationPub, m)
	pipeline := service.NewPipeline(
		monitorSvc,
		service.NewEvaluator(statusRepo, m),
		timerSvc,
		dispatcher,
		postgres.NewTransitionLogRepo(db),
		m,
		service.PipelineOptions{DeviceID: opts.DeviceID, WriteRetries: opts.WriteRetries},
	)
	sampleSvc := service.NewSampleService(postgres.NewSampleRepo(db))
	settingsSvc := service.NewSettingsService(settingsRepo)

	monitorSvc.Attach(subscriber.NewLocationSubscriber(mqttClient, sampleSvc, pipeline))

	return &Module{
		Monitor:         monitorSvc,
		Pipeline:        pipeline,
		Timer:           timerSvc,
		Samples:         sampleSvc,
		Settings:        settingsSvc,
		geofenceHandler: handler.NewGeofenceHandler(monitorSvc),
		sampleHandler:   handler.NewSampleHandler(sampleSvc, pipeline, opts.DeviceID),
		timerHandler:    handler.NewTimerHandler(timerSvc, pipeline, pipeline, settingsSvc),
	}, nil
}

// Migrate creates the tables backing every store.
func Migrate(ctx context.Context, db *sql.DB) error {
	return postgres.Migrate(ctx, db)
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.geofenceHandler.Register(r)
	m.sampleHandler.Register(r)
	m.timerHandler.Register(r)
}

// StartMonitoring arms the given sites and subscribes to device updates.
func (m *Module) StartMonitoring(ctx context.Context, sites []domain.GeofenceDefinition) error {
	ok, err := m.Monitor.Start(ctx, sites)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("monitoring denied")
	}
	return nil
}

// RunTimers executes due timer actions every tick until ctx is done.
func (m *Module) RunTimers(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Pipeline.RunDue(ctx); err != nil {
				for _, e := range domain.SplitErrors(err) {
					log.Printf("run due timers: %v", e)
				}
			}
		}
	}
}
