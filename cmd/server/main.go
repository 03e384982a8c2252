package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nandanugg/autotimer/config"
	"github.com/nandanugg/autotimer/module/core"
)

func main() {
	cfg := config.Load()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := core.Migrate(ctx, db); err != nil {
		log.Fatalf("postgres: %v", err)
	}

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer mqttClient.Disconnect(250)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	coreModule, err := core.Build(db, amqpConn, mqttClient, reg, core.Options{
		DeviceID:     cfg.DeviceID,
		EventCodec:   cfg.EventCodec,
		DefaultDelay: cfg.DefaultDelay,
		WriteRetries: cfg.WriteRetries,
	})
	if err != nil {
		log.Fatalf("core module: %v", err)
	}

	if cfg.AutoStart {
		sites, err := config.LoadSites(cfg.SitesFile)
		if err != nil {
			log.Printf("sites not loaded, monitoring stays off: %v", err)
		} else if err := coreModule.StartMonitoring(ctx, sites); err != nil {
			log.Fatalf("start monitoring: %v", err)
		}
	}

	go coreModule.RunTimers(ctx, cfg.TimerTick)

	r := gin.Default()

	health := config.NewHealthChecker(db, amqpConn, mqttClient, coreModule.Monitor)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
