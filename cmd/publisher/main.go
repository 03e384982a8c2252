package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/autotimer/config"
	"github.com/nandanugg/autotimer/module/core/domain"
)

type locationMessage struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

const metersPerDegree = 111195.0

var fallbackSite = domain.GeofenceDefinition{
	ID:           "office",
	Center:       domain.Coordinates{Lat: 47.3769, Lon: 8.5417},
	RadiusMeters: 100,
}

// walk moves the simulated device between the site center and a point well
// outside it, spending a few ticks at each end.
type walk struct {
	site  domain.GeofenceDefinition
	step  int
	cycle int
}

func (w *walk) next() (lat, lon float64) {
	w.step++
	phase := float64(w.step%w.cycle) / float64(w.cycle)
	// 0 at the center, 1 at four radii out
	offset := (1 - math.Cos(2*math.Pi*phase)) / 2
	d := offset * 4 * w.site.RadiusMeters

	bearing := rand.Float64() * 2 * math.Pi
	jitter := rand.NormFloat64() * 5
	dLat := (d*math.Cos(bearing) + jitter) / metersPerDegree
	dLon := (d*math.Sin(bearing) + jitter) / (metersPerDegree * math.Cos(w.site.Center.Lat*math.Pi/180))
	return w.site.Center.Lat + dLat, w.site.Center.Lon + dLon
}

// randomAccuracy mimics a phone fix: mostly good, sometimes poor, rarely
// missing.
func randomAccuracy() *float64 {
	switch r := rand.Float64(); {
	case r < 0.05:
		return nil
	case r < 0.15:
		v := 150 + rand.Float64()*200
		return &v
	default:
		v := 5 + rand.Float64()*40
		return &v
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds> [device_id]\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	cfg := config.Load()

	deviceID := cfg.DeviceID
	if len(os.Args) > 2 {
		deviceID = os.Args[2]
	}

	site := fallbackSite
	if sites, err := config.LoadSites(cfg.SitesFile); err != nil {
		log.Printf("using built-in site: %v", err)
	} else if len(sites) > 0 {
		site = sites[0]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("autotimer-mock-device-" + deviceID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	topic := fmt.Sprintf("/autotimer/device/%s/location", deviceID)
	w := &walk{site: site, cycle: 20}

	log.Printf("connected to %s, walking around %s every %ds...", cfg.MQTTBroker, site.ID, intervalSec)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		lat, lon := w.next()
		msg := locationMessage{
			Latitude:  lat,
			Longitude: lon,
			Accuracy:  randomAccuracy(),
			Timestamp: time.Now().UnixMilli(),
		}

		payload, _ := json.Marshal(msg)
		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
