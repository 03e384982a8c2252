package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/autotimer/module/core/domain"
)

const TopicPattern = "/autotimer/device/+/location"

type sampleService interface {
	SaveSample(ctx context.Context, rec *domain.SampleRecord) error
}

type samplePipeline interface {
	Process(ctx context.Context, sample *domain.LocationSample) error
}

type locationMessage struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// LocationSubscriber feeds device location updates from MQTT into the
// sample pipeline. It is started and stopped by the monitoring lifecycle.
type LocationSubscriber struct {
	client   mqtt.Client
	samples  sampleService
	pipeline samplePipeline
}

func NewLocationSubscriber(client mqtt.Client, samples sampleService, pipeline samplePipeline) *LocationSubscriber {
	return &LocationSubscriber{
		client:   client,
		samples:  samples,
		pipeline: pipeline,
	}
}

func (s *LocationSubscriber) Start() error {
	token := s.client.Subscribe(TopicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) Stop() error {
	token := s.client.Unsubscribe(TopicPattern)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	deviceID := deviceFromTopic(msg.Topic())
	if deviceID == "" {
		log.Printf("invalid location topic %q", msg.Topic())
		return
	}

	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid location message: %v", err)
		return
	}

	if err := validateLocationMessage(&raw); err != nil {
		log.Printf("validation error: %v", err)
		return
	}

	rec := &domain.SampleRecord{
		DeviceID:       deviceID,
		Lat:            raw.Latitude,
		Lon:            raw.Longitude,
		AccuracyMeters: raw.Accuracy,
		CapturedAt:     time.UnixMilli(raw.Timestamp),
	}

	ctx := context.Background()

	if err := s.samples.SaveSample(ctx, rec); err != nil {
		log.Printf("save sample error: %v", err)
	}

	if err := s.pipeline.Process(ctx, rec.Sample()); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotMonitoring):
			return
		case errors.Is(err, domain.ErrUnknownDevice):
			log.Printf("ignoring location from unbound device %s", deviceID)
			return
		}
		for _, e := range domain.SplitErrors(err) {
			log.Printf("process sample from %s: %v", deviceID, e)
		}
	}
}

// deviceFromTopic extracts the wildcard segment of TopicPattern.
func deviceFromTopic(topic string) string {
	parts := strings.Split(strings.TrimPrefix(topic, "/"), "/")
	if len(parts) != 4 || parts[0] != "autotimer" || parts[1] != "device" || parts[3] != "location" {
		return ""
	}
	return parts[2]
}

func validateLocationMessage(msg *locationMessage) error {
	if math.IsNaN(msg.Latitude) || msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if math.IsNaN(msg.Longitude) || msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Accuracy != nil && *msg.Accuracy < 0 {
		return fmt.Errorf("accuracy: must not be negative")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
