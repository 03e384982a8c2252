package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/autotimer/module/core/domain"
)

type mockSampleService struct {
	saveSampleFn func(ctx context.Context, rec *domain.SampleRecord) error
	getLatestFn  func(ctx context.Context, deviceID string) (*domain.SampleRecord, error)
	getHistoryFn func(ctx context.Context, query *domain.HistoryQuery) ([]domain.SampleRecord, error)
	getDevicesFn func(ctx context.Context) ([]domain.Device, error)
}

func (m *mockSampleService) SaveSample(ctx context.Context, rec *domain.SampleRecord) error {
	if m.saveSampleFn == nil {
		return nil
	}
	return m.saveSampleFn(ctx, rec)
}

func (m *mockSampleService) GetLatest(ctx context.Context, deviceID string) (*domain.SampleRecord, error) {
	return m.getLatestFn(ctx, deviceID)
}

func (m *mockSampleService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.SampleRecord, error) {
	return m.getHistoryFn(ctx, query)
}

func (m *mockSampleService) GetDevices(ctx context.Context) ([]domain.Device, error) {
	return m.getDevicesFn(ctx)
}

type mockPipeline struct {
	processFn func(ctx context.Context, sample *domain.LocationSample) error
}

func (m *mockPipeline) Process(ctx context.Context, sample *domain.LocationSample) error {
	return m.processFn(ctx, sample)
}

func setupSampleRouter(svc sampleService, pipeline samplePipeline) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSampleHandler(svc, pipeline, "phone-1")
	h.Register(r.Group(""))
	return r
}

func TestPostSample_Success(t *testing.T) {
	var processed *domain.LocationSample
	var saved *domain.SampleRecord
	svc := &mockSampleService{
		saveSampleFn: func(_ context.Context, rec *domain.SampleRecord) error {
			saved = rec
			return nil
		},
	}
	pipeline := &mockPipeline{
		processFn: func(_ context.Context, s *domain.LocationSample) error {
			processed = s
			return nil
		},
	}

	r := setupSampleRouter(svc, pipeline)
	w := httptest.NewRecorder()
	body := []byte(`{"device_id":"phone-1","latitude":47.1,"longitude":8.2,"accuracy":20,"timestamp":1715003456000}`)
	req, _ := http.NewRequest("POST", "/samples", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if processed == nil || processed.Coordinates.Lat != 47.1 {
		t.Fatalf("unexpected processed sample: %+v", processed)
	}
	if !processed.CapturedAt.Equal(time.UnixMilli(1715003456000)) {
		t.Errorf("unexpected timestamp %v", processed.CapturedAt)
	}
	if saved == nil || saved.DeviceID != "phone-1" {
		t.Errorf("expected sample to be logged for phone-1, got %+v", saved)
	}
}

func TestPostSample_DefaultsToBoundDevice(t *testing.T) {
	var processed *domain.LocationSample
	pipeline := &mockPipeline{
		processFn: func(_ context.Context, s *domain.LocationSample) error {
			processed = s
			return nil
		},
	}

	r := setupSampleRouter(&mockSampleService{}, pipeline)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/samples", bytes.NewReader([]byte(`{"latitude":47.1,"longitude":8.2}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if processed == nil || processed.DeviceID != "phone-1" {
		t.Errorf("expected sample attributed to phone-1, got %+v", processed)
	}
}

func TestPostSample_UnboundDeviceIsNotLogged(t *testing.T) {
	svc := &mockSampleService{
		saveSampleFn: func(_ context.Context, _ *domain.SampleRecord) error {
			t.Fatal("SaveSample should not be called")
			return nil
		},
	}
	pipeline := &mockPipeline{
		processFn: func(_ context.Context, s *domain.LocationSample) error {
			return fmt.Errorf("%w: %q", domain.ErrUnknownDevice, s.DeviceID)
		},
	}

	r := setupSampleRouter(svc, pipeline)
	w := httptest.NewRecorder()
	body := []byte(`{"device_id":"tablet","latitude":47.1,"longitude":8.2}`)
	req, _ := http.NewRequest("POST", "/samples", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestPostSample_MissingCoordinates(t *testing.T) {
	pipeline := &mockPipeline{
		processFn: func(_ context.Context, _ *domain.LocationSample) error {
			t.Fatal("Process should not be called")
			return nil
		},
	}

	r := setupSampleRouter(&mockSampleService{}, pipeline)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/samples", bytes.NewReader([]byte(`{"latitude":47.1}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPostSample_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid sample", domain.ErrInvalidSample, http.StatusBadRequest},
		{"not monitoring", domain.ErrNotMonitoring, http.StatusConflict},
		{"unbound device", fmt.Errorf("%w: %q", domain.ErrUnknownDevice, "tablet"), http.StatusForbidden},
		{"store failure", errors.Join(&domain.GeofenceError{GeofenceID: "a", Kind: domain.ErrStorageRead}), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &mockPipeline{
				processFn: func(_ context.Context, _ *domain.LocationSample) error { return tt.err },
			}
			r := setupSampleRouter(&mockSampleService{}, pipeline)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/samples", bytes.NewReader([]byte(`{"latitude":1,"longitude":2}`)))
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestGetLatestSample_Success(t *testing.T) {
	ts := time.UnixMilli(1715003456000)
	svc := &mockSampleService{
		getLatestFn: func(_ context.Context, deviceID string) (*domain.SampleRecord, error) {
			if deviceID != "phone-1" {
				t.Fatalf("unexpected deviceID: %s", deviceID)
			}
			return &domain.SampleRecord{DeviceID: "phone-1", Lat: 47.1, Lon: 8.2, CapturedAt: ts}, nil
		},
	}

	r := setupSampleRouter(svc, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/phone-1/location", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp sampleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.DeviceID != "phone-1" {
		t.Errorf("expected phone-1, got %s", resp.DeviceID)
	}
	if resp.Timestamp != 1715003456000 {
		t.Errorf("expected 1715003456000, got %d", resp.Timestamp)
	}
}

func TestGetLatestSample_NotFound(t *testing.T) {
	svc := &mockSampleService{
		getLatestFn: func(_ context.Context, _ string) (*domain.SampleRecord, error) {
			return nil, errors.New("not found")
		},
	}

	r := setupSampleRouter(svc, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/unknown/location", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetHistory_Success(t *testing.T) {
	svc := &mockSampleService{
		getHistoryFn: func(_ context.Context, query *domain.HistoryQuery) ([]domain.SampleRecord, error) {
			if query.DeviceID != "phone-1" {
				t.Fatalf("unexpected deviceID: %s", query.DeviceID)
			}
			if !query.Start.Equal(time.UnixMilli(1715000000000)) {
				t.Fatalf("unexpected start: %v", query.Start)
			}
			return []domain.SampleRecord{
				{DeviceID: "phone-1", Lat: 47.1, Lon: 8.2, CapturedAt: query.Start},
				{DeviceID: "phone-1", Lat: 47.2, Lon: 8.3, CapturedAt: query.End},
			}, nil
		},
	}

	r := setupSampleRouter(svc, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/phone-1/history?start=1715000000000&end=1715009999000", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []sampleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp))
	}
}

func TestGetHistory_InvalidParams(t *testing.T) {
	for _, q := range []string{"start=abc&end=1", "start=1&end=abc"} {
		r := setupSampleRouter(&mockSampleService{}, nil)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/devices/phone-1/history?"+q, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetDevices(t *testing.T) {
	svc := &mockSampleService{
		getDevicesFn: func(_ context.Context) ([]domain.Device, error) {
			return []domain.Device{{DeviceID: "phone-1"}, {DeviceID: "phone-2"}}, nil
		},
	}

	r := setupSampleRouter(svc, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []domain.Device
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 || resp[0].DeviceID != "phone-1" {
		t.Fatalf("unexpected devices: %+v", resp)
	}
}

func TestGetDevices_Error(t *testing.T) {
	svc := &mockSampleService{
		getDevicesFn: func(_ context.Context) ([]domain.Device, error) {
			return nil, errors.New("db error")
		},
	}

	r := setupSampleRouter(svc, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
