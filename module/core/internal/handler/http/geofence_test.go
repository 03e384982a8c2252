package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/geofence"
)

type mockMonitorService struct {
	startFn    func(ctx context.Context, defs []domain.GeofenceDefinition) (bool, error)
	stopFn     func(ctx context.Context) error
	defs       []domain.GeofenceDefinition
	statusesFn func(ctx context.Context) ([]domain.GeofenceStatus, error)
	statusFn   func(ctx context.Context, id string) (*domain.GeofenceStatus, error)
}

func (m *mockMonitorService) Start(ctx context.Context, defs []domain.GeofenceDefinition) (bool, error) {
	return m.startFn(ctx, defs)
}

func (m *mockMonitorService) Stop(ctx context.Context) error {
	return m.stopFn(ctx)
}

func (m *mockMonitorService) Definitions() []domain.GeofenceDefinition {
	return m.defs
}

func (m *mockMonitorService) Definition(id string) (domain.GeofenceDefinition, bool) {
	for _, gf := range m.defs {
		if gf.ID == id {
			return gf, true
		}
	}
	return domain.GeofenceDefinition{}, false
}

func (m *mockMonitorService) Statuses(ctx context.Context) ([]domain.GeofenceStatus, error) {
	return m.statusesFn(ctx)
}

func (m *mockMonitorService) Status(ctx context.Context, id string) (*domain.GeofenceStatus, error) {
	return m.statusFn(ctx, id)
}

func setupGeofenceRouter(svc monitorService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewGeofenceHandler(svc)
	h.Register(r.Group(""))
	return r
}

var office = domain.GeofenceDefinition{
	ID:           "office",
	Label:        "Office",
	Center:       domain.Coordinates{Lat: 47.3769, Lon: 8.5417},
	RadiusMeters: 50,
	DelayStart:   2 * time.Minute,
}

func TestGetGeofences_GeoJSON(t *testing.T) {
	r := setupGeofenceRouter(&mockMonitorService{defs: []domain.GeofenceDefinition{office}})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geofences", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}
	f := fc.Features[0]
	if f.ID != "office" {
		t.Errorf("expected id office, got %v", f.ID)
	}
	pt, ok := f.Geometry.(orb.Point)
	if !ok || pt.Lat() != 47.3769 || pt.Lon() != 8.5417 {
		t.Errorf("unexpected geometry %v", f.Geometry)
	}
	if f.Properties.MustString("label") != "Office" {
		t.Errorf("unexpected label %v", f.Properties["label"])
	}
	if f.Properties.MustFloat64("delay_start_seconds") != 120 {
		t.Errorf("unexpected delay %v", f.Properties["delay_start_seconds"])
	}
}

func TestGetStatus(t *testing.T) {
	ts := time.UnixMilli(1715003456000)
	svc := &mockMonitorService{
		statusFn: func(_ context.Context, id string) (*domain.GeofenceStatus, error) {
			if id != "office" {
				return nil, domain.ErrStatusNotFound
			}
			return &domain.GeofenceStatus{GeofenceID: id, IsInside: true, LastUpdate: ts}, nil
		},
	}
	r := setupGeofenceRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geofences/office/status", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.IsInside || resp.LastUpdate != 1715003456000 {
		t.Errorf("unexpected status %+v", resp)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/geofences/warehouse/status", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetStatuses_Error(t *testing.T) {
	svc := &mockMonitorService{
		statusesFn: func(_ context.Context) ([]domain.GeofenceStatus, error) {
			return nil, errors.New("db error")
		},
	}
	r := setupGeofenceRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geofences/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetPrecision(t *testing.T) {
	r := setupGeofenceRouter(&mockMonitorService{defs: []domain.GeofenceDefinition{office}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geofences/office/precision?accuracy=70", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var advice geofence.PrecisionAdvice
	if err := json.Unmarshal(w.Body.Bytes(), &advice); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !advice.NeedsPrecise {
		t.Errorf("expected precise location advice for 70m on a 50m site")
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/geofences/office/precision?accuracy=abc", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/geofences/nowhere/precision", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStartMonitoring(t *testing.T) {
	var got []domain.GeofenceDefinition
	svc := &mockMonitorService{
		startFn: func(_ context.Context, defs []domain.GeofenceDefinition) (bool, error) {
			got = defs
			return true, nil
		},
	}
	r := setupGeofenceRouter(svc)

	body := []byte(`{"geofences":[{"id":"office","label":"Office","latitude":47.3769,"longitude":8.5417,"radius_meters":50,"delay_start_seconds":60}]}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/monitoring/start", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(got))
	}
	if got[0].DelayStart != time.Minute || got[0].DelayStop != 0 {
		t.Errorf("unexpected delays %v/%v", got[0].DelayStart, got[0].DelayStop)
	}
	if got[0].Center.Lat != 47.3769 {
		t.Errorf("unexpected center %+v", got[0].Center)
	}
}

func TestStartMonitoring_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		err  error
		want int
	}{
		{"denied", false, nil, http.StatusUnprocessableEntity},
		{"invalid geofence", false, &domain.GeofenceError{GeofenceID: "x", Kind: domain.ErrInvalidGeofence}, http.StatusBadRequest},
		{"source failure", false, errors.New("broker down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMonitorService{
				startFn: func(_ context.Context, _ []domain.GeofenceDefinition) (bool, error) { return tt.ok, tt.err },
			}
			r := setupGeofenceRouter(svc)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/monitoring/start", bytes.NewReader([]byte(`{"geofences":[]}`)))
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestStopMonitoring(t *testing.T) {
	stopped := false
	svc := &mockMonitorService{
		stopFn: func(_ context.Context) error {
			stopped = true
			return nil
		},
	}
	r := setupGeofenceRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/monitoring/stop", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !stopped {
		t.Fatal("expected Stop to be called")
	}
}
