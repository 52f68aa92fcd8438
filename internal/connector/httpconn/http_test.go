package httpconn

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iotgw/iotgwd/internal/message"
)

func TestAllowRouteEmptyListAllowsAll(t *testing.T) {
	r := &Runtime{cfg: Config{}}
	if !r.allowRoute("/anything") {
		t.Error("expected empty Routes to allow every path")
	}
}

func TestAllowRouteRestrictsToList(t *testing.T) {
	r := &Runtime{cfg: Config{Routes: []string{"/ingest"}}}
	if !r.allowRoute("/ingest") {
		t.Error("expected /ingest to be allowed")
	}
	if r.allowRoute("/other") {
		t.Error("expected /other to be rejected")
	}
}

func TestHandlerRejectsNonPOST(t *testing.T) {
	r := &Runtime{cfg: Config{}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ingest", nil)
	r.handler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandlerRejectsDisallowedRoute(t *testing.T) {
	r := &Runtime{cfg: Config{Routes: []string{"/ingest"}}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/other", strings.NewReader("body"))
	r.handler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandlerRejectsWithNoRXCallback(t *testing.T) {
	r := &Runtime{cfg: Config{}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("body"))
	r.handler(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandlerDispatchesToRXCallback(t *testing.T) {
	r := &Runtime{cfg: Config{}}
	var got message.Message
	r.SetRXCallback(func(m message.Message) { got = m })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("payload"))
	r.handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if string(got.Payload.Data) != "payload" {
		t.Errorf("payload = %q, want payload", got.Payload.Data)
	}
	hp := got.Params.(message.HTTPParams)
	if hp.Path != "/ingest" {
		t.Errorf("path = %q, want /ingest", hp.Path)
	}
}
