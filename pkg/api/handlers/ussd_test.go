package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/ussdgw/pkg/kv"
	"github.com/marmos91/ussdgw/pkg/menu"
	"github.com/marmos91/ussdgw/pkg/registry"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/turn"
	"github.com/marmos91/ussdgw/pkg/upstream"
	"github.com/marmos91/ussdgw/pkg/upstream/codec"
)

func newTestUSSDHandler(t *testing.T, menuDir string) *USSDHandler {
	t.Helper()

	kvStore, err := kv.Open(kv.Config{Dir: t.TempDir(), InMemory: true})
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = kvStore.Close() })

	store := session.NewStore(kvStore, "ussd:session", 300*time.Second)
	client := upstream.New(upstream.Config{BaseURL: "http://127.0.0.1:1"}, codec.Base{})
	eng := menu.New(registry.New(), client)
	if err := eng.Load(menuDir); err != nil {
		t.Fatalf("load menu: %v", err)
	}

	h := turn.New(store, eng, client, 300*time.Second)
	return NewUSSDHandler(h)
}

func writeHomeMenu(t *testing.T, dir string) {
	t.Helper()
	data := `{"name":"home","message":"Welcome"}`
	if err := os.WriteFile(filepath.Join(dir, "home.json"), []byte(data), 0o644); err != nil {
		t.Fatalf("write menu: %v", err)
	}
}

func TestHandleRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	writeHomeMenu(t, dir)
	handler := newTestUSSDHandler(t, dir)

	req := httptest.NewRequest("POST", "/api/ussd", strings.NewReader(url.Values{
		"msisdn": {"254700111222"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "end ") {
		t.Errorf("expected an end frame, got %q", w.Body.String())
	}
}

func TestHandleRendersHomeOnFormRequest(t *testing.T) {
	dir := t.TempDir()
	writeHomeMenu(t, dir)
	handler := newTestUSSDHandler(t, dir)

	form := url.Values{
		"msisdn":    {"254700111222"},
		"sessionid": {"S1234"},
		"shortcode": {"527"},
	}
	req := httptest.NewRequest("POST", "/api/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "con ") {
		t.Errorf("expected a con frame, got %q", w.Body.String())
	}
}

func TestHandleRejectsMalformedMSISDN(t *testing.T) {
	dir := t.TempDir()
	writeHomeMenu(t, dir)
	handler := newTestUSSDHandler(t, dir)

	form := url.Values{
		"msisdn":    {"abc"},
		"sessionid": {"S1234"},
	}
	req := httptest.NewRequest("POST", "/api/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandleRejectsOversizedInput(t *testing.T) {
	dir := t.TempDir()
	writeHomeMenu(t, dir)
	handler := newTestUSSDHandler(t, dir)

	form := url.Values{
		"msisdn":    {"254700111222"},
		"sessionid": {"S1234"},
		"shortcode": {"527"},
		"response":  {strings.Repeat("9", 501)},
	}
	req := httptest.NewRequest("POST", "/api/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "end ") {
		t.Errorf("expected an end frame, got %q", w.Body.String())
	}
}

func TestHandleAcceptsInputAtLengthLimit(t *testing.T) {
	dir := t.TempDir()
	writeHomeMenu(t, dir)
	handler := newTestUSSDHandler(t, dir)

	form := url.Values{
		"msisdn":    {"254700111222"},
		"sessionid": {"S1234"},
		"shortcode": {"527"},
		"response":  {strings.Repeat("9", 500)},
	}
	req := httptest.NewRequest("POST", "/api/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
}
