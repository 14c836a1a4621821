package kds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
)

type handlerFixture struct {
	*projectorFixture
	printer *MockPrinter
	stream  *MockStream
	router  chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	pf := newProjectorFixture()
	if err := pf.projector.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	hf := &handlerFixture{
		projectorFixture: pf,
		printer:          &MockPrinter{},
		stream:           &MockStream{},
		router:           chi.NewRouter(),
	}
	commander := NewCommander(pf.lines, pf.courses, NewMockPublisher(), apt.NewNoopLogger())
	commander.now = func() time.Time { return pf.now }

	h := NewHandler(HandlerDeps{
		Projector: pf.projector,
		Commander: commander,
		Printer:   hf.printer,
		Stream:    hf.stream,
	}, apt.NewConfig(), apt.NewNoopLogger())
	h.now = func() time.Time { return pf.now }
	h.RegisterRoutes(hf.router)
	return hf
}

func (hf *handlerFixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	hf.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("cannot decode response: %v: %s", err, w.Body.String())
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response does not contain data object: %s", w.Body.String())
	}
	return data
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name   string
		deps   HandlerDeps
		config *apt.Config
		logger apt.Logger
	}{
		{name: "withNilLogger", deps: HandlerDeps{}, config: apt.NewConfig(), logger: nil},
		{name: "withEmptyDeps", deps: HandlerDeps{}, config: nil, logger: apt.NewNoopLogger()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.deps, tt.config, tt.logger)
			if h == nil {
				t.Error("NewHandler() returned nil")
			}
			h.RegisterRoutes(chi.NewRouter())
		})
	}
}

func TestHandlerReadEndpoints(t *testing.T) {
	hf := newHandlerFixture(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedKey    string
	}{
		{name: "listMonitors", path: "/monitors", expectedStatus: http.StatusOK, expectedKey: "monitors"},
		{name: "board", path: "/monitors/kitchen/board", expectedStatus: http.StatusOK, expectedKey: "orders"},
		{name: "history", path: "/monitors/kitchen/history", expectedStatus: http.StatusOK, expectedKey: "orders"},
		{name: "unknownMonitor", path: "/monitors/nope/board", expectedStatus: http.StatusNotFound},
		{name: "tables", path: "/tables", expectedStatus: http.StatusOK, expectedKey: "tables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := hf.do(http.MethodGet, tt.path)
			if w.Code != tt.expectedStatus {
				t.Fatalf("GET %s status = %d, want %d", tt.path, w.Code, tt.expectedStatus)
			}
			if tt.expectedKey != "" {
				if _, ok := decodeData(t, w)[tt.expectedKey]; !ok {
					t.Errorf("response lacks %q: %s", tt.expectedKey, w.Body.String())
				}
			}
		})
	}
}

func TestHandlerTransitionLine(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedLine   string
	}{
		{name: "start", path: "/lines/" + lineID(1) + "/start", expectedStatus: http.StatusOK, expectedLine: "preparing"},
		{name: "finishFromPending", path: "/lines/" + lineID(1) + "/finish", expectedStatus: http.StatusOK, expectedLine: "ready"},
		{name: "serveReady", path: "/lines/" + lineID(2) + "/serve", expectedStatus: http.StatusOK, expectedLine: "served"},
		{name: "servePendingConflicts", path: "/lines/" + lineID(1) + "/serve", expectedStatus: http.StatusConflict, expectedLine: "pending"},
		{name: "unknownAction", path: "/lines/" + lineID(1) + "/cook", expectedStatus: http.StatusBadRequest, expectedLine: "pending"},
		{name: "invalidID", path: "/lines/abc/start", expectedStatus: http.StatusBadRequest},
		{name: "unknownLine", path: "/lines/99999999-9999-9999-9999-999999999999/start", expectedStatus: http.StatusNotFound},
		{name: "monitorHidesButton", path: "/lines/" + lineID(1) + "/start?monitor=expo", expectedStatus: http.StatusForbidden, expectedLine: "pending"},
		{name: "monitorShowsButton", path: "/lines/" + lineID(1) + "/start?monitor=kitchen", expectedStatus: http.StatusOK, expectedLine: "preparing"},
		{name: "unknownMonitor", path: "/lines/" + lineID(1) + "/start?monitor=nope", expectedStatus: http.StatusNotFound, expectedLine: "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hf := newHandlerFixture(t)
			w := hf.do(http.MethodPatch, tt.path)
			if w.Code != tt.expectedStatus {
				t.Fatalf("PATCH %s status = %d, want %d: %s", tt.path, w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedLine == "" {
				return
			}
			id := strings.Split(strings.TrimPrefix(tt.path, "/lines/"), "/")[0]
			if got := hf.lines.Get(id).PrepStatus; got != tt.expectedLine {
				t.Errorf("stored status = %q, want %q", got, tt.expectedLine)
			}
		})
	}
}

func TestHandlerTransitionRefreshesBoards(t *testing.T) {
	hf := newHandlerFixture(t)
	before := len(hf.broadcaster.Boards)

	w := hf.do(http.MethodPatch, "/lines/"+lineID(1)+"/finish")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(hf.broadcaster.Boards) <= before {
		t.Error("a changed line should re-derive and broadcast boards")
	}
	if len(hf.notifier.Ready) != 1 {
		t.Errorf("T1 turned ready, notifications = %d, want 1", len(hf.notifier.Ready))
	}
}

func TestHandlerCourseAction(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "march", path: "/tickets/%s/courses/1/march", expectedStatus: http.StatusOK},
		{name: "unmarch", path: "/tickets/%s/courses/1/unmarch", expectedStatus: http.StatusOK},
		{name: "finishAll", path: "/tickets/%s/courses/1/finish", expectedStatus: http.StatusOK},
		{name: "marchUnknownCourse", path: "/tickets/%s/courses/4/march", expectedStatus: http.StatusNotFound},
		{name: "invalidCourse", path: "/tickets/%s/courses/zero/start", expectedStatus: http.StatusBadRequest},
		{name: "courseBelowOne", path: "/tickets/%s/courses/0/start", expectedStatus: http.StatusBadRequest},
		{name: "unknownAction", path: "/tickets/%s/courses/1/cook", expectedStatus: http.StatusBadRequest},
		{name: "serveHiddenOnKitchen", path: "/tickets/%s/courses/1/serve?monitor=kitchen", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hf := newHandlerFixture(t)
			path := strings.Replace(tt.path, "%s", hf.ticket1.String(), 1)
			w := hf.do(http.MethodPatch, path)
			if w.Code != tt.expectedStatus {
				t.Fatalf("PATCH %s status = %d, want %d: %s", path, w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestHandlerFinishAllReportsPerLine(t *testing.T) {
	hf := newHandlerFixture(t)
	w := hf.do(http.MethodPatch, "/tickets/"+hf.ticket1.String()+"/courses/1/finish")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	data := decodeData(t, w)
	applied, _ := data["applied"].([]interface{})
	skipped, _ := data["skipped"].([]interface{})
	if len(applied) != 1 || len(skipped) != 1 {
		t.Errorf("applied=%d skipped=%d, want 1/1: %s", len(applied), len(skipped), w.Body.String())
	}
}

func TestHandlerPreviewTicket(t *testing.T) {
	hf := newHandlerFixture(t)

	w := hf.do(http.MethodGet, "/tickets/"+hf.ticket1.String()+"/preview?station=kitchen")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	text, _ := data["text"].(string)
	if !strings.Contains(text, "1x Burger") || !strings.Contains(text, "KITCHEN") {
		t.Errorf("preview text = %q", text)
	}
	if encoded, _ := data["escpos"].(string); encoded == "" {
		t.Error("preview should include the encoded printer payload")
	}

	if w := hf.do(http.MethodGet, "/tickets/"+hf.ticket1.String()+"/preview?station=grill"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown station status = %d, want 400", w.Code)
	}
	if w := hf.do(http.MethodGet, "/tickets/"+hf.ticket1.String()+"/preview?station=prep"); w.Code != http.StatusNotFound {
		t.Errorf("station without lines status = %d, want 404", w.Code)
	}
}

func TestHandlerPrintTicket(t *testing.T) {
	hf := newHandlerFixture(t)

	w := hf.do(http.MethodPost, "/tickets/"+hf.ticket1.String()+"/print?station=bar")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(hf.printer.Tickets) != 1 || hf.printer.Location != "main" || hf.printer.Station.Code() != "bar" {
		t.Errorf("printer got %+v", hf.printer)
	}

	hf.printer.Err = errors.New("printer offline")
	if w := hf.do(http.MethodPost, "/tickets/"+hf.ticket1.String()+"/print?station=bar"); w.Code != http.StatusBadGateway {
		t.Errorf("failed delivery status = %d, want 502", w.Code)
	}
}

func TestHandlerStreamBoard(t *testing.T) {
	hf := newHandlerFixture(t)

	if w := hf.do(http.MethodGet, "/monitors/nope/stream"); w.Code != http.StatusNotFound {
		t.Errorf("unknown monitor status = %d, want 404", w.Code)
	}

	hf.do(http.MethodGet, "/monitors/expo/stream")
	if hf.stream.MonitorID != "expo" {
		t.Errorf("stream served %q, want expo", hf.stream.MonitorID)
	}
}

func TestHandlerReload(t *testing.T) {
	hf := newHandlerFixture(t)

	if w := hf.do(http.MethodPost, "/reload"); w.Code != http.StatusOK {
		t.Errorf("reload status = %d, want 200", w.Code)
	}

	hf.tickets.Err = errors.New("mongo unavailable")
	if w := hf.do(http.MethodPost, "/reload"); w.Code != http.StatusInternalServerError {
		t.Errorf("failed reload status = %d, want 500", w.Code)
	}
}
