package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stackview/internal/logger"
	"stackview/pkg/dispatch"
	"stackview/pkg/projection"
)

// startBrowser serves a browser display showing the ramp workspace
func startBrowser(t *testing.T) (*httptest.Server, *dispatch.Dispatcher) {
	t.Helper()
	display := NewBrowserDisplay(logger.Discard())
	d, err := dispatch.New(rampWorkspace(t), display, projection.MaxProjection)
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go display.Run(ctx)

	srv := httptest.NewServer(display.Handler())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, d
}

// dial opens a WebSocket connection to the display
func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readStatus reads one JSON status message
func readStatus(t *testing.T, conn *websocket.Conn) statusMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg statusMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read status: %v", err)
	}
	return msg
}

// readFrame reads one binary PNG message and checks its size
func readFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("Expected a binary message, got type %d", kind)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 4 {
		t.Errorf("Expected 5x4 frame, got %dx%d", b.Dx(), b.Dy())
	}
}

// TestBrowserInitialImage verifies that a new client receives the current projection
func TestBrowserInitialImage(t *testing.T) {
	srv, _ := startBrowser(t)
	conn := dial(t, srv)

	if msg := readStatus(t, conn); msg.Operation != "Max Projection" {
		t.Errorf("Expected Max Projection, got %+v", msg)
	}
	readFrame(t, conn)
}

// TestBrowserSelection verifies that a selection is rendered and broadcast
func TestBrowserSelection(t *testing.T) {
	srv, _ := startBrowser(t)
	conn := dial(t, srv)
	readStatus(t, conn)
	readFrame(t, conn)

	if err := conn.WriteJSON(selectRequest{Operation: "Low Pass Filter"}); err != nil {
		t.Fatalf("Failed to send selection: %v", err)
	}
	if msg := readStatus(t, conn); msg.Operation != "Low Pass Filter" {
		t.Errorf("Expected Low Pass Filter, got %+v", msg)
	}
	readFrame(t, conn)

	resp, err := http.Get(srv.URL + "/api/operations")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Current string `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Current != "Low Pass Filter" {
		t.Errorf("Expected Low Pass Filter on display, got %q", body.Current)
	}
}

// TestBrowserSelectionError verifies that only the requesting client sees the failure
func TestBrowserSelectionError(t *testing.T) {
	srv, d := startBrowser(t)
	conn := dial(t, srv)
	readStatus(t, conn)
	readFrame(t, conn)

	if err := conn.WriteJSON(selectRequest{Operation: "Median Projection"}); err != nil {
		t.Fatalf("Failed to send selection: %v", err)
	}
	msg := readStatus(t, conn)
	if msg.Error == "" || msg.Operation != "" {
		t.Errorf("Expected an error status, got %+v", msg)
	}
	if d.Current() != projection.MaxProjection {
		t.Errorf("Expected Max Projection to stay current, got %q", d.Current())
	}
}

// TestBrowserOperations verifies the operations endpoint
func TestBrowserOperations(t *testing.T) {
	srv, _ := startBrowser(t)

	resp, err := http.Get(srv.URL + "/api/operations")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Operations []string `json:"operations"`
		Current    string   `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Operations) != len(projection.Operations()) {
		t.Errorf("Expected %d operations, got %d", len(projection.Operations()), len(body.Operations))
	}
	if body.Operations[0] != "Max Projection" || body.Current != "Max Projection" {
		t.Errorf("Unexpected response: %+v", body)
	}
}

// TestBrowserProjectionImage verifies the PNG endpoint
func TestBrowserProjectionImage(t *testing.T) {
	srv, _ := startBrowser(t)

	resp, err := http.Get(srv.URL + "/api/projection.png")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Errorf("Failed to decode PNG: %v", err)
	}
}

// TestBrowserWithoutImage verifies the PNG endpoint before any refresh
func TestBrowserWithoutImage(t *testing.T) {
	display := NewBrowserDisplay(logger.Discard())
	if err := display.Refresh(); err != ErrNoImage {
		t.Errorf("Expected ErrNoImage, got %v", err)
	}

	rec := httptest.NewRecorder()
	display.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projection.png", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
}

// TestBrowserIndexPage verifies that the root serves the selector page
func TestBrowserIndexPage(t *testing.T) {
	srv, _ := startBrowser(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected text/html, got %q", ct)
	}

	var page bytes.Buffer
	if _, err := page.ReadFrom(resp.Body); err != nil {
		t.Fatalf("Failed to read page: %v", err)
	}
	for _, want := range []string{"<select", "/ws", "/api/operations"} {
		if !strings.Contains(page.String(), want) {
			t.Errorf("Expected index page to contain %q", want)
		}
	}
}

// brokenWriter is a response writer whose body writes always fail
type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func (w *brokenWriter) WriteHeader(int) {}

// TestBrowserWriteErrorsAreLogged verifies that failed response writes reach the warning log
func TestBrowserWriteErrorsAreLogged(t *testing.T) {
	dir := t.TempDir()
	lg, err := logger.New(false, dir)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	display := NewBrowserDisplay(lg)
	if _, err := dispatch.New(rampWorkspace(t), display, projection.MaxProjection); err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}

	handler := display.Handler()
	for _, path := range []string{"/", "/api/operations", "/api/projection.png"} {
		handler.ServeHTTP(&brokenWriter{}, httptest.NewRequest(http.MethodGet, path, nil))
	}
	if err := lg.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("Failed to read warning log: %v", err)
	}
	for _, want := range []string{"index page", "operations", "projection"} {
		if !strings.Contains(string(data), "Failed to write "+want) {
			t.Errorf("Expected a warning for %s, got %q", want, data)
		}
	}
}
