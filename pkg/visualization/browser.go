package visualization

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"

	"stackview/internal/logger"
	"stackview/internal/models"
	"stackview/pkg/dispatch"
	"stackview/pkg/projection"
)

//go:embed static/index.html
var indexPage []byte

const (
	writeTimeout = 10 * time.Second
	maxMessage   = 512
)

// selectRequest is the message a browser sends to pick an operation
type selectRequest struct {
	Operation string `json:"operation"`
}

// statusMessage precedes each image, or reports a failed selection
type statusMessage struct {
	Operation string `json:"operation,omitempty"`
	Error     string `json:"error,omitempty"`
}

type selection struct {
	name string
	from *websocket.Conn
}

// BrowserDisplay serves the current projection to browsers over HTTP and
// WebSocket. Selections sent by any client are queued and handled one at
// a time by Run, so the listener never has more than one call in flight.
type BrowserDisplay struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader

	listener dispatch.Listener

	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	selections chan selection
	done       chan struct{}

	// mu guards everything below
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	current *models.Projection
	frame   []byte
}

// NewBrowserDisplay creates a browser display; call Run to start handling events
func NewBrowserDisplay(log *logger.Logger) *BrowserDisplay {
	return &BrowserDisplay{
		logger: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		selections: make(chan selection),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]bool),
	}
}

// SetImage implements dispatch.Display
func (b *BrowserDisplay) SetImage(p *models.Projection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = p
}

// Refresh implements dispatch.Display: it encodes the current image and
// pushes it to every connected client.
func (b *BrowserDisplay) Refresh() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return ErrNoImage
	}
	var buf bytes.Buffer
	if err := Encode(&buf, b.current, PNG); err != nil {
		return err
	}
	b.frame = buf.Bytes()

	for client := range b.clients {
		if err := b.send(client); err != nil {
			b.logger.Warning("Dropping client after failed send: %v", err)
			delete(b.clients, client)
			client.Close()
		}
	}
	return nil
}

// OnSelectionChange implements dispatch.Display
func (b *BrowserDisplay) OnSelectionChange(l dispatch.Listener) { b.listener = l }

// send writes the current operation name and image to one client. Callers hold mu.
func (b *BrowserDisplay) send(client *websocket.Conn) error {
	if b.frame == nil {
		return nil
	}
	client.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := client.WriteJSON(statusMessage{Operation: b.current.Operation}); err != nil {
		return err
	}
	return client.WriteMessage(websocket.BinaryMessage, b.frame)
}

// Run is the event loop. It owns client registration and processes
// selections sequentially until ctx is cancelled.
func (b *BrowserDisplay) Run(ctx context.Context) {
	defer close(b.done)

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for client := range b.clients {
				client.Close()
				delete(b.clients, client)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			if err := b.send(client); err != nil {
				b.logger.Warning("Failed to send initial image: %v", err)
			}
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.Info("Client connected. Total: %d", count)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				client.Close()
			}
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.Info("Client disconnected. Total: %d", count)

		case sel := <-b.selections:
			b.handleSelection(sel)
		}
	}
}

func (b *BrowserDisplay) handleSelection(sel selection) {
	if b.listener == nil {
		b.logger.Warning("Selection %q ignored: no listener registered", sel.name)
		return
	}

	start := time.Now()
	if err := b.listener.SelectionChanged(sel.name); err != nil {
		b.logger.Error("Selection %q failed: %v", sel.name, err)
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.clients[sel.from]; ok {
			sel.from.SetWriteDeadline(time.Now().Add(writeTimeout))
			if werr := sel.from.WriteJSON(statusMessage{Error: err.Error()}); werr != nil {
				b.logger.Warning("Failed to report error to client: %v", werr)
			}
		}
		return
	}
	b.logger.Info("Rendered %q in %v", sel.name, time.Since(start))
}

// Handler returns the HTTP routes of the display
func (b *BrowserDisplay) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", b.getIndex)
	r.Get("/api/operations", b.getOperations)
	r.Get("/api/projection.png", b.getProjection)
	r.Get("/ws", b.serveWS)
	return r
}

// getIndex serves the page with the operation selector and the image
func (b *BrowserDisplay) getIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexPage); err != nil {
		b.logger.Warning("Failed to write index page: %v", err)
	}
}

// getOperations responds with the menu and the operation on display
func (b *BrowserDisplay) getOperations(w http.ResponseWriter, r *http.Request) {
	ops := projection.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}

	b.mu.RLock()
	current := ""
	if b.current != nil {
		current = b.current.Operation
	}
	b.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(struct {
		Operations []string `json:"operations"`
		Current    string   `json:"current"`
	}{names, current})
	if err != nil {
		b.logger.Warning("Failed to write operations: %v", err)
	}
}

// getProjection responds with the PNG currently on display
func (b *BrowserDisplay) getProjection(w http.ResponseWriter, r *http.Request) {
	b.mu.RLock()
	frame := b.frame
	b.mu.RUnlock()

	if frame == nil {
		http.Error(w, ErrNoImage.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(frame); err != nil {
		b.logger.Warning("Failed to write projection: %v", err)
	}
}

// serveWS upgrades the connection and forwards the client's selections
// to the event loop.
func (b *BrowserDisplay) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("WebSocket upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(maxMessage)

	select {
	case b.register <- conn:
	case <-b.done:
		conn.Close()
		return
	}

	for {
		var req selectRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}

		select {
		case b.selections <- selection{name: req.Operation, from: conn}:
		case <-b.done:
			return
		}
	}

	select {
	case b.unregister <- conn:
	case <-b.done:
	}
}
