// Package shell is the minimal presentation surface: one idempotent start
// control and a live status feed. It never drives the loop beyond delivering
// the start signal.
package shell

import (
	"encoding/json"
	log "log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"prometheus/internal/loop"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local status surface only.
		return true
	},
}

// Shell broadcasts loop status events to websocket subscribers and exposes
// the start control.
type Shell struct {
	mu      sync.RWMutex
	started bool
	last    loop.Event
	clients map[*websocket.Conn]chan loop.Event

	startCh chan struct{}
}

func New() *Shell {
	return &Shell{
		clients: make(map[*websocket.Conn]chan loop.Event),
		startCh: make(chan struct{}),
		last:    loop.Event{State: loop.StateIdle},
	}
}

// Started yields once when the start signal arrives.
func (s *Shell) Started() <-chan struct{} { return s.startCh }

// Start is idempotent: the first call releases the loop, later calls no-op.
func (s *Shell) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	close(s.startCh)
	return true
}

func (s *Shell) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// StateString reports the most recent loop state for status replies.
func (s *Shell) StateString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.last.State)
}

// Publish implements loop.Notifier. Slow subscribers drop events rather than
// stalling the loop. Sends happen under the lock so a concurrent drop cannot
// close a channel mid-send.
func (s *Shell) Publish(evt loop.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = evt
	for _, ch := range s.clients {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Handler returns the HTTP surface: GET / status page, POST /start,
// GET /status, GET /ws.
func (s *Shell) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Shell) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Shell) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	first := s.Start()
	if first {
		log.Info("Start signal received")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"started": true, "first": first})
}

func (s *Shell) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := struct {
		Started bool       `json:"started"`
		Last    loop.Event `json:"last"`
	}{Started: s.started, Last: s.last}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Shell) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "err", err)
		return
	}

	ch := make(chan loop.Event, 16)
	s.mu.Lock()
	s.clients[conn] = ch
	last := s.last
	s.mu.Unlock()

	// Reader goroutine only notices close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()

	s.send(conn, last)
	for evt := range ch {
		if !s.send(conn, evt) {
			return
		}
	}
}

func (s *Shell) send(conn *websocket.Conn, evt loop.Event) bool {
	data, err := json.Marshal(evt)
	if err != nil {
		return true
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.drop(conn)
		return false
	}
	return true
}

func (s *Shell) drop(conn *websocket.Conn) {
	s.mu.Lock()
	ch, ok := s.clients[conn]
	if ok {
		delete(s.clients, conn)
		close(ch)
	}
	s.mu.Unlock()
	conn.Close()
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Prometheus</title></head>
<body>
<h1>Prometheus</h1>
<button id="start">START</button>
<pre id="status">idle</pre>
<script>
document.getElementById("start").onclick = function () {
	fetch("/start", {method: "POST"});
};
var ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = function (e) {
	document.getElementById("status").textContent = e.data;
};
</script>
</body>
</html>
`
