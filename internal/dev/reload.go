package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Paths served by the bundler.
const (
	ReloadPath = "/_dev/reload"
	ClientPath = "/_dev/client.js"
)

// ReloadMessageType represents the type of reload message.
type ReloadMessageType string

const (
	ReloadTypeFull  ReloadMessageType = "reload"
	ReloadTypeCSS   ReloadMessageType = "css"
	ReloadTypeError ReloadMessageType = "error"
	ReloadTypeClear ReloadMessageType = "clear"
)

// ReloadMessage is sent to browsers via WebSocket.
type ReloadMessage struct {
	Type  ReloadMessageType `json:"type"`
	Error string            `json:"error,omitempty"`
	File  string            `json:"file,omitempty"`
}

const writeTimeout = 5 * time.Second

type reloadClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *reloadClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReloadServer manages browser connections for live reload.
type ReloadServer struct {
	clients  map[*reloadClient]struct{}
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// lastError is replayed to clients connecting while an error is shown.
	lastError string
}

// NewReloadServer creates a new reload server.
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default().With("component", "dev")
	}
	return &ReloadServer{
		clients: make(map[*reloadClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// browser goes away.
func (s *ReloadServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("reload upgrade failed", "error", err)
		return
	}

	client := &reloadClient{conn: conn}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	pending := s.lastError
	s.mu.Unlock()

	if pending != "" {
		if data, err := json.Marshal(ReloadMessage{Type: ReloadTypeError, Error: pending}); err == nil {
			client.write(data)
		}
	}

	// Browsers never send anything; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.remove(client)
}

func (s *ReloadServer) remove(client *reloadClient) {
	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
	client.conn.Close()
}

// NotifyReload sends a full page reload message to all clients.
func (s *ReloadServer) NotifyReload() {
	s.broadcast(ReloadMessage{Type: ReloadTypeFull})
}

// NotifyCSS sends a stylesheet reload message to all clients.
func (s *ReloadServer) NotifyCSS(file string) {
	s.broadcast(ReloadMessage{Type: ReloadTypeCSS, File: file})
}

// NotifyError shows an error overlay on all clients, including clients
// connecting later until ClearError is called.
func (s *ReloadServer) NotifyError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	s.broadcast(ReloadMessage{Type: ReloadTypeError, Error: msg})
}

// ClearError clears the error overlay on all clients.
func (s *ReloadServer) ClearError() {
	s.mu.Lock()
	had := s.lastError != ""
	s.lastError = ""
	s.mu.Unlock()
	if had {
		s.broadcast(ReloadMessage{Type: ReloadTypeClear})
	}
}

func (s *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	clients := make([]*reloadClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(data); err != nil {
			s.remove(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *ReloadServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close closes all client connections.
func (s *ReloadServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		client.conn.Close()
		delete(s.clients, client)
	}
}

// ClientScript is the browser side of the reload protocol, served at
// ClientPath.
const ClientScript = `(function () {
  'use strict';

  var delay = 1000;
  var maxDelay = 30000;

  function connect() {
    var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws = new WebSocket(protocol + '//' + location.host + '` + ReloadPath + `');

    ws.onopen = function () {
      delay = 1000;
    };

    ws.onmessage = function (e) {
      var msg;
      try {
        msg = JSON.parse(e.data);
      } catch (err) {
        return;
      }

      switch (msg.type) {
        case 'reload':
          location.reload();
          break;
        case 'css':
          reloadCSS();
          break;
        case 'error':
          showError(msg.error);
          break;
        case 'clear':
          clearError();
          break;
      }
    };

    ws.onclose = function () {
      setTimeout(function () {
        delay = Math.min(delay * 2, maxDelay);
        connect();
      }, delay);
    };

    ws.onerror = function () {
      ws.close();
    };
  }

  function reloadCSS() {
    document.querySelectorAll('link[rel="stylesheet"]').forEach(function (link) {
      var url = new URL(link.href);
      url.searchParams.set('_reload', Date.now());
      link.href = url.toString();
    });
  }

  function showError(text) {
    clearError();
    var overlay = document.createElement('div');
    overlay.id = 'ssrhost-error-overlay';
    overlay.style.cssText = 'position:fixed;inset:0;background:rgba(0,0,0,0.9);color:#fff;font:14px monospace;padding:20px;overflow:auto;z-index:999999;';
    var pre = document.createElement('pre');
    pre.style.cssText = 'white-space:pre-wrap;max-width:900px;margin:0 auto;';
    pre.textContent = text;
    overlay.appendChild(pre);
    document.body.appendChild(overlay);
  }

  function clearError() {
    var overlay = document.getElementById('ssrhost-error-overlay');
    if (overlay) {
      overlay.remove();
    }
  }

  connect();
})();
`
