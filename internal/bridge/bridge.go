// Package bridge exposes a viewer to a remote host over a websocket. Hosts
// send input events as JSON and receive every viewer result; GET /camera
// returns the current camera as a query string for view sharing.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/engine/camera"
	"github.com/Faultbox/cortexview/internal/engine/input"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/viewer"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
	maxMessage   = 4096
)

// Viewer is the part of the render loop the bridge drives.
type Viewer interface {
	Post(e input.Event)
	CameraState() camera.State
	Results() <-chan viewer.EventResult
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans viewer results out to every connected host.
type Server struct {
	v        Viewer
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	log *zap.Logger
}

// New creates a bridge for v. Call Broadcast to start delivering results.
func New(v Viewer) *Server {
	return &Server{
		v: v,
		upgrader: websocket.Upgrader{
			// Hosts are local tools and notebooks served from other origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		log:     logger.Named("bridge"),
	}
}

// Handler routes /ws and /camera.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/camera", s.handleCamera)
	return mux
}

// Clients returns the number of connected hosts.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe serves on addr and broadcasts results until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go s.Broadcast(ctx)
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
		s.closeAll()
	}()

	s.log.Info("bridge listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Broadcast forwards viewer results to every client until ctx is done or
// the results channel closes.
func (s *Server) Broadcast(ctx context.Context) {
	results := s.v.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			data, err := json.Marshal(res)
			if err != nil {
				s.log.Error("encode result", zap.Error(err))
				continue
			}
			s.publish(data)
		}
	}
}

// publish queues data on every client. A client too slow to keep up is
// disconnected.
func (s *Server) publish(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.log.Warn("client too slow, disconnecting", zap.String("remote", c.conn.RemoteAddr().String()))
			s.remove(c)
		}
	}
}

// remove must be called with mu held.
func (s *Server) remove(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.remove(c)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("host connected", zap.String("remote", conn.RemoteAddr().String()))

	go s.writeLoop(c)
	s.readLoop(c)

	s.mu.Lock()
	s.remove(c)
	s.mu.Unlock()
	s.log.Info("host disconnected", zap.String("remote", conn.RemoteAddr().String()))
}

// readLoop posts every decodable event to the viewer. Malformed messages
// are logged and skipped.
func (s *Server) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessage)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		var e input.Event
		if err := json.Unmarshal(msg, &e); err != nil {
			s.log.Warn("malformed event", zap.Error(err))
			continue
		}
		if e.Kind == input.EventNone {
			continue
		}
		s.v.Post(e)
	}
}

// writeLoop is the only writer on the connection. It closes the connection
// once the send channel is closed.
func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.v.CameraState().Encode().Encode()))
}
