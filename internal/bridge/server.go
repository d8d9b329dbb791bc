package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/logging"
	"github.com/liuscraft/trackmix/internal/metrics"
	"github.com/liuscraft/trackmix/internal/playback"
	"github.com/liuscraft/trackmix/internal/tracks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine bridge 需要的引擎操作
type Engine interface {
	SetTracks(list []tracks.Track) error
	SetGain(u playback.GainUpdate) error
	AttachElement(el audio.MediaElement) error
	DetachElement() error
	Status() (playback.Status, error)
}

type Config struct {
	// AllowedOrigins 为空时不校验 Origin
	AllowedOrigins []string
	// ElementBufferBytes video 原生音频的最大缓冲
	ElementBufferBytes int
	WriteTimeout       time.Duration
}

// Server 把 webview 的 websocket 连接接到引擎上。
// transport 只有一个，因此同一时刻只接受一个 webview 连接。
type Server struct {
	engine    Engine
	transport *RemoteTransport
	cfg       Config
	upgrader  websocket.Upgrader

	mu     sync.Mutex
	active string
}

func NewServer(engine Engine, transport *RemoteTransport, cfg Config) *Server {
	if cfg.ElementBufferBytes <= 0 {
		cfg.ElementBufferBytes = 1 << 20
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	s := &Server{
		engine:    engine,
		transport: transport,
		cfg:       cfg,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Router /ws、/metrics 和 /healthz
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	logging.Warnf("Bridge: rejected websocket origin %s", origin)
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := map[string]string{"status": "ok"}
	if _, err := s.engine.Status(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "stopped"
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if !s.claim(id) {
		logging.Warnf("Bridge: rejected websocket, webview %s already connected", s.activeID())
		http.Error(w, "another webview is already connected", http.StatusConflict)
		return
	}
	defer s.release(id)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("Bridge: websocket upgrade failed: %v", err)
		return
	}
	metrics.BridgeConnections.Inc()
	defer metrics.BridgeConnections.Dec()

	c := &connection{server: s, conn: conn, id: id}
	logging.Infof("Bridge: webview connected (%s)", c.id)
	c.serve()
	logging.Infof("Bridge: webview disconnected (%s)", c.id)
}

func (s *Server) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != "" {
		return false
	}
	s.active = id
	return true
}

func (s *Server) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == id {
		s.active = ""
	}
}

func (s *Server) activeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// connection 一个 webview 连接，对应一个 video 元素的生命周期
type connection struct {
	server  *Server
	conn    *websocket.Conn
	id      string
	writeMu sync.Mutex
	element *RemoteElement
}

func (c *connection) serve() {
	defer c.close()

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debugf("Bridge: read failed: %v", err)
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			metrics.BridgeMessagesTotal.WithLabelValues("audio").Inc()
			if c.element == nil {
				c.replyError("audio frame before element format")
				continue
			}
			_, _ = c.element.Write(data)
		case websocket.TextMessage:
			if err := c.handleText(data); err != nil {
				c.replyError(err.Error())
			}
		}
	}
}

func (c *connection) handleText(data []byte) error {
	msg, err := decodeMessage(data)
	if err != nil {
		metrics.BridgeMessagesTotal.WithLabelValues("invalid").Inc()
		return err
	}
	metrics.BridgeMessagesTotal.WithLabelValues(msg.Type).Inc()

	engine := c.server.engine
	switch msg.Type {
	case MessageTransport:
		c.server.transport.Update(playback.EventType(msg.Event), msg.CurrentTime, msg.Paused)
		return nil
	case MessageTracks:
		return engine.SetTracks(msg.Tracks)
	case MessageGain:
		return engine.SetGain(playback.GainUpdate{Index: msg.Index, Active: msg.Active, Percent: msg.Gain})
	case MessageElement:
		return c.attachElement(msg)
	case MessageStatus:
		st, err := engine.Status()
		if err != nil {
			return err
		}
		return c.writeJSON(newStatusReply(st))
	}
	return nil
}

func (c *connection) attachElement(msg *Message) error {
	if c.element != nil {
		return audio.ErrAlreadyIntercepted
	}
	el := NewRemoteElement(c.id, audio.StreamFormat{
		SampleRate: msg.SampleRate,
		Channels:   msg.Channels,
	}, c.server.cfg.ElementBufferBytes)
	if err := c.server.engine.AttachElement(el); err != nil {
		_ = el.Close()
		return err
	}
	c.element = el
	return nil
}

func (c *connection) close() {
	if c.element != nil {
		if err := c.server.engine.DetachElement(); err != nil && !errors.Is(err, playback.ErrEngineStopped) {
			logging.Warnf("Bridge: failed to detach element: %v", err)
		}
		_ = c.element.Close()
		c.element = nil
	}
	// webview 断开时 video 不再前进，辅助音轨随之停止
	t := c.server.transport
	if !t.Paused() {
		t.Update(playback.EventPause, t.CurrentTime(), true)
	}
	_ = c.conn.Close()
}

func (c *connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.cfg.WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *connection) replyError(message string) {
	logging.Warnf("Bridge: %s", message)
	if err := c.writeJSON(errorReply{Type: MessageError, Message: message}); err != nil {
		logging.Debugf("Bridge: failed to send error reply: %v", err)
	}
}
