package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/partypad/backend/internal/config"
	"github.com/partypad/backend/internal/lobby"
	"github.com/partypad/backend/internal/ops"
)

// Server is the websocket gateway: it binds each connection to a role, runs
// the lobby commands against the registry and fans the results out through
// the hub.
type Server struct {
	config          *config.Config
	registry        *lobby.Registry
	hub             *Hub
	stats           *ops.Collector
	frontendDir     string
	dev             bool
	embeddedHandler http.Handler
	allowedOrigins  map[string]bool
	allowedHosts    map[string]bool
}

func NewServer(cfg *config.Config, registry *lobby.Registry, hub *Hub, stats *ops.Collector, frontendDir string, dev bool, embeddedHandler http.Handler) *Server {
	s := &Server{
		config:          cfg,
		registry:        registry,
		hub:             hub,
		stats:           stats,
		frontendDir:     frontendDir,
		dev:             dev,
		embeddedHandler: embeddedHandler,
		allowedOrigins:  make(map[string]bool),
		allowedHosts:    make(map[string]bool),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/lobbies", s.handleLobbies)
	mux.HandleFunc("/api/stats", s.handleStats)

	if s.dev {
		log.Printf("Serving frontend from filesystem: %s", s.frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(s.frontendDir)))
	} else if s.embeddedHandler != nil {
		log.Println("Serving embedded frontend")
		mux.Handle("/", s.embeddedHandler)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c := newClient(uuid.NewString(), conn, s.config.Lobby.SendBuffer)
	log.Printf("socket connected: %s (%s)", c.id, r.RemoteAddr)

	defer func() {
		s.disconnect(c)
		log.Printf("socket disconnected: %s", c.id)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(c, data)
	}
}

func (s *Server) handleMessage(c *client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError(c, "malformed message")
		return
	}

	switch msg.Type {
	case MsgCreateSession:
		s.handleCreate(c)
	case MsgJoinSessionRoom:
		var req RoomRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "malformed join-session-room payload")
			return
		}
		s.handleJoinRoom(c, req)
	case MsgJoinSession:
		var req JoinRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "malformed join-session payload")
			return
		}
		s.handleJoin(c, req)
	case MsgInput:
		var req InputRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			// Input errors are never surfaced; drop the frame.
			return
		}
		s.handleInput(c, req)
	case MsgTargetReady:
		var req RoomRequest
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				s.sendError(c, "malformed target-ready payload")
				return
			}
		}
		s.handleTargetReady(c, req)
	case MsgEndSession:
		s.handleEndSession(c)
	default:
		s.sendError(c, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *Server) handleCreate(c *client) {
	if c.role != roleUnbound {
		s.sendError(c, fmt.Sprintf("connection is already bound as %s of %s", c.role, c.code))
		return
	}

	code, err := s.registry.Create()
	if err != nil {
		log.Printf("session allocation failed: %v", err)
		s.sendError(c, "could not allocate a session code")
		return
	}

	s.hub.Subscribe(code, c)
	c.role = roleHost
	c.code = code

	s.sendTo(c, Envelope{Type: MsgSessionCreated, Payload: code})
	log.Printf("lobby created: %s (host %s)", code, c.id)
}

// handleJoinRoom re-subscribes a host connection to its lobby channel after
// the underlying connection was replaced (page reload keeping the code).
// Idempotent; a no-op when the lobby no longer exists.
func (s *Server) handleJoinRoom(c *client, req RoomRequest) {
	switch {
	case c.role == roleHost && c.code == req.Code:
		// already subscribed
		return
	case c.role == roleUnbound:
	default:
		s.sendError(c, fmt.Sprintf("connection is already bound as %s of %s", c.role, c.code))
		return
	}

	if _, ok := s.registry.Get(req.Code); !ok {
		log.Printf("join-session-room failed, no such lobby: %s", req.Code)
		return
	}

	s.hub.Subscribe(req.Code, c)
	c.role = roleHost
	c.code = req.Code
	log.Printf("host rejoined lobby room: %s (%s)", req.Code, c.id)
}

func (s *Server) handleJoin(c *client, req JoinRequest) {
	if c.role != roleUnbound {
		s.sendTo(c, Envelope{Type: MsgJoinRejected, Payload: fmt.Sprintf("connection is already bound as %s of %s", c.role, c.code)})
		return
	}

	player, roster, err := s.registry.AddPlayer(req.Code, c.id, req.DisplayName)
	if err != nil {
		s.sendTo(c, Envelope{Type: MsgJoinRejected, Payload: "Lobby not found"})
		return
	}

	s.hub.Subscribe(req.Code, c)
	c.role = roleController
	c.code = req.Code

	// Private reply first so the joiner sees join-accepted before its own
	// roster broadcast.
	s.sendTo(c, Envelope{Type: MsgJoinAccepted, Payload: player})
	s.hub.Broadcast(req.Code, Envelope{Type: MsgRosterChanged, Payload: roster})
	log.Printf("player joined lobby %s: %s (%q)", req.Code, c.id, player.Name)
}

func (s *Server) handleInput(c *client, req InputRequest) {
	// Stale input after a teardown or a racing disconnect is expected;
	// the registry swallows unknown lobbies and players.
	roster, fwd, scored, ok := s.registry.ApplyInput(req.Code, c.id, req.Type, req.Action)
	if !ok {
		return
	}

	if scored {
		s.hub.Broadcast(req.Code, Envelope{Type: MsgRosterChanged, Payload: roster})
	}
	s.hub.Relay(req.Code, Envelope{Type: MsgRelayEvent, Payload: fwd})
}

// handleTargetReady marks the connection as a ready render target. An unbound
// connection attaches to the lobby named in the payload; a connection already
// subscribed through join-session-room just flips readiness.
func (s *Server) handleTargetReady(c *client, req RoomRequest) {
	switch c.role {
	case roleUnbound:
		if req.Code == "" {
			s.sendError(c, "target-ready requires a session code")
			return
		}
		if _, ok := s.registry.Get(req.Code); !ok {
			s.sendError(c, "session not found")
			return
		}
		s.hub.Subscribe(req.Code, c)
		c.role = roleTarget
		c.code = req.Code
	case roleHost, roleTarget:
		// already subscribed to its lobby channel
	default:
		s.sendError(c, "controllers cannot become render targets")
		return
	}

	c.relayReady.Store(true)
	log.Printf("render target ready for lobby %s (%s)", c.code, c.id)
}

func (s *Server) handleEndSession(c *client) {
	if c.role != roleHost {
		s.sendError(c, "only the host may end a session")
		return
	}

	code := c.code
	if s.registry.Remove(code) {
		s.hub.Broadcast(code, Envelope{Type: MsgSessionEnded, Payload: SessionEndedPayload{Code: code}})
		log.Printf("lobby ended by host: %s", code)
	}
	s.hub.DropRoom(code)
	c.role = roleUnbound
	c.code = ""
}

// disconnect tears down a connection's lobby footprint: its player record is
// removed and the remaining subscribers get the updated roster.
func (s *Server) disconnect(c *client) {
	switch c.role {
	case roleController:
		s.hub.Unsubscribe(c.code, c)
		if roster, removed := s.registry.RemovePlayer(c.code, c.id); removed {
			s.hub.Broadcast(c.code, Envelope{Type: MsgRosterChanged, Payload: roster})
		}
	case roleHost, roleTarget:
		s.hub.Unsubscribe(c.code, c)
	}
	c.close()
}

func (s *Server) sendTo(c *client, msg Envelope) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("send marshal error: %v", err)
		return
	}
	if !c.trySend(data) {
		log.Printf("ws client %s too slow, disconnecting", c.id)
		if c.role != roleUnbound {
			s.hub.Unsubscribe(c.code, c)
		}
		c.close()
	}
}

func (s *Server) sendError(c *client, reason string) {
	s.sendTo(c, Envelope{Type: MsgError, Payload: ErrorPayload{Reason: reason}})
}

// RunReaper periodically removes idle lobbies and tells any remaining
// subscribers their session is gone. Blocks until ctx is cancelled.
func (s *Server) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, code := range s.registry.ReapIdle(ttl) {
				log.Printf("reaped idle lobby: %s", code)
				s.hub.Broadcast(code, Envelope{Type: MsgSessionEnded, Payload: SessionEndedPayload{Code: code}})
				s.hub.DropRoom(code)
			}
		}
	}
}

func (s *Server) handleLobbies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.registry.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "stats not available", http.StatusServiceUnavailable)
		return
	}

	stats, err := s.stats.Stats()
	if err != nil {
		http.Error(w, fmt.Sprintf("collecting stats: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
