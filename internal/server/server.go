package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/logx"
)

const (
	// DefaultUserID is used for chat commands that carry no user_id.
	DefaultUserID = "pwa_user"
	// DefaultHistoryLimit applies when the history request has no limit.
	DefaultHistoryLimit = 50
	// StaleAfter is how old the heartbeat may be before /api/health
	// reports stale.
	StaleAfter = 5 * time.Minute
)

// ChatHandler processes a chat turn. The server calls it on its own
// goroutine; results reach clients through the broadcaster.
type ChatHandler interface {
	HandleChat(ctx context.Context, userID, message string)
}

// StateSource returns the current sync snapshot.
type StateSource interface {
	Snapshot() client.SyncSnapshot
}

// HistorySource returns up to limit recent turns for a user, oldest first.
type HistorySource interface {
	History(userID string, limit int) []client.HistoryEntry
}

// Options configures a Server.
type Options struct {
	Broadcaster    *Broadcaster
	Chat           ChatHandler
	State          StateSource
	History        HistorySource
	AllowedOrigins []string
	Logger         pslog.Logger
	// Now is used by the health endpoint. Defaults to time.Now.
	Now func() time.Time
}

// Server is the development backend's HTTP and WebSocket surface.
type Server struct {
	broadcaster    *Broadcaster
	chat           ChatHandler
	state          StateSource
	history        HistorySource
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	log            pslog.Logger
	now            func() time.Time
	baseCtx        context.Context
}

func NewServer(ctx context.Context, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	s := &Server{
		broadcaster:    opts.Broadcaster,
		chat:           opts.Chat,
		state:          opts.State,
		history:        opts.History,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		log:            logx.WithComponent(log, "server"),
		now:            opts.Now,
		baseCtx:        ctx,
	}
	if s.now == nil {
		s.now = time.Now
	}

	for _, origin := range opts.AllowedOrigins {
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
	mux.HandleFunc("/api/chat/history/", s.handleHistory)
	mux.HandleFunc("/api/health", s.handleHealth)
}

// Handler returns the routes wrapped with security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		s.log.Warn("ws client rejected", "remote", r.RemoteAddr, "err", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		conn.Close()
		return
	}
	log := logx.WithClient(s.log, c.ID(), r.RemoteAddr)
	log.Info("ws client connected")

	if s.state != nil {
		s.broadcaster.Send(c, SyncFrame(s.state.Snapshot()))
	}

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Info("ws client disconnected")
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleCommand(c, log, data)
		}
	}()
}

func (s *Server) handleCommand(c *Conn, log pslog.Logger, data []byte) {
	cmd, err := client.DecodeCommand(data)
	if err != nil {
		log.Debug("ws command ignored", "err", err, "bytes", len(data))
		return
	}

	switch cmd.Type {
	case client.CmdPing:
		s.broadcaster.Send(c, PongFrame())
	case client.CmdGetStatus:
		if s.state != nil {
			s.broadcaster.Send(c, SyncFrame(s.state.Snapshot()))
		}
	case client.CmdChat:
		message := strings.TrimSpace(cmd.Message)
		if message == "" || s.chat == nil {
			return
		}
		userID := cmd.UserID
		if userID == "" {
			userID = DefaultUserID
		}
		ctx := logx.ContextWithUserLogger(s.baseCtx, log, userID)
		go s.chat.HandleChat(ctx, userID, message)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse: /api/chat/history/{userID}
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/api/chat/history/")
	if raw == "" || strings.Contains(raw, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	userID, err := url.PathUnescape(raw)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var messages []client.HistoryEntry
	if s.history != nil {
		messages = s.history.History(userID, limit)
	}
	if messages == nil {
		messages = []client.HistoryEntry{}
	}

	writeJSON(w, client.HistoryResponse{
		UserID:   userID,
		Messages: messages,
		Count:    len(messages),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.state == nil {
		http.Error(w, "sync state not available", http.StatusServiceUnavailable)
		return
	}

	snap := s.state.Snapshot()
	status := "stale"
	if hb, ok := client.ParseTimestamp(snap.LastHeartbeat); ok && s.now().Sub(hb) < StaleAfter {
		status = "healthy"
	}

	writeJSON(w, HealthResponse{
		Status:           status,
		ActiveNode:       snap.ActiveNode,
		LastHeartbeat:    snap.LastHeartbeat,
		Health:           snap.Health,
		ConnectedClients: s.broadcaster.ClientCount(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
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

	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	log := pslog.Ctx(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped")
	return nil
}
