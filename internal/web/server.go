// Package web serves the chat as a browser page. Each browser gets its own
// conversation, keyed by a session cookie.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"ThinkChat/internal/avatar"
	"ThinkChat/internal/chatbot"
	"ThinkChat/internal/render"
	"ThinkChat/internal/session"
)

const (
	cookieName = "thinkchat_session"
	pageTitle  = "Where should we begin?"
)

type ctxKey struct{}

// Server is the HTTP front end
type Server struct {
	bot     *chatbot.ChatBot
	avatars *avatar.Loader
	logger  *slog.Logger
}

// NewServer creates the front end for bot
func NewServer(bot *chatbot.ChatBot, avatars *avatar.Loader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{bot: bot, avatars: avatars, logger: logger}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/avatar/{role}", s.handleAvatar)

	r.Group(func(r chi.Router) {
		r.Use(s.sessionCookie)
		r.Get("/", s.handlePage)
		r.Get("/api/state", s.handleState)
		r.Post("/api/settings", s.handleSettings)
		r.Post("/api/reset", s.handleReset)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// sessionCookie attaches the browser's conversation id, issuing one when
// the cookie is missing or malformed.
func (s *Server) sessionCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(cookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = session.NewID()
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) conversation(r *http.Request) *chatbot.Conversation {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return s.bot.Conversation(id)
}

// stateResponse is the page's view of a conversation
type stateResponse struct {
	Title        string            `json:"title"`
	SessionID    string            `json:"session_id"`
	State        string            `json:"state"`
	Messages     []session.Message `json:"messages"`
	ChatDisabled bool              `json:"chat_disabled"`
	Notice       string            `json:"notice,omitempty"`
	DevMode      bool              `json:"dev_mode"`
	Settings     *devPanel         `json:"settings,omitempty"`
}

type devPanel struct {
	chatbot.Settings
	Modes           []render.Mode `json:"modes"`
	ThinkingEnabled bool          `json:"thinking_enabled"`
	EffectiveTime   float64       `json:"effective_time"`
	SliderMin       *float64      `json:"slider_min,omitempty"`
	SliderMax       *float64      `json:"slider_max,omitempty"`
}

func (s *Server) state(conv *chatbot.Conversation) stateResponse {
	snap := s.bot.Snapshot(conv)
	cfg := s.bot.Config()

	resp := stateResponse{
		Title:        pageTitle,
		SessionID:    snap.Session.ID,
		State:        snap.Session.State().String(),
		Messages:     snap.Session.Messages,
		ChatDisabled: snap.Session.ChatDisabled,
		Notice:       snap.Notice,
		DevMode:      cfg.DevMode,
	}
	if cfg.DevMode {
		params := snap.Settings.Resolve(cfg)
		panel := &devPanel{
			Settings:        snap.Settings,
			Modes:           render.Modes,
			ThinkingEnabled: params.ThinkingEnabled,
			EffectiveTime:   params.Duration.Seconds(),
		}
		if lo, hi, ok := chatbot.SliderBounds(snap.Settings.Mode); ok {
			panel.SliderMin, panel.SliderMax = &lo, &hi
		}
		resp.Settings = panel
	}
	return resp
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state(s.conversation(r)))
}

type settingsRequest struct {
	Mode         render.Mode `json:"mode"`
	ThinkingTime float64     `json:"thinking_time"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv := s.conversation(r)
	if _, err := s.bot.UpdateSettings(conv, req.Mode, req.ThinkingTime); err != nil {
		if errors.Is(err, chatbot.ErrNotDevMode) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.state(conv))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	conv := s.conversation(r)
	if err := s.bot.Reset(r.Context(), conv); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	// operators may drop in avatar files between runs
	s.avatars.ForgetMisses()
	writeJSON(w, http.StatusOK, s.state(conv))
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	cfg := s.bot.Config()
	var path string
	switch session.Role(chi.URLParam(r, "role")) {
	case session.RoleUser:
		path = cfg.UserAvatarPath
	case session.RoleAgent:
		path = cfg.AgentAvatarPath
	default:
		http.NotFound(w, r)
		return
	}

	img, ok := s.avatars.Load(path)
	if !ok {
		// the page falls back to a default badge
		http.NotFound(w, r)
		return
	}

	w.Header().Set("ETag", img.ETag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.Header.Get("If-None-Match") == img.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Write(img.Data)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Routes(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
