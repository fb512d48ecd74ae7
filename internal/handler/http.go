package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/boredtap/engine/internal/domain"
	"github.com/boredtap/engine/internal/service"
	"github.com/boredtap/engine/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler provides HTTP handlers for the gamification engine API
type Handler struct {
	engine *service.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *service.Engine, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		hub:    hub,
		logger: logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Earning actions
		r.Post("/coins", h.GrantCoins)
		r.Post("/coins/batch", h.GrantCoinsBatch)
		r.Post("/earn/streak/{userID}", h.ApplyStreakAction)
		r.Get("/earn/streak/{userID}", h.GetStreakStatus)

		// Profiles
		r.Get("/users/{userID}", h.GetProfile)

		// Rankings
		r.Get("/leaderboards/{window}", h.GetLeaderboard)
		r.Get("/clans/top", h.GetTopClans)

		// Daily clan revenue share; idempotent, safe to trigger anytime
		r.Post("/clans/distribute", h.RunDistribution)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GrantCoins applies a single coin-earning event
func (h *Handler) GrantCoins(w http.ResponseWriter, r *http.Request) {
	var event domain.CoinEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.engine.GrantCoins(r.Context(), event); err != nil {
		switch {
		case domain.IsNotFoundError(err):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrInvalidCoinEvent):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.logger.Error("failed to grant coins", "error", err)
			h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		}
		return
	}

	go h.engine.PublishWindow(context.Background(), domain.WindowDaily)

	h.writeSuccess(w, map[string]string{"status": "accepted"})
}

// GrantCoinsBatch applies multiple coin-earning events
func (h *Handler) GrantCoinsBatch(w http.ResponseWriter, r *http.Request) {
	var batch domain.BatchCoinEvents
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if len(batch.Events) == 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.engine.GrantCoinsBatch(r.Context(), batch); err != nil {
		h.logger.Error("failed to grant coin batch", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	go h.engine.PublishWindow(context.Background(), domain.WindowDaily)

	h.writeSuccess(w, map[string]interface{}{
		"status":   "accepted",
		"received": len(batch.Events),
	})
}

// ApplyStreakAction attempts a daily streak action. An attempt inside
// the grace window is a normal 200 carrying the remaining countdown.
func (h *Handler) ApplyStreakAction(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.engine.ApplyStreakAction(r.Context(), userID, time.Now())
	if err != nil {
		switch {
		case domain.IsNotFoundError(err):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrConcurrentUpdate):
			h.writeError(w, http.StatusConflict, err)
		default:
			h.logger.Error("failed to apply streak action", "error", err)
			h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		}
		return
	}

	if !result.RewardGranted {
		h.writeSuccess(w, map[string]interface{}{
			"status":         "not_eligible_yet",
			"wait_remaining": result.WaitRemaining.Round(time.Second).String(),
			"streak":         result.State,
		})
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"status": "reward_granted",
		"streak": result.State,
	})
}

// GetStreakStatus returns the current streak state without mutating it
func (h *Handler) GetStreakStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	streak, err := h.engine.GetStreak(r.Context(), userID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to get streak", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, streak)
}

// GetProfile returns a user's live game profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	user, err := h.engine.GetProfile(r.Context(), userID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to get profile", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, user)
}

// GetLeaderboard rebuilds the standings for a window
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseWindow(chi.URLParam(r, "window"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	rows, err := h.engine.BuildLeaderboard(r.Context(), window)
	if err != nil {
		h.logger.Error("failed to build leaderboard", "window", window, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, rows)
}

// GetTopClans returns the current clan standings
func (h *Handler) GetTopClans(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	standings, err := h.engine.TopClans(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to get clan standings", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, standings)
}

// RunDistribution triggers the daily clan revenue share. The per-clan
// guard date makes repeated triggers a no-op for the same day.
func (h *Handler) RunDistribution(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RunDailyDistribution(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("failed to run distribution", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	go h.engine.PublishStandings(context.Background())

	h.writeSuccess(w, result)
}
