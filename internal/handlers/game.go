package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/pkg/chat"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
	"github.com/jwebster45206/adventure-console/pkg/typewriter"
	"github.com/jwebster45206/adventure-console/pkg/world"
)

// WorldRequest selects a world by key.
type WorldRequest struct {
	World string `json:"world"`
}

// PreferencesRequest changes player preferences. Omitted fields are left
// alone.
type PreferencesRequest struct {
	Muted     *bool   `json:"muted,omitempty"`
	TextSpeed *string `json:"textSpeed,omitempty"`
}

type LogResponse struct {
	Session uint64           `json:"session"`
	Entries []storylog.Entry `json:"entries"`
}

type WorldsResponse struct {
	Current string        `json:"current"`
	Worlds  []world.World `json:"worlds"`
}

// GameHandler exposes one orchestrator over HTTP.
type GameHandler struct {
	orch   *game.Orchestrator
	logger *slog.Logger
}

func NewGameHandler(orch *game.Orchestrator, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		orch:   orch,
		logger: logger,
	}
}

// ServeHTTP routes the game endpoints:
// GET   /v1/state        - session snapshot
// GET   /v1/log?since=id - story log, optionally after an entry
// POST  /v1/command      - submit a player command and wait for the narrator
// POST  /v1/reset        - start a fresh play-through
// POST  /v1/world        - switch world and restart
// GET   /v1/worlds       - selectable worlds
// PATCH /v1/preferences  - mute and text speed
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/v1/state":
		if h.allow(w, r, http.MethodGet) {
			writeJSON(w, h.logger, http.StatusOK, h.orch.Snapshot())
		}
	case "/v1/log":
		if h.allow(w, r, http.MethodGet) {
			h.handleLog(w, r)
		}
	case "/v1/command":
		if h.allow(w, r, http.MethodPost) {
			h.handleCommand(w, r)
		}
	case "/v1/reset":
		if h.allow(w, r, http.MethodPost) {
			h.logger.Info("Reset requested", "remote_addr", r.RemoteAddr)
			h.orch.ResetGame(detach(r))
			writeJSON(w, h.logger, http.StatusOK, h.orch.Snapshot())
		}
	case "/v1/world":
		if h.allow(w, r, http.MethodPost) {
			h.handleWorld(w, r)
		}
	case "/v1/worlds":
		if h.allow(w, r, http.MethodGet) {
			pack := h.orch.Worlds()
			writeJSON(w, h.logger, http.StatusOK, WorldsResponse{
				Current: h.orch.World().Key,
				Worlds:  pack.Worlds,
			})
		}
	case "/v1/preferences":
		if h.allow(w, r, http.MethodPatch) {
			h.handlePreferences(w, r)
		}
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *GameHandler) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	h.logger.Warn("Method not allowed",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)
	w.Header().Set("Allow", method)
	writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only "+method+" is supported.")
	return false
}

func (h *GameHandler) handleLog(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	entries := h.orch.Entries()
	if since != "" {
		entries = h.orch.EntriesSince(since)
	}
	writeJSON(w, h.logger, http.StatusOK, LogResponse{
		Session: h.orch.Session(),
		Entries: entries,
	})
}

func (h *GameHandler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var request chat.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Warn("Invalid command request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := request.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Command received", "command", request.Command, "session", h.orch.Session())

	err := h.orch.SubmitCommand(detach(r), request.Command)
	switch {
	case errors.Is(err, game.ErrProcessing), errors.Is(err, game.ErrGameOver):
		writeError(w, h.logger, http.StatusConflict, err.Error())
		return
	case errors.Is(err, game.ErrEmptyCommand):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("Command failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.orch.Snapshot())
}

func (h *GameHandler) handleWorld(w http.ResponseWriter, r *http.Request) {
	var request WorldRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := h.orch.ChangeWorld(detach(r), request.World); err != nil {
		if errors.Is(err, world.ErrUnknownWorld) {
			writeError(w, h.logger, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("World change failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.orch.Snapshot())
}

func (h *GameHandler) handlePreferences(w http.ResponseWriter, r *http.Request) {
	var request PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if request.TextSpeed != nil {
		if err := h.orch.SetTextSpeed(typewriter.Speed(*request.TextSpeed)); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
	}
	if request.Muted != nil {
		h.orch.SetMuted(*request.Muted)
	}
	writeJSON(w, h.logger, http.StatusOK, h.orch.Preferences())
}

// detach keeps a narrator turn running when the client goes away; the
// generator enforces its own timeout.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
