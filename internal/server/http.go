package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/display"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/scheduler"
	"github.com/muurk/easyremote/internal/state"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Devices []state.DeviceState `json:"devices"`
	Busy    bool                `json:"busy"`
	Pending int                 `json:"pending"`
	Screen  *display.Frame      `json:"screen,omitempty"`
}

// ShowResponse describes one catalog entry.
type ShowResponse struct {
	Name    string `json:"name"`
	App     int    `json:"app"`
	AppName string `json:"app_name"`
	Channel string `json:"channel"`
	Color   string `json:"color"`
	Button  *int   `json:"button,omitempty"`
}

// LaunchRequest is the body of POST /api/devices/{device}/launch.
type LaunchRequest struct {
	Show string `json:"show"`
}

// AcceptedResponse reports a queued event.
type AcceptedResponse struct {
	Queued string `json:"queued"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Devices: s.deps.States.Snapshot(),
		Screen:  s.hub.Current(),
	}
	if s.deps.Busy != nil {
		resp.Busy = s.deps.Busy()
	}
	if s.deps.Pending != nil {
		resp.Pending = s.deps.Pending()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShows(w http.ResponseWriter, r *http.Request) {
	shows := s.deps.Catalog.Shows()
	out := make([]ShowResponse, 0, len(shows))
	for _, show := range shows {
		sr := ShowResponse{
			Name:    show.Name,
			App:     int(show.App),
			AppName: show.App.String(),
			Channel: show.Channel,
			Color:   fmt.Sprintf("#%06X", show.Color),
		}
		if show.Button != catalog.NoButton {
			b := show.Button
			sr.Button = &b
		}
		out = append(out, sr)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	device, ok := s.device(w, r)
	if !ok {
		return
	}
	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Show == "" {
		writeError(w, http.StatusBadRequest, "show is required")
		return
	}
	if _, ok := s.deps.Catalog.Show(req.Show); !ok {
		writeError(w, http.StatusNotFound, "unknown show %q", req.Show)
		return
	}
	s.submit(w, scheduler.LaunchShow(device, req.Show))
}

func (s *Server) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	device, ok := s.device(w, r)
	if !ok {
		return
	}
	s.submit(w, scheduler.PowerOffDevice(device))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	device, ok := s.device(w, r)
	if !ok {
		return
	}
	var up bool
	switch dir := chi.URLParam(r, "direction"); dir {
	case "up":
		up = true
	case "down":
	default:
		writeError(w, http.StatusBadRequest, "volume direction must be up or down, got %q", dir)
		return
	}
	s.submit(w, scheduler.ChangeVolume(device, up))
}

func (s *Server) handleButton(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "button"))
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid button %q", chi.URLParam(r, "button"))
		return
	}
	s.submit(w, scheduler.ButtonPress(n))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.submit(w, scheduler.Refresh())
}

func (s *Server) device(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "device")
	if _, ok := s.deps.States.Device(name); !ok {
		writeError(w, http.StatusNotFound, "unknown device %q", name)
		return "", false
	}
	return name, true
}

func (s *Server) submit(w http.ResponseWriter, e scheduler.Event) {
	if !s.deps.Events.Submit(e) {
		writeError(w, http.StatusServiceUnavailable, "event queue full")
		return
	}
	logging.Debug("Queued HTTP request", zap.Stringer("event", e))
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Queued: e.String()})
}
