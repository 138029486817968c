package simulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP is the timeline control surface used by the menu/scrubber UI: play
// state, seeking, strategy commands and weather triggers, plus the websocket
// endpoint render sinks subscribe to.
type HTTP struct {
	server *http.Server
	logger Logger

	port      uint16
	simulator *Server
}

func NewHTTP(port uint16, simulator *Server, logger Logger) *HTTP {
	return &HTTP{
		port:      port,
		simulator: simulator,
		logger:    logger,
	}
}

func (h *HTTP) Listen() error {
	h.logger.Infof("HTTP control surface listening on port: %d", h.port)

	h.server = &http.Server{
		Handler: h.Router(),
		Addr:    fmt.Sprintf(":%d", h.port),
	}

	go func() {
		err := h.server.ListenAndServe()

		if err == http.ErrServerClosed {
			return
		} else if err != nil {
			h.logger.WithError(err).Errorf("Could not start HTTP server")
		}
	}()

	return nil
}

func (h *HTTP) Shutdown() error {
	if h.server == nil {
		return nil
	}

	return h.server.Close()
}

func (h *HTTP) Router() http.Handler {
	router := chi.NewRouter()

	router.Get("/state", h.State)
	router.Get("/session", h.Session)
	router.Get("/live", h.simulator.hub.serveWS)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	router.Post("/pause", h.Pause)
	router.Post("/resume", h.Resume)
	router.Post("/seek", h.Seek)
	router.Post("/mode", h.Mode)
	router.Post("/pit", h.Pit)
	router.Post("/pit/cancel", h.CancelPit)
	router.Post("/rain", h.Rain)
	router.Post("/drying", h.Drying)
	router.Post("/speed", h.Speed)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

func (h *HTTP) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Errorf("Could not encode HTTP response")
	}
}

func (h *HTTP) State(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.simulator.Snapshot())
}

type sessionResponse struct {
	RaceID    string        `json:"race_id"`
	Name      string        `json:"name"`
	TrackName string        `json:"track_name"`
	TotalLaps int           `json:"total_laps"`
	Total     time.Duration `json:"total"`
	Cursor    time.Duration `json:"cursor"`
	Status    string        `json:"status"`
	Excluded  []string      `json:"excluded,omitempty"`
}

func (h *HTTP) Session(w http.ResponseWriter, r *http.Request) {
	timeline := h.simulator.Timeline()
	session := timeline.Session()

	// the tick loop rewrites the cursor and the race duration on every tick
	h.simulator.mutex.Lock()
	cursor := timeline.Cursor()
	status := timeline.Status().String()
	total := timeline.TotalDuration()
	excluded := timeline.ExcludedDrivers()
	h.simulator.mutex.Unlock()

	h.writeJSON(w, sessionResponse{
		RaceID:    session.RaceID,
		Name:      session.Name,
		TrackName: session.TrackName,
		TotalLaps: session.TotalLaps,
		Total:     total,
		Cursor:    cursor,
		Status:    status,
		Excluded:  excluded,
	})
}

func (h *HTTP) Pause(w http.ResponseWriter, r *http.Request) {
	h.simulator.Pause()
	h.writeJSON(w, h.simulator.Snapshot())
}

func (h *HTTP) Resume(w http.ResponseWriter, r *http.Request) {
	h.simulator.Resume()
	h.writeJSON(w, h.simulator.Snapshot())
}

type seekRequest struct {
	Lap    *int   `json:"lap"`
	TimeMs *int64 `json:"time_ms"`
}

func (h *HTTP) Seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed seek request", http.StatusBadRequest)
		return
	}

	switch {
	case req.Lap != nil:
		h.simulator.SeekLap(*req.Lap)
	case req.TimeMs != nil:
		h.simulator.SeekTime(time.Duration(*req.TimeMs) * time.Millisecond)
	default:
		http.Error(w, "seek requires a lap or a time_ms target", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, h.simulator.Snapshot())
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *HTTP) Mode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed mode request", http.StatusBadRequest)
		return
	}

	mode, ok := ParseDrivingMode(req.Mode)

	if !ok {
		http.Error(w, fmt.Sprintf("unknown driving mode: %s", req.Mode), http.StatusBadRequest)
		return
	}

	h.simulator.SetMode(mode)
	h.writeJSON(w, h.simulator.Snapshot())
}

type pitRequestBody struct {
	Lap      int    `json:"lap"`
	Compound string `json:"compound"`
}

func (h *HTTP) Pit(w http.ResponseWriter, r *http.Request) {
	var req pitRequestBody

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed pit request", http.StatusBadRequest)
		return
	}

	// an absent compound keeps the set in use at the stop
	var compound TyreCompound

	if req.Compound != "" {
		compound = ParseTyreCompound(req.Compound)
	}

	if err := h.simulator.QueuePit(req.Lap, compound); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeJSON(w, h.simulator.Snapshot())
}

func (h *HTTP) CancelPit(w http.ResponseWriter, r *http.Request) {
	var req pitRequestBody

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed pit cancel request", http.StatusBadRequest)
		return
	}

	if !h.simulator.CancelPit(req.Lap) {
		http.Error(w, fmt.Sprintf("no pit stop queued for lap %d", req.Lap), http.StatusUnprocessableEntity)
		return
	}

	h.writeJSON(w, h.simulator.Snapshot())
}

func (h *HTTP) Rain(w http.ResponseWriter, r *http.Request) {
	h.simulator.ActivateRain()
	h.writeJSON(w, h.simulator.Snapshot())
}

func (h *HTTP) Drying(w http.ResponseWriter, r *http.Request) {
	h.simulator.ActivateDrying()
	h.writeJSON(w, h.simulator.Snapshot())
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

func (h *HTTP) Speed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed speed request", http.StatusBadRequest)
		return
	}

	h.simulator.SetSpeed(req.Multiplier)
	h.writeJSON(w, h.simulator.Snapshot())
}
