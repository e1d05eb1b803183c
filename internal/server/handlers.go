package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/fhem"
)

// StateResponse is the body of GET /api/psu
type StateResponse struct {
	On      bool `json:"on"`
	Enabled bool `json:"enabled"`
	Cached  bool `json:"cached"`
}

// PowerResponse is the body of POST /api/psu/{on,off}. Dispatched only
// means FHEM received the command, not that the PSU switched.
type PowerResponse struct {
	Dispatched bool `json:"dispatched"`
}

// ErrorResponse carries an operator-facing error
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/psu", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/psu/{action:on|off}", s.handlePower).Methods(http.MethodPost)
	api.HandleFunc("/settings/reload", s.handleReload).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return r
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	enabled := s.backend.Enabled()

	if item := s.cache.Get(stateKey); item != nil {
		writeJSON(w, http.StatusOK, StateResponse{On: item.Value(), Enabled: enabled, Cached: true})
		return
	}

	on := s.backend.State(r.Context())
	s.cache.Set(stateKey, on, ttlcache.DefaultTTL)
	writeJSON(w, http.StatusOK, StateResponse{On: on, Enabled: enabled})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	on := mux.Vars(r)["action"] == "on"

	if !s.backend.Enabled() {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "power control disabled",
			Hint:  "set fhem.address with 'psufhem config set address <url>'",
		})
		return
	}

	var err error
	if on {
		err = s.backend.TurnOn(r.Context())
	} else {
		err = s.backend.TurnOff(r.Context())
	}
	s.invalidate()

	if err != nil {
		s.logger.Error("Power command failed", zap.Bool("on", on), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: fhem.ShortMessage(err), Hint: fhem.Hint(err)})
		return
	}
	writeJSON(w, http.StatusAccepted, PowerResponse{Dispatched: true})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reload(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reloaded": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
