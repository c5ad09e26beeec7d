package server

import (
	"encoding/json"
	"net/http"
	"time"

	"coinfeed/internal/ratelimit"
	"coinfeed/internal/snapshot"
)

type pricesResponse struct {
	State     string                 `json:"state"`
	FetchedAt *time.Time             `json:"fetched_at"`
	Count     int                    `json:"count"`
	Prices    []snapshot.PriceRecord `json:"prices"`
}

type stateResponse struct {
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
	Loaded    bool   `json:"loaded"`
}

type refreshResponse struct {
	Started bool `json:"started"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) handlePrices(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Current()

	resp := pricesResponse{
		State:  s.source.State().String(),
		Count:  snap.Len(),
		Prices: snap.Records(),
	}
	if at := snap.TakenAt(); !at.IsZero() {
		at = at.UTC()
		resp.FetchedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := stateResponse{
		State:  s.source.State().String(),
		Loaded: !s.source.Current().TakenAt().IsZero(),
	}
	if err := s.source.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Limiter != nil && !s.cfg.Limiter.Allow(ratelimit.SourceManual) {
		w.Header().Set("Retry-After", "10")
		writeError(w, http.StatusTooManyRequests, "manual refresh rate limit exceeded")
		return
	}

	if !s.source.RequestRefresh(r.Context()) {
		if s.cfg.OnCoalesced != nil {
			s.cfg.OnCoalesced(string(ratelimit.SourceManual))
		}
		writeJSON(w, http.StatusOK, refreshResponse{Started: false})
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{Started: true})
}

// writeJSON marshals v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
