package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

type healthStatus string

const (
	statusUp   healthStatus = "UP"
	statusDown healthStatus = "DOWN"
)

type check struct {
	Name   string         `json:"name"`
	Status healthStatus   `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
}

type healthResponse struct {
	Status healthStatus `json:"status"`
	Checks []check      `json:"checks"`
}

type service struct {
	dependency string
	failRate   float64
	latency    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func newService(dependency string, failRate float64, latency time.Duration) *service {
	return &service{
		dependency: dependency,
		failRate:   failRate,
		latency:    latency,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /q/health", s.handle(s.health))
	mux.HandleFunc("GET /q/health/live", s.handle(s.liveness))
	mux.HandleFunc("GET /q/health/ready", s.handle(s.readiness))
	mux.HandleFunc("POST /oauth/token", handleOAuthToken)
	return mux
}

func (s *service) handle(fn func() healthResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}
		resp := fn()
		code := http.StatusOK
		if resp.Status == statusDown {
			code = http.StatusServiceUnavailable
		}
		respondJSON(w, code, resp)
	}
}

func (s *service) liveness() healthResponse {
	return healthResponse{Status: statusUp, Checks: []check{}}
}

func (s *service) readiness() healthResponse {
	if s.dependencyFails() {
		return healthResponse{
			Status: statusDown,
			Checks: []check{{
				Name:   s.dependency,
				Status: statusDown,
				Data:   map[string]any{"error": "dependency unavailable"},
			}},
		}
	}
	return healthResponse{
		Status: statusUp,
		Checks: []check{{Name: s.dependency, Status: statusUp}},
	}
}

// health combines liveness and readiness; either being DOWN makes it DOWN.
func (s *service) health() healthResponse {
	live, ready := s.liveness(), s.readiness()
	resp := healthResponse{Status: statusUp, Checks: append(live.Checks, ready.Checks...)}
	if live.Status == statusDown || ready.Status == statusDown {
		resp.Status = statusDown
	}
	return resp
}

func (s *service) dependencyFails() bool {
	if s.failRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < s.failRate
}

func handleOAuthToken(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": "healthstub-token",
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
