// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"encoding/json"
	"net/http"

	"github.com/quirybot/pipeline/internal/supervisor"
)

// healthResponse reports the four named collaborators health.rs enumerates
// in the original implementation, renamed to this repo's collaborator
// names: log, vector_store, keyword_index, chat_model.
type healthResponse struct {
	Status        string            `json:"status"`
	Collaborators map[string]string `json:"collaborators"`
}

// NewHealthHandler returns a GET /health handler reporting the supervisor's
// last-known status for every registered collaborator.
func NewHealthHandler(sup *supervisor.Supervisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := sup.Snapshot()
		collaborators := make(map[string]string, len(snapshot))
		for name, status := range snapshot {
			collaborators[name] = string(status)
		}

		status := "up"
		if !sup.Healthy() {
			status = "degraded"
		}

		// Degraded is still a 200: the pipeline keeps serving via fallback tiers.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(healthResponse{Status: status, Collaborators: collaborators})
	}
}
