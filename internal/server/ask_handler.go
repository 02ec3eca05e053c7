// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quirybot/pipeline/internal/retriever"
)

// Asker answers a retrieval question, returning the answer text and the
// fallback tier that served it.
type Asker interface {
	Ask(ctx context.Context, query, guildID, channelID string) (answer string, mode retriever.Mode, err error)
}

type askRequest struct {
	Query     string `json:"query"`
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id"`
}

type askResponse struct {
	Answer string `json:"answer"`
	Mode   string `json:"mode"`
}

// NewAskHandler returns a POST /ask handler backed by a Retriever.
func NewAskHandler(asker Asker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		answer, mode, err := asker.Ask(r.Context(), req.Query, req.GuildID, req.ChannelID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("ask failed: %v", err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(askResponse{Answer: answer, Mode: string(mode)})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
