package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quirybot/pipeline/internal/retriever"
)

type fakeAsker struct {
	answer string
	mode   retriever.Mode
	err    error
}

func (f *fakeAsker) Ask(ctx context.Context, query, guildID, channelID string) (string, retriever.Mode, error) {
	return f.answer, f.mode, f.err
}

func TestAskHandler_Success(t *testing.T) {
	h := NewAskHandler(&fakeAsker{answer: "42", mode: retriever.ModeHybrid})

	body, _ := json.Marshal(askRequest{Query: "what is the answer", ChannelID: "c1"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp askResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Answer != "42" || resp.Mode != string(retriever.ModeHybrid) {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAskHandler_MissingQuery(t *testing.T) {
	h := NewAskHandler(&fakeAsker{})

	body, _ := json.Marshal(askRequest{ChannelID: "c1"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAskHandler_WrongMethod(t *testing.T) {
	h := NewAskHandler(&fakeAsker{})

	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
