package embedclient

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCohereClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != cohereEmbedModel {
			t.Errorf("expected model %q, got %q", cohereEmbedModel, req.Model)
		}
		if req.InputType != "search_document" {
			t.Errorf("expected input_type search_document, got %q", req.InputType)
		}
		if len(req.Texts) != 1 || req.Texts[0] != "hello" {
			t.Errorf("expected single text 'hello', got %v", req.Texts)
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	c := newCohereClientWithBaseURL("key", srv.URL)
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}
}

func TestCohereClient_EmptyEmbeddingsIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: nil})
	}))
	defer srv.Close()

	c := newCohereClientWithBaseURL("key", srv.URL)
	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for empty embeddings")
	}
}

func TestCohereClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid api key"))
	}))
	defer srv.Close()

	c := newCohereClientWithBaseURL("key", srv.URL)
	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for 401 status")
	}
}

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClient(64)
	ctx := context.Background()

	a, err := c.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	b, err := c.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if len(a) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic output, differed at index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestMockClient_Normalized(t *testing.T) {
	c := NewMockClient(32)
	vec, err := c.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-4 {
		t.Errorf("expected unit-norm vector, got norm %f", norm)
	}
}

func TestMockClient_DistinctTexts(t *testing.T) {
	c := NewMockClient(32)
	ctx := context.Background()
	a, _ := c.Embed(ctx, "foo")
	b, _ := c.Embed(ctx, "bar")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("expected distinct texts to produce distinct embeddings")
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New("unsupported", "key"); err == nil {
		t.Fatalf("expected error for unknown client type")
	}
}
