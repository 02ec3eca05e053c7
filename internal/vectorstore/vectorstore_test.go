package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStore_Upsert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("expected path /vectors/upsert, got %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "key" {
			t.Errorf("expected Api-Key header, got %q", r.Header.Get("Api-Key"))
		}
		var req upsertRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Namespace != "default" {
			t.Errorf("expected namespace default, got %q", req.Namespace)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New("key", srv.URL, "default")
	err := s.Upsert(context.Background(), []Vector{{ID: "1", Values: []float32{0.1, 0.2}, Metadata: map[string]string{"text": "hi"}}})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
}

func TestStore_Query_GuildFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		json.NewDecoder(r.Body).Decode(&req)
		eq, ok := req.Filter["guild_id"].(map[string]any)["$eq"]
		if !ok || eq != "guild-1" {
			t.Errorf("expected $eq guild-1 filter, got %+v", req.Filter)
		}
		json.NewEncoder(w).Encode(queryResponse{Matches: []Match{{ID: "m1", Score: 0.9}}})
	}))
	defer srv.Close()

	s := New("key", srv.URL, "default")
	matches, err := s.Query(context.Background(), []float32{0.1, 0.2}, 5, "guild-1", "")
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "m1" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestStore_Query_DMExistsFalseFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		json.NewDecoder(r.Body).Decode(&req)
		exists, ok := req.Filter["guild_id"].(map[string]any)["$exists"]
		if !ok || exists != false {
			t.Errorf("expected $exists:false filter for DM, got %+v", req.Filter)
		}
		json.NewEncoder(w).Encode(queryResponse{})
	}))
	defer srv.Close()

	s := New("key", srv.URL, "default")
	if _, err := s.Query(context.Background(), []float32{0.1}, 5, "", ""); err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
}

func TestStore_Query_ItemTypeFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		json.NewDecoder(r.Body).Decode(&req)
		and, ok := req.Filter["$and"].([]any)
		if !ok || len(and) != 2 {
			t.Fatalf("expected $and of guild and type filters, got %+v", req.Filter)
		}
		typeClause := and[1].(map[string]any)["type"].(map[string]any)
		if typeClause["$eq"] != "chunk" {
			t.Errorf("expected type $eq chunk, got %+v", typeClause)
		}
		json.NewEncoder(w).Encode(queryResponse{})
	}))
	defer srv.Close()

	s := New("key", srv.URL, "default")
	if _, err := s.Query(context.Background(), []float32{0.1}, 3, "guild-1", "chunk"); err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
}

func TestStore_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New("key", srv.URL, "default")
	if err := s.Upsert(context.Background(), []Vector{{ID: "1"}}); err == nil {
		t.Fatalf("expected error for 500 status")
	}
}
