package durable_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/config"
	"quill/internal/durable"
	"quill/internal/services"
)

func newClient(t *testing.T, baseURL string) *durable.Client {
	t.Helper()
	cfg := config.Default()
	cfg.DurableStore.BaseURL = baseURL
	cfg.DurableStore.Token = "secret"
	client := durable.NewClient(&cfg)
	if client == nil {
		t.Fatal("expected client")
	}
	return client
}

func TestNewClientDisabledWithoutBaseURL(t *testing.T) {
	cfg := config.Default()
	if client := durable.NewClient(&cfg); client != nil {
		t.Fatal("expected nil client without base URL")
	}
}

func TestGetStateNotFoundIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fields, err := newClient(t, server.URL).GetState(context.Background(), "w1", "state_history")
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
	if fields != nil {
		t.Fatalf("expected nil fields for 404, got %v", fields)
	}
}

func TestPutAndGetStateWireFormat(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	var gotBody map[string]json.RawMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("fields")
		switch r.Method {
		case http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{
				"state_history": json.RawMessage(`{"content":[]}`),
			})
		}
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	ctx := context.Background()

	err := client.PutState(ctx, "w1", map[string]json.RawMessage{
		"state_history": json.RawMessage(`{"content":[]}`),
	})
	if err != nil {
		t.Fatalf("put state: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotPath != "/state/w1" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if _, ok := gotBody["state_history"]; !ok {
		t.Fatalf("body missing state_history: %v", gotBody)
	}

	fields, err := client.GetState(ctx, "w1", "state_history", "events")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if gotQuery != "state_history,events" {
		t.Fatalf("unexpected fields query: %q", gotQuery)
	}
	if _, ok := fields["state_history"]; !ok {
		t.Fatalf("response missing state_history: %v", fields)
	}
}

func TestClearSendsAllWhenNoFields(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	if err := client.Clear(context.Background(), "w1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if gotBody["clear"] != "all" {
		t.Fatalf("expected clear=all, got %v", gotBody["clear"])
	}

	if err := client.Clear(context.Background(), "w1", "events"); err != nil {
		t.Fatalf("clear fields: %v", err)
	}
	list, ok := gotBody["clear"].([]any)
	if !ok || len(list) != 1 || list[0] != "events" {
		t.Fatalf("expected clear=[events], got %v", gotBody["clear"])
	}
}

func TestUnreachableServerIsClassified(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:1")
	_, err := client.GetState(context.Background(), "w1")
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable classification, got %v", err)
	}
}

func TestServerErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newClient(t, server.URL).PutState(context.Background(), "w1", nil)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable classification, got %v", err)
	}
}
