package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// DurableServer is an in-memory fake of the durable store wire protocol, for
// use with httptest. Records are keyed by work id, fields by name.
type DurableServer struct {
	mu      sync.Mutex
	records map[string]map[string]json.RawMessage
	failing bool

	Server *httptest.Server
}

// NewDurableServer starts a fake durable store and registers cleanup.
func NewDurableServer(t testing.TB) *DurableServer {
	t.Helper()

	ds := &DurableServer{records: make(map[string]map[string]json.RawMessage)}
	ds.Server = httptest.NewServer(http.HandlerFunc(ds.handle))
	t.Cleanup(ds.Server.Close)
	return ds
}

// URL returns the fake server's base URL.
func (d *DurableServer) URL() string {
	return d.Server.URL
}

// SetFailing toggles 503 responses for every request, simulating an
// unreachable durable store.
func (d *DurableServer) SetFailing(failing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failing = failing
}

// Fields returns a copy of the stored fields for a work id.
func (d *DurableServer) Fields(workID string) map[string]json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	fields, ok := d.records[workID]
	if !ok {
		return nil
	}
	cp := make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		cp[name] = value
	}
	return cp
}

func (d *DurableServer) handle(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failing {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	action, workID := parts[0], parts[1]

	switch {
	case action == "state" && r.Method == http.MethodPost:
		var fields map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		record, ok := d.records[workID]
		if !ok {
			record = make(map[string]json.RawMessage)
			d.records[workID] = record
		}
		for name, value := range fields {
			record[name] = value
		}
		w.WriteHeader(http.StatusOK)

	case action == "state" && r.Method == http.MethodGet:
		record, ok := d.records[workID]
		if !ok {
			http.NotFound(w, r)
			return
		}
		response := record
		if raw := r.URL.Query().Get("fields"); raw != "" {
			response = make(map[string]json.RawMessage)
			for _, name := range strings.Split(raw, ",") {
				if value, ok := record[name]; ok {
					response[name] = value
				}
			}
		}
		_ = json.NewEncoder(w).Encode(response)

	case action == "clear" && r.Method == http.MethodPost:
		var req struct {
			Clear json.RawMessage `json:"clear"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var all string
		if err := json.Unmarshal(req.Clear, &all); err == nil && all == "all" {
			delete(d.records, workID)
			w.WriteHeader(http.StatusOK)
			return
		}
		var names []string
		if err := json.Unmarshal(req.Clear, &names); err != nil {
			http.Error(w, "invalid clear payload", http.StatusBadRequest)
			return
		}
		if record, ok := d.records[workID]; ok {
			for _, name := range names {
				delete(record, name)
			}
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.NotFound(w, r)
	}
}
