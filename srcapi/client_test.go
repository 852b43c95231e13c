package srcapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const listBody = `{"data":[
	{"id":"r1","weblink":"https://www.speedrun.com/oot/run/r1","date":"2025-06-01",
	 "status":{"status":"new"},
	 "times":{"primary_t":125.3},
	 "system":{"emulated":false},
	 "category":{"data":{"name":"Any%"}},
	 "platform":{"data":{"name":"N64"}},
	 "players":{"data":[{"rel":"user","names":{"international":"Alice"}}]}},
	{"id":"r2","weblink":"https://www.speedrun.com/oot/run/r2","date":"2025-06-02",
	 "status":{"status":"new"},
	 "times":{"primary_t":3725.0},
	 "system":{"emulated":true},
	 "category":{"data":{"name":"100%"}},
	 "platform":{"data":{"name":"Wii VC"}},
	 "players":{"data":[{"rel":"guest","name":"Bob"}]}}
]}`

func TestListPendingRuns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runs" {
			t.Errorf("path = %s, want /runs", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("game") != "j1l9qz1g" {
			t.Errorf("game = %s, want j1l9qz1g", q.Get("game"))
		}
		if q.Get("status") != "new" {
			t.Errorf("status = %s, want new", q.Get("status"))
		}
		if q.Get("max") != "100" {
			t.Errorf("max = %s, want 100", q.Get("max"))
		}
		if q.Get("embed") != "category,platform,players" {
			t.Errorf("embed = %s", q.Get("embed"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listBody))
	}))
	defer server.Close()

	client := &Client{BaseURL: server.URL, GameID: "j1l9qz1g"}
	runs, err := client.ListPendingRuns(context.Background())
	if err != nil {
		t.Fatalf("ListPendingRuns() unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}

	r1 := runs[0]
	if r1.ID != "r1" || r1.Category != "Any%" || r1.Platform != "N64" || r1.Player != "Alice" {
		t.Errorf("r1 parsed wrong: %+v", r1)
	}
	if r1.TimeSec != 125.3 || r1.Status != "new" || r1.Emulated {
		t.Errorf("r1 parsed wrong: %+v", r1)
	}

	// Guest players only carry a flat name.
	r2 := runs[1]
	if r2.Player != "Bob" {
		t.Errorf("r2 player = %q, want guest fallback Bob", r2.Player)
	}
	if !r2.Emulated {
		t.Error("r2 should be emulated")
	}
}

func TestListPendingRunsFailures(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"rate limited", http.StatusTooManyRequests, ""},
		{"malformed payload", http.StatusOK, `{"data": not-json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := &Client{BaseURL: server.URL, GameID: "g1"}
			if _, err := client.ListPendingRuns(context.Background()); err == nil {
				t.Error("ListPendingRuns() want error, got nil")
			}
		})
	}
}

func TestGetRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/runs/r1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"id":"r1","weblink":"https://example.test/r1","date":"2025-06-01",
				"status":{"status":"verified"},
				"times":{"primary_t":45.5},
				"category":{"data":{"name":"Any%"}},
				"platform":{"data":{"name":"N64"}},
				"players":{"data":[{"rel":"user","names":{"international":"Alice"}}]}}}`))
		case "/runs/gone":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := &Client{BaseURL: server.URL, GameID: "g1"}

	run, err := client.GetRun(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRun(r1) unexpected error: %v", err)
	}
	if run == nil || run.Status != "verified" || run.TimeSec != 45.5 {
		t.Errorf("GetRun(r1) = %+v", run)
	}

	// 404 means deleted upstream: no run, no error.
	run, err = client.GetRun(context.Background(), "gone")
	if err != nil {
		t.Fatalf("GetRun(gone) unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("GetRun(gone) = %+v, want nil", run)
	}

	// Anything else is a transient failure and must not look like deletion.
	run, err = client.GetRun(context.Background(), "boom")
	if err == nil {
		t.Error("GetRun(boom) want error, got nil")
	}
	if run != nil {
		t.Errorf("GetRun(boom) run = %+v, want nil", run)
	}
}

func TestGetRunEmptyID(t *testing.T) {
	client := &Client{GameID: "g1"}
	if _, err := client.GetRun(context.Background(), ""); err == nil {
		t.Error("GetRun(\"\") want error, got nil")
	}
}

func TestRunPayloadFallbacks(t *testing.T) {
	p := &runPayload{ID: "r9"}
	run := p.toRun()
	if run.Category != "Unknown Category" {
		t.Errorf("Category = %q", run.Category)
	}
	if run.Platform != "Unknown Platform" {
		t.Errorf("Platform = %q", run.Platform)
	}
	if run.Player != "Unknown Player" {
		t.Errorf("Player = %q", run.Player)
	}
	if run.Date != "Unknown" {
		t.Errorf("Date = %q", run.Date)
	}
}
