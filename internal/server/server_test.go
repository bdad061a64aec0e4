package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"leadline/internal/db"
	"leadline/internal/dispatch"
	"leadline/internal/domain"
	"leadline/internal/engine"
	"leadline/internal/migrate"
	"leadline/internal/notify"
	"leadline/internal/server"
)

type testServer struct {
	URL    string
	Client *http.Client
	Engine *engine.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	if _, err := db.EnsureWorkspace(dir); err != nil {
		t.Fatal(err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	e := engine.New(conn)
	e.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	d := dispatch.New(e, notify.NewLogNotifier(zap.NewNop()), zap.NewNop())
	e.Sink = d
	handler, err := server.New(server.Config{
		Engine:     e,
		Dispatcher: d,
		AgentID:    "agent-1",
		BasePath:   "/v1",
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{URL: srv.URL, Client: srv.Client(), Engine: e}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, s.URL+"/v1"+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := s.Client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(res.Body); err != nil {
		t.Fatal(err)
	}
	return res, out.Bytes()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	res, body := s.do(t, http.MethodGet, "/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.StatusCode, body)
	}
}

func TestIntakeRejectsMissingPhone(t *testing.T) {
	s := newTestServer(t)
	res, body := s.do(t, http.MethodPost, "/intake", map[string]any{
		"first_name": "Ada",
		"last_name":  "Baker",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("error envelope: %v in %s", err, body)
	}
	if envelope.Error.Code != "bad_request" {
		t.Fatalf("expected bad_request, got %q", envelope.Error.Code)
	}
}

func TestIntakeCreatesAndMerges(t *testing.T) {
	s := newTestServer(t)
	payload := map[string]any{
		"first_name":      "Ada",
		"last_name":       "Baker",
		"phone":           "555-0100",
		"coverage_amount": 250000,
		"source":          "web",
	}
	res, body := s.do(t, http.MethodPost, "/intake", payload)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.StatusCode, body)
	}
	var first struct {
		Lead   domain.Lead `json:"lead"`
		Merged bool        `json:"merged"`
	}
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatal(err)
	}
	if first.Merged || first.Lead.Score != 30 {
		t.Fatalf("unexpected intake result %+v", first)
	}

	res, body = s.do(t, http.MethodPost, "/intake", payload)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on resubmit, got %d: %s", res.StatusCode, body)
	}
	var second struct {
		Lead   domain.Lead `json:"lead"`
		Merged bool        `json:"merged"`
	}
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatal(err)
	}
	if !second.Merged || second.Lead.ID != first.Lead.ID {
		t.Fatalf("resubmission should merge into %s, got %+v", first.Lead.ID, second)
	}
}

func TestLeadLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	res, body := s.do(t, http.MethodPost, "/leads", map[string]any{
		"first_name":   "Cleo",
		"last_name":    "Dane",
		"phone":        "555-0200",
		"intent_level": "HOT",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, body)
	}
	var lead domain.Lead
	if err := json.Unmarshal(body, &lead); err != nil {
		t.Fatal(err)
	}
	if lead.Score != 50 {
		t.Fatalf("hot lead baseline should be 50, got %d", lead.Score)
	}

	res, body = s.do(t, http.MethodPost, fmt.Sprintf("/leads/%s/activities", lead.ID), map[string]any{
		"type":    "CALL_OUTBOUND",
		"outcome": "INTERESTED",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("log activity: %d %s", res.StatusCode, body)
	}
	var logged struct {
		Lead domain.Lead `json:"lead"`
	}
	if err := json.Unmarshal(body, &logged); err != nil {
		t.Fatal(err)
	}
	if logged.Lead.Status != domain.LeadContacted {
		t.Fatalf("expected CONTACTED, got %s", logged.Lead.Status)
	}

	res, body = s.do(t, http.MethodPut, fmt.Sprintf("/leads/%s/status", lead.ID), map[string]any{
		"status": "QUALIFIED",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set status: %d %s", res.StatusCode, body)
	}

	res, body = s.do(t, http.MethodGet, fmt.Sprintf("/leads/%s/score", lead.ID), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("score: %d %s", res.StatusCode, body)
	}
	var explain struct {
		Score     int `json:"score"`
		Breakdown struct {
			Intent int `json:"intent"`
		} `json:"breakdown"`
	}
	if err := json.Unmarshal(body, &explain); err != nil {
		t.Fatal(err)
	}
	if explain.Breakdown.Intent != 50 {
		t.Fatalf("expected intent component 50, got %d", explain.Breakdown.Intent)
	}
}

func TestGetLeadNotFound(t *testing.T) {
	s := newTestServer(t)
	res, body := s.do(t, http.MethodGet, "/leads/nope", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, body)
	}
}

func TestPolicyIssueOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	lead, err := s.Engine.CreateLead(ctx, engine.LeadCreateOptions{
		AgentID: "agent-1", FirstName: "Eve", LastName: "Frost", Phone: "555-0300",
	})
	if err != nil {
		t.Fatal(err)
	}
	res, body := s.do(t, http.MethodPost, "/policies", map[string]any{
		"lead_id":      lead.ID,
		"carrier":      "Acme Life",
		"product_type": "TERM_LIFE",
		"premium":      1200,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create policy: %d %s", res.StatusCode, body)
	}
	var policy domain.Policy
	if err := json.Unmarshal(body, &policy); err != nil {
		t.Fatal(err)
	}

	res, body = s.do(t, http.MethodPut, fmt.Sprintf("/policies/%s/status", policy.ID), map[string]any{
		"status": "ISSUED",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("issue: %d %s", res.StatusCode, body)
	}

	res, body = s.do(t, http.MethodGet, "/commissions?policy_id="+policy.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list commissions: %d %s", res.StatusCode, body)
	}
	var commissions []domain.Commission
	if err := json.Unmarshal(body, &commissions); err != nil {
		t.Fatal(err)
	}
	if len(commissions) != 1 || commissions[0].Amount != 1080 {
		t.Fatalf("expected one 1080 commission, got %+v", commissions)
	}
}

func TestCampaignCRUDOverHTTP(t *testing.T) {
	s := newTestServer(t)
	res, body := s.do(t, http.MethodPost, "/campaigns", map[string]any{
		"name":   "welcome",
		"active": true,
		"trigger": map[string]any{
			"kind": "lead.created",
		},
		"actions": []map[string]any{
			{"kind": "LOG_NOTE", "body": "hello"},
		},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create campaign: %d %s", res.StatusCode, body)
	}
	var c domain.Campaign
	if err := json.Unmarshal(body, &c); err != nil {
		t.Fatal(err)
	}

	res, body = s.do(t, http.MethodPost, "/campaigns", map[string]any{
		"name":    "broken",
		"active":  true,
		"trigger": map[string]any{"kind": "bogus"},
		"actions": []map[string]any{{"kind": "LOG_NOTE", "body": "x"}},
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid trigger should 400, got %d: %s", res.StatusCode, body)
	}

	res, body = s.do(t, http.MethodDelete, fmt.Sprintf("/campaigns/%s", c.ID), nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d %s", res.StatusCode, body)
	}
}

func TestDashboardOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	if _, err := s.Engine.CreateLead(ctx, engine.LeadCreateOptions{
		AgentID: "agent-1", FirstName: "Gus", LastName: "Hale", Phone: "555-0400",
	}); err != nil {
		t.Fatal(err)
	}
	res, body := s.do(t, http.MethodGet, "/dashboard", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: %d %s", res.StatusCode, body)
	}
	var d struct {
		LeadsByStatus map[string]int `json:"leads_by_status"`
	}
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if d.LeadsByStatus["NEW"] != 1 {
		t.Fatalf("expected 1 NEW lead, got %+v", d.LeadsByStatus)
	}
}
