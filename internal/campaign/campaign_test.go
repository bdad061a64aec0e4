package campaign_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leadline/internal/campaign"
	"leadline/internal/db"
	"leadline/internal/engine"
	"leadline/internal/migrate"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaigns.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validFile = `campaigns:
  - name: welcome
    trigger:
      kind: lead.created
    actions:
      - kind: LOG_NOTE
        body: welcome aboard
  - name: hot-alert
    active: false
    trigger:
      kind: score.changed
      min_score: 70
    actions:
      - kind: SEND_EMAIL
        subject: hot lead
        body: "{{first_name}} just crossed 70"
`

func TestLoadValidFile(t *testing.T) {
	defs, err := campaign.Load(writeFile(t, validFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if !defs[0].IsActive() {
		t.Fatal("active should default to true")
	}
	if defs[1].IsActive() {
		t.Fatal("hot-alert is explicitly inactive")
	}
	cond := defs[1].Condition()
	if cond.MinScore == nil || *cond.MinScore != 70 {
		t.Fatalf("min_score not carried: %+v", cond)
	}
}

func TestLoadRejectsUnknownTriggerKind(t *testing.T) {
	path := writeFile(t, `campaigns:
  - name: broken
    trigger:
      kind: lead.vanished
    actions:
      - kind: LOG_NOTE
        body: x
`)
	_, err := campaign.Load(path)
	if err == nil {
		t.Fatal("expected error for unknown trigger kind")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("error should name the campaign: %v", err)
	}
}

func TestLoadRejectsMissingName(t *testing.T) {
	path := writeFile(t, `campaigns:
  - trigger:
      kind: lead.created
    actions:
      - kind: LOG_NOTE
        body: x
`)
	if _, err := campaign.Load(path); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	if _, err := campaign.Load(writeFile(t, "campaigns: []\n")); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func newEngine(t *testing.T) *engine.Engine {
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
	return e
}

func TestImportUpsertsByName(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	path := writeFile(t, validFile)

	res, err := campaign.Import(ctx, e, "agent-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 || res.Updated != 0 {
		t.Fatalf("first import: %+v", res)
	}

	res, err = campaign.Import(ctx, e, "agent-1", path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 0 || res.Updated != 2 {
		t.Fatalf("second import: %+v", res)
	}

	all, err := e.Repo.ListCampaigns(ctx, "agent-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 stored campaigns, got %d", len(all))
	}
	for _, c := range all {
		if c.Name == "hot-alert" && c.Active {
			t.Fatal("hot-alert should import inactive")
		}
	}
}

func TestImportOneBadCampaignWritesNothing(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	path := writeFile(t, `campaigns:
  - name: good
    trigger:
      kind: lead.created
    actions:
      - kind: LOG_NOTE
        body: ok
  - name: bad
    trigger:
      kind: nope
    actions:
      - kind: LOG_NOTE
        body: x
`)
	if _, err := campaign.Import(ctx, e, "agent-1", path); err == nil {
		t.Fatal("expected import error")
	}
	all, err := e.Repo.ListCampaigns(ctx, "agent-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("bad file should import nothing, got %d campaigns", len(all))
	}
}
