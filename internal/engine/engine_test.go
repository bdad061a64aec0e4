package engine_test

import (
	"context"
	"testing"
	"time"

	"leadline/internal/db"
	"leadline/internal/domain"
	"leadline/internal/engine"
	"leadline/internal/migrate"
	"leadline/internal/repo"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
	Now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	if _, err := db.EnsureWorkspace(dir); err != nil {
		t.Fatalf("workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	env := &testEnv{Ctx: context.Background(), Now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	env.Engine = engine.New(conn)
	env.Engine.Now = func() time.Time { return env.Now }
	return env
}

func (env *testEnv) createLead(t *testing.T) domain.Lead {
	t.Helper()
	l, err := env.Engine.CreateLead(env.Ctx, engine.LeadCreateOptions{
		AgentID:     "agent-1",
		FirstName:   "Ada",
		LastName:    "Baker",
		Phone:       "555-0100",
		Email:       "ada@example.com",
		IntentLevel: domain.IntentWarm,
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return l
}

func TestCreateLeadBaseline(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	if l.Status != domain.LeadNew {
		t.Fatalf("expected NEW, got %s", l.Status)
	}
	if l.Score != 30 {
		t.Fatalf("expected baseline score 30, got %d", l.Score)
	}
}

func TestCreateLeadRejectsDuplicatePhone(t *testing.T) {
	env := newTestEnv(t)
	env.createLead(t)
	_, err := env.Engine.CreateLead(env.Ctx, engine.LeadCreateOptions{
		AgentID:   "agent-1",
		FirstName: "Other",
		LastName:  "Person",
		Phone:     "555-0100",
	})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestUpdateLeadRejectsDuplicatePhone(t *testing.T) {
	env := newTestEnv(t)
	a := env.createLead(t)
	b := env.otherLead(t, "555-0199")
	phone := a.Phone
	if _, err := env.Engine.UpdateLead(env.Ctx, engine.LeadUpdateOptions{ID: b.ID, Phone: &phone}); err == nil {
		t.Fatal("expected duplicate error when stealing another lead's phone")
	}
	// re-saving a lead's own phone is not a collision
	own := a.Phone
	if _, err := env.Engine.UpdateLead(env.Ctx, engine.LeadUpdateOptions{ID: a.ID, Phone: &own}); err != nil {
		t.Fatalf("updating own phone: %v", err)
	}
}

func TestIntakeValidation(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.Engine.IntakeLead(env.Ctx, engine.IntakeOptions{
		AgentID:   "agent-1",
		FirstName: "NoPhone",
		LastName:  "Person",
	})
	if err == nil {
		t.Fatal("expected validation error for missing phone")
	}
}

func TestIntakeCreatesWarmLead(t *testing.T) {
	env := newTestEnv(t)
	l, merged, err := env.Engine.IntakeLead(env.Ctx, engine.IntakeOptions{
		AgentID:        "agent-1",
		FirstName:      "Cleo",
		LastName:       "Dane",
		Phone:          "555-0200",
		CoverageAmount: 250000,
		Source:         "web",
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if merged {
		t.Fatal("unexpected merge")
	}
	if l.IntentLevel != domain.IntentWarm || l.Score != 30 {
		t.Fatalf("expected WARM/30, got %s/%d", l.IntentLevel, l.Score)
	}
	if l.Notes == "" {
		t.Fatal("intake details should land in notes")
	}
}

func TestIntakeMergesOnDuplicatePhone(t *testing.T) {
	env := newTestEnv(t)
	first := env.createLead(t)
	l, merged, err := env.Engine.IntakeLead(env.Ctx, engine.IntakeOptions{
		AgentID:   "agent-1",
		FirstName: "Ada",
		LastName:  "Baker",
		Phone:     "555-0100",
		Source:    "referral",
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if !merged {
		t.Fatal("expected merge into existing lead")
	}
	if l.ID != first.ID {
		t.Fatalf("expected existing lead %s, got %s", first.ID, l.ID)
	}
	if l.Notes == "" {
		t.Fatal("merge should append an intake note")
	}
}

func TestLogActivityAdvancesStatus(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	_, l2, err := env.Engine.LogActivity(env.Ctx, engine.ActivityLogOptions{
		LeadID: l.ID, Type: string(domain.ActivityCallOutbound), Outcome: string(domain.OutcomeNoAnswer),
	})
	if err != nil {
		t.Fatalf("log activity: %v", err)
	}
	if l2.Status != domain.LeadContacted {
		t.Fatalf("expected CONTACTED, got %s", l2.Status)
	}
}

func TestDerivedStatusNeverRegresses(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	if _, err := env.Engine.SetLeadStatus(env.Ctx, l.ID, string(domain.LeadQualified), 0); err != nil {
		t.Fatalf("set status: %v", err)
	}
	_, l2, err := env.Engine.LogActivity(env.Ctx, engine.ActivityLogOptions{
		LeadID: l.ID, Type: string(domain.ActivityCallOutbound),
	})
	if err != nil {
		t.Fatalf("log activity: %v", err)
	}
	if l2.Status != domain.LeadQualified {
		t.Fatalf("call must not regress QUALIFIED, got %s", l2.Status)
	}
}

func TestMeetingCompletedOutcomes(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	_, l2, err := env.Engine.LogActivity(env.Ctx, engine.ActivityLogOptions{
		LeadID: l.ID, Type: string(domain.ActivityMeetingCompleted), Outcome: string(domain.OutcomeInterested),
	})
	if err != nil {
		t.Fatalf("log activity: %v", err)
	}
	if l2.Status != domain.LeadQualified {
		t.Fatalf("interested meeting should qualify, got %s", l2.Status)
	}

	other := env.otherLead(t, "555-0300")
	_, l3, err := env.Engine.LogActivity(env.Ctx, engine.ActivityLogOptions{
		LeadID: other.ID, Type: string(domain.ActivityMeetingCompleted), Outcome: string(domain.OutcomeNotInterested),
	})
	if err != nil {
		t.Fatalf("log activity: %v", err)
	}
	if l3.Status != domain.LeadNotInterested {
		t.Fatalf("not-interested meeting should exit the pipeline, got %s", l3.Status)
	}
}

func (env *testEnv) otherLead(t *testing.T, phone string) domain.Lead {
	t.Helper()
	l, err := env.Engine.CreateLead(env.Ctx, engine.LeadCreateOptions{
		AgentID: "agent-1", FirstName: "Eve", LastName: "Frost", Phone: phone,
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return l
}

func TestTerminalLeadIgnoresDerivedStatus(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	if _, err := env.Engine.SetLeadStatus(env.Ctx, l.ID, string(domain.LeadLost), 0); err != nil {
		t.Fatalf("set status: %v", err)
	}
	_, l2, err := env.Engine.LogActivity(env.Ctx, engine.ActivityLogOptions{
		LeadID: l.ID, Type: string(domain.ActivityCallOutbound),
	})
	if err != nil {
		t.Fatalf("log activity: %v", err)
	}
	if l2.Status != domain.LeadLost {
		t.Fatalf("terminal lead must stay put, got %s", l2.Status)
	}
}

func TestSetLeadStatusNoopOnSameStatus(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	events := &sinkRecorder{}
	env.Engine.Sink = events
	if _, err := env.Engine.SetLeadStatus(env.Ctx, l.ID, string(domain.LeadNew), 0); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if len(events.seen) != 0 {
		t.Fatalf("same-status set must not fire events, got %v", events.seen)
	}
}

type sinkRecorder struct {
	seen []domain.Event
}

func (s *sinkRecorder) Dispatch(_ context.Context, evt domain.Event) {
	s.seen = append(s.seen, evt)
}

func TestActivityDeleteRecomputesScore(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	a, l2, err := env.Engine.LogActivity(env.Ctx, engine.ActivityLogOptions{
		LeadID: l.ID, Type: string(domain.ActivityApplicationSent), Outcome: string(domain.OutcomeSold),
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if l2.Score <= l.Score {
		t.Fatalf("expected score lift, got %d -> %d", l.Score, l2.Score)
	}
	if err := env.Engine.DeleteActivity(env.Ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	l3, err := env.Engine.Repo.GetLead(env.Ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if l3.Score >= l2.Score {
		t.Fatalf("delete should drop the score again, got %d", l3.Score)
	}
}

func (env *testEnv) createPolicy(t *testing.T, leadID string) domain.Policy {
	t.Helper()
	p, err := env.Engine.CreatePolicy(env.Ctx, engine.PolicyCreateOptions{
		LeadID:      leadID,
		Carrier:     "Acme Life",
		ProductType: string(domain.ProductTermLife),
		Premium:     1200,
	})
	if err != nil {
		t.Fatalf("create policy: %v", err)
	}
	return p
}

func TestPolicyCreateResolvesRate(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	if p.CommissionRate != 0.90 {
		t.Fatalf("expected table rate 0.90, got %v", p.CommissionRate)
	}
	if p.CommissionAmount != 1080 {
		t.Fatalf("expected amount 1080, got %v", p.CommissionAmount)
	}
	if p.Status != domain.PolicyQuoted {
		t.Fatalf("expected QUOTED default, got %s", p.Status)
	}
}

func TestPolicyIssuedSideEffects(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	p, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyIssued), 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if p.IssueDate == nil {
		t.Fatal("issue date should be set")
	}
	lead, err := env.Engine.Repo.GetLead(env.Ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if lead.Status != domain.LeadPlaced {
		t.Fatalf("lead should be PLACED, got %s", lead.Status)
	}
	commissions, err := env.Engine.Repo.ListCommissions(env.Ctx, repo.CommissionFilters{PolicyID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(commissions) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(commissions))
	}
	c := commissions[0]
	if c.Type != domain.CommissionFirstYear || c.Status != domain.CommissionPending {
		t.Fatalf("unexpected commission %+v", c)
	}
	if c.Amount != 1080 {
		t.Fatalf("expected 1080, got %v", c.Amount)
	}
	acts, err := env.Engine.Repo.ListLeadActivities(env.Ctx, l.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(acts) == 0 || acts[0].Outcome != domain.OutcomeSold {
		t.Fatalf("expected a SOLD activity, got %+v", acts)
	}
}

func TestPolicyIssuedTwiceCreatesOneCommission(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyPendingRequirements), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	commissions, err := env.Engine.Repo.ListCommissions(env.Ctx, repo.CommissionFilters{PolicyID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(commissions) != 1 {
		t.Fatalf("re-issuing must not duplicate the commission, got %d", len(commissions))
	}
}

func TestReissueAfterLapseBooksNoSecondCommission(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	commissions, err := env.Engine.Repo.ListCommissions(env.Ctx, repo.CommissionFilters{PolicyID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(commissions) != 1 {
		t.Fatalf("expected 1 commission after issue, got %d", len(commissions))
	}
	if _, err := env.Engine.MarkCommissionPaid(env.Ctx, commissions[0].ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyLapsed), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	commissions, err = env.Engine.Repo.ListCommissions(env.Ctx, repo.CommissionFilters{PolicyID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(commissions) != 1 {
		t.Fatalf("expected exactly 1 FIRST_YEAR commission across re-issues, got %d", len(commissions))
	}
	acts, err := env.Engine.Repo.ListLeadActivities(env.Ctx, l.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	sold := 0
	for _, a := range acts {
		if a.Outcome == domain.OutcomeSold {
			sold++
		}
	}
	if sold != 1 {
		t.Fatalf("re-issue must not re-log the sale, got %d SOLD activities", sold)
	}
}

func TestUnderwritingReentryLogsOneNote(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyUnderwriting), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyPendingRequirements), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyUnderwriting), 0); err != nil {
		t.Fatal(err)
	}
	acts, err := env.Engine.Repo.ListLeadActivities(env.Ctx, l.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	notes := 0
	for _, a := range acts {
		if a.Title == "Policy entered underwriting" {
			notes++
		}
	}
	if notes != 1 {
		t.Fatalf("re-entering underwriting must not pile up notes, got %d", notes)
	}
}

func TestPolicyDeclinedMarksLeadNotPlaced(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyDeclined), 0); err != nil {
		t.Fatal(err)
	}
	lead, err := env.Engine.Repo.GetLead(env.Ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if lead.Status != domain.LeadNotPlaced {
		t.Fatalf("expected NOT_PLACED, got %s", lead.Status)
	}
}

func TestPolicyWithdrawnMarksLeadLost(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyWithdrawn), 0); err != nil {
		t.Fatal(err)
	}
	lead, err := env.Engine.Repo.GetLead(env.Ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if lead.Status != domain.LeadLost {
		t.Fatalf("expected LOST, got %s", lead.Status)
	}
}

func TestPremiumEditFrozenAfterIssue(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	newPremium := 2400.0
	p2, err := env.Engine.UpdatePolicy(env.Ctx, engine.PolicyUpdateOptions{ID: p.ID, Premium: &newPremium})
	if err != nil {
		t.Fatal(err)
	}
	if p2.CommissionAmount != 2160 {
		t.Fatalf("pre-issue premium edit should recompute amount, got %v", p2.CommissionAmount)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	higher := 9999.0
	p3, err := env.Engine.UpdatePolicy(env.Ctx, engine.PolicyUpdateOptions{ID: p.ID, Premium: &higher})
	if err != nil {
		t.Fatal(err)
	}
	if p3.CommissionAmount != 2160 {
		t.Fatalf("post-issue premium edit must not change commission amount, got %v", p3.CommissionAmount)
	}
}

func TestRenewalsSkipNonRenewingProducts(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	term := env.createPolicy(t, l.ID)
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, term.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	other := env.otherLead(t, "555-0400")
	whole, err := env.Engine.CreatePolicy(env.Ctx, engine.PolicyCreateOptions{
		LeadID:      other.ID,
		Carrier:     "Acme Life",
		ProductType: string(domain.ProductWholeLife),
		Premium:     2000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, whole.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	created, err := env.Engine.RunRenewals(env.Ctx, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatalf("only the whole-life policy renews, got %d", len(created))
	}
	if created[0].PolicyID != whole.ID || created[0].Amount != 70 {
		t.Fatalf("unexpected renewal %+v", created[0])
	}
	// second sweep finds the pending renewal and creates nothing
	again, err := env.Engine.RunRenewals(env.Ctx, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Fatalf("sweep must be idempotent, got %d", len(again))
	}
}

func TestCommissionPayAndClawback(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	if _, err := env.Engine.SetPolicyStatus(env.Ctx, p.ID, string(domain.PolicyIssued), 0); err != nil {
		t.Fatal(err)
	}
	commissions, err := env.Engine.Repo.ListCommissions(env.Ctx, repo.CommissionFilters{PolicyID: p.ID})
	if err != nil || len(commissions) != 1 {
		t.Fatalf("setup: %v %d", err, len(commissions))
	}
	c, err := env.Engine.MarkCommissionPaid(env.Ctx, commissions[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != domain.CommissionPaid || c.PaidDate == nil {
		t.Fatalf("unexpected paid commission %+v", c)
	}
	if _, err := env.Engine.MarkCommissionPaid(env.Ctx, c.ID); err == nil {
		t.Fatal("paying twice must fail")
	}
	if _, err := env.Engine.ClawbackCommission(env.Ctx, c.ID, ""); err == nil {
		t.Fatal("clawback without reason must fail")
	}
	c, err = env.Engine.ClawbackCommission(env.Ctx, c.ID, "policy lapsed in month 2")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != domain.CommissionClawedBack || c.Notes == "" {
		t.Fatalf("unexpected clawback %+v", c)
	}
}

func TestCampaignValidationAtWrite(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateCampaign(env.Ctx, engine.CampaignCreateOptions{
		AgentID: "agent-1",
		Name:    "bad trigger",
		Trigger: domain.TriggerCondition{Kind: "nonsense"},
		Actions: []domain.Action{{Kind: domain.ActionLogNote, Body: "x"}},
	})
	if err == nil {
		t.Fatal("invalid trigger kind must be rejected")
	}
	_, err = env.Engine.CreateCampaign(env.Ctx, engine.CampaignCreateOptions{
		AgentID: "agent-1",
		Name:    "bad action",
		Trigger: domain.TriggerCondition{Kind: domain.TriggerLeadCreated},
		Actions: []domain.Action{{Kind: domain.ActionUpdateLeadStatus, Status: "bogus"}},
	})
	if err == nil {
		t.Fatal("invalid action must be rejected")
	}
	c, err := env.Engine.CreateCampaign(env.Ctx, engine.CampaignCreateOptions{
		AgentID: "agent-1",
		Name:    "welcome",
		Active:  true,
		Trigger: domain.TriggerCondition{Kind: domain.TriggerLeadCreated},
		Actions: []domain.Action{{Kind: domain.ActionLogNote, Body: "welcome"}},
	})
	if err != nil {
		t.Fatalf("valid campaign rejected: %v", err)
	}
	if c.RunCount != 0 {
		t.Fatalf("new campaign must start at zero runs, got %d", c.RunCount)
	}
}

func TestDashboardAggregates(t *testing.T) {
	env := newTestEnv(t)
	l := env.createLead(t)
	p := env.createPolicy(t, l.ID)
	_ = p
	d, err := env.Engine.Dashboard(env.Ctx, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if d.LeadsByStatus[string(domain.LeadNew)] != 1 {
		t.Fatalf("expected 1 NEW lead, got %+v", d.LeadsByStatus)
	}
	if d.PipelinePremium != 1200 {
		t.Fatalf("expected pipeline premium 1200, got %v", d.PipelinePremium)
	}
}
