package scoring_test

import (
	"fmt"
	"testing"
	"time"

	"leadline/internal/domain"
	"leadline/internal/scoring"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func baseLead() domain.Lead {
	return domain.Lead{
		ID:          "lead-1",
		AgentID:     "agent-1",
		Status:      domain.LeadNew,
		IntentLevel: domain.IntentWarm,
		CreatedAt:   ts(now),
		UpdatedAt:   ts(now),
	}
}

func TestBaselineWarmLead(t *testing.T) {
	res := scoring.Compute(baseLead(), nil, now)
	if res.Score != 30 {
		t.Fatalf("expected 30, got %d (%s)", res.Score, res.Reason)
	}
}

func TestIntentComponent(t *testing.T) {
	cases := map[domain.IntentLevel]int{
		domain.IntentHot:     50,
		domain.IntentWarm:    30,
		domain.IntentCold:    10,
		domain.IntentUnknown: 0,
		domain.IntentNone:    0, // -10 clamps to 0 with nothing else
	}
	for intent, want := range cases {
		l := baseLead()
		l.IntentLevel = intent
		got := scoring.Compute(l, nil, now).Score
		if got != want {
			t.Errorf("intent %s: expected %d, got %d", intent, want, got)
		}
	}
}

func TestClampUpper(t *testing.T) {
	l := baseLead()
	l.IntentLevel = domain.IntentHot
	l.Status = domain.LeadPlaced
	var acts []domain.Activity
	for i := 0; i < 10; i++ {
		acts = append(acts, domain.Activity{
			ID: fmt.Sprintf("a-%d", i), LeadID: l.ID, AgentID: l.AgentID,
			Type: domain.ActivityApplicationSent, Outcome: domain.OutcomeSold,
			CreatedAt: ts(now.Add(-time.Duration(i) * time.Hour)),
		})
	}
	res := scoring.Compute(l, acts, now)
	if res.Score != 100 {
		t.Fatalf("expected clamp to 100, got %d (%s)", res.Score, res.Reason)
	}
}

func TestClampLower(t *testing.T) {
	l := baseLead()
	l.IntentLevel = domain.IntentNone
	l.Status = domain.LeadNotInterested
	l.UpdatedAt = ts(now.AddDate(0, 0, -120))
	res := scoring.Compute(l, nil, now)
	if res.Score != 0 {
		t.Fatalf("expected clamp to 0, got %d (%s)", res.Score, res.Reason)
	}
}

func TestActivityWindowAndCap(t *testing.T) {
	l := baseLead()
	l.IntentLevel = domain.IntentUnknown
	// 12 application-sent activities, 40 points each raw. Only the 10 most
	// recent count and the component caps at 40.
	var acts []domain.Activity
	for i := 0; i < 12; i++ {
		acts = append(acts, domain.Activity{
			ID: fmt.Sprintf("a-%d", i), Type: domain.ActivityApplicationSent,
			CreatedAt: ts(now.Add(-time.Duration(i) * time.Minute)),
		})
	}
	res := scoring.Compute(l, acts, now)
	if res.Breakdown.Activity != 40 {
		t.Fatalf("expected activity component 40, got %d", res.Breakdown.Activity)
	}
}

func TestOutcomeWindowAndCap(t *testing.T) {
	l := baseLead()
	l.IntentLevel = domain.IntentUnknown
	// 6 SOLD outcomes. Only the 5 most recent with an outcome count and the
	// component caps at 30.
	var acts []domain.Activity
	for i := 0; i < 6; i++ {
		acts = append(acts, domain.Activity{
			ID: fmt.Sprintf("a-%d", i), Type: domain.ActivityNote, Outcome: domain.OutcomeSold,
			CreatedAt: ts(now.Add(-time.Duration(i) * time.Minute)),
		})
	}
	res := scoring.Compute(l, acts, now)
	if res.Breakdown.Outcome != 30 {
		t.Fatalf("expected outcome component 30, got %d", res.Breakdown.Outcome)
	}
}

func TestDecayTiers(t *testing.T) {
	cases := []struct {
		days int
		want int
	}{
		{10, 0},
		{30, 5},
		{59, 5},
		{60, 10},
		{89, 10},
		{90, 20},
		{400, 20},
	}
	for _, tc := range cases {
		l := baseLead()
		acts := []domain.Activity{{
			ID: "a-1", Type: domain.ActivityNote,
			CreatedAt: ts(now.AddDate(0, 0, -tc.days)),
		}}
		res := scoring.Compute(l, acts, now)
		if res.Breakdown.Decay != tc.want {
			t.Errorf("%d days idle: expected decay %d, got %d", tc.days, tc.want, res.Breakdown.Decay)
		}
	}
}

func TestDecayAnchorsOnNewestActivity(t *testing.T) {
	l := baseLead()
	l.UpdatedAt = ts(now.AddDate(0, 0, -100))
	acts := []domain.Activity{
		{ID: "a-1", Type: domain.ActivityNote, CreatedAt: ts(now.AddDate(0, 0, -5))},
		{ID: "a-2", Type: domain.ActivityNote, CreatedAt: ts(now.AddDate(0, 0, -95))},
	}
	res := scoring.Compute(l, acts, now)
	if res.Breakdown.Decay != 0 {
		t.Fatalf("recent activity should defeat decay, got %d", res.Breakdown.Decay)
	}
}

func TestDecayFallsBackToLeadUpdatedAt(t *testing.T) {
	l := baseLead()
	l.UpdatedAt = ts(now.AddDate(0, 0, -65))
	res := scoring.Compute(l, nil, now)
	if res.Breakdown.Decay != 10 {
		t.Fatalf("expected decay 10 from updated_at, got %d", res.Breakdown.Decay)
	}
}

func TestTerminalStatusPenalties(t *testing.T) {
	cases := map[domain.LeadStatus]int{
		domain.LeadPlaced:        100,
		domain.LeadNotInterested: 0,
		domain.LeadNotPlaced:     10,
		domain.LeadLost:          10,
		domain.LeadUnresponsive:  20,
	}
	for status, want := range cases {
		l := baseLead()
		l.Status = status
		got := scoring.Compute(l, nil, now).Score
		if got != want {
			t.Errorf("status %s: expected %d, got %d", status, want, got)
		}
	}
}

func TestScoreIsPure(t *testing.T) {
	l := baseLead()
	acts := []domain.Activity{{ID: "a-1", Type: domain.ActivityCallOutbound, Outcome: domain.OutcomeInterested, CreatedAt: ts(now)}}
	first := scoring.Compute(l, acts, now)
	second := scoring.Compute(l, acts, now)
	if first.Score != second.Score || first.Breakdown != second.Breakdown {
		t.Fatalf("same inputs produced different results: %+v vs %+v", first, second)
	}
}
