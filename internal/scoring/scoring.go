// Package scoring derives a lead's 0-100 priority score from its pipeline
// state and activity history. Compute is pure; persisting the result is the
// caller's responsibility.
package scoring

import (
	"fmt"
	"time"

	"leadline/internal/domain"
)

const (
	activityWindow = 10
	activityCap    = 40
	outcomeWindow  = 5
	outcomeCap     = 30
)

// Breakdown is the per-component view of a computed score, pre-clamp.
type Breakdown struct {
	Intent   int `json:"intent"`
	Status   int `json:"status"`
	Activity int `json:"activity"`
	Outcome  int `json:"outcome"`
	Decay    int `json:"decay"`
}

type Result struct {
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
	Reason    string    `json:"reason"`
}

// Compute scores a lead against its activities, which must be ordered
// newest-first. Decay subtracts from the raw component sum; clamping to
// [0,100] happens once at the end.
func Compute(lead domain.Lead, activities []domain.Activity, now time.Time) Result {
	b := Breakdown{
		Intent:   intentScore(lead.IntentLevel),
		Status:   statusScore(lead.Status),
		Activity: activityScore(activities),
		Outcome:  outcomeScore(activities),
		Decay:    timeDecay(lead, activities, now),
	}
	raw := b.Intent + b.Status + b.Activity + b.Outcome - b.Decay
	score := raw
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	reason := fmt.Sprintf("intent %s %+d, status %s %+d, activity %+d, outcome %+d, decay -%d",
		lead.IntentLevel, b.Intent, lead.Status, b.Status, b.Activity, b.Outcome, b.Decay)
	return Result{Score: score, Breakdown: b, Reason: reason}
}

func intentScore(level domain.IntentLevel) int {
	switch level {
	case domain.IntentHot:
		return 50
	case domain.IntentWarm:
		return 30
	case domain.IntentCold:
		return 10
	case domain.IntentUnknown:
		return 0
	case domain.IntentNone:
		return -10
	}
	return 0
}

func statusScore(status domain.LeadStatus) int {
	switch status {
	case domain.LeadNew:
		return 0
	case domain.LeadContacted:
		return 10
	case domain.LeadEngaged:
		return 20
	case domain.LeadQualified:
		return 35
	case domain.LeadProposal:
		return 50
	case domain.LeadApplication:
		return 65
	case domain.LeadUnderwriting:
		return 80
	case domain.LeadPlaced:
		return 100
	case domain.LeadNotPlaced:
		return -20
	case domain.LeadNotInterested:
		return -30
	case domain.LeadLost:
		return -20
	case domain.LeadUnresponsive:
		return -10
	}
	return 0
}

func activityTypePoints(t domain.ActivityType) int {
	switch t {
	case domain.ActivityMeetingCompleted:
		return 20
	case domain.ActivityApplicationSent:
		return 40
	case domain.ActivityProposalSent:
		return 15
	case domain.ActivityMeetingScheduled:
		return 10
	case domain.ActivityCallInbound:
		return 8
	case domain.ActivityCallOutbound:
		return 5
	case domain.ActivityEmailReceived:
		return 5
	case domain.ActivityTextReceived:
		return 4
	case domain.ActivityEmailSent:
		return 3
	case domain.ActivityTextSent:
		return 2
	case domain.ActivityNote, domain.ActivityTask, domain.ActivityOther:
		return 2
	}
	return 2
}

func activityScore(activities []domain.Activity) int {
	sum := 0
	for i, a := range activities {
		if i >= activityWindow {
			break
		}
		sum += activityTypePoints(a.Type)
	}
	if sum > activityCap {
		sum = activityCap
	}
	return sum
}

func outcomePoints(o domain.Outcome) int {
	switch o {
	case domain.OutcomeSold:
		return 50
	case domain.OutcomeInterested:
		return 15
	case domain.OutcomePositive:
		return 10
	case domain.OutcomeNegative:
		return -5
	case domain.OutcomeNotInterested:
		return -15
	case domain.OutcomeNoAnswer:
		return -2
	case domain.OutcomeNeutral, domain.OutcomeLeftMessage:
		return 0
	}
	return 0
}

func outcomeScore(activities []domain.Activity) int {
	sum := 0
	seen := 0
	for _, a := range activities {
		if a.Outcome == "" {
			continue
		}
		sum += outcomePoints(a.Outcome)
		seen++
		if seen >= outcomeWindow {
			break
		}
	}
	if sum > outcomeCap {
		sum = outcomeCap
	}
	return sum
}

// timeDecay penalizes staleness from the most recent activity, or the lead's
// last update when it has none. Thresholds are non-cumulative; the largest
// applicable one wins.
func timeDecay(lead domain.Lead, activities []domain.Activity, now time.Time) int {
	anchor := lead.UpdatedAt
	if len(activities) > 0 {
		anchor = activities[0].CreatedAt
	}
	t, err := time.Parse(time.RFC3339, anchor)
	if err != nil {
		return 0
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days >= 90:
		return 20
	case days >= 60:
		return 10
	case days >= 30:
		return 5
	}
	return 0
}
