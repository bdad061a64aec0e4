// Package dispatch matches pipeline events against active campaigns and
// runs their actions. A failing campaign or action never blocks the rest
// of a run, and action-driven mutations re-enter the pipeline with a
// bounded depth so campaign chains cannot loop forever.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadline/internal/domain"
	"leadline/internal/engine"
	"leadline/internal/notify"
	"leadline/internal/repo"
)

const (
	// maxDepth bounds how many times campaign actions may cascade into
	// further dispatches. Events deeper than this are dropped.
	maxDepth = 3

	// scoreSignificance is the minimum absolute score delta that makes a
	// score change worth dispatching.
	scoreSignificance = 20

	webhookTimeout = 5 * time.Second
)

type Dispatcher struct {
	Engine   *engine.Engine
	Repo     repo.Repo
	Notifier notify.Notifier
	Log      *zap.Logger
	Client   *http.Client
	Now      func() time.Time
}

func New(e *engine.Engine, n notify.Notifier, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		Engine:   e,
		Repo:     e.Repo,
		Notifier: n,
		Log:      log,
		Client:   &http.Client{Timeout: webhookTimeout},
		Now:      e.Now,
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch runs every matching active campaign for the event. It is called
// after the originating transaction commits, so campaign failures only get
// logged and never unwind pipeline writes.
func (d *Dispatcher) Dispatch(ctx context.Context, evt domain.Event) {
	if evt.Depth > maxDepth {
		d.Log.Warn("event dropped, dispatch depth exceeded",
			zap.String("trigger", string(evt.Trigger)),
			zap.String("lead_id", evt.LeadID),
			zap.Int("depth", evt.Depth))
		return
	}
	if evt.Trigger == domain.TriggerScoreChanged && !significantScoreChange(evt) {
		return
	}
	campaigns, malformed, err := d.Repo.ListActiveCampaigns(ctx, evt.AgentID)
	if err != nil {
		d.Log.Error("list campaigns failed", zap.Error(err))
		return
	}
	for _, id := range malformed {
		d.Log.Warn("campaign skipped, stored trigger or actions undecodable",
			zap.String("campaign_id", id))
	}
	for _, c := range campaigns {
		if !matches(c.Trigger, evt) {
			continue
		}
		d.runCampaign(ctx, c, evt)
	}
}

func significantScoreChange(evt domain.Event) bool {
	oldScore, okOld := intData(evt.Data, "old_score")
	newScore, okNew := intData(evt.Data, "new_score")
	if !okOld || !okNew {
		return false
	}
	delta := newScore - oldScore
	if delta < 0 {
		delta = -delta
	}
	return delta >= scoreSignificance
}

func intData(data map[string]any, key string) (int, bool) {
	switch v := data[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// matches tests the stored trigger condition against an event. Score bounds
// are only consulted when the event carries a new score.
func matches(cond domain.TriggerCondition, evt domain.Event) bool {
	if cond.Kind != evt.Trigger {
		return false
	}
	if cond.MinScore == nil && cond.MaxScore == nil {
		return true
	}
	score, ok := intData(evt.Data, "new_score")
	if !ok {
		return true
	}
	if cond.MinScore != nil && score < *cond.MinScore {
		return false
	}
	if cond.MaxScore != nil && score > *cond.MaxScore {
		return false
	}
	return true
}

// runCampaign executes the campaign's actions in order. A failing action is
// logged and the rest still run; the run counter advances either way.
func (d *Dispatcher) runCampaign(ctx context.Context, c domain.Campaign, evt domain.Event) {
	for i, action := range c.Actions {
		if err := d.execute(ctx, c, action, evt); err != nil {
			d.Log.Error("campaign action failed",
				zap.String("campaign_id", c.ID),
				zap.String("campaign", c.Name),
				zap.Int("action", i),
				zap.String("kind", string(action.Kind)),
				zap.Error(err))
		}
	}
	ranAt := d.now().UTC().Format(time.RFC3339)
	if err := d.Repo.MarkCampaignRun(ctx, c.ID, ranAt); err != nil {
		d.Log.Error("mark campaign run failed", zap.String("campaign_id", c.ID), zap.Error(err))
	}
	d.Log.Info("campaign ran",
		zap.String("campaign_id", c.ID),
		zap.String("campaign", c.Name),
		zap.String("trigger", string(evt.Trigger)),
		zap.String("lead_id", evt.LeadID))
}

func (d *Dispatcher) execute(ctx context.Context, c domain.Campaign, action domain.Action, evt domain.Event) error {
	switch action.Kind {
	case domain.ActionSendEmail:
		lead, err := d.leadFor(ctx, evt)
		if err != nil {
			return err
		}
		to := action.To
		if to == "" {
			to = lead.Email
		}
		if to == "" {
			return fmt.Errorf("lead %s has no email", lead.ID)
		}
		return d.Notifier.Send(ctx, notify.Message{
			Channel: notify.ChannelEmail,
			To:      to,
			Subject: renderTemplate(action.Subject, lead),
			Body:    renderTemplate(action.Body, lead),
		})
	case domain.ActionSendSMS:
		lead, err := d.leadFor(ctx, evt)
		if err != nil {
			return err
		}
		to := action.To
		if to == "" {
			to = lead.Phone
		}
		return d.Notifier.Send(ctx, notify.Message{
			Channel: notify.ChannelSMS,
			To:      to,
			Body:    renderTemplate(action.Body, lead),
		})
	case domain.ActionUpdateLeadStatus:
		if evt.LeadID == "" {
			return fmt.Errorf("event has no lead")
		}
		_, err := d.Engine.SetLeadStatus(ctx, evt.LeadID, action.Status, evt.Depth+1)
		return err
	case domain.ActionCreateTask:
		if evt.LeadID == "" {
			return fmt.Errorf("event has no lead")
		}
		_, _, err := d.Engine.LogActivity(ctx, engine.ActivityLogOptions{
			LeadID:      evt.LeadID,
			Type:        string(domain.ActivityTask),
			Title:       action.Title,
			Description: action.Body,
			Depth:       evt.Depth + 1,
		})
		return err
	case domain.ActionLogNote:
		if evt.LeadID == "" {
			return fmt.Errorf("event has no lead")
		}
		_, _, err := d.Engine.LogActivity(ctx, engine.ActivityLogOptions{
			LeadID:      evt.LeadID,
			Type:        string(domain.ActivityNote),
			Title:       "Campaign note: " + c.Name,
			Description: action.Body,
			Depth:       evt.Depth + 1,
		})
		return err
	case domain.ActionWebhook:
		return d.postWebhook(ctx, action.URL, c, evt)
	case domain.ActionAddToCampaign:
		target, err := d.Repo.GetCampaign(ctx, action.CampaignID)
		if err != nil {
			return fmt.Errorf("target campaign: %w", err)
		}
		if !target.Active {
			return fmt.Errorf("target campaign %s is inactive", target.ID)
		}
		next := evt
		next.Depth++
		if next.Depth > maxDepth {
			return fmt.Errorf("campaign chain too deep at %s", target.ID)
		}
		d.runCampaign(ctx, target, next)
		return nil
	}
	return fmt.Errorf("unknown action kind %q", action.Kind)
}

func (d *Dispatcher) leadFor(ctx context.Context, evt domain.Event) (domain.Lead, error) {
	if evt.LeadID == "" {
		return domain.Lead{}, fmt.Errorf("event has no lead")
	}
	return d.Repo.GetLead(ctx, evt.LeadID)
}

// renderTemplate substitutes the small set of lead placeholders supported
// in campaign message bodies.
func renderTemplate(s string, lead domain.Lead) string {
	r := strings.NewReplacer(
		"{{first_name}}", lead.FirstName,
		"{{last_name}}", lead.LastName,
		"{{status}}", string(lead.Status),
		"{{score}}", fmt.Sprintf("%d", lead.Score),
	)
	return r.Replace(s)
}

type webhookPayload struct {
	Campaign string         `json:"campaign"`
	Trigger  string         `json:"trigger"`
	AgentID  string         `json:"agent_id"`
	LeadID   string         `json:"lead_id,omitempty"`
	PolicyID string         `json:"policy_id,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	TS       string         `json:"ts"`
}

func (d *Dispatcher) postWebhook(ctx context.Context, url string, c domain.Campaign, evt domain.Event) error {
	body := webhookPayload{
		Campaign: c.Name,
		Trigger:  string(evt.Trigger),
		AgentID:  evt.AgentID,
		LeadID:   evt.LeadID,
		PolicyID: evt.PolicyID,
		Data:     evt.Data,
		TS:       d.now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Leadline-Trigger", string(evt.Trigger))
	req.Header.Set("X-Leadline-Campaign", c.ID)
	res, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}

// RunCampaignForAllLeads executes one campaign against every one of the
// agent's leads, regardless of its trigger condition. It returns how many
// leads were processed.
func (d *Dispatcher) RunCampaignForAllLeads(ctx context.Context, campaignID string) (int, error) {
	c, err := d.Repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	leads, err := d.Repo.ListLeads(ctx, repo.LeadFilters{AgentID: c.AgentID})
	if err != nil {
		return 0, err
	}
	for _, lead := range leads {
		evt := domain.Event{
			Trigger: domain.TriggerCustom,
			AgentID: c.AgentID,
			LeadID:  lead.ID,
		}
		d.runCampaign(ctx, c, evt)
	}
	return len(leads), nil
}
