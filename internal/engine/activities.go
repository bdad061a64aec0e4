package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadline/internal/domain"
	"leadline/internal/events"
	"leadline/internal/scoring"
)

// ActivityLogOptions are parameters for recording an interaction on a lead.
type ActivityLogOptions struct {
	LeadID      string
	Type        string
	Outcome     string
	Title       string
	Description string
	DurationMin *int
	Depth       int
}

// LogActivity records an interaction, advances the lead status when the
// interaction implies progress, and recomputes the score.
func (e *Engine) LogActivity(ctx context.Context, opts ActivityLogOptions) (domain.Activity, domain.Lead, error) {
	typ, err := domain.ParseActivityType(opts.Type)
	if err != nil {
		return domain.Activity{}, domain.Lead{}, err
	}
	outcome, err := domain.ParseOutcome(opts.Outcome)
	if err != nil {
		return domain.Activity{}, domain.Lead{}, err
	}
	l, err := e.Repo.GetLead(ctx, opts.LeadID)
	if err != nil {
		return domain.Activity{}, l, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	title := opts.Title
	if title == "" {
		title = string(typ)
	}
	a := domain.Activity{
		ID:          uuid.New().String(),
		LeadID:      l.ID,
		AgentID:     l.AgentID,
		Type:        typ,
		Outcome:     outcome,
		Title:       title,
		Description: opts.Description,
		DurationMin: opts.DurationMin,
		CreatedAt:   now,
	}

	oldStatus := l.Status
	if derived, ok := deriveLeadStatus(l.Status, typ, outcome); ok {
		l.Status = derived
	}

	prior, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return a, l, err
	}
	oldScore := l.Score
	l.Score = scoring.Compute(l, append([]domain.Activity{a}, prior...), e.now()).Score
	l.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, l, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertActivity(ctx, tx, a); err != nil {
		return a, l, err
	}
	if err := e.Repo.UpdateLead(ctx, tx, l); err != nil {
		return a, l, err
	}
	if err := e.Events.Append(ctx, tx, "activity.logged", l.AgentID, "activity", a.ID, events.EventPayload{
		"lead_id": l.ID, "type": typ, "outcome": outcome,
	}); err != nil {
		return a, l, err
	}
	if l.Status != oldStatus {
		if err := e.Events.Append(ctx, tx, "lead.status_changed", l.AgentID, "lead", l.ID, events.EventPayload{
			"from": oldStatus, "to": l.Status, "derived_from": typ,
		}); err != nil {
			return a, l, err
		}
	}
	if err := tx.Commit(); err != nil {
		return a, l, err
	}

	evts := []domain.Event{{
		Trigger:    domain.TriggerActivityLogged,
		AgentID:    l.AgentID,
		LeadID:     l.ID,
		ActivityID: a.ID,
		Data:       map[string]any{"type": string(typ), "outcome": string(outcome)},
		Depth:      opts.Depth,
	}}
	if l.Status != oldStatus {
		evts = append(evts, domain.Event{
			Trigger: domain.TriggerLeadStatusChanged,
			AgentID: l.AgentID,
			LeadID:  l.ID,
			Data:    map[string]any{"from": string(oldStatus), "to": string(l.Status)},
			Depth:   opts.Depth,
		})
	}
	if l.Score != oldScore {
		evts = append(evts, scoreChangedEvent(l, oldScore, opts.Depth))
	}
	e.emit(ctx, evts...)
	return a, l, nil
}

// deriveLeadStatus maps an interaction to the pipeline stage it implies.
// Guards only move a lead forward; a lead already at or past the implied
// stage, or in a terminal status, is left alone.
func deriveLeadStatus(current domain.LeadStatus, typ domain.ActivityType, outcome domain.Outcome) (domain.LeadStatus, bool) {
	if current.Terminal() {
		return current, false
	}
	var implied domain.LeadStatus
	switch typ {
	case domain.ActivityCallOutbound, domain.ActivityCallInbound,
		domain.ActivityEmailSent, domain.ActivityEmailReceived,
		domain.ActivityTextSent, domain.ActivityTextReceived:
		implied = domain.LeadContacted
	case domain.ActivityMeetingScheduled:
		implied = domain.LeadEngaged
	case domain.ActivityMeetingCompleted:
		switch outcome {
		case domain.OutcomeInterested, domain.OutcomePositive:
			implied = domain.LeadQualified
		case domain.OutcomeNotInterested:
			return domain.LeadNotInterested, true
		default:
			implied = domain.LeadEngaged
		}
	case domain.ActivityProposalSent:
		implied = domain.LeadProposal
	case domain.ActivityApplicationSent:
		implied = domain.LeadApplication
	case domain.ActivityNote, domain.ActivityTask, domain.ActivityOther:
		return current, false
	default:
		return current, false
	}
	if implied.PipelineRank() > current.PipelineRank() {
		return implied, true
	}
	return current, false
}

// ActivityUpdateOptions edits a recorded activity. The creation timestamp
// is immutable; scores are recomputed against the edited history.
type ActivityUpdateOptions struct {
	ID          string
	Type        *string
	Outcome     *string
	Title       *string
	Description *string
	DurationMin *int
}

func (e *Engine) UpdateActivity(ctx context.Context, opts ActivityUpdateOptions) (domain.Activity, error) {
	a, err := e.Repo.GetActivity(ctx, opts.ID)
	if err != nil {
		return a, err
	}
	if opts.Type != nil {
		typ, err := domain.ParseActivityType(*opts.Type)
		if err != nil {
			return a, err
		}
		a.Type = typ
	}
	if opts.Outcome != nil {
		outcome, err := domain.ParseOutcome(*opts.Outcome)
		if err != nil {
			return a, err
		}
		a.Outcome = outcome
	}
	if opts.Title != nil {
		a.Title = *opts.Title
	}
	if opts.Description != nil {
		a.Description = *opts.Description
	}
	if opts.DurationMin != nil {
		a.DurationMin = opts.DurationMin
	}
	l, err := e.Repo.GetLead(ctx, a.LeadID)
	if err != nil {
		return a, err
	}
	acts, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return a, err
	}
	for i := range acts {
		if acts[i].ID == a.ID {
			acts[i] = a
		}
	}
	oldScore := l.Score
	l.Score = scoring.Compute(l, acts, e.now()).Score
	l.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateActivity(ctx, tx, a); err != nil {
		return a, err
	}
	if err := e.Repo.UpdateLead(ctx, tx, l); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "activity.updated", l.AgentID, "activity", a.ID, events.EventPayload{
		"lead_id": l.ID,
	}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	if l.Score != oldScore {
		e.emit(ctx, scoreChangedEvent(l, oldScore, 0))
	}
	return a, nil
}

func (e *Engine) DeleteActivity(ctx context.Context, id string) error {
	a, err := e.Repo.GetActivity(ctx, id)
	if err != nil {
		return err
	}
	l, err := e.Repo.GetLead(ctx, a.LeadID)
	if err != nil {
		return err
	}
	acts, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return err
	}
	remaining := acts[:0]
	for _, other := range acts {
		if other.ID != a.ID {
			remaining = append(remaining, other)
		}
	}
	oldScore := l.Score
	l.Score = scoring.Compute(l, remaining, e.now()).Score
	l.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteActivity(ctx, tx, a.ID); err != nil {
		return err
	}
	if err := e.Repo.UpdateLead(ctx, tx, l); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "activity.deleted", l.AgentID, "activity", a.ID, events.EventPayload{
		"lead_id": l.ID,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if l.Score != oldScore {
		e.emit(ctx, scoreChangedEvent(l, oldScore, 0))
	}
	return nil
}

// ExplainScore recomputes a lead's score and returns the component
// breakdown without persisting anything.
func (e *Engine) ExplainScore(ctx context.Context, leadID string) (scoring.Result, error) {
	l, err := e.Repo.GetLead(ctx, leadID)
	if err != nil {
		return scoring.Result{}, err
	}
	acts, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return scoring.Result{}, err
	}
	return scoring.Compute(l, acts, e.now()), nil
}

// RescoreLead recomputes and persists the score for one lead.
func (e *Engine) RescoreLead(ctx context.Context, leadID string) (domain.Lead, error) {
	l, err := e.Repo.GetLead(ctx, leadID)
	if err != nil {
		return l, err
	}
	acts, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return l, err
	}
	oldScore := l.Score
	l.Score = scoring.Compute(l, acts, e.now()).Score
	if l.Score == oldScore {
		return l, nil
	}
	l.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return l, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateLead(ctx, tx, l); err != nil {
		return l, err
	}
	if err := e.Events.Append(ctx, tx, "lead.rescored", l.AgentID, "lead", l.ID, events.EventPayload{
		"old_score": oldScore, "new_score": l.Score,
	}); err != nil {
		return l, err
	}
	if err := tx.Commit(); err != nil {
		return l, err
	}
	e.emit(ctx, scoreChangedEvent(l, oldScore, 0))
	return l, nil
}
