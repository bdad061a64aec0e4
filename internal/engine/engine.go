package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadline/internal/domain"
	"leadline/internal/events"
	"leadline/internal/repo"
	"leadline/internal/scoring"
)

// intakeBaselineScore is assigned to leads arriving through the intake
// boundary before any activity history exists.
const intakeBaselineScore = 30

// EventSink receives pipeline events after the originating transaction
// commits. The trigger dispatcher implements it; a nil sink drops events.
type EventSink interface {
	Dispatch(ctx context.Context, evt domain.Event)
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Sink   EventSink
	Now    func() time.Time
}

func New(db *sql.DB) *Engine {
	return &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) emit(ctx context.Context, evts ...domain.Event) {
	if e.Sink == nil {
		return
	}
	for _, evt := range evts {
		e.Sink.Dispatch(ctx, evt)
	}
}

// LeadCreateOptions are parameters for creating a lead directly.
type LeadCreateOptions struct {
	AgentID     string
	FirstName   string
	LastName    string
	Phone       string
	Email       string
	IntentLevel domain.IntentLevel
	Source      string
	Notes       string
}

func (e *Engine) CreateLead(ctx context.Context, opts LeadCreateOptions) (domain.Lead, error) {
	if opts.AgentID == "" {
		return domain.Lead{}, errors.New("agent is required")
	}
	if opts.FirstName == "" || opts.LastName == "" || opts.Phone == "" {
		return domain.Lead{}, errors.New("first name, last name and phone are required")
	}
	if opts.IntentLevel == "" {
		opts.IntentLevel = domain.IntentUnknown
	} else if _, err := domain.ParseIntentLevel(string(opts.IntentLevel)); err != nil {
		return domain.Lead{}, err
	}
	if _, err := e.Repo.FindDuplicateLead(ctx, opts.AgentID, opts.Phone, opts.Email); err == nil {
		return domain.Lead{}, fmt.Errorf("duplicate lead for phone %s", opts.Phone)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Lead{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	l := domain.Lead{
		ID:          uuid.New().String(),
		AgentID:     opts.AgentID,
		FirstName:   opts.FirstName,
		LastName:    opts.LastName,
		Phone:       opts.Phone,
		Email:       opts.Email,
		Status:      domain.LeadNew,
		IntentLevel: opts.IntentLevel,
		Source:      opts.Source,
		Notes:       opts.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.Score = scoring.Compute(l, nil, e.now()).Score
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Lead{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertLead(ctx, tx, l); err != nil {
		return domain.Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "lead.created", l.AgentID, "lead", l.ID, events.EventPayload{
		"status": l.Status, "score": l.Score,
	}); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Lead{}, err
	}
	e.emit(ctx, domain.Event{Trigger: domain.TriggerLeadCreated, AgentID: l.AgentID, LeadID: l.ID})
	return l, nil
}

// IntakeOptions mirror the public intake boundary payload.
type IntakeOptions struct {
	AgentID          string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	DateOfBirth      string
	CoverageAmount   float64
	HealthStatus     string
	HealthConditions []string
	Source           string
	ProductType      string
}

// IntakeLead creates a lead from an intake submission, or merges into an
// existing lead when the phone or email already matches one. The returned
// bool reports whether a merge happened.
func (e *Engine) IntakeLead(ctx context.Context, opts IntakeOptions) (domain.Lead, bool, error) {
	if opts.AgentID == "" {
		return domain.Lead{}, false, errors.New("agent is required")
	}
	if opts.FirstName == "" || opts.LastName == "" || opts.Phone == "" {
		return domain.Lead{}, false, errors.New("first name, last name and phone are required")
	}
	noteLine := intakeNoteLine(opts, e.now())

	existing, err := e.Repo.FindDuplicateLead(ctx, opts.AgentID, opts.Phone, opts.Email)
	if err == nil {
		existing.Notes = appendNote(existing.Notes, noteLine)
		existing.UpdatedAt = e.now().UTC().Format(time.RFC3339)
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return domain.Lead{}, false, err
		}
		defer tx.Rollback()
		if err := e.Repo.UpdateLead(ctx, tx, existing); err != nil {
			return domain.Lead{}, false, err
		}
		if err := e.Events.Append(ctx, tx, "lead.intake_merged", existing.AgentID, "lead", existing.ID, events.EventPayload{
			"phone": opts.Phone,
		}); err != nil {
			return domain.Lead{}, false, err
		}
		if err := tx.Commit(); err != nil {
			return domain.Lead{}, false, err
		}
		return existing, true, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.Lead{}, false, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	l := domain.Lead{
		ID:          uuid.New().String(),
		AgentID:     opts.AgentID,
		FirstName:   opts.FirstName,
		LastName:    opts.LastName,
		Phone:       opts.Phone,
		Email:       opts.Email,
		Status:      domain.LeadNew,
		IntentLevel: domain.IntentWarm,
		Score:       intakeBaselineScore,
		Source:      opts.Source,
		Notes:       noteLine,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Lead{}, false, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertLead(ctx, tx, l); err != nil {
		return domain.Lead{}, false, fmt.Errorf("insert lead: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "lead.created", l.AgentID, "lead", l.ID, events.EventPayload{
		"source": "intake", "score": l.Score,
	}); err != nil {
		return domain.Lead{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Lead{}, false, err
	}
	e.emit(ctx, domain.Event{Trigger: domain.TriggerLeadCreated, AgentID: l.AgentID, LeadID: l.ID})
	return l, false, nil
}

func intakeNoteLine(opts IntakeOptions, now time.Time) string {
	parts := []string{fmt.Sprintf("Intake %s", now.UTC().Format("2006-01-02"))}
	if opts.Source != "" {
		parts = append(parts, "source "+opts.Source)
	}
	if opts.ProductType != "" {
		parts = append(parts, "interested in "+opts.ProductType)
	}
	if opts.CoverageAmount > 0 {
		parts = append(parts, fmt.Sprintf("coverage %.0f", opts.CoverageAmount))
	}
	if opts.DateOfBirth != "" {
		parts = append(parts, "dob "+opts.DateOfBirth)
	}
	if opts.HealthStatus != "" {
		parts = append(parts, "health "+opts.HealthStatus)
	}
	if len(opts.HealthConditions) > 0 {
		parts = append(parts, "conditions "+strings.Join(opts.HealthConditions, "/"))
	}
	return strings.Join(parts, "; ")
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// LeadUpdateOptions encapsulates allowed direct lead edits. Status changes
// go through SetLeadStatus.
type LeadUpdateOptions struct {
	ID          string
	FirstName   *string
	LastName    *string
	Phone       *string
	Email       *string
	IntentLevel *string
	Source      *string
	Notes       *string
}

func (e *Engine) UpdateLead(ctx context.Context, opts LeadUpdateOptions) (domain.Lead, error) {
	l, err := e.Repo.GetLead(ctx, opts.ID)
	if err != nil {
		return l, err
	}
	if opts.FirstName != nil {
		l.FirstName = *opts.FirstName
	}
	if opts.LastName != nil {
		l.LastName = *opts.LastName
	}
	if opts.Phone != nil {
		l.Phone = *opts.Phone
	}
	if opts.Email != nil {
		l.Email = *opts.Email
	}
	if opts.Source != nil {
		l.Source = *opts.Source
	}
	if opts.Notes != nil {
		l.Notes = *opts.Notes
	}
	if opts.IntentLevel != nil {
		level, err := domain.ParseIntentLevel(*opts.IntentLevel)
		if err != nil {
			return l, err
		}
		l.IntentLevel = level
	}
	if opts.Phone != nil || opts.Email != nil {
		// Contact edits must not collide with another lead of the same agent.
		dup, err := e.Repo.FindDuplicateLead(ctx, l.AgentID, l.Phone, l.Email)
		if err == nil && dup.ID != l.ID {
			return l, fmt.Errorf("duplicate lead for phone %s", l.Phone)
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return l, err
		}
	}
	acts, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return l, err
	}
	oldScore := l.Score
	result := scoring.Compute(l, acts, e.now())
	l.Score = result.Score
	l.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return l, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateLead(ctx, tx, l); err != nil {
		return l, err
	}
	if err := e.Events.Append(ctx, tx, "lead.updated", l.AgentID, "lead", l.ID, events.EventPayload{
		"score": l.Score,
	}); err != nil {
		return l, err
	}
	if err := tx.Commit(); err != nil {
		return l, err
	}
	if l.Score != oldScore {
		e.emit(ctx, scoreChangedEvent(l, oldScore, 0))
	}
	return l, nil
}

// SetLeadStatus applies an explicit status change. Any status may follow any
// status; dependent logic only fires when old and new differ.
func (e *Engine) SetLeadStatus(ctx context.Context, leadID, status string, depth int) (domain.Lead, error) {
	newStatus, err := domain.ParseLeadStatus(status)
	if err != nil {
		return domain.Lead{}, err
	}
	l, err := e.Repo.GetLead(ctx, leadID)
	if err != nil {
		return l, err
	}
	if l.Status == newStatus {
		return l, nil
	}
	oldStatus := l.Status
	l.Status = newStatus
	acts, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return l, err
	}
	oldScore := l.Score
	l.Score = scoring.Compute(l, acts, e.now()).Score
	l.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return l, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateLead(ctx, tx, l); err != nil {
		return l, err
	}
	if err := e.Events.Append(ctx, tx, "lead.status_changed", l.AgentID, "lead", l.ID, events.EventPayload{
		"from": oldStatus, "to": newStatus, "score": l.Score,
	}); err != nil {
		return l, err
	}
	if err := tx.Commit(); err != nil {
		return l, err
	}
	evts := []domain.Event{{
		Trigger: domain.TriggerLeadStatusChanged,
		AgentID: l.AgentID,
		LeadID:  l.ID,
		Data:    map[string]any{"from": string(oldStatus), "to": string(newStatus)},
		Depth:   depth,
	}}
	if l.Score != oldScore {
		evts = append(evts, scoreChangedEvent(l, oldScore, depth))
	}
	e.emit(ctx, evts...)
	return l, nil
}

func scoreChangedEvent(l domain.Lead, oldScore, depth int) domain.Event {
	return domain.Event{
		Trigger: domain.TriggerScoreChanged,
		AgentID: l.AgentID,
		LeadID:  l.ID,
		Data:    map[string]any{"old_score": oldScore, "new_score": l.Score},
		Depth:   depth,
	}
}
