package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadline/internal/commission"
	"leadline/internal/domain"
	"leadline/internal/events"
	"leadline/internal/repo"
	"leadline/internal/scoring"
)

// PolicyCreateOptions are parameters for writing a policy against a lead.
// Rate resolves from the product rate table when not given explicitly.
type PolicyCreateOptions struct {
	LeadID        string
	Carrier       string
	ProductType   string
	FaceAmount    float64
	Premium       float64
	Rate          *float64
	Status        string
	PolicyNumber  string
	TermYears     *int
	Mode          string
	EffectiveDate *string
}

func (e *Engine) CreatePolicy(ctx context.Context, opts PolicyCreateOptions) (domain.Policy, error) {
	product, err := domain.ParseProductType(opts.ProductType)
	if err != nil {
		return domain.Policy{}, err
	}
	status := domain.PolicyQuoted
	if opts.Status != "" {
		status, err = domain.ParsePolicyStatus(opts.Status)
		if err != nil {
			return domain.Policy{}, err
		}
	}
	if opts.Premium <= 0 {
		return domain.Policy{}, errors.New("premium must be positive")
	}
	if opts.Carrier == "" {
		return domain.Policy{}, errors.New("carrier is required")
	}
	l, err := e.Repo.GetLead(ctx, opts.LeadID)
	if err != nil {
		return domain.Policy{}, err
	}
	calc := commission.Calculate(opts.Premium, product, opts.Rate, domain.CommissionFirstYear)
	now := e.now().UTC().Format(time.RFC3339)
	p := domain.Policy{
		ID:               uuid.New().String(),
		LeadID:           l.ID,
		AgentID:          l.AgentID,
		Carrier:          opts.Carrier,
		ProductType:      product,
		FaceAmount:       opts.FaceAmount,
		Premium:          opts.Premium,
		CommissionRate:   calc.Rate,
		CommissionAmount: calc.Amount,
		Status:           status,
		PolicyNumber:     opts.PolicyNumber,
		TermYears:        opts.TermYears,
		Mode:             opts.Mode,
		EffectiveDate:    opts.EffectiveDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertPolicy(ctx, tx, p); err != nil {
		return p, fmt.Errorf("insert policy: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "policy.created", p.AgentID, "policy", p.ID, events.EventPayload{
		"lead_id": l.ID, "product": product, "premium": p.Premium, "status": p.Status,
	}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	e.emit(ctx, domain.Event{
		Trigger:  domain.TriggerPolicyCreated,
		AgentID:  p.AgentID,
		LeadID:   l.ID,
		PolicyID: p.ID,
		Data:     map[string]any{"product": string(product), "premium": p.Premium},
	})
	return p, nil
}

// PolicyUpdateOptions edits policy details. Premium edits recompute the
// expected commission amount while the policy is still unissued; once
// issued the stored commission figures are frozen.
type PolicyUpdateOptions struct {
	ID            string
	Carrier       *string
	FaceAmount    *float64
	Premium       *float64
	PolicyNumber  *string
	TermYears     *int
	Mode          *string
	EffectiveDate *string
}

func (e *Engine) UpdatePolicy(ctx context.Context, opts PolicyUpdateOptions) (domain.Policy, error) {
	p, err := e.Repo.GetPolicy(ctx, opts.ID)
	if err != nil {
		return p, err
	}
	if opts.Carrier != nil {
		p.Carrier = *opts.Carrier
	}
	if opts.FaceAmount != nil {
		p.FaceAmount = *opts.FaceAmount
	}
	if opts.PolicyNumber != nil {
		p.PolicyNumber = *opts.PolicyNumber
	}
	if opts.TermYears != nil {
		p.TermYears = opts.TermYears
	}
	if opts.Mode != nil {
		p.Mode = *opts.Mode
	}
	if opts.EffectiveDate != nil {
		p.EffectiveDate = opts.EffectiveDate
	}
	if opts.Premium != nil {
		if *opts.Premium <= 0 {
			return p, errors.New("premium must be positive")
		}
		p.Premium = *opts.Premium
		if !policyIssuedOrLater(p.Status) {
			p.CommissionAmount = p.Premium * p.CommissionRate
		}
	}
	p.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdatePolicy(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "policy.updated", p.AgentID, "policy", p.ID, events.EventPayload{
		"premium": p.Premium,
	}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

func policyIssuedOrLater(s domain.PolicyStatus) bool {
	switch s {
	case domain.PolicyIssued, domain.PolicyLapsed, domain.PolicySurrendered, domain.PolicyReplaced:
		return true
	}
	return false
}

// SetPolicyStatus moves a policy to a new status and applies the dependent
// lead and commission effects. Dependent effects only fire when old and new
// differ; the first transition into ISSUED is the only one that writes a
// first-year commission.
func (e *Engine) SetPolicyStatus(ctx context.Context, policyID, status string, depth int) (domain.Policy, error) {
	newStatus, err := domain.ParsePolicyStatus(status)
	if err != nil {
		return domain.Policy{}, err
	}
	p, err := e.Repo.GetPolicy(ctx, policyID)
	if err != nil {
		return p, err
	}
	if p.Status == newStatus {
		return p, nil
	}
	oldStatus := p.Status
	p.Status = newStatus
	nowT := e.now()
	now := nowT.UTC().Format(time.RFC3339)
	p.UpdatedAt = now

	l, err := e.Repo.GetLead(ctx, p.LeadID)
	if err != nil {
		return p, err
	}
	prior, err := e.Repo.ListLeadActivities(ctx, l.ID, 0)
	if err != nil {
		return p, err
	}

	var newCommission *domain.Commission
	var sideActivity *domain.Activity
	leadStatus := l.Status

	switch newStatus {
	case domain.PolicyIssued:
		// First issue only: a re-issue after a lapse must not book a second
		// first-year commission or re-log the sale.
		firstIssue := p.IssueDate == nil
		if firstIssue {
			p.IssueDate = &now
			rate := p.CommissionRate
			calc := commission.Calculate(p.Premium, p.ProductType, &rate, domain.CommissionFirstYear)
			c := domain.Commission{
				ID:            uuid.New().String(),
				PolicyID:      p.ID,
				AgentID:       p.AgentID,
				Amount:        calc.Amount,
				Rate:          calc.Rate,
				Type:          domain.CommissionFirstYear,
				Status:        domain.CommissionPending,
				ScheduledDate: commission.ScheduledDate(domain.CommissionFirstYear, nowT).UTC().Format(time.RFC3339),
				CreatedAt:     now,
			}
			newCommission = &c
			sideActivity = &domain.Activity{
				ID:        uuid.New().String(),
				LeadID:    l.ID,
				AgentID:   l.AgentID,
				Type:      domain.ActivityNote,
				Outcome:   domain.OutcomeSold,
				Title:     "Policy issued",
				CreatedAt: now,
			}
		}
		leadStatus = domain.LeadPlaced
	case domain.PolicyUnderwriting:
		// First entry only. Bouncing between UNDERWRITING and
		// PENDING_REQUIREMENTS must not pile up note activities.
		if p.UnderwritingDate == nil {
			p.UnderwritingDate = &now
			if !l.Status.Terminal() {
				leadStatus = domain.LeadUnderwriting
			}
			sideActivity = &domain.Activity{
				ID:        uuid.New().String(),
				LeadID:    l.ID,
				AgentID:   l.AgentID,
				Type:      domain.ActivityNote,
				Title:     "Policy entered underwriting",
				CreatedAt: now,
			}
		}
	case domain.PolicyDeclined, domain.PolicyPostponed:
		leadStatus = domain.LeadNotPlaced
		sideActivity = &domain.Activity{
			ID:        uuid.New().String(),
			LeadID:    l.ID,
			AgentID:   l.AgentID,
			Type:      domain.ActivityNote,
			Title:     fmt.Sprintf("Policy %s by carrier", statusVerb(newStatus)),
			CreatedAt: now,
		}
	case domain.PolicyWithdrawn:
		leadStatus = domain.LeadLost
		sideActivity = &domain.Activity{
			ID:        uuid.New().String(),
			LeadID:    l.ID,
			AgentID:   l.AgentID,
			Type:      domain.ActivityNote,
			Title:     "Application withdrawn",
			CreatedAt: now,
		}
	}

	oldLeadStatus := l.Status
	l.Status = leadStatus
	acts := prior
	if sideActivity != nil {
		acts = append([]domain.Activity{*sideActivity}, prior...)
	}
	oldScore := l.Score
	l.Score = scoring.Compute(l, acts, nowT).Score
	l.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdatePolicy(ctx, tx, p); err != nil {
		return p, err
	}
	if sideActivity != nil {
		if err := e.Repo.InsertActivity(ctx, tx, *sideActivity); err != nil {
			return p, err
		}
	}
	if err := e.Repo.UpdateLead(ctx, tx, l); err != nil {
		return p, err
	}
	if newCommission != nil {
		if err := e.Repo.InsertCommission(ctx, tx, *newCommission); err != nil {
			return p, err
		}
	}
	if err := e.Events.Append(ctx, tx, "policy.status_changed", p.AgentID, "policy", p.ID, events.EventPayload{
		"from": oldStatus, "to": newStatus,
	}); err != nil {
		return p, err
	}
	if newCommission != nil {
		if err := e.Events.Append(ctx, tx, "commission.created", p.AgentID, "commission", newCommission.ID, events.EventPayload{
			"policy_id": p.ID, "amount": newCommission.Amount, "type": newCommission.Type,
		}); err != nil {
			return p, err
		}
	}
	if l.Status != oldLeadStatus {
		if err := e.Events.Append(ctx, tx, "lead.status_changed", l.AgentID, "lead", l.ID, events.EventPayload{
			"from": oldLeadStatus, "to": l.Status, "policy_id": p.ID,
		}); err != nil {
			return p, err
		}
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}

	var evts []domain.Event
	if newStatus == domain.PolicyIssued {
		evts = append(evts, domain.Event{
			Trigger:  domain.TriggerPolicyIssued,
			AgentID:  p.AgentID,
			LeadID:   l.ID,
			PolicyID: p.ID,
			Data:     map[string]any{"premium": p.Premium},
			Depth:    depth,
		})
	}
	if newCommission != nil {
		evts = append(evts, domain.Event{
			Trigger:  domain.TriggerCommissionEarned,
			AgentID:  p.AgentID,
			LeadID:   l.ID,
			PolicyID: p.ID,
			Data:     map[string]any{"amount": newCommission.Amount, "type": string(newCommission.Type)},
			Depth:    depth,
		})
	}
	if l.Status != oldLeadStatus {
		evts = append(evts, domain.Event{
			Trigger: domain.TriggerLeadStatusChanged,
			AgentID: l.AgentID,
			LeadID:  l.ID,
			Data:    map[string]any{"from": string(oldLeadStatus), "to": string(l.Status)},
			Depth:   depth,
		})
	}
	if l.Score != oldScore {
		evts = append(evts, scoreChangedEvent(l, oldScore, depth))
	}
	e.emit(ctx, evts...)
	return p, nil
}

func statusVerb(s domain.PolicyStatus) string {
	switch s {
	case domain.PolicyDeclined:
		return "declined"
	case domain.PolicyPostponed:
		return "postponed"
	}
	return "closed"
}

// RunRenewals writes a pending renewal commission for every issued policy
// whose product pays renewals and which has no pending renewal yet. It
// returns the commissions created.
func (e *Engine) RunRenewals(ctx context.Context, agentID string) ([]domain.Commission, error) {
	policies, err := e.Repo.ListPolicies(ctx, repo.PolicyFilters{AgentID: agentID, Status: string(domain.PolicyIssued)})
	if err != nil {
		return nil, err
	}
	nowT := e.now()
	now := nowT.UTC().Format(time.RFC3339)
	var created []domain.Commission
	for _, p := range policies {
		calc := commission.Calculate(p.Premium, p.ProductType, nil, domain.CommissionRenewal)
		if calc.Rate == 0 {
			continue
		}
		exists, err := e.Repo.HasPendingCommission(ctx, p.ID, domain.CommissionRenewal)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		c := domain.Commission{
			ID:            uuid.New().String(),
			PolicyID:      p.ID,
			AgentID:       p.AgentID,
			Amount:        calc.Amount,
			Rate:          calc.Rate,
			Type:          domain.CommissionRenewal,
			Status:        domain.CommissionPending,
			ScheduledDate: commission.ScheduledDate(domain.CommissionRenewal, nowT).UTC().Format(time.RFC3339),
			CreatedAt:     now,
		}
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return created, err
		}
		if err := e.Repo.InsertCommission(ctx, tx, c); err != nil {
			tx.Rollback()
			return created, err
		}
		if err := e.Events.Append(ctx, tx, "commission.created", c.AgentID, "commission", c.ID, events.EventPayload{
			"policy_id": p.ID, "amount": c.Amount, "type": c.Type,
		}); err != nil {
			tx.Rollback()
			return created, err
		}
		if err := tx.Commit(); err != nil {
			return created, err
		}
		created = append(created, c)
		e.emit(ctx, domain.Event{
			Trigger:  domain.TriggerCommissionEarned,
			AgentID:  c.AgentID,
			LeadID:   p.LeadID,
			PolicyID: p.ID,
			Data:     map[string]any{"amount": c.Amount, "type": string(c.Type)},
		})
	}
	return created, nil
}

// MarkCommissionPaid settles a pending commission.
func (e *Engine) MarkCommissionPaid(ctx context.Context, id string) (domain.Commission, error) {
	c, err := e.Repo.GetCommission(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status != domain.CommissionPending {
		return c, fmt.Errorf("commission is %s, only PENDING can be paid", c.Status)
	}
	now := e.now().UTC().Format(time.RFC3339)
	c.Status = domain.CommissionPaid
	c.PaidDate = &now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCommission(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "commission.paid", c.AgentID, "commission", c.ID, events.EventPayload{
		"amount": c.Amount,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// ClawbackCommission reverses a commission. A reason is mandatory; it is
// appended to the commission notes.
func (e *Engine) ClawbackCommission(ctx context.Context, id, reason string) (domain.Commission, error) {
	if reason == "" {
		return domain.Commission{}, errors.New("clawback reason is required")
	}
	c, err := e.Repo.GetCommission(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status == domain.CommissionClawedBack {
		return c, errors.New("commission already clawed back")
	}
	c.Status = domain.CommissionClawedBack
	c.Notes = appendNote(c.Notes, "Clawback: "+reason)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCommission(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "commission.clawed_back", c.AgentID, "commission", c.ID, events.EventPayload{
		"amount": c.Amount, "reason": reason,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}
