package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadline/internal/domain"
	"leadline/internal/events"
)

// CampaignCreateOptions defines a campaign. Trigger and actions are
// validated here so stored campaigns are always runnable.
type CampaignCreateOptions struct {
	AgentID string
	Name    string
	Active  bool
	Trigger domain.TriggerCondition
	Actions []domain.Action
}

func (e *Engine) CreateCampaign(ctx context.Context, opts CampaignCreateOptions) (domain.Campaign, error) {
	if opts.AgentID == "" {
		return domain.Campaign{}, errors.New("agent is required")
	}
	if opts.Name == "" {
		return domain.Campaign{}, errors.New("campaign name is required")
	}
	if err := opts.Trigger.Validate(); err != nil {
		return domain.Campaign{}, err
	}
	if err := domain.ValidateActions(opts.Actions); err != nil {
		return domain.Campaign{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Campaign{
		ID:        uuid.New().String(),
		AgentID:   opts.AgentID,
		Name:      opts.Name,
		Active:    opts.Active,
		Trigger:   opts.Trigger,
		Actions:   opts.Actions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCampaign(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "campaign.created", c.AgentID, "campaign", c.ID, events.EventPayload{
		"name": c.Name, "trigger": c.Trigger.Kind,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

type CampaignUpdateOptions struct {
	ID      string
	Name    *string
	Active  *bool
	Trigger *domain.TriggerCondition
	Actions []domain.Action
}

func (e *Engine) UpdateCampaign(ctx context.Context, opts CampaignUpdateOptions) (domain.Campaign, error) {
	c, err := e.Repo.GetCampaign(ctx, opts.ID)
	if err != nil {
		return c, err
	}
	if opts.Name != nil {
		c.Name = *opts.Name
	}
	if opts.Active != nil {
		c.Active = *opts.Active
	}
	if opts.Trigger != nil {
		if err := opts.Trigger.Validate(); err != nil {
			return c, err
		}
		c.Trigger = *opts.Trigger
	}
	if opts.Actions != nil {
		if err := domain.ValidateActions(opts.Actions); err != nil {
			return c, err
		}
		c.Actions = opts.Actions
	}
	c.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCampaign(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "campaign.updated", c.AgentID, "campaign", c.ID, events.EventPayload{
		"name": c.Name, "active": c.Active,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

func (e *Engine) DeleteCampaign(ctx context.Context, id string) error {
	c, err := e.Repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteCampaign(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "campaign.deleted", c.AgentID, "campaign", c.ID, events.EventPayload{
		"name": c.Name,
	}); err != nil {
		return err
	}
	return tx.Commit()
}
