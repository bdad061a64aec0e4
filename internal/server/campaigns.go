package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadline/internal/domain"
	"leadline/internal/engine"
)

type campaignBody struct {
	Body domain.Campaign `json:"body"`
}

type campaignsBody struct {
	Body []domain.Campaign `json:"body"`
}

func (s *handlers) registerCampaigns(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-campaign",
		Method:        http.MethodPost,
		Path:          "/campaigns",
		Summary:       "Create campaign",
		Description:   "Trigger condition and actions are validated before the campaign is stored.",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateCampaignRequest
	}) (*campaignBody, error) {
		c, err := s.engine.CreateCampaign(ctx, engine.CampaignCreateOptions{
			AgentID: s.agentOr(input.Body.AgentID),
			Name:    input.Body.Name,
			Active:  input.Body.Active,
			Trigger: input.Body.Trigger,
			Actions: input.Body.Actions,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &campaignBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-campaigns",
		Method:      http.MethodGet,
		Path:        "/campaigns",
		Summary:     "List campaigns",
	}, func(ctx context.Context, input *struct {
		AgentID string `query:"agent_id"`
		Active  bool   `query:"active"`
	}) (*campaignsBody, error) {
		campaigns, err := s.engine.Repo.ListCampaigns(ctx, s.agentOr(input.AgentID), input.Active)
		if err != nil {
			return nil, handleError(err)
		}
		return &campaignsBody{Body: campaigns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-campaign",
		Method:      http.MethodGet,
		Path:        "/campaigns/{campaign_id}",
		Summary:     "Get campaign",
	}, func(ctx context.Context, input *struct {
		CampaignID string `path:"campaign_id"`
	}) (*campaignBody, error) {
		c, err := s.engine.Repo.GetCampaign(ctx, input.CampaignID)
		if err != nil {
			return nil, handleError(err)
		}
		return &campaignBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-campaign",
		Method:      http.MethodPatch,
		Path:        "/campaigns/{campaign_id}",
		Summary:     "Update campaign",
	}, func(ctx context.Context, input *struct {
		CampaignID string `path:"campaign_id"`
		Body       UpdateCampaignRequest
	}) (*campaignBody, error) {
		c, err := s.engine.UpdateCampaign(ctx, engine.CampaignUpdateOptions{
			ID:      input.CampaignID,
			Name:    input.Body.Name,
			Active:  input.Body.Active,
			Trigger: input.Body.Trigger,
			Actions: input.Body.Actions,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &campaignBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-campaign",
		Method:        http.MethodDelete,
		Path:          "/campaigns/{campaign_id}",
		Summary:       "Delete campaign",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		CampaignID string `path:"campaign_id"`
	}) (*struct{}, error) {
		if err := s.engine.DeleteCampaign(ctx, input.CampaignID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-campaign",
		Method:      http.MethodPost,
		Path:        "/campaigns/{campaign_id}/run",
		Summary:     "Run campaign for all leads",
		Description: "Executes the campaign against every lead of its agent, ignoring the trigger condition.",
	}, func(ctx context.Context, input *struct {
		CampaignID string `path:"campaign_id"`
	}) (*struct {
		Body RunCampaignResponse `json:"body"`
	}, error) {
		if s.dispatcher == nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "dispatcher not configured", nil)
		}
		n, err := s.dispatcher.RunCampaignForAllLeads(ctx, input.CampaignID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RunCampaignResponse `json:"body"`
		}{Body: RunCampaignResponse{CampaignID: input.CampaignID, LeadsRun: n}}, nil
	})
}

func (s *handlers) registerDashboard(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Pipeline dashboard",
	}, func(ctx context.Context, input *struct {
		AgentID string `query:"agent_id"`
	}) (*struct {
		Body engine.DashboardData `json:"body"`
	}, error) {
		d, err := s.engine.Dashboard(ctx, s.agentOr(input.AgentID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.DashboardData `json:"body"`
		}{Body: d}, nil
	})
}

func (s *handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List audit events",
		Description: "Newest first.",
	}, func(ctx context.Context, input *struct {
		AgentID    string `query:"agent_id"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.AuditEvent `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		evts, err := s.engine.Repo.LatestAuditEvents(ctx, limit, s.agentOr(input.AgentID), input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.AuditEvent `json:"body"`
		}{Body: evts}, nil
	})
}
