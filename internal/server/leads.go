package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadline/internal/domain"
	"leadline/internal/engine"
	"leadline/internal/repo"
	"leadline/internal/scoring"
)

type leadBody struct {
	Body domain.Lead `json:"body"`
}

type leadsBody struct {
	Body []domain.Lead `json:"body"`
}

func (s *handlers) registerIntake(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "intake-lead",
		Method:        http.MethodPost,
		Path:          "/intake",
		Summary:       "Submit an intake form",
		Description:   "Creates a lead from a public intake submission, or merges into an existing lead with the same phone or email.",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body IntakeRequest
	}) (*struct {
		Body IntakeResponse `json:"body"`
	}, error) {
		lead, merged, err := s.engine.IntakeLead(ctx, engine.IntakeOptions{
			AgentID:          s.agentOr(input.Body.AgentID),
			FirstName:        input.Body.FirstName,
			LastName:         input.Body.LastName,
			Email:            input.Body.Email,
			Phone:            input.Body.Phone,
			DateOfBirth:      input.Body.DateOfBirth,
			CoverageAmount:   input.Body.CoverageAmount,
			HealthStatus:     input.Body.HealthStatus,
			HealthConditions: input.Body.HealthConditions,
			Source:           input.Body.Source,
			ProductType:      input.Body.ProductType,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IntakeResponse `json:"body"`
		}{Body: IntakeResponse{Lead: lead, Merged: merged}}, nil
	})
}

func (s *handlers) registerLeads(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-lead",
		Method:        http.MethodPost,
		Path:          "/leads",
		Summary:       "Create lead",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateLeadRequest
	}) (*leadBody, error) {
		lead, err := s.engine.CreateLead(ctx, engine.LeadCreateOptions{
			AgentID:     s.agentOr(input.Body.AgentID),
			FirstName:   input.Body.FirstName,
			LastName:    input.Body.LastName,
			Phone:       input.Body.Phone,
			Email:       input.Body.Email,
			IntentLevel: domain.IntentLevel(input.Body.IntentLevel),
			Source:      input.Body.Source,
			Notes:       input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &leadBody{Body: lead}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-leads",
		Method:      http.MethodGet,
		Path:        "/leads",
		Summary:     "List leads",
		Description: "Leads ordered by score, highest first.",
	}, func(ctx context.Context, input *struct {
		AgentID  string `query:"agent_id"`
		Status   string `query:"status"`
		Intent   string `query:"intent"`
		MinScore int    `query:"min_score"`
		Limit    int    `query:"limit"`
	}) (*leadsBody, error) {
		leads, err := s.engine.Repo.ListLeads(ctx, repo.LeadFilters{
			AgentID:  s.agentOr(input.AgentID),
			Status:   input.Status,
			Intent:   input.Intent,
			MinScore: input.MinScore,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &leadsBody{Body: leads}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lead",
		Method:      http.MethodGet,
		Path:        "/leads/{lead_id}",
		Summary:     "Get lead",
	}, func(ctx context.Context, input *struct {
		LeadID string `path:"lead_id"`
	}) (*leadBody, error) {
		lead, err := s.engine.Repo.GetLead(ctx, input.LeadID)
		if err != nil {
			return nil, handleError(err)
		}
		return &leadBody{Body: lead}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-lead",
		Method:      http.MethodPatch,
		Path:        "/leads/{lead_id}",
		Summary:     "Update lead",
	}, func(ctx context.Context, input *struct {
		LeadID string `path:"lead_id"`
		Body   UpdateLeadRequest
	}) (*leadBody, error) {
		lead, err := s.engine.UpdateLead(ctx, engine.LeadUpdateOptions{
			ID:          input.LeadID,
			FirstName:   input.Body.FirstName,
			LastName:    input.Body.LastName,
			Phone:       input.Body.Phone,
			Email:       input.Body.Email,
			IntentLevel: input.Body.IntentLevel,
			Source:      input.Body.Source,
			Notes:       input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &leadBody{Body: lead}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-lead-status",
		Method:      http.MethodPut,
		Path:        "/leads/{lead_id}/status",
		Summary:     "Set lead status",
	}, func(ctx context.Context, input *struct {
		LeadID string `path:"lead_id"`
		Body   SetLeadStatusRequest
	}) (*leadBody, error) {
		lead, err := s.engine.SetLeadStatus(ctx, input.LeadID, input.Body.Status, 0)
		if err != nil {
			return nil, handleError(err)
		}
		return &leadBody{Body: lead}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "explain-lead-score",
		Method:      http.MethodGet,
		Path:        "/leads/{lead_id}/score",
		Summary:     "Explain lead score",
		Description: "Recomputes the score and returns the component breakdown without persisting.",
	}, func(ctx context.Context, input *struct {
		LeadID string `path:"lead_id"`
	}) (*struct {
		Body scoring.Result `json:"body"`
	}, error) {
		res, err := s.engine.ExplainScore(ctx, input.LeadID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body scoring.Result `json:"body"`
		}{Body: res}, nil
	})
}
