package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadline/internal/domain"
	"leadline/internal/engine"
	"leadline/internal/repo"
)

type activityBody struct {
	Body domain.Activity `json:"body"`
}

type activitiesBody struct {
	Body []domain.Activity `json:"body"`
}

func (s *handlers) registerActivities(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-activity",
		Method:        http.MethodPost,
		Path:          "/leads/{lead_id}/activities",
		Summary:       "Log activity",
		Description:   "Records an interaction. Progress-implying interactions advance the lead status; the score is recomputed.",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		LeadID string `path:"lead_id"`
		Body   LogActivityRequest
	}) (*struct {
		Body struct {
			Activity domain.Activity `json:"activity"`
			Lead     domain.Lead     `json:"lead"`
		} `json:"body"`
	}, error) {
		activity, lead, err := s.engine.LogActivity(ctx, engine.ActivityLogOptions{
			LeadID:      input.LeadID,
			Type:        input.Body.Type,
			Outcome:     input.Body.Outcome,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			DurationMin: input.Body.DurationMin,
		})
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Activity domain.Activity `json:"activity"`
				Lead     domain.Lead     `json:"lead"`
			} `json:"body"`
		}{}
		out.Body.Activity = activity
		out.Body.Lead = lead
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-lead-activities",
		Method:      http.MethodGet,
		Path:        "/leads/{lead_id}/activities",
		Summary:     "List lead activities",
		Description: "Newest first.",
	}, func(ctx context.Context, input *struct {
		LeadID string `path:"lead_id"`
		Limit  int    `query:"limit"`
	}) (*activitiesBody, error) {
		acts, err := s.engine.Repo.ListLeadActivities(ctx, input.LeadID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &activitiesBody{Body: acts}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/activities",
		Summary:     "List activities",
	}, func(ctx context.Context, input *struct {
		AgentID string `query:"agent_id"`
		LeadID  string `query:"lead_id"`
		Type    string `query:"type"`
		Limit   int    `query:"limit"`
	}) (*activitiesBody, error) {
		acts, err := s.engine.Repo.ListActivities(ctx, repo.ActivityFilters{
			AgentID: s.agentOr(input.AgentID),
			LeadID:  input.LeadID,
			Type:    input.Type,
			Limit:   input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &activitiesBody{Body: acts}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-activity",
		Method:      http.MethodPatch,
		Path:        "/activities/{activity_id}",
		Summary:     "Update activity",
	}, func(ctx context.Context, input *struct {
		ActivityID string `path:"activity_id"`
		Body       UpdateActivityRequest
	}) (*activityBody, error) {
		activity, err := s.engine.UpdateActivity(ctx, engine.ActivityUpdateOptions{
			ID:          input.ActivityID,
			Type:        input.Body.Type,
			Outcome:     input.Body.Outcome,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			DurationMin: input.Body.DurationMin,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &activityBody{Body: activity}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-activity",
		Method:        http.MethodDelete,
		Path:          "/activities/{activity_id}",
		Summary:       "Delete activity",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ActivityID string `path:"activity_id"`
	}) (*struct{}, error) {
		if err := s.engine.DeleteActivity(ctx, input.ActivityID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
