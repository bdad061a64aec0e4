package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadline/internal/domain"
	"leadline/internal/repo"
)

type commissionBody struct {
	Body domain.Commission `json:"body"`
}

type commissionsBody struct {
	Body []domain.Commission `json:"body"`
}

func (s *handlers) registerCommissions(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-commissions",
		Method:      http.MethodGet,
		Path:        "/commissions",
		Summary:     "List commissions",
		Description: "Ordered by scheduled date.",
	}, func(ctx context.Context, input *struct {
		AgentID  string `query:"agent_id"`
		PolicyID string `query:"policy_id"`
		Status   string `query:"status"`
		Type     string `query:"type"`
		Limit    int    `query:"limit"`
	}) (*commissionsBody, error) {
		commissions, err := s.engine.Repo.ListCommissions(ctx, repo.CommissionFilters{
			AgentID:  s.agentOr(input.AgentID),
			PolicyID: input.PolicyID,
			Status:   input.Status,
			Type:     input.Type,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &commissionsBody{Body: commissions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-commission",
		Method:      http.MethodGet,
		Path:        "/commissions/{commission_id}",
		Summary:     "Get commission",
	}, func(ctx context.Context, input *struct {
		CommissionID string `path:"commission_id"`
	}) (*commissionBody, error) {
		c, err := s.engine.Repo.GetCommission(ctx, input.CommissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &commissionBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pay-commission",
		Method:      http.MethodPost,
		Path:        "/commissions/{commission_id}/pay",
		Summary:     "Mark commission paid",
	}, func(ctx context.Context, input *struct {
		CommissionID string `path:"commission_id"`
	}) (*commissionBody, error) {
		c, err := s.engine.MarkCommissionPaid(ctx, input.CommissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &commissionBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clawback-commission",
		Method:      http.MethodPost,
		Path:        "/commissions/{commission_id}/clawback",
		Summary:     "Claw back commission",
	}, func(ctx context.Context, input *struct {
		CommissionID string `path:"commission_id"`
		Body         ClawbackRequest
	}) (*commissionBody, error) {
		c, err := s.engine.ClawbackCommission(ctx, input.CommissionID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return &commissionBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-renewals",
		Method:      http.MethodPost,
		Path:        "/commissions/renewals",
		Summary:     "Run renewal sweep",
		Description: "Writes a pending renewal commission for every issued policy whose product pays renewals.",
	}, func(ctx context.Context, input *struct {
		AgentID string `query:"agent_id"`
	}) (*struct {
		Body RenewalsResponse `json:"body"`
	}, error) {
		created, err := s.engine.RunRenewals(ctx, s.agentOr(input.AgentID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RenewalsResponse `json:"body"`
		}{Body: RenewalsResponse{Created: created, Count: len(created)}}, nil
	})
}
