package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadline/internal/domain"
	"leadline/internal/engine"
	"leadline/internal/repo"
)

type policyBody struct {
	Body domain.Policy `json:"body"`
}

type policiesBody struct {
	Body []domain.Policy `json:"body"`
}

func (s *handlers) registerPolicies(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-policy",
		Method:        http.MethodPost,
		Path:          "/policies",
		Summary:       "Create policy",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreatePolicyRequest
	}) (*policyBody, error) {
		policy, err := s.engine.CreatePolicy(ctx, engine.PolicyCreateOptions{
			LeadID:        input.Body.LeadID,
			Carrier:       input.Body.Carrier,
			ProductType:   input.Body.ProductType,
			FaceAmount:    input.Body.FaceAmount,
			Premium:       input.Body.Premium,
			Rate:          input.Body.CommissionRate,
			Status:        input.Body.Status,
			PolicyNumber:  input.Body.PolicyNumber,
			TermYears:     input.Body.TermYears,
			Mode:          input.Body.Mode,
			EffectiveDate: input.Body.EffectiveDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &policyBody{Body: policy}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-policies",
		Method:      http.MethodGet,
		Path:        "/policies",
		Summary:     "List policies",
	}, func(ctx context.Context, input *struct {
		AgentID string `query:"agent_id"`
		LeadID  string `query:"lead_id"`
		Status  string `query:"status"`
		Limit   int    `query:"limit"`
	}) (*policiesBody, error) {
		policies, err := s.engine.Repo.ListPolicies(ctx, repo.PolicyFilters{
			AgentID: s.agentOr(input.AgentID),
			LeadID:  input.LeadID,
			Status:  input.Status,
			Limit:   input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &policiesBody{Body: policies}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-policy",
		Method:      http.MethodGet,
		Path:        "/policies/{policy_id}",
		Summary:     "Get policy",
	}, func(ctx context.Context, input *struct {
		PolicyID string `path:"policy_id"`
	}) (*policyBody, error) {
		policy, err := s.engine.Repo.GetPolicy(ctx, input.PolicyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &policyBody{Body: policy}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-policy",
		Method:      http.MethodPatch,
		Path:        "/policies/{policy_id}",
		Summary:     "Update policy",
	}, func(ctx context.Context, input *struct {
		PolicyID string `path:"policy_id"`
		Body     UpdatePolicyRequest
	}) (*policyBody, error) {
		policy, err := s.engine.UpdatePolicy(ctx, engine.PolicyUpdateOptions{
			ID:            input.PolicyID,
			Carrier:       input.Body.Carrier,
			FaceAmount:    input.Body.FaceAmount,
			Premium:       input.Body.Premium,
			PolicyNumber:  input.Body.PolicyNumber,
			TermYears:     input.Body.TermYears,
			Mode:          input.Body.Mode,
			EffectiveDate: input.Body.EffectiveDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &policyBody{Body: policy}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-policy-status",
		Method:      http.MethodPut,
		Path:        "/policies/{policy_id}/status",
		Summary:     "Set policy status",
		Description: "Issuing a policy writes the first-year commission, places the lead and logs a sold activity.",
	}, func(ctx context.Context, input *struct {
		PolicyID string `path:"policy_id"`
		Body     SetPolicyStatusRequest
	}) (*policyBody, error) {
		policy, err := s.engine.SetPolicyStatus(ctx, input.PolicyID, input.Body.Status, 0)
		if err != nil {
			return nil, handleError(err)
		}
		return &policyBody{Body: policy}, nil
	})
}
