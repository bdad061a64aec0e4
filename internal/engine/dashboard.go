package engine

import (
	"context"

	"leadline/internal/domain"
	"leadline/internal/repo"
)

// DashboardData is the agent's pipeline summary.
type DashboardData struct {
	LeadsByStatus      map[string]int      `json:"leads_by_status"`
	PipelinePremium    float64             `json:"pipeline_premium"`
	PendingCommissions float64             `json:"pending_commissions"`
	HotLeads           []domain.Lead       `json:"hot_leads"`
	RecentEvents       []domain.AuditEvent `json:"recent_events"`
}

func (e *Engine) Dashboard(ctx context.Context, agentID string) (DashboardData, error) {
	var d DashboardData
	counts, err := e.Repo.CountLeadsByStatus(ctx, agentID)
	if err != nil {
		return d, err
	}
	d.LeadsByStatus = counts
	d.PipelinePremium, err = e.Repo.SumPipelinePremium(ctx, agentID)
	if err != nil {
		return d, err
	}
	d.PendingCommissions, err = e.Repo.SumPendingCommissions(ctx, agentID)
	if err != nil {
		return d, err
	}
	d.HotLeads, err = e.Repo.ListLeads(ctx, repo.LeadFilters{AgentID: agentID, MinScore: 70, Limit: 5})
	if err != nil {
		return d, err
	}
	d.RecentEvents, err = e.Repo.LatestAuditEvents(ctx, 10, agentID, "", "", "")
	if err != nil {
		return d, err
	}
	return d, nil
}
