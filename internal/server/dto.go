package server

import (
	"leadline/internal/domain"
)

// Request payloads

type IntakeRequest struct {
	AgentID          string   `json:"agent_id,omitempty"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Phone            string   `json:"phone"`
	Email            string   `json:"email,omitempty"`
	DateOfBirth      string   `json:"date_of_birth,omitempty"`
	CoverageAmount   float64  `json:"coverage_amount,omitempty"`
	HealthStatus     string   `json:"health_status,omitempty"`
	HealthConditions []string `json:"health_conditions,omitempty"`
	Source           string   `json:"source,omitempty"`
	ProductType      string   `json:"product_type,omitempty"`
}

type CreateLeadRequest struct {
	AgentID     string `json:"agent_id,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	IntentLevel string `json:"intent_level,omitempty" enum:"HOT,WARM,COLD,UNKNOWN,NONE"`
	Source      string `json:"source,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type UpdateLeadRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	IntentLevel *string `json:"intent_level,omitempty" enum:"HOT,WARM,COLD,UNKNOWN,NONE"`
	Source      *string `json:"source,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type SetLeadStatusRequest struct {
	Status string `json:"status" enum:"NEW,CONTACTED,ENGAGED,QUALIFIED,PROPOSAL,APPLICATION,UNDERWRITING,PLACED,NOT_PLACED,NOT_INTERESTED,LOST,UNRESPONSIVE"`
}

type LogActivityRequest struct {
	Type        string `json:"type"`
	Outcome     string `json:"outcome,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DurationMin *int   `json:"duration_min,omitempty"`
}

type UpdateActivityRequest struct {
	Type        *string `json:"type,omitempty"`
	Outcome     *string `json:"outcome,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DurationMin *int    `json:"duration_min,omitempty"`
}

type CreatePolicyRequest struct {
	LeadID         string   `json:"lead_id"`
	Carrier        string   `json:"carrier"`
	ProductType    string   `json:"product_type"`
	FaceAmount     float64  `json:"face_amount,omitempty"`
	Premium        float64  `json:"premium"`
	CommissionRate *float64 `json:"commission_rate,omitempty"`
	Status         string   `json:"status,omitempty"`
	PolicyNumber   string   `json:"policy_number,omitempty"`
	TermYears      *int     `json:"term_years,omitempty"`
	Mode           string   `json:"mode,omitempty"`
	EffectiveDate  *string  `json:"effective_date,omitempty" format:"date-time"`
}

type UpdatePolicyRequest struct {
	Carrier       *string  `json:"carrier,omitempty"`
	FaceAmount    *float64 `json:"face_amount,omitempty"`
	Premium       *float64 `json:"premium,omitempty"`
	PolicyNumber  *string  `json:"policy_number,omitempty"`
	TermYears     *int     `json:"term_years,omitempty"`
	Mode          *string  `json:"mode,omitempty"`
	EffectiveDate *string  `json:"effective_date,omitempty" format:"date-time"`
}

type SetPolicyStatusRequest struct {
	Status string `json:"status" enum:"QUOTED,APPLIED,UNDERWRITING,APPROVED,ISSUED,PENDING_REQUIREMENTS,DECLINED,POSTPONED,WITHDRAWN,LAPSED,SURRENDERED,REPLACED"`
}

type ClawbackRequest struct {
	Reason string `json:"reason"`
}

type CreateCampaignRequest struct {
	AgentID string                  `json:"agent_id,omitempty"`
	Name    string                  `json:"name"`
	Active  bool                    `json:"active"`
	Trigger domain.TriggerCondition `json:"trigger"`
	Actions []domain.Action         `json:"actions"`
}

type UpdateCampaignRequest struct {
	Name    *string                  `json:"name,omitempty"`
	Active  *bool                    `json:"active,omitempty"`
	Trigger *domain.TriggerCondition `json:"trigger,omitempty"`
	Actions []domain.Action          `json:"actions,omitempty"`
}

// Response payloads

type IntakeResponse struct {
	Lead   domain.Lead `json:"lead"`
	Merged bool        `json:"merged"`
}

type RunCampaignResponse struct {
	CampaignID string `json:"campaign_id"`
	LeadsRun   int    `json:"leads_run"`
}

type RenewalsResponse struct {
	Created []domain.Commission `json:"created"`
	Count   int                 `json:"count"`
}
