package domain

type Lead struct {
	ID          string      `json:"id"`
	AgentID     string      `json:"agent_id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email,omitempty"`
	Status      LeadStatus  `json:"status"`
	IntentLevel IntentLevel `json:"intent_level"`
	Score       int         `json:"score"`
	Source      string      `json:"source,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	CreatedAt   string      `json:"created_at" format:"date-time"`
	UpdatedAt   string      `json:"updated_at" format:"date-time"`
}

type Activity struct {
	ID          string       `json:"id"`
	LeadID      string       `json:"lead_id"`
	AgentID     string       `json:"agent_id"`
	Type        ActivityType `json:"type"`
	Outcome     Outcome      `json:"outcome,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DurationMin *int         `json:"duration_min,omitempty"`
	CreatedAt   string       `json:"created_at" format:"date-time"`
}

type Policy struct {
	ID               string       `json:"id"`
	LeadID           string       `json:"lead_id"`
	AgentID          string       `json:"agent_id"`
	Carrier          string       `json:"carrier"`
	ProductType      ProductType  `json:"product_type"`
	FaceAmount       float64      `json:"face_amount,omitempty"`
	Premium          float64      `json:"premium"`
	CommissionRate   float64      `json:"commission_rate"`
	CommissionAmount float64      `json:"commission_amount"`
	Status           PolicyStatus `json:"status"`
	PolicyNumber     string       `json:"policy_number,omitempty"`
	TermYears        *int         `json:"term_years,omitempty"`
	Mode             string       `json:"mode,omitempty"`
	IssueDate        *string      `json:"issue_date,omitempty" format:"date-time"`
	UnderwritingDate *string      `json:"underwriting_date,omitempty" format:"date-time"`
	EffectiveDate    *string      `json:"effective_date,omitempty" format:"date-time"`
	CreatedAt        string       `json:"created_at" format:"date-time"`
	UpdatedAt        string       `json:"updated_at" format:"date-time"`
}

type Commission struct {
	ID            string           `json:"id"`
	PolicyID      string           `json:"policy_id"`
	AgentID       string           `json:"agent_id"`
	Amount        float64          `json:"amount"`
	Rate          float64          `json:"rate"`
	Type          CommissionType   `json:"type"`
	Status        CommissionStatus `json:"status"`
	ScheduledDate string           `json:"scheduled_date" format:"date-time"`
	PaidDate      *string          `json:"paid_date,omitempty" format:"date-time"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     string           `json:"created_at" format:"date-time"`
}

type Campaign struct {
	ID        string           `json:"id"`
	AgentID   string           `json:"agent_id"`
	Name      string           `json:"name"`
	Active    bool             `json:"active"`
	Trigger   TriggerCondition `json:"trigger"`
	Actions   []Action         `json:"actions"`
	RunCount  int              `json:"run_count"`
	LastRunAt *string          `json:"last_run_at,omitempty" format:"date-time"`
	CreatedAt string           `json:"created_at" format:"date-time"`
	UpdatedAt string           `json:"updated_at" format:"date-time"`
}

type AuditEvent struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	AgentID    string `json:"agent_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
