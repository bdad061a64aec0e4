package domain

import "fmt"

type TriggerKind string

const (
	TriggerLeadCreated       TriggerKind = "lead.created"
	TriggerLeadStatusChanged TriggerKind = "lead.status_changed"
	TriggerActivityLogged    TriggerKind = "activity.logged"
	TriggerPolicyCreated     TriggerKind = "policy.created"
	TriggerPolicyIssued      TriggerKind = "policy.issued"
	TriggerCommissionEarned  TriggerKind = "commission.earned"
	TriggerScoreChanged      TriggerKind = "score.changed"
	TriggerCustom            TriggerKind = "custom"
)

func ParseTriggerKind(s string) (TriggerKind, error) {
	switch TriggerKind(s) {
	case TriggerLeadCreated, TriggerLeadStatusChanged, TriggerActivityLogged,
		TriggerPolicyCreated, TriggerPolicyIssued, TriggerCommissionEarned,
		TriggerScoreChanged, TriggerCustom:
		return TriggerKind(s), nil
	}
	return "", fmt.Errorf("invalid trigger kind %q", s)
}

type ActionKind string

const (
	ActionSendEmail        ActionKind = "SEND_EMAIL"
	ActionSendSMS          ActionKind = "SEND_SMS"
	ActionUpdateLeadStatus ActionKind = "UPDATE_LEAD_STATUS"
	ActionCreateTask       ActionKind = "CREATE_TASK"
	ActionLogNote          ActionKind = "LOG_NOTE"
	ActionWebhook          ActionKind = "WEBHOOK"
	ActionAddToCampaign    ActionKind = "ADD_TO_CAMPAIGN"
)

// Event is a pipeline notification handed to the trigger dispatcher.
// Depth counts how many dispatch re-entries produced it; action-driven
// mutations carry the parent depth plus one.
type Event struct {
	Trigger    TriggerKind    `json:"trigger"`
	AgentID    string         `json:"agent_id"`
	LeadID     string         `json:"lead_id,omitempty"`
	PolicyID   string         `json:"policy_id,omitempty"`
	ActivityID string         `json:"activity_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Depth      int            `json:"depth,omitempty"`
}

// TriggerCondition is the structured predicate stored on a campaign.
// The trigger kind clause is mandatory; score bounds are optional and
// only consulted when the event carries a new score.
type TriggerCondition struct {
	Kind     TriggerKind `json:"kind"`
	MinScore *int        `json:"min_score,omitempty"`
	MaxScore *int        `json:"max_score,omitempty"`
}

func (c TriggerCondition) Validate() error {
	if _, err := ParseTriggerKind(string(c.Kind)); err != nil {
		return err
	}
	if c.MinScore != nil && c.MaxScore != nil && *c.MinScore > *c.MaxScore {
		return fmt.Errorf("trigger condition min_score %d exceeds max_score %d", *c.MinScore, *c.MaxScore)
	}
	return nil
}

// Action is one typed step of a campaign's action list.
type Action struct {
	Kind       ActionKind `json:"kind"`
	To         string     `json:"to,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Body       string     `json:"body,omitempty"`
	Status     string     `json:"status,omitempty"`
	Title      string     `json:"title,omitempty"`
	URL        string     `json:"url,omitempty"`
	CampaignID string     `json:"campaign_id,omitempty"`
}

func (a Action) Validate() error {
	switch a.Kind {
	case ActionSendEmail, ActionSendSMS:
		if a.Body == "" {
			return fmt.Errorf("%s action requires body", a.Kind)
		}
	case ActionUpdateLeadStatus:
		if _, err := ParseLeadStatus(a.Status); err != nil {
			return fmt.Errorf("UPDATE_LEAD_STATUS action: %w", err)
		}
	case ActionCreateTask:
		if a.Title == "" {
			return fmt.Errorf("CREATE_TASK action requires title")
		}
	case ActionLogNote:
		if a.Body == "" {
			return fmt.Errorf("LOG_NOTE action requires body")
		}
	case ActionWebhook:
		if a.URL == "" {
			return fmt.Errorf("WEBHOOK action requires url")
		}
	case ActionAddToCampaign:
		if a.CampaignID == "" {
			return fmt.Errorf("ADD_TO_CAMPAIGN action requires campaign_id")
		}
	default:
		return fmt.Errorf("invalid action kind %q", a.Kind)
	}
	return nil
}

// ValidateActions checks an ordered action list at write time so dispatch
// never has to reject malformed configuration.
func ValidateActions(actions []Action) error {
	if len(actions) == 0 {
		return fmt.Errorf("at least one action required")
	}
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
