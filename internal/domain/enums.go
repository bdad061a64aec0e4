package domain

import "fmt"

type LeadStatus string

const (
	LeadNew           LeadStatus = "NEW"
	LeadContacted     LeadStatus = "CONTACTED"
	LeadEngaged       LeadStatus = "ENGAGED"
	LeadQualified     LeadStatus = "QUALIFIED"
	LeadProposal      LeadStatus = "PROPOSAL"
	LeadApplication   LeadStatus = "APPLICATION"
	LeadUnderwriting  LeadStatus = "UNDERWRITING"
	LeadPlaced        LeadStatus = "PLACED"
	LeadNotPlaced     LeadStatus = "NOT_PLACED"
	LeadNotInterested LeadStatus = "NOT_INTERESTED"
	LeadLost          LeadStatus = "LOST"
	LeadUnresponsive  LeadStatus = "UNRESPONSIVE"
)

func ParseLeadStatus(s string) (LeadStatus, error) {
	switch LeadStatus(s) {
	case LeadNew, LeadContacted, LeadEngaged, LeadQualified, LeadProposal,
		LeadApplication, LeadUnderwriting, LeadPlaced, LeadNotPlaced,
		LeadNotInterested, LeadLost, LeadUnresponsive:
		return LeadStatus(s), nil
	}
	return "", fmt.Errorf("invalid lead status %q", s)
}

// Terminal reports whether the status is a pipeline exit.
func (s LeadStatus) Terminal() bool {
	switch s {
	case LeadPlaced, LeadNotPlaced, LeadNotInterested, LeadLost, LeadUnresponsive:
		return true
	}
	return false
}

// PipelineRank orders the happy-path stages; exits rank below every stage.
func (s LeadStatus) PipelineRank() int {
	switch s {
	case LeadNew:
		return 0
	case LeadContacted:
		return 1
	case LeadEngaged:
		return 2
	case LeadQualified:
		return 3
	case LeadProposal:
		return 4
	case LeadApplication:
		return 5
	case LeadUnderwriting:
		return 6
	case LeadPlaced:
		return 7
	case LeadNotPlaced, LeadNotInterested, LeadLost, LeadUnresponsive:
		return -1
	}
	return -1
}

type IntentLevel string

const (
	IntentHot     IntentLevel = "HOT"
	IntentWarm    IntentLevel = "WARM"
	IntentCold    IntentLevel = "COLD"
	IntentUnknown IntentLevel = "UNKNOWN"
	IntentNone    IntentLevel = "NONE"
)

func ParseIntentLevel(s string) (IntentLevel, error) {
	switch IntentLevel(s) {
	case IntentHot, IntentWarm, IntentCold, IntentUnknown, IntentNone:
		return IntentLevel(s), nil
	}
	return "", fmt.Errorf("invalid intent level %q", s)
}

type ActivityType string

const (
	ActivityCallOutbound     ActivityType = "CALL_OUTBOUND"
	ActivityCallInbound      ActivityType = "CALL_INBOUND"
	ActivityEmailSent        ActivityType = "EMAIL_SENT"
	ActivityEmailReceived    ActivityType = "EMAIL_RECEIVED"
	ActivityTextSent         ActivityType = "TEXT_SENT"
	ActivityTextReceived     ActivityType = "TEXT_RECEIVED"
	ActivityMeetingScheduled ActivityType = "MEETING_SCHEDULED"
	ActivityMeetingCompleted ActivityType = "MEETING_COMPLETED"
	ActivityProposalSent     ActivityType = "PROPOSAL_SENT"
	ActivityApplicationSent  ActivityType = "APPLICATION_SENT"
	ActivityNote             ActivityType = "NOTE"
	ActivityTask             ActivityType = "TASK"
	ActivityOther            ActivityType = "OTHER"
)

func ParseActivityType(s string) (ActivityType, error) {
	switch ActivityType(s) {
	case ActivityCallOutbound, ActivityCallInbound, ActivityEmailSent,
		ActivityEmailReceived, ActivityTextSent, ActivityTextReceived,
		ActivityMeetingScheduled, ActivityMeetingCompleted, ActivityProposalSent,
		ActivityApplicationSent, ActivityNote, ActivityTask, ActivityOther:
		return ActivityType(s), nil
	}
	return "", fmt.Errorf("invalid activity type %q", s)
}

type Outcome string

const (
	OutcomePositive      Outcome = "POSITIVE"
	OutcomeInterested    Outcome = "INTERESTED"
	OutcomeSold          Outcome = "SOLD"
	OutcomeNeutral       Outcome = "NEUTRAL"
	OutcomeNegative      Outcome = "NEGATIVE"
	OutcomeNotInterested Outcome = "NOT_INTERESTED"
	OutcomeNoAnswer      Outcome = "NO_ANSWER"
	OutcomeLeftMessage   Outcome = "LEFT_MESSAGE"
)

func ParseOutcome(s string) (Outcome, error) {
	if s == "" {
		return "", nil
	}
	switch Outcome(s) {
	case OutcomePositive, OutcomeInterested, OutcomeSold, OutcomeNeutral,
		OutcomeNegative, OutcomeNotInterested, OutcomeNoAnswer, OutcomeLeftMessage:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("invalid outcome %q", s)
}

type ProductType string

const (
	ProductTermLife           ProductType = "TERM_LIFE"
	ProductWholeLife          ProductType = "WHOLE_LIFE"
	ProductUniversalLife      ProductType = "UNIVERSAL_LIFE"
	ProductIUL                ProductType = "IUL"
	ProductVUL                ProductType = "VUL"
	ProductFinalExpense       ProductType = "FINAL_EXPENSE"
	ProductAnnuity            ProductType = "ANNUITY"
	ProductACAHealth          ProductType = "ACA_HEALTH"
	ProductMedicareAdvantage  ProductType = "MEDICARE_ADVANTAGE"
	ProductMedicareSupplement ProductType = "MEDICARE_SUPPLEMENT"
	ProductDental             ProductType = "DENTAL"
	ProductVision             ProductType = "VISION"
	ProductDisability         ProductType = "DISABILITY"
	ProductLongTermCare       ProductType = "LONG_TERM_CARE"
	ProductCriticalIllness    ProductType = "CRITICAL_ILLNESS"
)

func ParseProductType(s string) (ProductType, error) {
	switch ProductType(s) {
	case ProductTermLife, ProductWholeLife, ProductUniversalLife, ProductIUL,
		ProductVUL, ProductFinalExpense, ProductAnnuity, ProductACAHealth,
		ProductMedicareAdvantage, ProductMedicareSupplement, ProductDental,
		ProductVision, ProductDisability, ProductLongTermCare, ProductCriticalIllness:
		return ProductType(s), nil
	}
	return "", fmt.Errorf("invalid product type %q", s)
}

type PolicyStatus string

const (
	PolicyQuoted              PolicyStatus = "QUOTED"
	PolicyApplied             PolicyStatus = "APPLIED"
	PolicyUnderwriting        PolicyStatus = "UNDERWRITING"
	PolicyApproved            PolicyStatus = "APPROVED"
	PolicyIssued              PolicyStatus = "ISSUED"
	PolicyPendingRequirements PolicyStatus = "PENDING_REQUIREMENTS"
	PolicyDeclined            PolicyStatus = "DECLINED"
	PolicyPostponed           PolicyStatus = "POSTPONED"
	PolicyWithdrawn           PolicyStatus = "WITHDRAWN"
	PolicyLapsed              PolicyStatus = "LAPSED"
	PolicySurrendered         PolicyStatus = "SURRENDERED"
	PolicyReplaced            PolicyStatus = "REPLACED"
)

func ParsePolicyStatus(s string) (PolicyStatus, error) {
	switch PolicyStatus(s) {
	case PolicyQuoted, PolicyApplied, PolicyUnderwriting, PolicyApproved,
		PolicyIssued, PolicyPendingRequirements, PolicyDeclined, PolicyPostponed,
		PolicyWithdrawn, PolicyLapsed, PolicySurrendered, PolicyReplaced:
		return PolicyStatus(s), nil
	}
	return "", fmt.Errorf("invalid policy status %q", s)
}

type CommissionType string

const (
	CommissionFirstYear CommissionType = "FIRST_YEAR"
	CommissionRenewal   CommissionType = "RENEWAL"
	CommissionBonus     CommissionType = "BONUS"
)

func ParseCommissionType(s string) (CommissionType, error) {
	switch CommissionType(s) {
	case CommissionFirstYear, CommissionRenewal, CommissionBonus:
		return CommissionType(s), nil
	}
	return "", fmt.Errorf("invalid commission type %q", s)
}

type CommissionStatus string

const (
	CommissionPending    CommissionStatus = "PENDING"
	CommissionPaid       CommissionStatus = "PAID"
	CommissionClawedBack CommissionStatus = "CLAWED_BACK"
)

func ParseCommissionStatus(s string) (CommissionStatus, error) {
	switch CommissionStatus(s) {
	case CommissionPending, CommissionPaid, CommissionClawedBack:
		return CommissionStatus(s), nil
	}
	return "", fmt.Errorf("invalid commission status %q", s)
}
