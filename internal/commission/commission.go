// Package commission derives commission amounts, rates and payout schedules
// from product type and premium.
package commission

import (
	"time"

	"leadline/internal/domain"
)

// Schedule offsets from the moment a commission is created.
const (
	firstYearDelay = 21 * 24 * time.Hour
	renewalDelay   = 365 * 24 * time.Hour
	defaultDelay   = 30 * 24 * time.Hour
)

type Calculation struct {
	Amount float64
	Rate   float64
	Type   domain.CommissionType
}

// Calculate resolves the rate (explicit overrides the table) and the amount
// for a commission of the given type.
func Calculate(premium float64, product domain.ProductType, explicitRate *float64, typ domain.CommissionType) Calculation {
	rate := 0.0
	if explicitRate != nil {
		rate = *explicitRate
	} else {
		switch typ {
		case domain.CommissionFirstYear, domain.CommissionBonus:
			rate = FirstYearRate(product)
		case domain.CommissionRenewal:
			rate = RenewalRate(product)
		}
	}
	return Calculation{
		Amount: premium * rate,
		Rate:   rate,
		Type:   typ,
	}
}

// ScheduledDate returns when a commission of the given type should pay out.
func ScheduledDate(typ domain.CommissionType, from time.Time) time.Time {
	switch typ {
	case domain.CommissionFirstYear:
		return from.Add(firstYearDelay)
	case domain.CommissionRenewal:
		return from.Add(renewalDelay)
	}
	return from.Add(defaultDelay)
}

// FirstYearRate is the default first-year commission rate per product.
func FirstYearRate(product domain.ProductType) float64 {
	switch product {
	case domain.ProductTermLife:
		return 0.90
	case domain.ProductWholeLife:
		return 0.55
	case domain.ProductUniversalLife:
		return 0.50
	case domain.ProductIUL:
		return 0.55
	case domain.ProductVUL:
		return 0.50
	case domain.ProductFinalExpense:
		return 0.75
	case domain.ProductAnnuity:
		return 0.04
	case domain.ProductACAHealth:
		return 0.04
	case domain.ProductMedicareAdvantage:
		return 0
	case domain.ProductMedicareSupplement:
		return 0.20
	case domain.ProductDental:
		return 0.25
	case domain.ProductVision:
		return 0.25
	case domain.ProductDisability:
		return 0.45
	case domain.ProductLongTermCare:
		return 0.50
	case domain.ProductCriticalIllness:
		return 0.40
	}
	return 0
}

// RenewalRate is the renewal commission rate per product. Products without a
// renewal entry pay nothing on renewal.
func RenewalRate(product domain.ProductType) float64 {
	switch product {
	case domain.ProductWholeLife:
		return 0.035
	case domain.ProductIUL:
		return 0.035
	case domain.ProductUniversalLife:
		return 0.03
	case domain.ProductVUL:
		return 0.03
	case domain.ProductAnnuity:
		return 0.0025
	case domain.ProductACAHealth:
		return 0.02
	case domain.ProductMedicareSupplement:
		return 0.05
	case domain.ProductLongTermCare:
		return 0.04
	case domain.ProductTermLife, domain.ProductFinalExpense, domain.ProductMedicareAdvantage,
		domain.ProductDental, domain.ProductVision, domain.ProductDisability,
		domain.ProductCriticalIllness:
		return 0
	}
	return 0
}
