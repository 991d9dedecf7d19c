package domain

import (
	"math"
	"time"
)

// FeeType defines how a fee value is interpreted
type FeeType string

const (
	FeeTypeAmount  FeeType = "amount"
	FeeTypePercent FeeType = "percent"
)

// FeeRule is a single fee configuration
// Amount is used for FeeTypeAmount (minor units), Percent for FeeTypePercent
type FeeRule struct {
	Type    FeeType `json:"type"`
	Amount  int64   `json:"amount"`
	Percent float64 `json:"percent"`
}

// Calculate returns the fee for the given base price in minor units
// Percent fees are rounded half away from zero and capped at the base price
func (f FeeRule) Calculate(basePrice int64) int64 {
	switch f.Type {
	case FeeTypeAmount:
		if f.Amount < 0 {
			return 0
		}
		return f.Amount
	case FeeTypePercent:
		if f.Percent <= 0 || basePrice <= 0 {
			return 0
		}
		fee := int64(math.Round(float64(basePrice) * f.Percent / 100))
		if fee > basePrice {
			return basePrice
		}
		return fee
	default:
		return 0
	}
}

// IsValid checks the rule is well formed
func (f FeeRule) IsValid() bool {
	switch f.Type {
	case FeeTypeAmount:
		return f.Amount >= 0
	case FeeTypePercent:
		return f.Percent >= 0 && f.Percent <= 100
	case "":
		return f.Amount == 0 && f.Percent == 0
	}
	return false
}

// PolicySnapshot is the immutable copy of fee rules frozen onto a booking
type PolicySnapshot struct {
	CancellationFee        FeeRule   `json:"cancellationFee"`
	NoShowFee              FeeRule   `json:"noShowFee"`
	CancellationPolicyText string    `json:"cancellationPolicyText"`
	NoShowPolicyText       string    `json:"noShowPolicyText"`
	CapturedAt             time.Time `json:"capturedAt"`
}

// FeeFor returns the fee owed for the given action
func (p PolicySnapshot) FeeFor(action Action, basePrice int64) int64 {
	switch action {
	case ActionNoShow:
		return p.NoShowFee.Calculate(basePrice)
	case ActionCancel:
		return p.CancellationFee.Calculate(basePrice)
	default:
		return 0
	}
}

// BusinessPolicy is the live, editable policy of a business
// Supports hierarchical configuration:
// 1. Service-specific (business_id, service_id)
// 2. Business-wide (business_id, NULL)
type BusinessPolicy struct {
	ID         int64
	BusinessID int64
	ServiceID  *int64 // NULL = policy for all services

	CancellationFee        FeeRule
	NoShowFee              FeeRule
	CancellationPolicyText string
	NoShowPolicyText       string

	LeadTimeMinutes         int // 0 = default
	AdvanceDays             int // 0 = default
	RestoreGiftCardOnRefund bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultPolicy returns the built-in policy used when the business has none configured
func DefaultPolicy(businessID int64) *BusinessPolicy {
	return &BusinessPolicy{
		BusinessID:      businessID,
		LeadTimeMinutes: DefaultLeadTimeMinutes,
		AdvanceDays:     DefaultAdvanceDays,
	}
}

// IsGlobal returns true if this is a business-wide policy
func (p *BusinessPolicy) IsGlobal() bool {
	return p.ServiceID == nil
}

// Snapshot deep-copies the fee configuration
func (p *BusinessPolicy) Snapshot(at time.Time) PolicySnapshot {
	return PolicySnapshot{
		CancellationFee:        p.CancellationFee,
		NoShowFee:              p.NoShowFee,
		CancellationPolicyText: p.CancellationPolicyText,
		NoShowPolicyText:       p.NoShowPolicyText,
		CapturedAt:             at.UTC(),
	}
}

// LeadTime returns the minimum notice, falling back to the default when unset
func (p *BusinessPolicy) LeadTime() time.Duration {
	if p.LeadTimeMinutes <= 0 {
		return DefaultLeadTimeMinutes * time.Minute
	}
	return time.Duration(p.LeadTimeMinutes) * time.Minute
}

// AdvanceWindow returns how far ahead bookings are allowed, falling back to the default when unset
func (p *BusinessPolicy) AdvanceWindow() time.Duration {
	days := p.AdvanceDays
	if days <= 0 {
		days = DefaultAdvanceDays
	}
	return time.Duration(days) * 24 * time.Hour
}
