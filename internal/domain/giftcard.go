package domain

import (
	"errors"
	"math"
	"time"
)

var (
	ErrGiftCardInactive      = errors.New("gift card is not active")
	ErrGiftCardExpired       = errors.New("gift card has expired")
	ErrGiftCardExhausted     = errors.New("gift card has no balance left")
	ErrGiftCardWrongBusiness = errors.New("gift card belongs to another business")
)

// GiftCardType defines how a gift card discounts a booking
type GiftCardType string

const (
	GiftCardAmount  GiftCardType = "amount"
	GiftCardPercent GiftCardType = "percent"
)

// GiftCard is a discount instrument issued by a business
type GiftCard struct {
	ID         int64
	BusinessID int64
	Code       string
	Type       GiftCardType
	Balance    int64   // minor units, amount cards only
	Percent    float64 // percent cards only
	Active     bool
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the card can be applied to a booking of the business at the given moment
func (g *GiftCard) Validate(businessID int64, now time.Time) error {
	if g.BusinessID != businessID {
		return ErrGiftCardWrongBusiness
	}
	if !g.Active {
		return ErrGiftCardInactive
	}
	if g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return ErrGiftCardExpired
	}
	switch g.Type {
	case GiftCardAmount:
		if g.Balance <= 0 {
			return ErrGiftCardExhausted
		}
	case GiftCardPercent:
		if g.Percent <= 0 || g.Percent > 100 {
			return ErrGiftCardExhausted
		}
	default:
		return ErrGiftCardInactive
	}
	return nil
}

// Discount computes the discount for the given price without touching the balance
func (g *GiftCard) Discount(price int64) int64 {
	if price <= 0 {
		return 0
	}
	switch g.Type {
	case GiftCardAmount:
		if g.Balance < price {
			return g.Balance
		}
		return price
	case GiftCardPercent:
		d := int64(math.Round(float64(price) * g.Percent / 100))
		if d > price {
			return price
		}
		return d
	}
	return 0
}

// GiftCardEntryType is the kind of balance movement
type GiftCardEntryType string

const (
	GiftCardEntryDebit        GiftCardEntryType = "debit"
	GiftCardEntryRefundCredit GiftCardEntryType = "refund_credit"
)

// GiftCardLedgerEntry audit row of a balance change
type GiftCardLedgerEntry struct {
	ID           int64
	GiftCardID   int64
	BookingID    int64
	EntryType    GiftCardEntryType
	Amount       int64
	BalanceAfter int64
	CreatedAt    time.Time
}
