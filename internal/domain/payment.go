package domain

import "time"

// PaymentAction is the kind of money movement recorded
type PaymentAction string

const (
	PaymentActionCardSetup       PaymentAction = "card_setup"
	PaymentActionCompletedCharge PaymentAction = "completed_charge"
	PaymentActionNoShowFee       PaymentAction = "no_show_fee"
	PaymentActionCancelFee       PaymentAction = "cancel_fee"
	PaymentActionRefund          PaymentAction = "refund"
)

// IsCharge returns true for actions that take money from the customer
func (a PaymentAction) IsCharge() bool {
	return a == PaymentActionCompletedCharge || a == PaymentActionNoShowFee || a == PaymentActionCancelFee
}

// PaymentRecordStatus is the gateway outcome of a single attempt
type PaymentRecordStatus string

const (
	PaymentRecordSucceeded PaymentRecordStatus = "succeeded"
	PaymentRecordPending   PaymentRecordStatus = "charge_pending"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
	PaymentRecordCardSaved PaymentRecordStatus = "card_saved"
)

// BookingPayment is an append-only audit row of a money-moving attempt
type BookingPayment struct {
	ID                int64
	BookingID         int64
	Action            PaymentAction
	Amount            int64
	PlatformFee       int64
	Currency          string
	ExternalReference *string
	Status            PaymentRecordStatus
	IdempotencyKey    *string
	FailureReason     *string
	CreatedAt         time.Time
}

// IsSuccessfulCharge returns true if the row moved money to the business
func (p *BookingPayment) IsSuccessfulCharge() bool {
	return p.Action.IsCharge() && (p.Status == PaymentRecordSucceeded || p.Status == PaymentRecordPending)
}
