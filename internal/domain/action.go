package domain

import "fmt"

// Action is an owner-triggered lifecycle transition
type Action string

const (
	ActionComplete Action = "complete"
	ActionNoShow   Action = "no_show"
	ActionCancel   Action = "cancel"
	ActionRefund   Action = "refund"
)

// ParseAction maps a URL segment (complete, no-show, cancel, refund) to an Action
func ParseAction(route string) (Action, error) {
	switch route {
	case "complete":
		return ActionComplete, nil
	case "no-show", "no_show":
		return ActionNoShow, nil
	case "cancel":
		return ActionCancel, nil
	case "refund":
		return ActionRefund, nil
	}
	return "", fmt.Errorf("unknown booking action %q", route)
}

// Route is the idempotency scope of the action
func (a Action) Route() string {
	return "bookings/" + string(a)
}

// TargetStatus is the booking status after a successful transition
func (a Action) TargetStatus() BookingStatus {
	switch a {
	case ActionComplete:
		return StatusCompleted
	case ActionNoShow:
		return StatusNoShow
	case ActionCancel:
		return StatusCancelled
	case ActionRefund:
		return StatusRefunded
	}
	return ""
}

// PaymentAction is the type of payment record produced by the action
func (a Action) PaymentAction() PaymentAction {
	switch a {
	case ActionComplete:
		return PaymentActionCompletedCharge
	case ActionNoShow:
		return PaymentActionNoShowFee
	case ActionCancel:
		return PaymentActionCancelFee
	case ActionRefund:
		return PaymentActionRefund
	}
	return ""
}

// CanPerform validates the transition from the booking's current status
// complete, no_show and cancel start from an active status, refund from a charged terminal one
func (b *Booking) CanPerform(a Action) bool {
	switch a {
	case ActionComplete, ActionNoShow, ActionCancel:
		return b.IsActive()
	case ActionRefund:
		switch b.Status {
		case StatusCompleted, StatusNoShow, StatusCancelled:
			return true
		}
	}
	return false
}

// ResultStatus is the outcome reported to the caller of a lifecycle action
type ResultStatus string

const (
	ResultCharged          ResultStatus = "CHARGED"
	ResultChargePending    ResultStatus = "CHARGE_PENDING"
	ResultRefunded         ResultStatus = "REFUNDED"
	ResultNoCharge         ResultStatus = "NO_CHARGE"
	ResultNoChargeToRefund ResultStatus = "NO_CHARGE_TO_REFUND"
	ResultFailed           ResultStatus = "FAILED"
)

// ActionResult is the response of a lifecycle action, cached under the idempotency key
type ActionResult struct {
	BookingID         int64         `json:"bookingId"`
	Action            Action        `json:"action"`
	ResultStatus      ResultStatus  `json:"resultStatus"`
	Amount            int64         `json:"amount"`
	Currency          string        `json:"currency"`
	ExternalReference string        `json:"externalReference,omitempty"`
	BookingStatus     BookingStatus `json:"bookingStatus"`
	PaymentStatus     PaymentStatus `json:"paymentStatus"`
	FailureReason     string        `json:"failureReason,omitempty"`
}
