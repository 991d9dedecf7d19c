package models

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// FeeRule правило расчёта штрафа
type FeeRule struct {
	Type    string  `json:"type" validate:"omitempty,oneof=amount percent"`
	Amount  int64   `json:"amount" validate:"gte=0"`
	Percent float64 `json:"percent" validate:"gte=0,lte=100"`
}

// UpdatePolicyRequest полная замена политики бизнеса (или услуги, если указан serviceId)
// Существующие бронирования не затрагиваются: у них замороженный снимок
type UpdatePolicyRequest struct {
	BusinessID              int64   `json:"-"`
	ServiceID               *int64  `json:"serviceId,omitempty" validate:"omitempty,gt=0"`
	CancellationFee         FeeRule `json:"cancellationFee"`
	NoShowFee               FeeRule `json:"noShowFee"`
	CancellationPolicyText  string  `json:"cancellationPolicyText" validate:"max=2000"`
	NoShowPolicyText        string  `json:"noShowPolicyText" validate:"max=2000"`
	LeadTimeMinutes         int     `json:"leadTimeMinutes" validate:"gte=0,lte=10080"`
	AdvanceDays             int     `json:"advanceDays" validate:"gte=0,lte=365"`
	RestoreGiftCardOnRefund bool    `json:"restoreGiftCardOnRefund"`
}

// ToDomainPolicy конвертирует запрос в domain модель
func (r *UpdatePolicyRequest) ToDomainPolicy() *domain.BusinessPolicy {
	return &domain.BusinessPolicy{
		BusinessID:              r.BusinessID,
		ServiceID:               r.ServiceID,
		CancellationFee:         toDomainFee(r.CancellationFee),
		NoShowFee:               toDomainFee(r.NoShowFee),
		CancellationPolicyText:  r.CancellationPolicyText,
		NoShowPolicyText:        r.NoShowPolicyText,
		LeadTimeMinutes:         r.LeadTimeMinutes,
		AdvanceDays:             r.AdvanceDays,
		RestoreGiftCardOnRefund: r.RestoreGiftCardOnRefund,
	}
}

// PolicyResponse ответ с политикой бизнеса
type PolicyResponse struct {
	BusinessID              int64      `json:"businessId"`
	ServiceID               *int64     `json:"serviceId,omitempty"`
	CancellationFee         FeeRule    `json:"cancellationFee"`
	NoShowFee               FeeRule    `json:"noShowFee"`
	CancellationPolicyText  string     `json:"cancellationPolicyText"`
	NoShowPolicyText        string     `json:"noShowPolicyText"`
	LeadTimeMinutes         int        `json:"leadTimeMinutes"`
	AdvanceDays             int        `json:"advanceDays"`
	RestoreGiftCardOnRefund bool       `json:"restoreGiftCardOnRefund"`
	IsDefault               bool       `json:"isDefault"` // политика не настроена, показаны значения по умолчанию
	UpdatedAt               *time.Time `json:"updatedAt,omitempty"`
}

// FromDomainPolicy конвертирует domain модель в DTO
func FromDomainPolicy(p *domain.BusinessPolicy, isDefault bool) *PolicyResponse {
	if p == nil {
		return nil
	}

	resp := &PolicyResponse{
		BusinessID:              p.BusinessID,
		ServiceID:               p.ServiceID,
		CancellationFee:         fromDomainFee(p.CancellationFee),
		NoShowFee:               fromDomainFee(p.NoShowFee),
		CancellationPolicyText:  p.CancellationPolicyText,
		NoShowPolicyText:        p.NoShowPolicyText,
		LeadTimeMinutes:         p.LeadTimeMinutes,
		AdvanceDays:             p.AdvanceDays,
		RestoreGiftCardOnRefund: p.RestoreGiftCardOnRefund,
		IsDefault:               isDefault,
	}
	if !p.UpdatedAt.IsZero() {
		updatedAt := p.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}

	return resp
}

func toDomainFee(f FeeRule) domain.FeeRule {
	return domain.FeeRule{Type: domain.FeeType(f.Type), Amount: f.Amount, Percent: f.Percent}
}

func fromDomainFee(f domain.FeeRule) FeeRule {
	return FeeRule{Type: string(f.Type), Amount: f.Amount, Percent: f.Percent}
}
