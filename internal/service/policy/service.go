package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	policyRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/policy"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy/models"
	"github.com/m04kA/SMC-AppointmentService/pkg/validator"
)

// Defaults значения из конфигурации для бизнесов без настроенной политики
type Defaults struct {
	LeadTimeMinutes int
	AdvanceDays     int
}

// Service сервис политик бизнеса (штрафы, время до записи, горизонт записи)
type Service struct {
	policyRepo PolicyRepository
	defaults   Defaults
	logger     Logger
}

// NewService создает новый экземпляр сервиса политик
func NewService(policyRepo PolicyRepository, defaults Defaults, logger Logger) *Service {
	if defaults.LeadTimeMinutes <= 0 {
		defaults.LeadTimeMinutes = domain.DefaultLeadTimeMinutes
	}
	if defaults.AdvanceDays <= 0 {
		defaults.AdvanceDays = domain.DefaultAdvanceDays
	}

	return &Service{
		policyRepo: policyRepo,
		defaults:   defaults,
		logger:     logger,
	}
}

// Resolve возвращает действующую политику с учетом иерархии:
// политика услуги > политика бизнеса > значения по умолчанию
// Незаданные время до записи и горизонт заполняются значениями по умолчанию
func (s *Service) Resolve(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error) {
	p, err := s.policyRepo.GetWithHierarchy(ctx, businessID, serviceID)
	if err != nil {
		if errors.Is(err, policyRepo.ErrPolicyNotFound) {
			return s.defaultPolicy(businessID), nil
		}
		s.logger.Error("Resolve: repository error for business=%d: %v", businessID, err)
		return nil, fmt.Errorf("%w: Resolve - repository error: %v", ErrInternal, err)
	}

	s.applyDefaults(p)
	return p, nil
}

// Get получает политику конкретного уровня (бизнес или услуга)
// Если политика не настроена, возвращаются значения по умолчанию с признаком isDefault
func (s *Service) Get(ctx context.Context, businessID int64, serviceID *int64) (*models.PolicyResponse, error) {
	s.logger.Info("Get: fetching policy for business=%d", businessID)

	p, err := s.policyRepo.GetByBusinessAndService(ctx, businessID, serviceID)
	if err != nil {
		if errors.Is(err, policyRepo.ErrPolicyNotFound) {
			def := s.defaultPolicy(businessID)
			def.ServiceID = serviceID
			return models.FromDomainPolicy(def, true), nil
		}
		s.logger.Error("Get: repository error for business=%d: %v", businessID, err)
		return nil, fmt.Errorf("%w: Get - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainPolicy(p, false), nil
}

// Update заменяет политику целиком
// Уже созданные бронирования не меняются: штрафы считаются по их снимку
func (s *Service) Update(ctx context.Context, req *models.UpdatePolicyRequest) (*models.PolicyResponse, error) {
	s.logger.Info("Update: updating policy for business=%d", req.BusinessID)

	// 1. Валидация тегов
	if err := validator.ValidateStruct(req); err != nil {
		s.logger.Warn("Update: validation failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p := req.ToDomainPolicy()

	// 2. Правила штрафов должны быть согласованы с типом
	if !p.CancellationFee.IsValid() {
		return nil, fmt.Errorf("%w: cancellationFee is inconsistent with its type", ErrInvalidInput)
	}
	if !p.NoShowFee.IsValid() {
		return nil, fmt.Errorf("%w: noShowFee is inconsistent with its type", ErrInvalidInput)
	}

	// 3. Сохраняем
	saved, err := s.policyRepo.Upsert(ctx, p)
	if err != nil {
		s.logger.Error("Update: repository error for business=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: Update - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Update: successfully updated policy id=%d for business=%d", saved.ID, saved.BusinessID)
	return models.FromDomainPolicy(saved, false), nil
}

func (s *Service) defaultPolicy(businessID int64) *domain.BusinessPolicy {
	p := domain.DefaultPolicy(businessID)
	s.applyDefaults(p)
	return p
}

func (s *Service) applyDefaults(p *domain.BusinessPolicy) {
	if p.LeadTimeMinutes <= 0 {
		p.LeadTimeMinutes = s.defaults.LeadTimeMinutes
	}
	if p.AdvanceDays <= 0 {
		p.AdvanceDays = s.defaults.AdvanceDays
	}
}
