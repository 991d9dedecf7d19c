package get_available_slots

import (
	"sort"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// generationInput всё, что нужно для генерации слотов на один день
type generationInput struct {
	Date      time.Time
	Location  *time.Location
	Now       time.Time
	LeadTime  time.Duration
	Advance   time.Duration
	Duration  time.Duration
	StaffName map[int64]string
	Rules     []domain.AvailabilityRule
	Blackouts []domain.Blackout
	Occupied  []*domain.Booking
}

// generateSlots обходит каждое правило доступности с шагом 15 минут
// Кандидат T отбрасывается, если:
// - T < now + leadTime
// - T > now + advance
// - T + duration выходит за конец правила
// - [T, T+duration) пересекает блокировку или занятое бронирование сотрудника
//
// Шаг добавляется к моменту времени (Add), а не к часам на циферблате,
// поэтому в дни перевода часов слоты остаются ровно через 15 минут реального времени
func generateSlots(in generationInput) []Slot {
	earliest := in.Now.Add(in.LeadTime)
	latest := in.Now.Add(in.Advance)

	// Занятые интервалы по сотрудникам
	occupied := make(map[int64][]domain.TimeRange)
	for _, b := range in.Occupied {
		if !b.IsActive() {
			continue
		}
		occupied[b.StaffID] = append(occupied[b.StaffID], b.TimeRange())
	}

	type slotKey struct {
		staffID int64
		start   int64
	}
	seen := make(map[slotKey]struct{})

	result := make([]Slot, 0)
	for _, rule := range in.Rules {
		name, qualified := in.StaffName[rule.StaffID]
		if !qualified {
			continue
		}

		// Окно короче услуги не даёт ни одного слота
		window, err := rule.Window(in.Date, in.Location)
		if err != nil || window.Duration() < in.Duration {
			continue
		}

		for t := window.Start; !t.Add(in.Duration).After(window.End); t = t.Add(domain.SlotStride) {
			if t.Before(earliest) || t.After(latest) {
				continue
			}

			candidate := domain.TimeRange{Start: t, End: t.Add(in.Duration)}
			if isBlocked(candidate, rule.StaffID, in.Blackouts, occupied[rule.StaffID]) {
				continue
			}

			key := slotKey{staffID: rule.StaffID, start: t.Unix()}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			result = append(result, Slot{
				StaffID:   rule.StaffID,
				StaffName: name,
				StartAt:   candidate.Start.UTC(),
				EndAt:     candidate.End.UTC(),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartAt.Equal(result[j].StartAt) {
			return result[i].StartAt.Before(result[j].StartAt)
		}
		return result[i].StaffID < result[j].StaffID
	})

	return result
}

// isBlocked проверяет пересечение кандидата с блокировками и занятыми интервалами
// Граничные случаи (конец одного интервала совпадает с началом другого) пересечением не считаются
func isBlocked(candidate domain.TimeRange, staffID int64, blackouts []domain.Blackout, busy []domain.TimeRange) bool {
	for _, bo := range blackouts {
		if bo.AppliesTo(staffID) && candidate.Overlaps(bo.TimeRange()) {
			return true
		}
	}

	for _, r := range busy {
		if candidate.Overlaps(r) {
			return true
		}
	}

	return false
}
