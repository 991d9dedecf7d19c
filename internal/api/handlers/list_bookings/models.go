package list_bookings

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/bookings/models"
)

// ToServiceRequest формирует запрос к сервису из query параметров
// from и to принимают дату (YYYY-MM-DD, UTC) или RFC 3339; дата в to включается целиком
func ToServiceRequest(businessID int64, query url.Values) (*models.ListBookingsRequest, error) {
	req := &models.ListBookingsRequest{
		BusinessID: businessID,
		Cursor:     query.Get("cursor"),
	}

	if status := query.Get("status"); status != "" {
		req.Status = &status
	}

	if raw := query.Get("from"); raw != "" {
		from, _, err := parseBound(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid from: %w", err)
		}
		req.From = &from
	}

	if raw := query.Get("to"); raw != "" {
		to, isDate, err := parseBound(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid to: %w", err)
		}
		if isDate {
			to = to.AddDate(0, 0, 1)
		}
		req.To = &to
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid limit %q", raw)
		}
		req.Limit = limit
	}

	return req, nil
}

func parseBound(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(domain.DateFormat, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}
