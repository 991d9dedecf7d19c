package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
)

// HeaderBusinessID бизнес владельца, проставляется auth-шлюзом перед сервисом
const HeaderBusinessID = "X-Business-ID"

const msgMissingBusinessID = "отсутствует или некорректен X-Business-ID"

type ownerKey struct{}

// Owner требует заголовок X-Business-ID и кладёт бизнес владельца в контекст
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderBusinessID)
		businessID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || businessID <= 0 {
			handlers.RespondUnauthorized(w, msgMissingBusinessID)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithBusinessID(r.Context(), businessID)))
	})
}

// WithBusinessID кладёт бизнес владельца в контекст
func WithBusinessID(ctx context.Context, businessID int64) context.Context {
	return context.WithValue(ctx, ownerKey{}, businessID)
}

// GetBusinessID достаёт бизнес владельца из контекста
func GetBusinessID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerKey{}).(int64)
	return id, ok
}
