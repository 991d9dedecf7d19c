package create_booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	createBooking "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_booking"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fakeUseCase struct {
	resp *createBooking.Response
	err  error
	got  *createBooking.Request
}

func (f *fakeUseCase) Execute(_ context.Context, req *createBooking.Request) (*createBooking.Response, error) {
	f.got = req
	return f.resp, f.err
}

const body = `{
	"businessId": 1,
	"serviceId": 10,
	"staffId": 5,
	"startAt": "2026-06-15T14:00:00Z",
	"customer": {"name": "Jordan", "email": "jordan@example.com"}
}`

func post(h *Handler, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(payload))
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle_Created(t *testing.T) {
	uc := &fakeUseCase{resp: &createBooking.Response{
		BookingID:          42,
		BookingCode:        "BK-0A1B2C3D",
		Status:             "pending",
		PaymentStatus:      "card_saved",
		StartAt:            time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC),
		PaymentSetupHandle: "seti_secret",
	}}

	rec := post(NewHandler(uc, nopLogger{}), body)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, uc.got)
	assert.Equal(t, "203.0.113.7", uc.got.ConsentIP)
	assert.Equal(t, "test-agent", uc.got.ConsentUserAgent)
	assert.Equal(t, "jordan@example.com", uc.got.Customer.Email)

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.BookingID)
	assert.Equal(t, "seti_secret", resp.PaymentSetupHandle)
}

func TestHandle_ErrorMapping(t *testing.T) {
	cases := map[error]int{
		createBooking.ErrSlotConflict:     http.StatusConflict,
		createBooking.ErrSlotNotBookable:  http.StatusBadRequest,
		createBooking.ErrGiftCardInvalid:  http.StatusBadRequest,
		createBooking.ErrInvalidInput:     http.StatusBadRequest,
		createBooking.ErrBusinessNotFound: http.StatusNotFound,
		createBooking.ErrServiceNotFound:  http.StatusNotFound,
		createBooking.ErrInternal:         http.StatusInternalServerError,
	}

	for sentinel, code := range cases {
		t.Run(sentinel.Error(), func(t *testing.T) {
			uc := &fakeUseCase{err: fmt.Errorf("%w: details", sentinel)}
			assert.Equal(t, code, post(NewHandler(uc, nopLogger{}), body).Code)
		})
	}
}

func TestHandle_InvalidBody(t *testing.T) {
	uc := &fakeUseCase{}
	h := NewHandler(uc, nopLogger{})

	assert.Equal(t, http.StatusBadRequest, post(h, `{"businessId":`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"unknown": 1}`).Code)
	assert.Nil(t, uc.got)
}
