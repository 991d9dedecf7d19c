package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор prometheus метрик сервиса
// Все методы безопасны для вызова на nil (метрики выключены)
type Metrics struct {
	serviceName string

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dbQueryDuration *prometheus.HistogramVec
	dbQueryErrors   *prometheus.CounterVec
	dbConnections   *prometheus.GaugeVec

	bookingsCreated *prometheus.CounterVec
	slotConflicts   *prometheus.CounterVec
	bookingActions  *prometheus.CounterVec
	gatewayCalls    *prometheus.CounterVec
	holdsReleased   *prometheus.CounterVec
}

// New создает метрики и регистрирует их в глобальном реестре prometheus
func New(serviceName string) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, serviceName)
}

// NewWithRegistry создает метрики в указанном реестре
func NewWithRegistry(reg prometheus.Registerer, serviceName string) *Metrics {
	m := &Metrics{
		serviceName: serviceName,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "operation"}),
		dbQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of failed database queries",
		}, []string{"service", "operation"}),
		dbConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_connections",
			Help: "Database connection pool state",
		}, []string{"service", "state"}),
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings created",
		}, []string{"service"}),
		slotConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_slot_conflicts_total",
			Help: "Total number of booking attempts rejected because the slot was taken",
		}, []string{"service"}),
		bookingActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_actions_total",
			Help: "Lifecycle actions by action and result status",
		}, []string{"service", "action", "result"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Payment gateway calls by operation and outcome",
		}, []string{"service", "operation", "outcome"}),
		holdsReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_holds_released_total",
			Help: "Total number of unpaid holds released by the reaper",
		}, []string{"service"}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dbQueryDuration,
		m.dbQueryErrors,
		m.dbConnections,
		m.bookingsCreated,
		m.slotConflicts,
		m.bookingActions,
		m.gatewayCalls,
		m.holdsReleased,
	)

	return m
}

// ObserveHTTPRequest фиксирует HTTP запрос
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// ObserveDBQuery фиксирует длительность запроса к БД
func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
	if err != nil {
		m.dbQueryErrors.WithLabelValues(m.serviceName, operation).Inc()
	}
}

// SetDBConnections обновляет состояние пула соединений
func (m *Metrics) SetDBConnections(open, inUse, idle int) {
	if m == nil {
		return
	}
	m.dbConnections.WithLabelValues(m.serviceName, "open").Set(float64(open))
	m.dbConnections.WithLabelValues(m.serviceName, "in_use").Set(float64(inUse))
	m.dbConnections.WithLabelValues(m.serviceName, "idle").Set(float64(idle))
}

func (m *Metrics) IncBookingCreated() {
	if m == nil {
		return
	}
	m.bookingsCreated.WithLabelValues(m.serviceName).Inc()
}

func (m *Metrics) IncSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.WithLabelValues(m.serviceName).Inc()
}

func (m *Metrics) IncBookingAction(action, result string) {
	if m == nil {
		return
	}
	m.bookingActions.WithLabelValues(m.serviceName, action, result).Inc()
}

func (m *Metrics) IncGatewayCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(m.serviceName, operation, outcome).Inc()
}

func (m *Metrics) AddHoldsReleased(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.holdsReleased.WithLabelValues(m.serviceName).Add(float64(n))
}
