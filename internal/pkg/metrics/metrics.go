package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leave_tracker"

// Metrics holds the service collectors on a private registry so tests can
// build as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry

	LeaveTransactions *prometheus.CounterVec
	LeaveDays         *prometheus.CounterVec
	RolloverRuns      *prometheus.CounterVec
	RolloverEmployees *prometheus.CounterVec
	EmployeesOnLeave  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LeaveTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leave_transactions_total",
			Help:      "Leave ledger mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		LeaveDays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leave_days_total",
			Help:      "Leave days moved by committed ledger mutations.",
		}, []string{"operation"}),
		RolloverRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollover_runs_total",
			Help:      "Leave year rollover runs by operation and final status.",
		}, []string{"operation", "status"}),
		RolloverEmployees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollover_employees_total",
			Help:      "Employees rolled over by operation.",
		}, []string{"operation"}),
		EmployeesOnLeave: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "employees_on_leave",
			Help:      "Employees on leave today as of the last refresh.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LeaveTransactions,
		m.LeaveDays,
		m.RolloverRuns,
		m.RolloverEmployees,
		m.EmployeesOnLeave,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLeave records one ledger mutation. A nil receiver is a no-op.
func (m *Metrics) ObserveLeave(operation string, days int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LeaveTransactions.WithLabelValues(operation, "error").Inc()
		return
	}
	m.LeaveTransactions.WithLabelValues(operation, "ok").Inc()
	m.LeaveDays.WithLabelValues(operation).Add(float64(days))
}

func (m *Metrics) ObserveRollover(operation, status string, employees int) {
	if m == nil {
		return
	}
	m.RolloverRuns.WithLabelValues(operation, status).Inc()
	m.RolloverEmployees.WithLabelValues(operation).Add(float64(employees))
}

// WatchStreams exposes the number of open event streams, read from count
// at scrape time.
func (m *Metrics) WatchStreams(count func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_streams",
		Help:      "Open dashboard event streams.",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) SetOnLeave(n int) {
	if m == nil {
		return
	}
	m.EmployeesOnLeave.Set(float64(n))
}
