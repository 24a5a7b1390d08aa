package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/orcaust/orcaust/internal/event_bus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const namespace = "orcaust"

// Metrics owns a private registry so tests can create as many instances as they need.
type Metrics struct {
	registry        *prometheus.Registry
	budgetEvents    *prometheus.CounterVec
	auditRecords    *prometheus.CounterVec
	approvedNet     prometheus.Histogram
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		budgetEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_events_total",
			Help:      "Committed budget lifecycle events by operation.",
		}, []string{"operation"}),
		auditRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_total",
			Help:      "Audit records appended by change kind.",
		}, []string{"kind"}),
		approvedNet: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "budget_approved_net_total",
			Help:      "Net total of approved budgets.",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	m.registry.MustRegister(
		m.budgetEvents,
		m.auditRecords,
		m.approvedNet,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Subscribe counts budget events published on bus.
func (m *Metrics) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	unsubscribers := []func(){
		event_bus.SubscribeTyped(bus, event_bus.BudgetCreatedEvent, func(e event_bus.EventT[event_bus.BudgetCreated]) error {
			m.budgetEvents.WithLabelValues("create").Inc()
			return nil
		}),
		event_bus.SubscribeTyped(bus, event_bus.BudgetChangedEvent, func(e event_bus.EventT[event_bus.BudgetChanged]) error {
			m.budgetEvents.WithLabelValues(e.Data.Operation).Inc()
			for _, kind := range e.Data.AuditRecords {
				m.auditRecords.WithLabelValues(kind).Inc()
			}
			return nil
		}),
		event_bus.SubscribeTyped(bus, event_bus.BudgetApprovedEvent, func(e event_bus.EventT[event_bus.BudgetApproved]) error {
			m.budgetEvents.WithLabelValues("approve").Inc()
			net, err := decimal.NewFromString(e.Data.NetTotal)
			if err != nil {
				log.Warnf("approved budget %d has an unreadable net total %q", e.Data.Id, e.Data.NetTotal)
				return nil
			}
			m.approvedNet.Observe(net.InexactFloat64())
			return nil
		}),
		event_bus.SubscribeTyped(bus, event_bus.BudgetDeletedEvent, func(e event_bus.EventT[event_bus.BudgetDeleted]) error {
			m.budgetEvents.WithLabelValues("delete").Inc()
			return nil
		}),
		event_bus.SubscribeTyped(bus, event_bus.BudgetRefreshedEvent, func(e event_bus.EventT[event_bus.BudgetRefreshed]) error {
			m.budgetEvents.WithLabelValues("refresh").Inc()
			return nil
		}),
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request latency labelled with the mux route template, not the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		m.requestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
