package ledger

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ledger's prometheus instruments. A nil *Metrics is a no-op.
type Metrics struct {
	issued       *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	checks       *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

// NewMetrics creates the instruments and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_issuances_total",
			Help: "Meals issued, by meal window.",
		}, []string{"window"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_rejections_total",
			Help: "Issuance attempts rejected because the employee was already served, by requested window.",
		}, []string{"window"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_eligibility_checks_total",
			Help: "Eligibility checks, by result.",
		}, []string{"result"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_store_errors_total",
			Help: "Store calls that failed, by operation.",
		}, []string{"op"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meal_store_call_seconds",
			Help:    "Store call latency, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}

	collectors := []prometheus.Collector{m.issued, m.rejected, m.checks, m.storeErrors, m.storeLatency}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordIssued(w MealWindow) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(string(w)).Inc()
}

func (m *Metrics) recordRejected(w MealWindow) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(string(w)).Inc()
}

func (m *Metrics) recordCheck(eligible bool) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(strconv.FormatBool(eligible)).Inc()
}

func (m *Metrics) observeStore(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}
