package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics holds the financial-core prometheus instruments. All counters are
// incremented after the owning transaction commits, never inside it.
type Metrics struct {
	OrdersCreated        *prometheus.CounterVec
	OrderNumbersIssued   prometheus.Counter
	AllocationFailures   prometheus.Counter
	LedgerEntriesWritten *prometheus.CounterVec
	InvoicesIssued       prometheus.Counter
	PlatformFeePaise     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vendra",
			Name:      "orders_created_total",
			Help:      "Orders created, by payment status.",
		}, []string{"payment_status"}),
		OrderNumbersIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vendra",
			Name:      "order_numbers_issued_total",
			Help:      "Order numbers allocated from monthly counter buckets.",
		}),
		AllocationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vendra",
			Name:      "counter_allocation_failures_total",
			Help:      "Counter increments that failed on timeout or contention.",
		}),
		LedgerEntriesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vendra",
			Name:      "ledger_entries_written_total",
			Help:      "Ledger entries written, by entry type.",
		}, []string{"type"}),
		InvoicesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vendra",
			Name:      "platform_invoices_issued_total",
			Help:      "Platform invoices issued to merchants.",
		}),
		PlatformFeePaise: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vendra",
			Name:      "platform_fee_paise_total",
			Help:      "Cumulative platform fee charged, in paise.",
		}),
	}

	reg.MustRegister(
		m.OrdersCreated,
		m.OrderNumbersIssued,
		m.AllocationFailures,
		m.LedgerEntriesWritten,
		m.InvoicesIssued,
		m.PlatformFeePaise,
	)
	return m
}

func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideRegisterer(reg *prometheus.Registry) prometheus.Registerer { return reg }

var Module = fx.Module("observability.metrics",
	fx.Provide(
		NewRegistry,
		provideRegisterer,
		New,
	),
)
