package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bnb-chain/zkbnb-tumbler/metrics"
)

var _ metrics.Metrics = (*Collector)(nil)

// NewCollector creates the pool metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	leafCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tumbler_leaf_count",
		Help: "The number of commitments in the pool tree",
	})
	nullifierCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tumbler_nullifier_count",
		Help: "The number of spent nullifiers",
	})
	deposits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tumbler_deposits_total",
		Help: "Accepted deposits",
	})
	depositValue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tumbler_deposit_value_total",
		Help: "Value moved into the pool",
	})
	withdraws := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tumbler_withdraws_total",
		Help: "Accepted withdraws",
	})
	withdrawValue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tumbler_withdraw_value_total",
		Help: "Value moved out of the pool",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tumbler_rejected_total",
		Help: "Rejected instructions by operation and error kind",
	}, []string{"op", "kind"})

	for _, c := range []prometheus.Collector{
		leafCount,
		nullifierCount,
		deposits,
		depositValue,
		withdraws,
		withdrawValue,
		rejected,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		leafCount:      leafCount,
		nullifierCount: nullifierCount,
		deposits:       deposits,
		depositValue:   depositValue,
		withdraws:      withdraws,
		withdrawValue:  withdrawValue,
		rejected:       rejected,
	}, nil
}

type Collector struct {
	leafCount      prometheus.Gauge
	nullifierCount prometheus.Gauge
	deposits       prometheus.Counter
	depositValue   prometheus.Counter
	withdraws      prometheus.Counter
	withdrawValue  prometheus.Counter
	rejected       *prometheus.CounterVec
}

func (c *Collector) LeafCount(n uint64) {
	c.leafCount.Set(float64(n))
}

func (c *Collector) NullifierCount(n uint64) {
	c.nullifierCount.Set(float64(n))
}

func (c *Collector) Deposit(amount uint64) {
	c.deposits.Inc()
	c.depositValue.Add(float64(amount))
}

func (c *Collector) Withdraw(amount uint64) {
	c.withdraws.Inc()
	c.withdrawValue.Add(float64(amount))
}

func (c *Collector) Rejected(op string, kind string) {
	c.rejected.WithLabelValues(op, kind).Inc()
}
