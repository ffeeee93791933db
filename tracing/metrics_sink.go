package tracing

import "github.com/prometheus/client_golang/prometheus"

// MetricsSink counts opcodes executed and gas charged as Prometheus
// metrics. It carries no per-step allocation beyond the label lookup, so
// it is safe to use on traces with hundreds of thousands of steps.
type MetricsSink struct {
	opsTotal  *prometheus.CounterVec
	gasTotal  prometheus.Counter
	errsTotal *prometheus.CounterVec
}

// NewMetricsSink creates and registers the sink's metrics against reg.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evm",
			Name:      "opcodes_executed_total",
			Help:      "Number of opcodes executed, labeled by mnemonic.",
		}, []string{"op"}),
		gasTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evm",
			Name:      "gas_charged_total",
			Help:      "Total gas charged across all executed opcodes.",
		}),
		errsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evm",
			Name:      "opcode_errors_total",
			Help:      "Number of opcodes that returned an error, labeled by mnemonic.",
		}, []string{"op"}),
	}
	reg.MustRegister(s.opsTotal, s.gasTotal, s.errsTotal)
	return s
}

func (s *MetricsSink) OnStep(record StepRecord) {
	s.opsTotal.WithLabelValues(record.OpName).Inc()
	s.gasTotal.Add(float64(record.GasCost))
	if record.Err != nil {
		s.errsTotal.WithLabelValues(record.OpName).Inc()
	}
}
