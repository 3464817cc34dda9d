package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DecisionScore    prometheus.Histogram
	DecisionConf     prometheus.Histogram
	PipelineDuration prometheus.Histogram
	EvalFaultsTotal  *prometheus.CounterVec
	DefaultDenyTotal prometheus.Counter
	SubmitsTotal     *prometheus.CounterVec
	AdviceTotal      *prometheus.CounterVec
	AdviceDuration   prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_decisions_total",
			Help: "Total triage decisions by risk level.",
		}, []string{"level"}),
		DecisionScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_decision_score",
			Help:    "Distribution of composite risk scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}),
		DecisionConf: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_decision_confidence",
			Help:    "Distribution of decision confidence.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0 .. 1
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_pipeline_duration_seconds",
			Help:    "Duration of deterministic pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms .. ~400ms
		}),
		EvalFaultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_rule_eval_faults_total",
			Help: "Total rule evaluation faults by pipeline stage.",
		}, []string{"stage"}),
		DefaultDenyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_default_deny_total",
			Help: "Total decisions that fell through to the default deny posture.",
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_submits_total",
			Help: "Total incident submissions by result.",
		}, []string{"result"}),
		AdviceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_advice_total",
			Help: "Total advisory runs by final status.",
		}, []string{"status"}),
		AdviceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_advice_duration_seconds",
			Help:    "Duration of advisory runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.DecisionScore,
		m.DecisionConf,
		m.PipelineDuration,
		m.EvalFaultsTotal,
		m.DefaultDenyTotal,
		m.SubmitsTotal,
		m.AdviceTotal,
		m.AdviceDuration,
	)

	return m
}

// Hooks returns PipelineHooks that increment the corresponding metrics.
func (m *Metrics) Hooks() PipelineHooks {
	return PipelineHooks{
		OnEvalFault: func(stage string) {
			m.EvalFaultsTotal.WithLabelValues(stage).Inc()
		},
		OnDecision: func(level string, score int, confidence float64, defaultDeny bool, duration float64) {
			m.DecisionsTotal.WithLabelValues(level).Inc()
			m.DecisionScore.Observe(float64(score))
			m.DecisionConf.Observe(confidence)
			m.PipelineDuration.Observe(duration)
			if defaultDeny {
				m.DefaultDenyTotal.Inc()
			}
		},
	}
}
