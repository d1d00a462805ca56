// Package metrics records what happened during one setup run: step
// durations, two-factor challenges, account-sync polls and provider HTTP
// status codes. The registry is per-run; nothing is registered globally.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Recorder collects metrics for one run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.HistogramVec
	challenges   *prometheus.CounterVec
	syncPolls    prometheus.Counter
	httpRequests *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relsetup_step_duration_seconds",
			Help:    "Duration of each setup step",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"step", "outcome"}),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relsetup_challenges_total",
			Help: "Two-factor challenges answered, per provider",
		}, []string{"provider"}),
		syncPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relsetup_sync_polls_total",
			Help: "CI account-sync status polls",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relsetup_http_requests_total",
			Help: "Provider HTTP round-trips by status code",
		}, []string{"provider", "code"}),
	}
	r.registry.MustRegister(r.stepDuration, r.challenges, r.syncPolls, r.httpRequests)
	return r
}

// ObserveStep records a finished step.
func (r *Recorder) ObserveStep(step string, err error, d time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	r.stepDuration.WithLabelValues(step, outcome).Observe(d.Seconds())
}

// Challenge counts a two-factor challenge for provider.
func (r *Recorder) Challenge(provider string) {
	if r == nil {
		return
	}
	r.challenges.WithLabelValues(provider).Inc()
}

// SyncPoll counts one account-sync poll.
func (r *Recorder) SyncPoll() {
	if r == nil {
		return
	}
	r.syncPolls.Inc()
}

// HTTPResponse counts a provider round-trip. Its signature matches
// transport.Observer.
func (r *Recorder) HTTPResponse(provider string, status int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(provider, fmt.Sprintf("%d", status)).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Summary renders the collected series as sorted "name{labels} value" lines.
func (r *Recorder) Summary() ([]string, error) {
	if r == nil {
		return nil, nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%s%s %s", mf.GetName(), formatLabels(m.GetLabel()), formatValue(mf.GetType(), m)))
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%.3fs", h.GetSampleCount(), h.GetSampleSum())
	default:
		return ""
	}
}
