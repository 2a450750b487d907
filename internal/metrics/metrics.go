package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stagecap/internal/clip"
	"stagecap/internal/logging"
	"stagecap/internal/services"
	"stagecap/internal/session"
)

const namespace = "stagecap"

// Metrics holds the recorder and clip collectors.
type Metrics struct {
	registry *prometheus.Registry
	textfile string
	logger   *slog.Logger

	Events             *prometheus.CounterVec
	MalformedEvents    prometheus.Counter
	AddressingErrors   prometheus.Counter
	Completions        *prometheus.CounterVec
	Cuts               *prometheus.CounterVec
	SessionDuration    prometheus.Gauge
	Words              prometheus.Gauge
	DialoguesWithWords prometheus.Gauge
}

// New creates the collectors in a fresh registry. textfile may be empty.
func New(textfile string, logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		textfile: strings.TrimSpace(textfile),
		logger:   logging.NewComponentLogger(logger, "metrics"),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Playback events handled, by kind",
		}, []string{"kind"}),
		MalformedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_malformed_total",
			Help:      "Events whose payload could not be decoded",
		}),
		AddressingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_addressing_errors_total",
			Help:      "Events addressing a scene or line that does not exist",
		}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Finished sessions, by completion reason",
		}, []string{"reason"}),
		Cuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clips_total",
			Help:      "Clip cuts, by status",
		}, []string{"status"}),
		SessionDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of the last finished session",
		}),
		Words: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_words",
			Help:      "Timed words in the last finished session",
		}),
		DialoguesWithWords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_dialogues_with_words",
			Help:      "Dialogue lines with word timing in the last finished session",
		}),
	}
	m.registry.MustRegister(
		m.Events, m.MalformedEvents, m.AddressingErrors, m.Completions, m.Cuts,
		m.SessionDuration, m.Words, m.DialoguesWithWords,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventHandled implements session.Observer.
func (m *Metrics) EventHandled(res session.Result) {
	m.Events.WithLabelValues(res.Event.Kind).Inc()
	switch {
	case res.Err == nil:
	case errors.Is(res.Err, services.ErrMalformedEvent):
		m.MalformedEvents.Inc()
	case errors.Is(res.Err, services.ErrAddressing):
		m.AddressingErrors.Inc()
	}
}

// SessionEnded implements session.Observer and flushes the textfile.
func (m *Metrics) SessionEnded(sum session.Summary) {
	m.Completions.WithLabelValues(string(sum.Completion.Reason)).Inc()
	m.SessionDuration.Set(sum.DurationSec)
	m.Words.Set(float64(sum.Stats.Words))
	m.DialoguesWithWords.Set(float64(sum.Stats.DialoguesWithWords))
	m.flush()
}

// CutDone counts one clip outcome. It matches the clip executor hook.
func (m *Metrics) CutDone(out clip.Outcome) {
	m.Cuts.WithLabelValues(out.Status()).Inc()
}

// WriteTextfile writes the registry to the configured textfile. It is a
// no-op when no textfile is configured.
func (m *Metrics) WriteTextfile() error {
	if m.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.textfile), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(m.textfile, m.registry)
}

// Flush writes the textfile and logs failures.
func (m *Metrics) Flush() { m.flush() }

func (m *Metrics) flush() {
	if err := m.WriteTextfile(); err != nil {
		logging.WarnWithContext(m.logger, "failed to write metrics textfile", "metrics_write_failed",
			logging.String("path", m.textfile),
			logging.Error(err),
			logging.String(logging.FieldImpact, "node exporter shows stale values"),
		)
	}
}

var _ session.Observer = (*Metrics)(nil)
