package events

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink counts events by name, chip type, and gate/reason.
type PrometheusSink struct {
	events *prometheus.CounterVec
}

// MustNewPrometheusSink registers the counter with reg; a nil reg uses the default registerer.
// Registration errors panic, mirroring promauto.
func MustNewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chip_gate",
			Name:      "events_total",
			Help:      "Chip analytics events by name, chip type, and reason.",
		},
		[]string{"event", "chip_type", "reason"},
	)
	reg.MustRegister(events)
	return &PrometheusSink{events: events}
}

func (p *PrometheusSink) Emit(e Event) {
	p.events.WithLabelValues(e.Name, label(e.Fields["chipType"]), reasonLabel(e)).Inc()
}

// Counter exposes the underlying collector for tests and exporters.
func (p *PrometheusSink) Counter() *prometheus.CounterVec {
	return p.events
}

func reasonLabel(e Event) string {
	if reason, ok := e.Fields["reason"]; ok {
		return label(reason)
	}
	if kind, ok := e.Fields["cooldownType"]; ok {
		return label(kind)
	}
	return ""
}

func label(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
