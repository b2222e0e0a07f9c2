package events

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_PairsAndMissing(t *testing.T) {
	e := New(GateBlocked, "gate", 0, "chipType", "product")
	if e.Fields["gate"] != 0 || e.Fields["chipType"] != "product" {
		t.Errorf("Fields = %v", e.Fields)
	}
	if got := e.Missing(); !reflect.DeepEqual(got, []string{"reason"}) {
		t.Errorf("Missing() = %v, want [reason]", got)
	}

	full := New(GatesPassed, "chipType", "health", "subject", "Turmeric for arthritis")
	if got := full.Missing(); len(got) != 0 {
		t.Errorf("Missing() = %v, want none", got)
	}
}

func TestNew_IgnoresDanglingKey(t *testing.T) {
	e := New(UnhiddenByUser, "chipType", "product", "origin")
	if len(e.Fields) != 1 {
		t.Errorf("Fields = %v, want only chipType", e.Fields)
	}
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	sink := Multi{a, nil, b, Nop{}}

	sink.Emit(New(CooldownSet, "chipType", "product"))
	sink.Emit(New(GatesPassed, "chipType", "product"))

	for _, r := range []*Recorder{a, b} {
		if got := r.Names(); !reflect.DeepEqual(got, []string{CooldownSet, GatesPassed}) {
			t.Errorf("Names() = %v", got)
		}
	}

	a.Reset()
	if len(a.Events()) != 0 {
		t.Error("Reset() left events behind")
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	sink.Emit(New(GateBlocked, "gate", 1, "chipType", "health"))

	out := buf.String()
	for _, want := range []string{`"event":"chip_gate_blocked"`, `"gate":1`, `"chipType":"health"`, `"missing_fields":["reason"]`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}

	// A sink without a logger is a no-op
	LogSink{}.Emit(New(GatesPassed))
}

func TestPrometheusSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := MustNewPrometheusSink(reg)

	sink.Emit(New(GateBlocked, "gate", 0, "chipType", "product", "reason", "wrong_page_type"))
	sink.Emit(New(GateBlocked, "gate", 0, "chipType", "product", "reason", "wrong_page_type"))
	sink.Emit(New(CooldownActive, "chipType", "health", "cooldownType", "url_cooldown", "remainingMs", int64(5)))

	if got := testutil.ToFloat64(sink.Counter().WithLabelValues(GateBlocked, "product", "wrong_page_type")); got != 2 {
		t.Errorf("gate_blocked counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.Counter().WithLabelValues(CooldownActive, "health", "url_cooldown")); got != 1 {
		t.Errorf("cooldown_active counter = %v, want 1", got)
	}
}
