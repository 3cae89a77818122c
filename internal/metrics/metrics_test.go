package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ConnectionState("default", 2)
	m.Reconnect("default")
	m.QueueDepth("default", 3)
	m.Replayed("default", 3)
	m.FrameSent("method")
	m.FrameReceived("result")
	m.SendError("default")
	m.CallCompleted("login", false, time.Millisecond)
	m.Subscriptions(1)
	m.Queries(1)
	m.ForgetSocket("default")
}

func TestConnectionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ConnectionState("socket/1", 2)
	m.Reconnect("socket/1")
	m.Reconnect("socket/1")
	m.QueueDepth("socket/1", 4)
	m.Replayed("socket/1", 4)

	if got := testutil.ToFloat64(m.connectionState.WithLabelValues("socket/1")); got != 2 {
		t.Errorf("connection state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.reconnects.WithLabelValues("socket/1")); got != 2 {
		t.Errorf("reconnects = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.queueDepth.WithLabelValues("socket/1")); got != 4 {
		t.Errorf("queue depth = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.replayed.WithLabelValues("socket/1")); got != 4 {
		t.Errorf("replayed = %v, want 4", got)
	}

	m.ForgetSocket("socket/1")
	if got := testutil.CollectAndCount(m.connectionState); got != 0 {
		t.Errorf("connection state series after forget = %d, want 0", got)
	}
}

func TestCallMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CallCompleted("login", false, 10*time.Millisecond)
	m.CallCompleted("login", true, 20*time.Millisecond)
	m.CallCompleted("login", false, 30*time.Millisecond)

	if got := testutil.ToFloat64(m.calls.WithLabelValues("login", "ok")); got != 2 {
		t.Errorf("ok calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("login", "error")); got != 1 {
		t.Errorf("error calls = %v, want 1", got)
	}
}

func TestGaugesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Subscriptions(3)
	m.Queries(5)

	expected := `
# HELP ddp_client_queries_active Queries currently tracked.
# TYPE ddp_client_queries_active gauge
ddp_client_queries_active 5
# HELP ddp_client_subscriptions_active Subscriptions currently tracked.
# TYPE ddp_client_subscriptions_active gauge
ddp_client_subscriptions_active 3
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"ddp_client_queries_active", "ddp_client_subscriptions_active")
	if err != nil {
		t.Errorf("GatherAndCompare() error = %v", err)
	}
}
