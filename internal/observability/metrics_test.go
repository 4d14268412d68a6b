package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/complaints/user/:userId", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/complaints/user/:userId", "GET", 200, 30*time.Millisecond)
	m.RecordError("/auth/login", "POST", "UNAUTHORIZED")
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.RecordEscalationSweep(3, at)

	snap := m.Snapshot()
	key := "/complaints/user/:userId|GET|200"
	if snap.Requests[key] != 2 {
		t.Fatalf("requests = %v", snap.Requests)
	}
	if snap.AvgLatencyMs[key] != 20 {
		t.Fatalf("avg latency = %d", snap.AvgLatencyMs[key])
	}
	if snap.Errors["/auth/login|POST|UNAUTHORIZED"] != 1 {
		t.Fatalf("errors = %v", snap.Errors)
	}
	if snap.Escalations != 3 || snap.LastEscalation == nil || !snap.LastEscalation.Equal(at) {
		t.Fatalf("escalations = %d at %v", snap.Escalations, snap.LastEscalation)
	}

	snap.Requests[key] = 99
	if m.Snapshot().Requests[key] != 2 {
		t.Fatal("snapshot shares state with metrics")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if len(m.Snapshot().Requests) != 0 {
		t.Fatal("expected empty snapshot")
	}
}
