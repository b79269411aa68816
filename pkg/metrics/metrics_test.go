package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilRegistererIsNoOp(t *testing.T) {
	inv := NewInventoryMetrics(nil)
	inv.ObserveDuration("reserve", time.Second)
	inv.IncFailure("reserve", "INSUFFICIENT_STOCK")
	inv.IncConflict()

	cron := NewCronJobMetrics(nil)
	cron.ObserveDuration("booking-ttl", time.Second)
	cron.IncSuccess("booking-ttl")
	cron.IncFailure("booking-ttl")
}

func TestRegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	inv := NewInventoryMetrics(reg)
	inv.ObserveDuration("reserve", 50*time.Millisecond)
	inv.IncFailure("release", "BUCKET_CONFLICT")
	inv.IncConflict()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestEmptyLabelNormalized(t *testing.T) {
	if normalizeLabel("") != "unknown" {
		t.Fatal("empty label should normalize to unknown")
	}
	if normalizeLabel("reserve") != "reserve" {
		t.Fatal("non-empty label should pass through")
	}
}
