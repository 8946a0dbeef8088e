package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatusWithoutChecks(t *testing.T) {
	report := NewService().Status(context.Background())
	if !report.OK || report.Checks != nil {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestStatusReportsFailures(t *testing.T) {
	svc := NewService()
	svc.Register("database", func(context.Context) error { return nil })
	svc.Register("redis", func(context.Context) error { return errors.New("connection refused") })

	report := svc.Status(context.Background())
	if report.OK {
		t.Fatalf("expected not ok")
	}
	if report.Checks["database"] != "ok" || report.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected checks: %+v", report.Checks)
	}
}

func TestStatusBoundsSlowChecks(t *testing.T) {
	svc := NewService()
	svc.Timeout = 10 * time.Millisecond
	svc.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	report := svc.Status(context.Background())
	if report.OK || time.Since(start) > time.Second {
		t.Fatalf("expected bounded failing check, got %+v", report)
	}
}
