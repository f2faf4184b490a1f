package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"PortOpt/internal/domain/models"
	pkgcache "PortOpt/pkg/cache"
)

func jobFixture(t *testing.T) (*OptimizeJob, pkgcache.Service) {
	t.Helper()
	uc, _, _, _ := newTestFixture(t)
	cache := pkgcache.NewMemoryCache()
	defaults := SolveDefaults{
		RiskFreeRate:   0.02,
		Bounds:         models.Bounds{Lower: 0, Upper: 1},
		FrontierPoints: 4,
		Parallelism:    2,
	}
	return NewOptimizeJob(uc, cache, testLogger(t), time.Minute, defaults), cache
}

func validRequest() models.OptimizeRequest {
	return models.OptimizeRequest{
		Tickers:        []string{"AAA", "BBB", "CCC"},
		Start:          "2024-01-01",
		End:            "2024-07-01",
		FrontierPoints: 4,
	}
}

func TestOptimizeJobHandleSuccess(t *testing.T) {
	job, cache := jobFixture(t)
	ctx := context.Background()

	payload := OptimizeJobPayload{ID: "job-1", Request: validRequest()}
	if err := job.Handle(ctx, payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	status, ok := JobStatus(ctx, cache, "job-1")
	if !ok {
		t.Fatalf("job status not stored")
	}
	if status.State != "done" || status.Report == nil {
		t.Fatalf("status = %+v, want done with a report", status)
	}
	if len(status.Report.Frontier) != 4 {
		t.Fatalf("frontier has %d samples, want 4", len(status.Report.Frontier))
	}
}

func TestOptimizeJobHandleFailureIsTerminal(t *testing.T) {
	job, cache := jobFixture(t)
	ctx := context.Background()

	req := validRequest()
	req.Start = "not-a-date"
	// A failed run must not signal the queue to retry: the same inputs
	// would fail the same way.
	if err := job.Handle(ctx, OptimizeJobPayload{ID: "job-2", Request: req}); err != nil {
		t.Fatalf("handle returned %v, want nil for terminal failure", err)
	}

	status, ok := JobStatus(ctx, cache, "job-2")
	if !ok {
		t.Fatalf("failure status not stored")
	}
	if status.State != "failed" || status.Error == "" {
		t.Fatalf("status = %+v, want failed with an error message", status)
	}
}

func TestOptimizeJobHandleMapPayload(t *testing.T) {
	// Payloads arrive from Redis as decoded JSON maps, not typed structs.
	job, cache := jobFixture(t)
	ctx := context.Background()

	raw, err := json.Marshal(OptimizeJobPayload{ID: "job-3", Request: validRequest()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if err := job.Handle(ctx, generic); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := JobStatus(ctx, cache, "job-3"); !ok {
		t.Fatalf("job status not stored for map payload")
	}
}

func TestMarkQueuedRoundTrip(t *testing.T) {
	cache := pkgcache.NewMemoryCache()
	ctx := context.Background()

	if err := MarkQueued(ctx, cache, "job-9", time.Minute); err != nil {
		t.Fatalf("mark queued: %v", err)
	}
	status, ok := JobStatus(ctx, cache, "job-9")
	if !ok || status.State != "queued" || status.ID != "job-9" {
		t.Fatalf("status = %+v, ok = %v", status, ok)
	}

	if _, ok := JobStatus(ctx, cache, "missing"); ok {
		t.Fatalf("unknown job reported as present")
	}
}

func TestParamsFromRequest(t *testing.T) {
	defaults := SolveDefaults{
		RiskFreeRate:   0.02,
		Bounds:         models.Bounds{Lower: 0, Upper: 1},
		FrontierPoints: 20,
	}

	req := validRequest()
	lower := 0.05
	req.LowerBound = &lower

	params, err := ParamsFromRequest(req, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !params.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", params.From)
	}
	if params.Bounds == nil || params.Bounds.Lower != 0.05 || params.Bounds.Upper != 1 {
		t.Fatalf("bounds = %+v, want lower override with default upper", params.Bounds)
	}

	req.End = "garbage"
	if _, err := ParamsFromRequest(req, defaults); err == nil {
		t.Fatalf("expected an error for an unparsable end date")
	}
}
