package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewContext(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("TraceID length = %d, want 32 hex chars", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("SpanID length = %d, want 16 hex chars", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Errorf("ParentSpanID = %q, want empty", tc.ParentSpanID)
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should get fresh span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Errorf("ParentSpanID = %q, want %q", child.ParentSpanID, parent.SpanID)
	}
}

func TestContextRoundTrip(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("FromContext should find injected context")
	}
	if got != tc {
		t.Errorf("FromContext = %+v, want %+v", got, tc)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext on empty context should report false")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if tc.TraceID == "" {
		t.Error("EnsureContext should create trace ID")
	}

	ctx2, tc2 := EnsureContext(ctx)
	if tc2 != tc {
		t.Error("EnsureContext should reuse existing context")
	}
	if ctx2 != ctx {
		t.Error("EnsureContext should not re-wrap context")
	}
}

func TestSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "plan_actions")
	span.SetAttr("cells", 900)

	if span.Name != "plan_actions" {
		t.Errorf("Name = %q, want %q", span.Name, "plan_actions")
	}
	if span.Duration() != 0 {
		t.Error("Duration should be 0 before End")
	}

	time.Sleep(time.Millisecond)
	span.End()
	if span.Duration() <= 0 {
		t.Error("Duration should be positive after End")
	}

	tc, ok := FromContext(ctx)
	if !ok || tc.SpanID != span.Ctx.SpanID {
		t.Error("StartSpan should inject span context")
	}

	// Child span continues the trace
	_, child := StartSpan(ctx, "execute_actions")
	if child.Ctx.TraceID != span.Ctx.TraceID {
		t.Error("child span should share trace ID")
	}
	if child.Ctx.ParentSpanID != span.Ctx.SpanID {
		t.Error("child span should record parent span ID")
	}
}

func TestMiddleware(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/palette", nil)
	req.Header.Set(TraceIDKey, "abc123")
	req.Header.Set(SpanIDKey, "parent1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "abc123" {
		t.Errorf("TraceID = %q, want %q", seen.TraceID, "abc123")
	}
	if seen.ParentSpanID != "parent1" {
		t.Errorf("ParentSpanID = %q, want %q", seen.ParentSpanID, "parent1")
	}
	if rec.Header().Get(TraceIDKey) != "abc123" {
		t.Error("middleware should echo trace ID on response")
	}

	// No incoming trace: a fresh one is created
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest("GET", "/", nil))
	if seen.TraceID == "" {
		t.Error("middleware should create trace ID when absent")
	}
}
