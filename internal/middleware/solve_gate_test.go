package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	applogger "PortOpt/pkg/logger"

	"github.com/labstack/echo/v4"
)

func testGateLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newGateRequest(e *echo.Echo) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/optimize", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSolveGateAllowsWithinBudget(t *testing.T) {
	e := echo.New()
	gate := NewSolveGate(testGateLogger(t), 2, 10, 10)
	handler := gate.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	c, rec := newGateRequest(e)
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSolveGateRateLimits(t *testing.T) {
	e := echo.New()
	// One token, effectively no refill within the test.
	gate := NewSolveGate(testGateLogger(t), 4, 1, 0.0001)
	handler := gate.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	c, rec := newGateRequest(e)
	if err := handler(c); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	c, rec = newGateRequest(e)
	if err := handler(c); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if rec.Code != http.StatusOK {
		// AppErrorResponse writes the envelope with HTTP 200; the status
		// lives in the body.
		t.Fatalf("unexpected transport status %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "ERR_RATE_LIMITED") {
		t.Fatalf("second request not rate limited: %s", body)
	}
}

func TestSolveGateCapsConcurrency(t *testing.T) {
	e := echo.New()
	gate := NewSolveGate(testGateLogger(t), 1, 100, 100)

	entered := make(chan struct{})
	release := make(chan struct{})
	handler := gate.Middleware()(func(c echo.Context) error {
		close(entered)
		<-release
		return c.NoContent(http.StatusOK)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, _ := newGateRequest(e)
		_ = handler(c)
	}()
	<-entered

	// The slot is held; a second request must be turned away, not queued.
	busy := gate.Middleware()(func(c echo.Context) error {
		t.Error("second request should not reach the handler")
		return nil
	})
	c, rec := newGateRequest(e)
	if err := busy(c); err != nil {
		t.Fatalf("busy request: %v", err)
	}
	if body := rec.Body.String(); !strings.Contains(body, "ERR_BUSY") {
		t.Fatalf("expected busy response, got: %s", body)
	}

	close(release)
	wg.Wait()
}
