package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{
			name:   "all up",
			checks: map[string]Check{"postgres": Ping(StatusDown, func(context.Context) error { return nil })},
			want:   StatusUp,
		},
		{
			name: "optional backend degraded",
			checks: map[string]Check{
				"postgres": Ping(StatusDown, func(context.Context) error { return nil }),
				"redis":    Ping(StatusDegraded, func(context.Context) error { return errors.New("refused") }),
			},
			want: StatusDegraded,
		},
		{
			name: "down wins over degraded",
			checks: map[string]Check{
				"postgres": Ping(StatusDown, func(context.Context) error { return errors.New("refused") }),
				"redis":    Ping(StatusDegraded, func(context.Context) error { return errors.New("refused") }),
			},
			want: StatusDown,
		},
		{
			name: "hung check times out",
			checks: map[string]Check{
				"postgres": func(ctx context.Context) ComponentHealth {
					<-ctx.Done()
					time.Sleep(50 * time.Millisecond)
					return ComponentHealth{Status: StatusUp}
				},
			},
			want: StatusDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(20 * time.Millisecond)
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s (%+v)", report.Status, tt.want, report.Components)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.checks))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("redis", Ping(StatusDegraded, func(context.Context) error { return errors.New("refused") }))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200 for a degraded cache", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Components["redis"].Message != "refused" {
		t.Errorf("redis component = %+v", report.Components["redis"])
	}

	c.Register("postgres", Ping(StatusDown, func(context.Context) error { return errors.New("refused") }))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", rec.Code)
	}
}
