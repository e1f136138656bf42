package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(r Result) Checker {
	return CheckerFunc(func(context.Context) Result { return r })
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != 10*time.Second {
		t.Errorf("Default timeout = %v, want 10s", agg.config.Timeout)
	}

	agg = NewAggregator(AggregatorConfig{Timeout: -1, Concurrency: 2})
	if agg.config.Timeout != 10*time.Second || agg.config.Concurrency != 2 {
		t.Errorf("config = %+v", agg.config)
	}
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("b", fixed(Healthy("")))
	agg.Register("a", fixed(Healthy("")))
	agg.Register("b", fixed(Degraded("replaced")))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("CheckerNames() = %v, want [b a]", names)
	}

	r, err := agg.Check(context.Background(), "b")
	if err != nil || r.Status != StatusDegraded {
		t.Fatalf("Check(b) = %+v, %v", r, err)
	}

	agg.Unregister("b")
	if names := agg.CheckerNames(); len(names) != 1 || names[0] != "a" {
		t.Fatalf("after Unregister: %v", names)
	}
}

func TestAggregator_CheckNotFound(t *testing.T) {
	_, err := NewAggregator().Check(context.Background(), "missing")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() err = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAllRollup(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Result{Healthy(""), Healthy("")}, StatusHealthy},
		{"one degraded", []Result{Healthy(""), Degraded("")}, StatusDegraded},
		{"one unhealthy", []Result{Degraded(""), Unhealthy("", nil), Healthy("")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for i, r := range tt.results {
				agg.Register(string(rune('a'+i)), fixed(r))
			}

			report := agg.CheckAll(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Results) != len(tt.results) {
				t.Fatalf("len(Results) = %d", len(report.Results))
			}
			for i, r := range report.Results {
				if r.Name != string(rune('a'+i)) {
					t.Errorf("Results[%d].Name = %q", i, r.Name)
				}
			}
			if report.Timestamp.IsZero() {
				t.Error("Timestamp not set")
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("slow", CheckerFunc(func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Healthy("too late")
	}))

	report := agg.CheckAll(context.Background())
	if report.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", report.Status)
	}
	if !errors.Is(report.Results[0].Error, ErrCheckTimeout) {
		t.Errorf("Error = %v, want ErrCheckTimeout", report.Results[0].Error)
	}
}

func TestAggregator_Concurrency(t *testing.T) {
	var active, peak atomic.Int32
	slow := CheckerFunc(func(context.Context) Result {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return Healthy("")
	})

	agg := NewAggregator(AggregatorConfig{Concurrency: 1})
	for _, n := range []string{"a", "b", "c"} {
		agg.Register(n, slow)
	}
	agg.CheckAll(context.Background())

	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestAggregator_DurationIsRecorded(t *testing.T) {
	agg := NewAggregator()
	agg.Register("x", CheckerFunc(func(context.Context) Result {
		time.Sleep(2 * time.Millisecond)
		return Healthy("")
	}))

	report := agg.CheckAll(context.Background())
	if report.Results[0].Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", report.Results[0].Duration)
	}
}
