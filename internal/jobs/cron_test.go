package jobs

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
)

func registryWith(t *testing.T, h Handler, names ...string) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, n := range names {
		if err := reg.Register(n, h); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
	}
	return reg
}

func allJobs() []string {
	var out []string
	for _, s := range DefaultSchedules() {
		out = append(out, s.Job)
	}
	return out
}

func noop(context.Context, string) (any, error) { return nil, nil }

func TestDefaultSchedules_AreValid(t *testing.T) {
	if err := ValidateSchedules(DefaultSchedules()); err != nil {
		t.Fatalf("ValidateSchedules: %v", err)
	}
}

func TestValidateSchedules_Rejects(t *testing.T) {
	cases := map[string][]Schedule{
		"bad spec":    {{Job: "a", Spec: "not a spec"}},
		"shared hour": {{Job: "a", Spec: "0 3 * * *"}, {Job: "b", Spec: "30 3 * * *"}},
		"every hour":  {{Job: "a", Spec: "0 * * * *"}, {Job: "b", Spec: "0 5 * * *"}},
		"duplicate":   {{Job: "a", Spec: "0 3 * * *"}, {Job: "a", Spec: "0 4 * * *"}},
		"descriptor":  {{Job: "a", Spec: "@every 1h"}},
	}
	for name, scheds := range cases {
		if err := ValidateSchedules(scheds); err == nil {
			t.Fatalf("%s: want error got=nil", name)
		}
	}
}

func TestNewRunner_RequiresHandlers(t *testing.T) {
	_, err := NewRunner(RunnerDeps{Registry: registryWith(t, noop, jobtypes.TypeLifecycle)})
	if err == nil || !strings.Contains(err.Error(), "no handler") {
		t.Fatalf("want missing handler error got=%v", err)
	}
}

func TestRunner_FireRecoversAndReports(t *testing.T) {
	var calls atomic.Int32
	var gotTrigger atomic.Value
	reg := NewRegistry()
	_ = reg.Register("boom", func(context.Context, string) (any, error) {
		calls.Add(1)
		panic("handler exploded")
	})
	_ = reg.Register("fails", func(_ context.Context, trigger string) (any, error) {
		calls.Add(1)
		gotTrigger.Store(trigger)
		return nil, errors.New("nope")
	})
	r, err := NewRunner(RunnerDeps{
		Registry:  reg,
		Schedules: []Schedule{{Job: "boom", Spec: "0 5 * * *"}, {Job: "fails", Spec: "0 6 * * *"}},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	r.fire("boom")
	r.fire("fails")
	r.fire("missing")
	if calls.Load() != 2 {
		t.Fatalf("calls: want=2 got=%d", calls.Load())
	}
	if gotTrigger.Load() != jobtypes.TriggerScheduled {
		t.Fatalf("trigger: want=%s got=%v", jobtypes.TriggerScheduled, gotTrigger.Load())
	}
}

func TestRunner_StartStop(t *testing.T) {
	r, err := NewRunner(RunnerDeps{Registry: registryWith(t, noop, allJobs()...)})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	next := r.Next()
	if len(next) != len(DefaultSchedules()) {
		t.Fatalf("entries: want=%d got=%d", len(DefaultSchedules()), len(next))
	}
	lc := next[jobtypes.TypeLifecycle]
	if lc.IsZero() || lc.Hour() != 0 || lc.Location() != time.UTC {
		t.Fatalf("lifecycle next run: got=%v", lc)
	}
	cancel()
	r.Stop()
}

func TestRegistry(t *testing.T) {
	reg := registryWith(t, noop, "b", "a")
	if err := reg.Register("a", noop); err == nil {
		t.Fatalf("duplicate register should fail")
	}
	if err := reg.Register("", noop); err == nil {
		t.Fatalf("empty name should fail")
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("names: want=[a b] got=%v", got)
	}
}
