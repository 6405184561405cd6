package maintenance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"go.uber.org/multierr"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type refusingLock struct{}

func (refusingLock) Acquire(context.Context) (bool, error) { return false, nil }
func (refusingLock) Release(context.Context) error         { return nil }

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	purgeErr := errors.New("purge failed")
	probeErr := errors.New("menu unavailable")
	ok := &testJob{name: "ok"}
	purge := &testJob{name: "storage-purge", err: purgeErr}
	probe := &testJob{name: "menu-probe", err: probeErr}
	lock := &LocalLock{}
	service, err := NewService(ServiceParams{
		Logger: logger.Nop(),
		Jobs:   []Job{purge, nil, ok, probe},
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = service.RunOnce(context.Background())
	if !errors.Is(err, purgeErr) || !errors.Is(err, probeErr) {
		t.Fatalf("expected both job failures in the cycle error, got %v", err)
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected two combined errors, got %d", got)
	}
	if !strings.Contains(err.Error(), "storage-purge") || !strings.Contains(err.Error(), "menu-probe") {
		t.Fatalf("expected job names in the cycle error, got %q", err)
	}
	if ok.runs != 1 || purge.runs != 1 || probe.runs != 1 {
		t.Fatalf("expected each job to run once, got ok=%d purge=%d probe=%d", ok.runs, purge.runs, probe.runs)
	}
	if acquired, _ := lock.Acquire(context.Background()); !acquired {
		t.Fatalf("expected the lock to be released after the cycle")
	}
}

func TestRunOnceSkipsWhenLocked(t *testing.T) {
	job := &testJob{name: "ok"}
	service, err := NewService(ServiceParams{
		Logger: logger.Nop(),
		Jobs:   []Job{job},
		Lock:   refusingLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no runs while another worker holds the lock")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "ok"}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Jobs: []Job{job}, Lock: &LocalLock{}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the first cycle to run before stopping, got %d", job.runs)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected an error without a lock")
	}
}

func TestRunOnceSucceedsWhenAllJobsPass(t *testing.T) {
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Jobs: []Job{&testJob{name: "a"}, &testJob{name: "b"}}, Lock: &LocalLock{}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected a clean cycle, got %v", err)
	}
}
