package service

import (
	"context"
	"testing"
	"time"

	"github.com/BerniceZTT/crm_analytics/utils"
)

func waitForJob(t *testing.T, r *JobRunner, id string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := r.Get(id); ok && job.Status != JobStatusRunning {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func TestJobRunner_Success(t *testing.T) {
	r := NewJobRunner(context.Background())
	job, err := r.Submit(JobCustomerScores, func(context.Context) (interface{}, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if job.ID == "" || job.Status != JobStatusRunning {
		t.Fatalf("unexpected job: %+v", job)
	}

	done := waitForJob(t, r, job.ID)
	if done.Status != JobStatusSucceeded || done.Result != 42 || done.FinishedAt == nil {
		t.Fatalf("unexpected finished job: %+v", done)
	}
}

func TestJobRunner_Failure(t *testing.T) {
	r := NewJobRunner(context.Background())
	job, _ := r.Submit(JobProductAnalytics, func(context.Context) (interface{}, error) {
		return nil, utils.NewAnalyticsError(utils.KindInvalidSettings, "bad cutoffs", nil)
	})

	done := waitForJob(t, r, job.ID)
	if done.Status != JobStatusFailed || done.ErrorCode != string(utils.KindInvalidSettings) || done.Error != "bad cutoffs" {
		t.Fatalf("unexpected failed job: %+v", done)
	}
}

func TestJobRunner_Panic(t *testing.T) {
	r := NewJobRunner(context.Background())
	job, _ := r.Submit(JobProductAnalytics, func(context.Context) (interface{}, error) {
		panic("boom")
	})
	done := waitForJob(t, r, job.ID)
	if done.Status != JobStatusFailed || done.ErrorCode != string(utils.KindPartialComputeFailure) {
		t.Fatalf("unexpected job: %+v", done)
	}
}

func TestJobRunner_RejectsSameKind(t *testing.T) {
	r := NewJobRunner(context.Background())
	release := make(chan struct{})
	first, err := r.Submit(JobCustomerScores, func(context.Context) (interface{}, error) {
		<-release
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Submit(JobCustomerScores, func(context.Context) (interface{}, error) { return nil, nil }); !utils.IsKind(err, utils.KindConcurrentRunConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	other, err := r.Submit(JobProductAnalytics, func(context.Context) (interface{}, error) { return nil, nil })
	if err != nil {
		t.Fatalf("other kinds may run concurrently: %v", err)
	}

	close(release)
	r.Wait()
	waitForJob(t, r, first.ID)
	waitForJob(t, r, other.ID)

	if _, err := r.Submit(JobCustomerScores, func(context.Context) (interface{}, error) { return nil, nil }); err != nil {
		t.Fatalf("kind must be free again: %v", err)
	}
	r.Wait()
}

func TestJobRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewJobRunner(ctx)
	job, _ := r.Submit(JobCustomerScores, func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cancel()
	r.Wait()
	if done := waitForJob(t, r, job.ID); done.Status != JobStatusFailed {
		t.Fatalf("unexpected job: %+v", done)
	}
}

func TestJobRunner_UnknownJob(t *testing.T) {
	if _, ok := NewJobRunner(context.Background()).Get("missing"); ok {
		t.Fatal("unknown job must not be found")
	}
}

func TestNextRunAt(t *testing.T) {
	now := time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC)
	if got := nextRunAt(now, 12, 30, 0); !got.Equal(time.Date(2024, 6, 30, 12, 30, 0, 0, time.UTC)) {
		t.Fatalf("later today: %v", got)
	}
	if got := nextRunAt(now, 2, 30, 0); !got.Equal(time.Date(2024, 7, 1, 2, 30, 0, 0, time.UTC)) {
		t.Fatalf("tomorrow: %v", got)
	}
	if got := nextRunAt(now, 10, 0, 0); !got.Equal(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("exactly now runs tomorrow: %v", got)
	}
}
