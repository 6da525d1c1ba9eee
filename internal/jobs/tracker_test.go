package jobs

import (
	"context"
	"testing"
	"time"
)

func TestStartAndGet(t *testing.T) {
	tr := NewTracker(time.Minute)

	job, ctx := tr.Start(context.Background(), 5)
	if job.ID == "" {
		t.Fatal("expected a job id")
	}
	if job.Status != StatusRunning {
		t.Fatalf("status = %q, want %q", job.Status, StatusRunning)
	}
	if job.Total != 5 {
		t.Fatalf("total = %d, want 5", job.Total)
	}
	if ctx.Err() != nil {
		t.Fatal("derived context should be live")
	}

	got := tr.Get(job.ID)
	if got == nil {
		t.Fatal("job not found after Start")
	}
	if got.ID != job.ID {
		t.Fatalf("got id %q, want %q", got.ID, job.ID)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	tr := NewTracker(time.Minute)
	job, _ := tr.Start(context.Background(), 3)

	snap := tr.Get(job.ID)
	snap.Done = 99

	if tr.Get(job.ID).Done != 0 {
		t.Fatal("mutating a snapshot must not affect tracker state")
	}
}

func TestProgressUpdatesRunningJob(t *testing.T) {
	tr := NewTracker(time.Minute)
	job, _ := tr.Start(context.Background(), 10)

	tr.Progress(job.ID, "AAPL", 3)

	got := tr.Get(job.ID)
	if got.Done != 3 || got.Symbol != "AAPL" {
		t.Fatalf("got done=%d symbol=%q, want 3/AAPL", got.Done, got.Symbol)
	}
}

func TestCompleteStoresResult(t *testing.T) {
	tr := NewTracker(time.Minute)
	job, ctx := tr.Start(context.Background(), 1)

	tr.Complete(job.ID, "payload")

	got := tr.Get(job.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, StatusCompleted)
	}
	if got.Result != "payload" {
		t.Fatalf("result = %v, want payload", got.Result)
	}
	if got.FinishedAt == nil {
		t.Fatal("finished timestamp not set")
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("job context not released on completion")
	}
}

func TestProgressIgnoredAfterFinish(t *testing.T) {
	tr := NewTracker(time.Minute)
	job, _ := tr.Start(context.Background(), 2)

	tr.Fail(job.ID, "provider down")
	tr.Progress(job.ID, "MSFT", 1)

	got := tr.Get(job.ID)
	if got.Done != 0 || got.Symbol != "" {
		t.Fatal("progress must be ignored once a job is finished")
	}
	if got.Error != "provider down" {
		t.Fatalf("error = %q, want provider down", got.Error)
	}
}

func TestCancelRunningJob(t *testing.T) {
	tr := NewTracker(time.Minute)
	job, ctx := tr.Start(context.Background(), 4)

	if !tr.Cancel(job.ID) {
		t.Fatal("cancel of running job should succeed")
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not propagate to the job context")
	}

	// worker acknowledges at its next cancellation point
	tr.MarkCancelled(job.ID, nil)
	if got := tr.Get(job.ID); got.Status != StatusCancelled {
		t.Fatalf("status = %q, want %q", got.Status, StatusCancelled)
	}

	if tr.Cancel(job.ID) {
		t.Fatal("cancel of finished job should report false")
	}
}

func TestCancelUnknownJob(t *testing.T) {
	tr := NewTracker(time.Minute)
	if tr.Cancel("nope") {
		t.Fatal("cancel of unknown job should report false")
	}
}

func TestFinishedJobExpires(t *testing.T) {
	tr := NewTracker(10 * time.Millisecond)
	job, _ := tr.Start(context.Background(), 1)
	tr.Complete(job.ID, nil)

	time.Sleep(30 * time.Millisecond)

	if tr.Get(job.ID) != nil {
		t.Fatal("finished job should be gone after its TTL")
	}

	// running jobs never expire
	running, _ := tr.Start(context.Background(), 1)
	time.Sleep(30 * time.Millisecond)
	if tr.Get(running.ID) == nil {
		t.Fatal("running job must not expire")
	}
}
