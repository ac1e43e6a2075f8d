package ingest

import (
	"testing"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
)

func TestRegistryCreateAndGet(t *testing.T) {
	registry := NewRegistry()

	job := registry.Create(1000)
	if job.JobID == "" {
		t.Fatal("expected generated job id")
	}
	if job.Status != domainIngest.StatusRunning {
		t.Errorf("expected running, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("expected progress 0, got %f", job.Progress)
	}

	got, ok := registry.Get(job.JobID)
	if !ok || got.JobID != job.JobID {
		t.Fatalf("expected to find job, got %+v ok=%v", got, ok)
	}

	if _, ok := registry.Get("missing"); ok {
		t.Error("unknown id must not be found")
	}
}

func TestRegistryProgressClamp(t *testing.T) {
	registry := NewRegistry()
	job := registry.Create(1000)

	registry.UpdateProgress(job.JobID, 500)
	got, _ := registry.Get(job.JobID)
	if got.Progress != 0.5 {
		t.Errorf("expected 0.5, got %f", got.Progress)
	}

	// 超过总量时钳制在 0.99
	registry.UpdateProgress(job.JobID, 2000)
	got, _ = registry.Get(job.JobID)
	if got.Progress != 0.99 {
		t.Errorf("expected clamp to 0.99, got %f", got.Progress)
	}
	if got.ProcessedBytes != 2000 {
		t.Errorf("expected processed bytes 2000, got %d", got.ProcessedBytes)
	}
}

func TestRegistryProgressMonotone(t *testing.T) {
	registry := NewRegistry()
	job := registry.Create(1000)

	registry.UpdateProgress(job.JobID, 800)
	registry.UpdateProgress(job.JobID, 300)

	got, _ := registry.Get(job.JobID)
	if got.Progress != 0.8 {
		t.Errorf("progress must not regress: expected 0.8, got %f", got.Progress)
	}
}

func TestRegistryMarkDoneForcesFullProgress(t *testing.T) {
	registry := NewRegistry()
	job := registry.Create(1000)

	registry.UpdateProgress(job.JobID, 999)
	registry.MarkDone(job.JobID)

	got, _ := registry.Get(job.JobID)
	if got.Status != domainIngest.StatusDone {
		t.Errorf("expected done, got %s", got.Status)
	}
	if got.Progress != 1.0 {
		t.Errorf("expected 1.0, got %f", got.Progress)
	}
}

func TestRegistryTerminalStatesAbsorb(t *testing.T) {
	registry := NewRegistry()
	job := registry.Create(1000)

	registry.MarkError(job.JobID, "boom")

	// 终态之后的所有变迁均为空操作
	registry.MarkDone(job.JobID)
	registry.UpdateProgress(job.JobID, 1000)
	if registry.Cancel(job.JobID) {
		t.Error("cancel on terminal job must return false")
	}

	got, _ := registry.Get(job.JobID)
	if got.Status != domainIngest.StatusError {
		t.Errorf("expected error state preserved, got %s", got.Status)
	}
	if got.Error != "boom" {
		t.Errorf("expected error message preserved, got %q", got.Error)
	}
}

func TestRegistryCancel(t *testing.T) {
	registry := NewRegistry()
	job := registry.Create(1000)

	if !registry.Cancel(job.JobID) {
		t.Fatal("cancel on running job must return true")
	}
	got, _ := registry.Get(job.JobID)
	if got.Status != domainIngest.StatusCanceled {
		t.Errorf("expected canceled, got %s", got.Status)
	}

	if registry.Cancel("missing") {
		t.Error("cancel on unknown id must return false")
	}
}

func TestRegistryObserverReceivesSnapshots(t *testing.T) {
	registry := NewRegistry()
	job := registry.Create(1000)

	var seen []domainIngest.Job
	registry.SetObserver(func(snapshot domainIngest.Job) {
		seen = append(seen, snapshot)
	})

	registry.UpdateProgress(job.JobID, 500)
	registry.MarkDone(job.JobID)

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if seen[0].Progress != 0.5 {
		t.Errorf("first snapshot: expected 0.5, got %f", seen[0].Progress)
	}
	if seen[1].Status != domainIngest.StatusDone {
		t.Errorf("second snapshot: expected done, got %s", seen[1].Status)
	}
}
