package ingest

import (
	"testing"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
)

func newTestService(store *recordingStore) *Service {
	pipeline := NewPipeline(fakeParser{}, lineSplitter{}, store, 10, 1_000_000)
	return NewService(NewRegistry(), pipeline)
}

func TestRunJobMarksDone(t *testing.T) {
	store := &recordingStore{}
	service := newTestService(store)

	blob := testBlob("a\nb")
	job := service.Registry().Create(int64(len(blob.Data)))

	service.runJob(job.JobID, []*domainIngest.Blob{blob}, "thread:t1")

	got, _ := service.Registry().Get(job.JobID)
	if got.Status != domainIngest.StatusDone {
		t.Errorf("expected done, got %s", got.Status)
	}
	if got.Progress != 1.0 {
		t.Errorf("expected progress 1.0, got %f", got.Progress)
	}
	if len(store.batches) != 1 {
		t.Errorf("expected one write, got %d", len(store.batches))
	}
}

func TestRunJobMarksErrorOnParseFailure(t *testing.T) {
	pipeline := NewPipeline(failingParser{}, lineSplitter{}, &recordingStore{}, 10, 1_000_000)
	service := NewService(NewRegistry(), pipeline)

	blob := testBlob("whatever")
	job := service.Registry().Create(int64(len(blob.Data)))

	service.runJob(job.JobID, []*domainIngest.Blob{blob}, "thread:t1")

	got, _ := service.Registry().Get(job.JobID)
	if got.Status != domainIngest.StatusError {
		t.Errorf("expected error, got %s", got.Status)
	}
	if got.Error == "" {
		t.Error("expected error message to be recorded")
	}
}

func TestRunJobRespectsCancel(t *testing.T) {
	store := &recordingStore{}
	service := newTestService(store)

	blob := testBlob("a\nb")
	job := service.Registry().Create(int64(len(blob.Data)))

	// 任务开跑前已被取消
	if !service.Registry().Cancel(job.JobID) {
		t.Fatal("cancel should succeed on running job")
	}
	service.runJob(job.JobID, []*domainIngest.Blob{blob}, "thread:t1")

	got, _ := service.Registry().Get(job.JobID)
	if got.Status != domainIngest.StatusCanceled {
		t.Errorf("canceled state must be preserved, got %s", got.Status)
	}
	if len(store.batches) != 0 {
		t.Errorf("canceled job must not write, got %d batches", len(store.batches))
	}
}

func TestSubmitReturnsRunningSnapshot(t *testing.T) {
	store := &recordingStore{}
	service := newTestService(store)

	job := service.Submit([]*domainIngest.Blob{testBlob("a")}, "thread:t1")
	if job.JobID == "" {
		t.Fatal("expected job id")
	}
	if job.TotalBytes != 1 {
		t.Errorf("expected total bytes 1, got %d", job.TotalBytes)
	}
}
