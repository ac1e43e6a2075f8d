package ingest

import (
	"context"
	"fmt"

	"log/slog"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// Service 摄取用例编排
// 上传入口提交 Blob 后立即返回任务快照，实际摄取在后台任务中进行
// 后台任务只通过进度回调和终态标记与注册表通信，不持有注册表内部引用
type Service struct {
	registry *Registry
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewService 创建摄取服务
func NewService(registry *Registry, pipeline *Pipeline) *Service {
	return &Service{
		registry: registry,
		pipeline: pipeline,
		logger:   log.NewModuleLogger("ingest", "service"),
	}
}

// Registry 返回任务注册表（状态查询与取消入口）
func (s *Service) Registry() *Registry {
	return s.registry
}

// Submit 为一组 Blob 创建任务并在后台执行摄取
func (s *Service) Submit(blobs []*domainIngest.Blob, namespace domainIngest.Namespace) domainIngest.Job {
	var totalBytes int64
	for _, blob := range blobs {
		totalBytes += int64(len(blob.Data))
	}

	job := s.registry.Create(totalBytes)
	go s.runJob(job.JobID, blobs, namespace)
	return job
}

// runJob 后台摄取任务
// 任何失败在此边界捕获并转为 mark_error，绝不外泄到宿主进程
func (s *Service) runJob(jobID string, blobs []*domainIngest.Blob, namespace domainIngest.Namespace) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ingest job panicked", "job_id", jobID, "panic", r)
			s.registry.MarkError(jobID, fmt.Sprintf("ingest failed: %v", r))
		}
	}()

	var processedBytes int64
	onProgress := func(bytes int) {
		processedBytes += int64(bytes)
		s.registry.UpdateProgress(jobID, processedBytes)
	}
	shouldCancel := func() bool {
		job, ok := s.registry.Get(jobID)
		return ok && job.Status == domainIngest.StatusCanceled
	}

	ctx := context.Background()
	if shouldCancel() {
		return
	}
	for _, blob := range blobs {
		if shouldCancel() {
			return
		}
		if _, err := s.pipeline.Ingest(ctx, blob, namespace, onProgress, shouldCancel); err != nil {
			s.logger.Error("ingest job failed", "job_id", jobID, "blob", blob.Name, "error", err)
			s.registry.MarkError(jobID, err.Error())
			return
		}
	}
	s.registry.MarkDone(jobID)
}
