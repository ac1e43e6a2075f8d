package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
)

// progressCeiling 运行中进度上限，只有 MarkDone 才会到 1.0
const progressCeiling = 0.99

// Registry 进程级摄取任务注册表
// 进程启动时构造一次，进程退出即失效，不做持久化
// 每个操作是一个独立的临界区，锁内不调用任何外部协作方
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*domainIngest.Job

	// observer 任务快照变更通知，在临界区外调用
	observer func(domainIngest.Job)
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*domainIngest.Job),
	}
}

// SetObserver 设置任务快照观察者（用于进度推送）
func (r *Registry) SetObserver(fn func(domainIngest.Job)) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

// Create 分配新任务，初始状态 running
func (r *Registry) Create(totalBytes int64) domainIngest.Job {
	now := time.Now()
	job := &domainIngest.Job{
		JobID:      uuid.New().String(),
		Status:     domainIngest.StatusRunning,
		TotalBytes: totalBytes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.mu.Lock()
	r.jobs[job.JobID] = job
	snapshot := *job
	r.mu.Unlock()

	return snapshot
}

// Get 按 id 查询任务快照
func (r *Registry) Get(jobID string) (domainIngest.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domainIngest.Job{}, false
	}
	return *job, true
}

// UpdateProgress 更新已处理字节数并推进进度
// 任务不存在或已离开 running 状态时为空操作
// 进度单调不减，TotalBytes > 0 时被钳制在 0.99 以下
func (r *Registry) UpdateProgress(jobID string, processedBytes int64) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != domainIngest.StatusRunning {
		r.mu.Unlock()
		return
	}
	job.ProcessedBytes = processedBytes
	if job.TotalBytes > 0 {
		candidate := float64(processedBytes) / float64(job.TotalBytes)
		if candidate > progressCeiling {
			candidate = progressCeiling
		}
		if candidate > job.Progress {
			job.Progress = candidate
		}
	}
	job.UpdatedAt = time.Now()
	snapshot := *job
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

// MarkDone 标记任务完成，进度强制为 1.0
func (r *Registry) MarkDone(jobID string) {
	r.transition(jobID, func(job *domainIngest.Job) {
		job.Status = domainIngest.StatusDone
		job.Progress = 1.0
	})
}

// MarkError 标记任务失败并记录描述信息
func (r *Registry) MarkError(jobID string, message string) {
	r.transition(jobID, func(job *domainIngest.Job) {
		job.Status = domainIngest.StatusError
		job.Error = message
	})
}

// Cancel 将 running 任务转为 canceled
// 任务不存在或已处于终态时返回 false，两种情况调用方无需区分
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != domainIngest.StatusRunning {
		r.mu.Unlock()
		return false
	}
	job.Status = domainIngest.StatusCanceled
	job.UpdatedAt = time.Now()
	snapshot := *job
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
	return true
}

// transition 在 running 状态上应用终态变迁，终态不再离开
func (r *Registry) transition(jobID string, apply func(*domainIngest.Job)) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	apply(job)
	job.UpdatedAt = time.Now()
	snapshot := *job
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}
