package ingest

import "time"

// JobStatus 摄取任务状态
type JobStatus string

const (
	StatusRunning  JobStatus = "running"
	StatusDone     JobStatus = "done"
	StatusError    JobStatus = "error"
	StatusCanceled JobStatus = "canceled"
)

// Terminal 是否为终态（done/error/canceled 均不再变迁）
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCanceled
}

// Job 一次后台摄取任务
// 注册表独占持有唯一实例，对外只返回值快照
type Job struct {
	JobID          string    `json:"job_id"`
	Status         JobStatus `json:"status"`
	Progress       float64   `json:"progress"`
	Error          string    `json:"error,omitempty"`
	TotalBytes     int64     `json:"total_bytes"`
	ProcessedBytes int64     `json:"processed_bytes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
