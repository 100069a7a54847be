package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/google/uuid"
)

// JobStatus 后台任务状态
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

const maxJobHistory = 100

// Job 后台重算任务
type Job struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Status     JobStatus   `json:"status"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorCode  string      `json:"errorCode,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

// JobFunc 任务主体
type JobFunc func(ctx context.Context) (interface{}, error)

// JobRunner 在后台执行重算，同类任务同一时间只允许一个
type JobRunner struct {
	ctx     context.Context
	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string
	running map[string]string
	wg      sync.WaitGroup
}

// NewJobRunner 创建任务执行器，ctx 取消时正在运行的任务随之取消
func NewJobRunner(ctx context.Context) *JobRunner {
	return &JobRunner{
		ctx:     ctx,
		jobs:    make(map[string]*Job),
		running: make(map[string]string),
	}
}

// Submit 提交任务，同类任务正在运行时返回 ConcurrentRunConflict
func (r *JobRunner) Submit(kind string, fn JobFunc) (Job, error) {
	r.mu.Lock()
	if id, busy := r.running[kind]; busy {
		r.mu.Unlock()
		return Job{}, utils.NewAnalyticsError(utils.KindConcurrentRunConflict, "任务 "+kind+" 正在运行: "+id, nil)
	}

	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    JobStatusRunning,
		StartedAt: time.Now(),
	}
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	r.running[kind] = job.ID
	r.trimLocked()
	snapshot := *job
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		result, err := r.run(fn)
		r.finish(job.ID, result, err)
	}()
	return snapshot, nil
}

func (r *JobRunner) run(fn JobFunc) (result interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = utils.NewAnalyticsError(utils.KindPartialComputeFailure, "任务异常中止", nil)
			utils.Logger.Error().Interface("panic", p).Msg("后台任务panic")
		}
	}()
	return fn(r.ctx)
}

func (r *JobRunner) finish(id string, result interface{}, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return
	}
	now := time.Now()
	job.FinishedAt = &now
	job.Result = result
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
		var ae *utils.AnalyticsError
		if errors.As(err, &ae) {
			job.Error = ae.Message
			job.ErrorCode = string(ae.Kind)
		}
	} else {
		job.Status = JobStatusSucceeded
	}
	if r.running[job.Kind] == id {
		delete(r.running, job.Kind)
	}
	utils.Logger.Info().Str("jobId", id).Str("kind", job.Kind).Str("status", string(job.Status)).Msg("后台任务结束")
}

// trimLocked 只保留最近的已结束任务
func (r *JobRunner) trimLocked() {
	for len(r.order) > maxJobHistory {
		trimmed := false
		for i, id := range r.order {
			if r.jobs[id].Status != JobStatusRunning {
				delete(r.jobs, id)
				r.order = append(r.order[:i], r.order[i+1:]...)
				trimmed = true
				break
			}
		}
		if !trimmed {
			return
		}
	}
}

// Get 查询任务
func (r *JobRunner) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Wait 等待所有任务结束
func (r *JobRunner) Wait() {
	r.wg.Wait()
}
