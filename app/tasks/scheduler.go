package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/threat-comb/app/feed"
	"github.com/lysyi3m/threat-comb/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize  = 100
	taskTimeout    = 5 * time.Minute
	maxRetryDelay  = 30 * time.Second
	baseRetryDelay = time.Second
)

type Scheduler struct {
	configCache *feed.ConfigCache
	runner      *feed.Runner
	store       *ResultStore
	interval    time.Duration
	workerCount int
	retryDelay  time.Duration
	runLock     sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(configCache *feed.ConfigCache, runner *feed.Runner, store *ResultStore, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount <= 0 {
		workerCount = 1
	}

	return &Scheduler{
		configCache: configCache,
		runner:      runner,
		store:       store,
		interval:    interval,
		workerCount: workerCount,
		retryDelay:  baseRetryDelay,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueRun()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTick()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueRun queues a pipeline run over the currently enabled feeds.
func (s *Scheduler) EnqueueRun() (TaskInterface, error) {
	task := NewRunFeedsTask(s.configCache, s.runner, s.store, &s.runLock)
	if err := s.EnqueueTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Scheduler) enqueueRun() {
	if _, err := s.EnqueueRun(); err != nil {
		slog.Warn("Failed to enqueue RunFeedsTask", "error", err)
	}
}

// enqueueTick picks up edited feed files before each periodic run. The reload
// runs inline so the queued run always sees the new config set; on failure the
// previous set stays live.
func (s *Scheduler) enqueueTick() {
	reloadTask := NewReloadConfigsTask(s.configCache)
	reloadTask.Start()
	if err := reloadTask.Execute(s.ctx); err != nil {
		metrics.RecordTaskFailure(string(reloadTask.GetType()))
		slog.Warn("Feed config reload failed, keeping previous configs", "error", err)
	}
	s.enqueueRun()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	metrics.RecordTaskFailure(string(task.GetType()))
	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay << uint(task.GetRetryCount()-1)
	if retryDelay > maxRetryDelay {
		retryDelay = maxRetryDelay
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
