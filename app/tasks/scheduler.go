package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/lens/app/feed"
	"github.com/lysyi3m/lens/app/lens"
	"github.com/lysyi3m/lens/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize   = 300
	taskTimeout = 5 * time.Minute
)

type SchedulerOptions struct {
	UserAgent   string
	Interval    time.Duration
	WorkerCount int
}

type Scheduler struct {
	catalog     lens.CatalogWriter
	configCache *feed.ConfigCache
	httpClient  *http.Client
	parser      *feed.Parser
	filterer    *feed.Filterer
	userAgent   string
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	nextRun map[string]time.Time
	now     func() time.Time
}

func NewScheduler(configCache *feed.ConfigCache, catalog lens.CatalogWriter, httpClient *http.Client,
	parser *feed.Parser, filterer *feed.Filterer, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		catalog:     catalog,
		configCache: configCache,
		httpClient:  httpClient,
		parser:      parser,
		filterer:    filterer,
		userAgent:   opts.UserAgent,
		interval:    max(opts.Interval, time.Second),
		workerCount: max(opts.WorkerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		nextRun:     make(map[string]time.Time),
		now:         time.Now,
	}
}

// Start launches the workers and the refresh loop. Creators are synced
// once at startup before the first imports.
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

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// EnqueueTask never blocks; it fails when the queue is full or the
// scheduler is stopped.
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

// ImportChannel queues an immediate import regardless of the channel's
// refresh interval.
func (s *Scheduler) ImportChannel(name string) error {
	channelConfig, err := s.configCache.GetConfig(name)
	if err != nil {
		return err
	}
	if !channelConfig.Settings.Enabled {
		return fmt.Errorf("channel '%s' is disabled", name)
	}

	if err := s.EnqueueTask(s.newImportTask(channelConfig)); err != nil {
		return fmt.Errorf("failed to enqueue import: %w", err)
	}
	s.markScheduled(channelConfig)
	return nil
}

func (s *Scheduler) newImportTask(channelConfig *feed.Config) *ImportChannelTask {
	return NewImportChannelTask(channelConfig, s.httpClient, s.parser, s.filterer, s.catalog, s.userAgent)
}

func (s *Scheduler) enqueueStartupTasks() {
	channelConfigs := s.configCache.GetConfigs()
	if len(channelConfigs) == 0 {
		slog.Debug("No channel configurations found")
		return
	}

	slog.Debug("Processing channel configurations", "count", len(channelConfigs))

	for _, channelConfig := range channelConfigs {
		if err := s.EnqueueTask(NewSyncCreatorTask(channelConfig, s.catalog)); err != nil {
			slog.Warn("Failed to enqueue SyncCreatorTask", "channel", channelConfig.Name, "error", err)
		}
	}

	s.enqueueTasks()
}

func (s *Scheduler) enqueueTasks() {
	channelConfigs := s.configCache.GetEnabledConfigs()
	if len(channelConfigs) == 0 {
		slog.Debug("No enabled channel configurations found")
		return
	}

	now := s.now()
	for _, channelConfig := range channelConfigs {
		if !s.isDue(channelConfig.Name, now) {
			slog.Debug("Channel not due for refresh yet", "channel", channelConfig.Name)
			continue
		}

		if err := s.EnqueueTask(s.newImportTask(channelConfig)); err != nil {
			slog.Warn("Failed to enqueue ImportChannelTask", "channel", channelConfig.Name, "error", err)
			continue
		}
		s.markScheduled(channelConfig)
	}
}

// isDue reports whether a channel has no pending run before now.
func (s *Scheduler) isDue(name string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.nextRun[name]
	return !ok || !next.After(now)
}

func (s *Scheduler) markScheduled(channelConfig *feed.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun[channelConfig.Name] = s.now().Add(time.Duration(channelConfig.Settings.RefreshInterval) * time.Second)
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

// executeTask runs one task under the task timeout and schedules a delayed
// retry while the task has retries left.
func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		metrics.TaskRuns.WithLabelValues(string(task.GetType()), "success").Inc()
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		metrics.TaskRuns.WithLabelValues(string(task.GetType()), "failed").Inc()
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	metrics.TaskRuns.WithLabelValues(string(task.GetType()), "retry").Inc()
	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "channel", task.GetChannelName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
