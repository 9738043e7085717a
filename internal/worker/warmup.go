package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/routing"
)

// RouteAcquirer acquires a single route. routing.Service satisfies it.
type RouteAcquirer interface {
	Acquire(ctx context.Context, origin, destination routing.Coordinate, mode routing.Mode) routing.RouteResult
}

// WarmupJob fetches routes for busy corridors so user requests hit a warm
// routing cache.
type WarmupJob struct {
	config WarmupConfig
	routes RouteAcquirer
	logger zerolog.Logger

	metrics *WarmupMetrics
}

// WarmupMetrics tracks warm-up job statistics.
type WarmupMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	SuccessfulTasks int64
	FailedTasks     int64
	CorrectedRoutes int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmupJobConfig holds configuration for creating a WarmupJob.
type WarmupJobConfig struct {
	Config WarmupConfig
	Routes RouteAcquirer
	Logger zerolog.Logger
}

// NewWarmupJob creates a new warm-up job.
func NewWarmupJob(cfg WarmupJobConfig) *WarmupJob {
	config := cfg.Config
	if len(config.Corridors) == 0 {
		config.Corridors = DefaultCorridors()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &WarmupJob{
		config:  config,
		routes:  cfg.Routes,
		logger:  cfg.Logger,
		metrics: &WarmupMetrics{},
	}
}

// WarmupResult contains the result of a warm-up run.
type WarmupResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalTasks int
	Successful int
	Failed     int
	Corrected  int
	Failures   []WarmupFailure
}

// WarmupFailure is a task whose provider call failed and fell back to the
// straight-line estimate.
type WarmupFailure struct {
	Corridor string
	Mode     routing.Mode
}

type taskResult struct {
	task      Task
	quality   routing.Quality
	cancelled bool
}

// Run executes the warm-up for all configured corridors.
func (j *WarmupJob) Run(ctx context.Context) *WarmupResult {
	startTime := time.Now()
	tasks := j.config.Tasks()
	result := &WarmupResult{
		StartTime:  startTime,
		TotalTasks: len(tasks),
	}

	j.logger.Info().
		Int("total_tasks", result.TotalTasks).
		Int("concurrency", j.config.Concurrency).
		Msg("starting corridor warm-up job")

	tasksChan := make(chan Task, len(tasks))
	resultsChan := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, tasksChan, resultsChan)
		}()
	}

	for _, t := range tasks {
		tasksChan <- t
	}
	close(tasksChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		switch {
		case tr.cancelled || tr.quality == routing.QualityEstimated:
			result.Failed++
			result.Failures = append(result.Failures, WarmupFailure{Corridor: tr.task.Corridor, Mode: tr.task.Mode})
		case tr.quality == routing.QualityCorrected:
			result.Successful++
			result.Corrected++
		default:
			result.Successful++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("corrected", result.Corrected).
		Msg("corridor warm-up job completed")

	return result
}

func (j *WarmupJob) warmWorker(ctx context.Context, tasks <-chan Task, results chan<- taskResult) {
	for t := range tasks {
		select {
		case <-ctx.Done():
			results <- taskResult{task: t, cancelled: true}
		default:
			results <- j.warm(ctx, t)
		}
	}
}

func (j *WarmupJob) warm(ctx context.Context, t Task) taskResult {
	taskCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	r := j.routes.Acquire(taskCtx, t.Origin, t.Dest, t.Mode)
	if r.Quality == routing.QualityEstimated {
		j.logger.Warn().
			Str("corridor", t.Corridor).
			Str("mode", string(t.Mode)).
			Msg("routing provider unavailable during warm-up")
	}
	return taskResult{task: t, quality: r.Quality}
}

func (j *WarmupJob) updateMetrics(result *WarmupResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulTasks += int64(result.Successful)
	j.metrics.FailedTasks += int64(result.Failed)
	j.metrics.CorrectedRoutes += int64(result.Corrected)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmupJob) GetMetrics() WarmupMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmupMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulTasks: j.metrics.SuccessfulTasks,
		FailedTasks:     j.metrics.FailedTasks,
		CorrectedRoutes: j.metrics.CorrectedRoutes,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmupJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_tasks":  m.SuccessfulTasks,
		"failed_tasks":      m.FailedTasks,
		"corrected_routes":  m.CorrectedRoutes,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
