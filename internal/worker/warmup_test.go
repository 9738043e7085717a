package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/sos"
	"github.com/saferoute/saferoute/internal/worker"
)

type fakeAcquirer struct {
	mu      sync.Mutex
	calls   []routing.Mode
	quality map[routing.Mode]routing.Quality
	block   bool
}

func (f *fakeAcquirer) Acquire(ctx context.Context, _, _ routing.Coordinate, mode routing.Mode) routing.RouteResult {
	f.mu.Lock()
	f.calls = append(f.calls, mode)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return routing.RouteResult{Mode: mode, Quality: routing.QualityEstimated}
	}
	q, ok := f.quality[mode]
	if !ok {
		q = routing.QualityRouted
	}
	return routing.RouteResult{Mode: mode, Quality: q}
}

func TestDefaultWarmupConfig(t *testing.T) {
	cfg := worker.DefaultWarmupConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.GreaterOrEqual(t, len(cfg.Corridors), 5)

	for _, c := range cfg.Corridors {
		require.NoError(t, c.Origin.Validate(), c.Name)
		require.NoError(t, c.Destination.Validate(), c.Name)
	}
}

func TestWarmupConfig_Tasks(t *testing.T) {
	cfg := worker.WarmupConfig{
		Corridors: []worker.Corridor{
			{Name: "A"},
			{Name: "B", Modes: []routing.Mode{routing.ModeWalking}},
		},
	}

	tasks := cfg.Tasks()
	require.Len(t, tasks, len(routing.AllModes)+1)
	assert.Equal(t, "B", tasks[len(tasks)-1].Corridor)
	assert.Equal(t, routing.ModeWalking, tasks[len(tasks)-1].Mode)
}

func TestWarmupJob_Run(t *testing.T) {
	routes := &fakeAcquirer{quality: map[routing.Mode]routing.Quality{
		routing.ModeCycling: routing.QualityCorrected,
		routing.ModeDriving: routing.QualityEstimated,
	}}

	job := worker.NewWarmupJob(worker.WarmupJobConfig{
		Config: worker.WarmupConfig{
			Corridors:   []worker.Corridor{{Name: "Test", Origin: routing.Coordinate{Lat: 51.5, Lon: -0.1}, Destination: routing.Coordinate{Lat: 51.51, Lon: -0.11}}},
			Concurrency: 2,
			Timeout:     time.Second,
		},
		Routes: routes,
		Logger: zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalTasks)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Corrected)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, routing.ModeDriving, result.Failures[0].Mode)
	assert.Len(t, routes.calls, 3)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(2), metrics.SuccessfulTasks)
	assert.Equal(t, int64(1), metrics.FailedTasks)
	assert.Equal(t, int64(1), metrics.CorrectedRoutes)

	snapshot := job.MetricsSnapshot()
	assert.Equal(t, int64(1), snapshot["total_runs"])
}

func TestWarmupJob_Run_Timeout(t *testing.T) {
	job := worker.NewWarmupJob(worker.WarmupJobConfig{
		Config: worker.WarmupConfig{
			Corridors:   []worker.Corridor{{Name: "Slow", Modes: []routing.Mode{routing.ModeWalking}}},
			Concurrency: 1,
			Timeout:     10 * time.Millisecond,
		},
		Routes: &fakeAcquirer{block: true},
		Logger: zerolog.Nop(),
	})

	result := job.Run(context.Background())
	assert.Equal(t, 1, result.Failed)
	assert.Less(t, result.Duration, time.Second)
}

func TestWarmupJob_Run_Cancelled(t *testing.T) {
	routes := &fakeAcquirer{}
	job := worker.NewWarmupJob(worker.WarmupJobConfig{
		Config: worker.WarmupConfig{Corridors: []worker.Corridor{{Name: "X"}}},
		Routes: routes,
		Logger: zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)
	assert.Equal(t, result.TotalTasks, result.Failed)
	assert.Empty(t, routes.calls)
}

type fakeDispatcher struct {
	got    []sos.Alert
	result sos.DispatchResult
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, alert sos.Alert) (sos.DispatchResult, error) {
	f.got = append(f.got, alert)
	return f.result, f.err
}

type fakeWarmer struct {
	result *worker.WarmupResult
	runs   int
}

func (f *fakeWarmer) Run(context.Context) *worker.WarmupResult {
	f.runs++
	return f.result
}

func TestJobs_Handle_SOSAlert(t *testing.T) {
	alerts := &fakeDispatcher{result: sos.DispatchResult{Contacts: 2, Notified: 2}}
	jobs := &worker.Jobs{Alerts: alerts, Logger: zerolog.Nop()}

	data, err := json.Marshal(sos.Envelope{
		JobType: sos.JobType,
		Alert:   sos.Alert{ID: "sos_1", UserID: "usr_1", Location: sos.Location{Lat: 51.5, Lon: -0.1}},
	})
	require.NoError(t, err)

	jobType, err := jobs.Handle(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, sos.JobType, jobType)
	require.Len(t, alerts.got, 1)
	assert.Equal(t, "sos_1", alerts.got[0].ID)
	assert.Equal(t, "usr_1", alerts.got[0].UserID)
}

func TestJobs_Handle_SOSAlertFailure(t *testing.T) {
	alerts := &fakeDispatcher{err: errors.New("no guardian notified")}
	jobs := &worker.Jobs{Alerts: alerts, Logger: zerolog.Nop()}

	_, err := jobs.Handle(context.Background(), []byte(`{"job_type":"sos_alert","alert":{"id":"sos_2"}}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, worker.ErrMalformedMessage)
}

func TestJobs_Handle_SOSAlertMissingPayload(t *testing.T) {
	jobs := &worker.Jobs{Alerts: &fakeDispatcher{}, Logger: zerolog.Nop()}

	_, err := jobs.Handle(context.Background(), []byte(`{"job_type":"sos_alert"}`))
	assert.ErrorIs(t, err, worker.ErrMalformedMessage)

	_, err = jobs.Handle(context.Background(), []byte(`{"job_type":"sos_alert","alert":"sos_3"}`))
	assert.ErrorIs(t, err, worker.ErrMalformedMessage)
}

func TestJobs_Handle_Warmup(t *testing.T) {
	tests := []struct {
		name    string
		result  worker.WarmupResult
		wantErr bool
	}{
		{name: "all succeeded", result: worker.WarmupResult{TotalTasks: 3, Successful: 3}},
		{name: "half failed", result: worker.WarmupResult{TotalTasks: 4, Successful: 2, Failed: 2}},
		{name: "mostly failed", result: worker.WarmupResult{TotalTasks: 3, Successful: 1, Failed: 2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.result
			warmer := &fakeWarmer{result: &result}
			jobs := &worker.Jobs{Warmup: warmer, Logger: zerolog.Nop()}

			jobType, err := jobs.Handle(context.Background(), []byte(`{"job_type":"corridor_warmup"}`))
			assert.Equal(t, worker.WarmupJobType, jobType)
			assert.Equal(t, 1, warmer.runs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJobs_Handle_UnknownAndMalformed(t *testing.T) {
	jobs := &worker.Jobs{Logger: zerolog.Nop()}

	jobType, err := jobs.Handle(context.Background(), []byte(`{"job_type":"provider_refresh"}`))
	assert.ErrorIs(t, err, worker.ErrUnknownJobType)
	assert.Equal(t, "provider_refresh", jobType)

	_, err = jobs.Handle(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, worker.ErrMalformedMessage)
	assert.NotErrorIs(t, err, worker.ErrUnknownJobType)
}
