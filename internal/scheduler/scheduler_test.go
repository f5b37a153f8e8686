package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/logger"
)

// fakeJob fails its first failures runs with err
type fakeJob struct {
	name     string
	schedule string
	failures int32
	err      error
	calls    int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failures {
		return j.err
	}
	return nil
}

func newScheduler(maxRetries int) *Scheduler {
	return New(logger.Nop(), Options{MaxRetries: maxRetries, RetryDelay: time.Millisecond, Timeout: time.Second})
}

func TestAddJob(t *testing.T) {
	s := newScheduler(0)

	require.NoError(t, s.AddJob(&fakeJob{name: "daily_report", schedule: "0 0 22 * * 1-5"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "alert_scan", schedule: "0 0 * * * *"}))

	err := s.AddJob(&fakeJob{name: "daily_report", schedule: "@hourly"})
	assert.Error(t, err, "duplicate name")

	assert.Equal(t, []string{"alert_scan", "daily_report"}, s.GetAllJobs())
}

func TestAddJob_InvalidScheduleIsConfigError(t *testing.T) {
	err := newScheduler(0).AddJob(&fakeJob{name: "bad", schedule: "every day"})
	assert.True(t, contracts.IsConfigError(err))
}

func TestRunJob_RetriesTransientFailures(t *testing.T) {
	s := newScheduler(3)
	job := &fakeJob{name: "daily_report", schedule: "@daily", failures: 2, err: errors.New("db busy")}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("daily_report")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)
}

func TestRunJob_ConfigErrorIsNotRetried(t *testing.T) {
	s := newScheduler(3)
	job := &fakeJob{
		name: "daily_report", schedule: "@daily", failures: 10,
		err: &contracts.ConfigError{Source: "model", Message: "weights must sum to 1"},
	}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("daily_report")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Error, "weights must sum to 1")
}

func TestRunJob_Unknown(t *testing.T) {
	_, err := newScheduler(0).RunJob("nope")
	assert.Error(t, err)
}

func TestJobStats(t *testing.T) {
	s := newScheduler(0)
	job := &fakeJob{name: "alert_scan", schedule: "@hourly", failures: 1, err: errors.New("boom")}
	require.NoError(t, s.AddJob(job))

	_, _ = s.RunJob("alert_scan") // 실패
	_, _ = s.RunJob("alert_scan") // 성공

	stats := s.GetJobStats()["alert_scan"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.5, stats.SuccessRate)
	require.NotNil(t, stats.LastSuccess)
	require.NotNil(t, stats.LastFailure)
	require.NotNil(t, stats.LastRun)
	assert.False(t, stats.LastSuccess.Before(*stats.LastFailure))
	assert.Equal(t, *stats.LastSuccess, *stats.LastRun)

	history, err := s.GetJobHistory("alert_scan")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Success)
	assert.True(t, history[1].Success)

	_, err = s.GetJobHistory("nope")
	assert.Error(t, err)
}

func TestRemoveJob(t *testing.T) {
	s := newScheduler(0)
	require.NoError(t, s.AddJob(&fakeJob{name: "alert_scan", schedule: "@hourly"}))

	require.NoError(t, s.RemoveJob("alert_scan"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("alert_scan"))

	_, ok := s.NextRun("alert_scan")
	assert.False(t, ok)
}

func TestStartStop(t *testing.T) {
	s := newScheduler(0)
	require.NoError(t, s.AddJob(&fakeJob{name: "alert_scan", schedule: "0 0 * * * *"}))

	s.Start()
	next, ok := s.NextRun("alert_scan")
	assert.True(t, ok)
	assert.False(t, next.IsZero())
	assert.Equal(t, 0, next.Minute())
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	assert.Empty(t, h.Latest(5))
	assert.Nil(t, h.Stats("x", "@hourly").LastRun)

	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(3), 3)
	assert.Equal(t, 0.5, h.SuccessRate())
	assert.Len(t, h.Failures(), maxHistory/2)
}
