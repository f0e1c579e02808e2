package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()

	job := s.Create("meeting.wav", "/tmp/meeting.wav", Options{})
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StateCreated, job.State)

	require.NoError(t, s.SetRunning(job.ID, func() {}))
	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, got.State)
	assert.NotNil(t, got.StartedAt)

	s.SetProgress(job.ID, orchestrator.Progress{CurrentChunk: 1, TotalChunks: 3, Percentage: 33.3})
	got, _ = s.Get(job.ID)
	assert.Equal(t, 1, got.Progress.CurrentChunk)

	require.NoError(t, s.SetCompleted(job.ID, "/tmp/out.json"))
	got, _ = s.Get(job.ID)
	assert.Equal(t, StateCompleted, got.State)
	assert.Equal(t, "/tmp/out.json", got.TranscriptPath)
	assert.NotNil(t, got.FinishedAt)
}

func TestStoreCreateRecordsOptions(t *testing.T) {
	s := NewStore()
	opts := Options{Language: "zh", MinSpeakers: 2, MaxSpeakers: 4}

	job := s.Create("meeting.wav", "/tmp/meeting.wav", opts)
	assert.Equal(t, opts, job.Options)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, opts, got.Options)
}

func TestStoreGetUnknownJob(t *testing.T) {
	s := NewStore()
	_, err := s.Get("no-such-id")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStoreCancelRunningJob(t *testing.T) {
	s := NewStore()
	job := s.Create("a.wav", "/tmp/a.wav", Options{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.SetRunning(job.ID, cancel))

	require.NoError(t, s.Cancel(job.ID))
	assert.ErrorIs(t, ctx.Err(), context.Canceled, "cancel must abort the pipeline context")

	got, _ := s.Get(job.ID)
	assert.Equal(t, StateCancelled, got.State)
}

func TestStoreCancelWinsRaceWithCompletion(t *testing.T) {
	s := NewStore()
	job := s.Create("a.wav", "/tmp/a.wav", Options{})
	require.NoError(t, s.SetRunning(job.ID, func() {}))

	require.NoError(t, s.Cancel(job.ID))
	// pipeline finishes after the cancel already landed
	require.NoError(t, s.SetCompleted(job.ID, "/tmp/out.json"))

	got, _ := s.Get(job.ID)
	assert.Equal(t, StateCancelled, got.State)
}

func TestStoreCancelFinishedJob(t *testing.T) {
	s := NewStore()
	job := s.Create("a.wav", "/tmp/a.wav", Options{})
	require.NoError(t, s.SetRunning(job.ID, func() {}))
	require.NoError(t, s.SetFailed(job.ID, assert.AnError))

	assert.ErrorIs(t, s.Cancel(job.ID), ErrJobNotCancellable)
}

func TestStoreListNewestFirst(t *testing.T) {
	s := NewStore()
	a := s.Create("a.wav", "", Options{})
	b := s.Create("b.wav", "", Options{})

	list := s.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	job := s.Create("a.wav", "", Options{})
	require.NoError(t, s.SetRunning(job.ID, func() {}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetProgress(job.ID, orchestrator.Progress{CurrentChunk: n})
				s.Get(job.ID)
				s.List()
			}
		}(i)
	}
	wg.Wait()
}
