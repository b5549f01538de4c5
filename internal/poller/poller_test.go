package poller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/poller"
)

const interval = 5 * time.Millisecond

// scriptedFetcher answers with responses in order, repeating the last one.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses []response
	calls     int
	inFlight  int
	overlap   bool
	lastCtx   context.Context
}

type response struct {
	project *models.Project
	err     error
}

func (f *scriptedFetcher) GetProject(ctx context.Context, _ string) (*models.Project, error) {
	f.mu.Lock()
	f.lastCtx = ctx
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[i]
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return r.project, r.err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func project(statuses ...models.GenerationStatus) *models.Project {
	p := &models.Project{ID: "p1"}
	for i, s := range statuses {
		p.Scenes = append(p.Scenes, models.Scene{Index: i, ImageGenerationStatus: s})
	}
	return p
}

func waitDone(t *testing.T, p *poller.Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestStart_NoopWithoutRequestedScenes(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{project: project(models.StatusCompleted)}}}
	p := poller.New(f, project(models.StatusPending, models.StatusCompleted)).WithInterval(interval)

	assert.False(t, p.Start(context.Background()))
	assert.False(t, p.Running())
	time.Sleep(5 * interval)
	assert.Equal(t, 0, f.callCount())
}

func TestPoller_StopsWhenNothingRequested(t *testing.T) {
	final := project(models.StatusCompleted, models.StatusCompleted)
	f := &scriptedFetcher{responses: []response{
		{project: project(models.StatusRequested, models.StatusCompleted)},
		{project: final},
	}}
	var updates []*models.Project
	var mu sync.Mutex
	p := poller.New(f, project(models.StatusRequested, models.StatusRequested)).
		WithInterval(interval).
		OnUpdate(func(p *models.Project) {
			mu.Lock()
			updates = append(updates, p)
			mu.Unlock()
		})

	require.True(t, p.Start(context.Background()))
	waitDone(t, p)

	assert.False(t, p.Running())
	assert.Same(t, final, p.Project())
	assert.Equal(t, 2, f.callCount())
	mu.Lock()
	assert.Len(t, updates, 2)
	mu.Unlock()

	time.Sleep(5 * interval)
	assert.Equal(t, 2, f.callCount())
}

func TestStart_Idempotent(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{project: project(models.StatusRequested)}}}
	p := poller.New(f, project(models.StatusRequested)).WithInterval(interval)

	require.True(t, p.Start(context.Background()))
	assert.False(t, p.Start(context.Background()))
	time.Sleep(20 * interval)
	p.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.False(t, f.overlap)
	assert.Greater(t, f.calls, 1)
}

func TestStop_WaitsForLoop(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{project: project(models.StatusRequested)}}}
	p := poller.New(f, project(models.StatusRequested)).WithInterval(interval)

	require.True(t, p.Start(context.Background()))
	time.Sleep(3 * interval)
	p.Stop()

	assert.False(t, p.Running())
	calls := f.callCount()
	time.Sleep(5 * interval)
	assert.Equal(t, calls, f.callCount())

	// A stopped poller can be started again.
	assert.True(t, p.Start(context.Background()))
	p.Stop()
}

func TestPoller_ContextCancellation(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{project: project(models.StatusRequested)}}}
	p := poller.New(f, project(models.StatusRequested)).WithInterval(interval)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, p.Start(ctx))
	cancel()
	waitDone(t, p)

	assert.False(t, p.Running())
}

func TestPoller_ErrorsDoNotStopPolling(t *testing.T) {
	boom := errors.New("boom")
	f := &scriptedFetcher{responses: []response{
		{err: boom},
		{err: boom},
		{project: project(models.StatusCompleted)},
	}}
	var errs []error
	var mu sync.Mutex
	p := poller.New(f, project(models.StatusRequested)).
		WithInterval(interval).
		OnError(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		})

	require.True(t, p.Start(context.Background()))
	waitDone(t, p)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, errs, 2)
	assert.Equal(t, 3, f.callCount())
	assert.Equal(t, models.StatusCompleted, p.Project().Scenes[0].ImageGenerationStatus)
}

func TestPoller_ReleasesContextWhenFinished(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{project: project(models.StatusCompleted)}}}
	p := poller.New(f, project(models.StatusRequested)).WithInterval(interval)

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.True(t, p.Start(parent))
	waitDone(t, p)

	f.mu.Lock()
	loopCtx := f.lastCtx
	f.mu.Unlock()
	require.NotNil(t, loopCtx)
	assert.ErrorIs(t, loopCtx.Err(), context.Canceled)
	assert.NoError(t, parent.Err())
	assert.False(t, p.Running())
}
