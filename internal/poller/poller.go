// Package poller re-fetches a project while any of its scenes waits on image
// generation, so a client view converges on the webhook's results.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/models"
)

const DefaultInterval = 5 * time.Second

type Fetcher interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

// Poller owns one project view. At most one polling goroutine runs at a
// time and fetches never overlap.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	onUpdate func(*models.Project)
	onError  func(error)
	logger   *slog.Logger

	mu      sync.Mutex
	project *models.Project
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(fetcher Fetcher, project *models.Project) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		project:  project,
		logger:   logging.WithComponent(slog.Default(), "poller"),
	}
}

func (p *Poller) WithInterval(d time.Duration) *Poller {
	if d > 0 {
		p.interval = d
	}
	return p
}

// OnUpdate registers a callback run after every successful fetch. Callbacks
// run on the polling goroutine and must not call Stop.
func (p *Poller) OnUpdate(fn func(*models.Project)) *Poller {
	p.onUpdate = fn
	return p
}

func (p *Poller) OnError(fn func(error)) *Poller {
	p.onError = fn
	return p
}

func (p *Poller) WithLogger(logger *slog.Logger) *Poller {
	if logger != nil {
		p.logger = logging.WithComponent(logger, "poller")
	}
	return p
}

// Project returns the current view.
func (p *Poller) Project() *models.Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.project
}

// SetProject replaces the view, for instance with the project returned by a
// generation request. It does not start polling.
func (p *Poller) SetProject(project *models.Project) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.project = project
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start begins polling and reports whether a new loop was started. It is a
// no-op while a loop is running or when no scene is requested.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || !p.project.HasRequestedScenes() {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(loopCtx, cancel, p.project.ID, p.done)
	return true
}

// Stop ends the loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the current loop exits. It is nil before the first
// Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Poller) loop(ctx context.Context, cancel context.CancelFunc, projectID string, done chan struct{}) {
	logger := logging.WithProjectID(p.logger, projectID)
	ticker := time.NewTicker(p.interval)
	defer func() {
		ticker.Stop()
		cancel()
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		p.mu.Unlock()
		close(done)
	}()

	logger.Debug("polling started", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("polling cancelled")
			return
		case <-ticker.C:
		}

		project, err := p.fetcher.GetProject(ctx, projectID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("project fetch failed", "error", err)
			if p.onError != nil {
				p.onError(err)
			}
			continue
		}

		p.mu.Lock()
		p.project = project
		p.mu.Unlock()

		if p.onUpdate != nil {
			p.onUpdate(project)
		}
		if !project.HasRequestedScenes() {
			logger.Debug("no scenes requested, polling stopped")
			return
		}
	}
}
