// Package registry implements the process-wide JobRegistry: a
// repo_name-keyed map of indexing jobs, generalizing a single-job
// background controller into one entry per repository.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/cserrors"
	"github.com/FreddyJ01/CodeSleuth/internal/models"
)

// StartResult is the outcome of a Start call.
type StartResult string

const (
	Accepted      StartResult = "accepted"
	AlreadyRunning StartResult = "already_running"
)

// DeleteResult is the outcome of a Delete call.
type DeleteResult string

const (
	DeleteOk       DeleteResult = "ok"
	DeleteConflict DeleteResult = "conflict"
	DeleteNotFound DeleteResult = "not_found"
)

// CancelResult is the outcome of a Cancel call.
type CancelResult string

const (
	CancelOk       CancelResult = "ok"
	CancelNotFound CancelResult = "not_found"
)

// Worker runs one indexing job to completion. Implemented by
// indexer.Indexer.Index.
type Worker interface {
	Index(ctx context.Context, url, repoName string, sink func(models.Progress)) (models.Summary, error)
}

// Purger removes vector data belonging to a repo, resolving the open
// question on whether Delete should purge orphaned points: it does.
type Purger interface {
	DeleteByFilter(ctx context.Context, filter map[string]string) error
}

type job struct {
	repoName string
	state    models.JobState
	progress models.Progress
	summary  *models.Summary
	cancel   context.CancelFunc
}

// Registry is a process-wide, repo_name-keyed job table.
type Registry struct {
	worker Worker
	purger Purger

	mu   sync.RWMutex
	jobs map[string]*job
}

// New builds a Registry bound to a Worker and a Purger.
func New(worker Worker, purger Purger) *Registry {
	return &Registry{worker: worker, purger: purger, jobs: make(map[string]*job)}
}

// Start implements start(url, repo_name) -> Accepted | AlreadyRunning.
// A non-terminal entry blocks a fresh start; a terminal or absent entry
// is replaced with a fresh indexing job.
func (r *Registry) Start(url, repoName string) StartResult {
	r.mu.Lock()
	if existing, ok := r.jobs[repoName]; ok && existing.state == models.JobIndexing {
		r.mu.Unlock()
		return AlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{repoName: repoName, state: models.JobIndexing, cancel: cancel}
	r.jobs[repoName] = j
	r.mu.Unlock()

	go r.run(ctx, j, url, repoName)
	return Accepted
}

// run executes the worker, catching panics as failures, and records the
// terminal state.
func (r *Registry) run(ctx context.Context, j *job, url, repoName string) {
	defer func() {
		if rec := recover(); rec != nil {
			fault := cserrors.Internal("worker panicked", fmt.Errorf("%v", rec))
			r.finish(j, models.JobFailed, &models.Summary{Errors: []string{fault.Error()}})
		}
	}()

	summary, err := r.worker.Index(ctx, url, repoName, func(p models.Progress) {
		r.mu.Lock()
		j.progress = p
		r.mu.Unlock()
	})

	if err != nil {
		if ctx.Err() == context.Canceled {
			r.finish(j, models.JobCancelled, &models.Summary{Errors: append(j.progress.Errors, err.Error())})
			return
		}
		r.finish(j, models.JobFailed, &models.Summary{Errors: append(j.progress.Errors, err.Error())})
		return
	}
	r.finish(j, models.JobCompleted, &summary)
}

func (r *Registry) finish(j *job, state models.JobState, summary *models.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j.state = state
	j.summary = summary
}

// Status implements status(repo_name) -> {state, progress?} | NotFound.
func (r *Registry) Status(repoName string) (models.JobStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[repoName]
	if !ok {
		return models.JobStatus{}, false
	}
	status := models.JobStatus{RepoName: repoName, State: j.state}
	if j.state == models.JobIndexing {
		progress := j.progress
		status.Progress = &progress
	} else {
		status.Summary = j.summary
	}
	return status, true
}

// Cancel implements cancel(repo_name) -> Ok | NotFound. Idempotent once
// signaled: a second Cancel against the same running job still reports
// Ok and re-signals a context that is already cancelled.
func (r *Registry) Cancel(repoName string) CancelResult {
	r.mu.RLock()
	j, ok := r.jobs[repoName]
	r.mu.RUnlock()
	if !ok {
		return CancelNotFound
	}
	if j.cancel != nil {
		j.cancel()
	}
	return CancelOk
}

// Delete implements delete(repo_name) -> Ok | Conflict | NotFound.
// Forbidden while indexing; otherwise removes the registry entry and
// purges the repo's vector data.
func (r *Registry) Delete(ctx context.Context, repoName string) DeleteResult {
	r.mu.Lock()
	j, ok := r.jobs[repoName]
	if !ok {
		r.mu.Unlock()
		return DeleteNotFound
	}
	if j.state == models.JobIndexing {
		r.mu.Unlock()
		return DeleteConflict
	}
	delete(r.jobs, repoName)
	r.mu.Unlock()

	if r.purger != nil {
		_ = r.purger.DeleteByFilter(ctx, map[string]string{"repo_name": repoName})
	}
	return DeleteOk
}

// List implements list() -> []{repo_name, state, progress?}.
func (r *Registry) List() []models.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.JobStatus, 0, len(r.jobs))
	for name, j := range r.jobs {
		status := models.JobStatus{RepoName: name, State: j.state}
		if j.state == models.JobIndexing {
			progress := j.progress
			status.Progress = &progress
		} else {
			status.Summary = j.summary
		}
		out = append(out, status)
	}
	return out
}

// waitTerminal is a test helper exposed for callers that need a
// deterministic terminal-state observation without polling.
func waitTerminal(r *Registry, repoName string, timeout time.Duration) (models.JobStatus, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, ok := r.Status(repoName)
		if !ok || status.State != models.JobIndexing {
			return status, ok
		}
		time.Sleep(time.Millisecond)
	}
	return r.Status(repoName)
}
