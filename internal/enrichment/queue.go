package enrichment

import (
	"context"
	"fmt"
	"sync"

	"conservatory/internal/logging"
	"conservatory/internal/types"
)

// Enricher is the pipeline seen by the queue.
type Enricher interface {
	Enrich(ctx context.Context, commonName, morphVariant string, progress ProgressFunc) (*types.SpeciesRecord, error)
}

// EntityIndex is the live entity view the queue reads names from and writes
// status transitions to.
type EntityIndex interface {
	Get(id string) *types.Entity
	SetEnrichmentStatus(entityID string, status types.EnrichmentStatus) bool
}

// Queue drives enrichment strictly one entity at a time. Serial processing
// is a rate-limit policy toward the upstream providers, not an oversight;
// enqueueing N entities means O(N) sequential latency.
//
// Status transitions: queued -> pending -> complete|failed. Cancellation
// mid-enrichment leaves the entity at pending so it can be retried.
type Queue struct {
	pipeline Enricher
	index    EntityIndex
	log      *logging.Logger

	mu      sync.Mutex
	ids     []string
	started bool

	signal chan struct{}
	doneCh chan struct{}

	// progress fans stage names out to an optional observer.
	progress func(entityID, stage string)
}

// NewQueue creates a stopped queue; call Run to start draining.
func NewQueue(pipeline Enricher, index EntityIndex) *Queue {
	return &Queue{
		pipeline: pipeline,
		index:    index,
		log:      logging.Get(logging.CategoryEnrichment),
		signal:   make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
	}
}

// OnProgress registers a stage observer. Must be called before Run.
func (q *Queue) OnProgress(fn func(entityID, stage string)) { q.progress = fn }

// Enqueue marks the entity queued and schedules it. Unknown entities are an
// error; duplicates already waiting are ignored.
func (q *Queue) Enqueue(entityID string) error {
	entity := q.index.Get(entityID)
	if entity == nil {
		return fmt.Errorf("unknown entity %q", entityID)
	}

	q.mu.Lock()
	for _, id := range q.ids {
		if id == entityID {
			q.mu.Unlock()
			return nil
		}
	}
	q.ids = append(q.ids, entityID)
	q.mu.Unlock()

	q.index.SetEnrichmentStatus(entityID, types.EnrichmentQueued)
	q.log.Info("enrichment queued: %s (%s)", entity.Name, entityID)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Pending reports how many entities are waiting.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

// Run drains the queue until ctx is cancelled. It processes entities one at
// a time and never concurrently. Blocking; run it in its own goroutine and
// wait on Done for shutdown.
func (q *Queue) Run(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	defer close(q.doneCh)
	for {
		id, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.signal:
				continue
			}
		}
		if ctx.Err() != nil {
			return
		}
		q.process(ctx, id)
	}
}

// Done is closed once Run has exited.
func (q *Queue) Done() <-chan struct{} { return q.doneCh }

func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, true
}

func (q *Queue) process(ctx context.Context, entityID string) {
	entity := q.index.Get(entityID)
	if entity == nil {
		q.log.Warn("queued entity %s vanished before enrichment", entityID)
		return
	}

	q.index.SetEnrichmentStatus(entityID, types.EnrichmentPending)

	var progress ProgressFunc
	if q.progress != nil {
		progress = func(stage string) { q.progress(entityID, stage) }
	}

	_, err := q.pipeline.Enrich(ctx, entity.Name, "", progress)
	switch {
	case err != nil && ctx.Err() != nil:
		// Cancelled mid-flight: stay pending for a later retry.
		q.log.Info("enrichment cancelled for %s, left pending", entity.Name)
	case err != nil:
		q.index.SetEnrichmentStatus(entityID, types.EnrichmentFailed)
		q.log.Error("enrichment failed for %s: %v", entity.Name, err)
	default:
		q.index.SetEnrichmentStatus(entityID, types.EnrichmentComplete)
		q.log.Info("enrichment complete for %s", entity.Name)
	}
}
