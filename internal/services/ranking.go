package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"thicket/internal/metrics"
	"thicket/internal/storage"
	"thicket/internal/utils"
)

const (
	rankingQueueSize = 1000
	rankingBatchSize = 50
	rankingFlush     = 500 * time.Millisecond
	rankingDrain     = 5 * time.Second
)

// RankingService recomputes thread scores in the background. Updates for the
// same thread coalesce while queued.
type RankingService struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time

	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex

	done chan struct{}
}

var _ Scheduler = (*RankingService)(nil)

func NewRankingService(store storage.Store, log *slog.Logger) *RankingService {
	return &RankingService{
		store:   store,
		log:     log.With(slog.String("component", "ranking")),
		now:     time.Now,
		queue:   make(chan uint, rankingQueueSize),
		pending: make(map[uint]bool),
		done:    make(chan struct{}),
	}
}

// ScheduleUpdate queues rootID without blocking. A full queue drops the update.
func (r *RankingService) ScheduleUpdate(rootID uint) {
	r.mu.Lock()
	if r.pending[rootID] {
		r.mu.Unlock()
		return
	}
	r.pending[rootID] = true
	r.mu.Unlock()

	select {
	case r.queue <- rootID:
	default:
		r.mu.Lock()
		delete(r.pending, rootID)
		r.mu.Unlock()
		metrics.RankingQueueDropped.Inc()
		r.log.Warn("ranking queue full, update skipped", slog.Uint64("root_id", uint64(rootID)))
	}
}

// Run processes the queue in batches until ctx is cancelled, then flushes
// whatever is still queued before returning.
func (r *RankingService) Run(ctx context.Context) {
	defer close(r.done)

	batch := make([]uint, 0, rankingBatchSize)
	ticker := time.NewTicker(rankingFlush)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drain(ctx, batch)
			return
		case id := <-r.queue:
			batch = append(batch, id)
			if len(batch) >= rankingBatchSize {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *RankingService) drain(ctx context.Context, batch []uint) {
queued:
	for {
		select {
		case id := <-r.queue:
			batch = append(batch, id)
		default:
			break queued
		}
	}
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rankingDrain)
	defer cancel()
	r.processBatch(ctx, batch)
	r.log.Info("ranking queue drained", slog.Int("count", len(batch)))
}

// RefreshSample queues the sample most recent thread roots so idle threads
// keep decaying. It returns the number of roots queued.
func (r *RankingService) RefreshSample(ctx context.Context, sample int) (int, error) {
	roots, err := r.store.ListTrending(ctx, sample, 0, sample)
	if err != nil {
		return 0, err
	}
	for _, c := range roots {
		r.ScheduleUpdate(c.ID)
	}
	return len(roots), nil
}

// RunRefresh calls RefreshSample every interval until ctx ends.
func (r *RankingService) RunRefresh(ctx context.Context, sample int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.RefreshSample(ctx, sample)
			if err != nil {
				r.log.Warn("trending refresh failed", slog.Any("err", err))
				continue
			}
			r.log.Debug("trending sample requeued", slog.Int("count", n))
		}
	}
}

// Done is closed when Run returns.
func (r *RankingService) Done() <-chan struct{} {
	return r.done
}

func (r *RankingService) processBatch(ctx context.Context, ids []uint) {
	for _, id := range ids {
		if err := r.UpdateScore(ctx, id); err != nil {
			r.log.Warn("score update failed", slog.Uint64("root_id", uint64(id)), slog.Any("err", err))
		}
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}
}

// UpdateScore recomputes one thread's score synchronously.
func (r *RankingService) UpdateScore(ctx context.Context, rootID uint) error {
	root, err := r.store.CommentByID(ctx, rootID)
	if err != nil {
		return err
	}
	replies, saves, err := r.store.ThreadActivity(ctx, rootID)
	if err != nil {
		return err
	}
	score := utils.CalculateScore(root.CreatedAt, r.now(), replies, saves)
	return r.store.UpdateScore(ctx, rootID, int(score))
}
