package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/distribuidora/backend/internal/domain/offline"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReplayObserver receives replay measurements (Prometheus in the agent)
type ReplayObserver interface {
	ObserveDispatch(operationType string, outcome Outcome, duration time.Duration)
	ObservePass(result ReplayResult)
}

type nopObserver struct{}

func (nopObserver) ObserveDispatch(string, Outcome, time.Duration) {}
func (nopObserver) ObservePass(ReplayResult)                      {}

// ReplayConfig tunes a Replayer
type ReplayConfig struct {
	// Batch is how many pending operations are read per query
	Batch int
	// MaxAttempts caps transient failures before an operation is marked failed
	MaxAttempts int
	// Rate is dispatches per second; <= 0 disables pacing
	Rate  float64
	Burst int
}

// DefaultReplayConfig returns the defaults used by the agent
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{Batch: 50, MaxAttempts: 10, Rate: 5, Burst: 5}
}

// ReplayResult summarizes one replay pass
type ReplayResult struct {
	Completed   int  `json:"completed"`
	Failed      int  `json:"failed"`
	Released    int  `json:"released"`
	Skipped     int  `json:"skipped"`
	Interrupted bool `json:"interrupted"`
}

// Processed is the number of operations that reached a terminal status
func (r ReplayResult) Processed() int {
	return r.Completed + r.Failed
}

// Replayer drains the queue against the server in enqueue order, one
// operation at a time. Passes never overlap: a trigger during a pass
// schedules a single follow-up pass.
type Replayer struct {
	queue      *QueueService
	dispatcher Dispatcher
	limiter    *rate.Limiter
	cfg        ReplayConfig
	logger     *zap.Logger
	observer   ReplayObserver

	mu      sync.Mutex
	running bool
	again   bool
	wg      sync.WaitGroup
	last    ReplayResult
}

// NewReplayer creates a new Replayer
func NewReplayer(queue *QueueService, dispatcher Dispatcher, cfg ReplayConfig, logger *zap.Logger) *Replayer {
	def := DefaultReplayConfig()
	if cfg.Batch <= 0 {
		cfg.Batch = def.Batch
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		queue:      queue,
		dispatcher: dispatcher,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		cfg:        cfg,
		logger:     logger,
		observer:   nopObserver{},
	}
}

// SetObserver installs a measurement sink
func (r *Replayer) SetObserver(o ReplayObserver) {
	if o != nil {
		r.observer = o
	}
}

// Trigger starts a pass in the background, or schedules one follow-up pass
// if a pass is already running. It never blocks. ctx bounds the waits between
// dispatches only; an operation already sent is always marked.
func (r *Replayer) Trigger(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.again = true
		r.mu.Unlock()
		return
	}
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		for {
			result, err := r.ReplayOnce(ctx)
			if err != nil {
				r.logger.Error("replay pass failed", zap.Error(err))
			}
			r.mu.Lock()
			r.last = result
			if !r.again || ctx.Err() != nil {
				r.running = false
				r.again = false
				r.mu.Unlock()
				return
			}
			r.again = false
			r.mu.Unlock()
		}
	}()
}

// Wait blocks until the running pass, and any follow-up, has finished
func (r *Replayer) Wait() {
	r.wg.Wait()
}

// Running reports whether a pass is in progress
func (r *Replayer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastResult returns the result of the most recent pass
func (r *Replayer) LastResult() ReplayResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// ReplayOnce runs a single pass synchronously until the queue has no pending
// operation, a transient failure stops it, or ctx is done between dispatches
func (r *Replayer) ReplayOnce(ctx context.Context) (ReplayResult, error) {
	var result ReplayResult
	defer func() { r.observer.ObservePass(result) }()

	// marks must land even if the trigger is cancelled mid-dispatch
	markCtx := context.WithoutCancel(ctx)

	for {
		ops, err := r.queue.ListPending(ctx, r.cfg.Batch)
		if err != nil {
			return result, fmt.Errorf("list pending: %w", err)
		}
		if len(ops) == 0 {
			return result, nil
		}

		for _, op := range ops {
			if err := r.limiter.Wait(ctx); err != nil {
				result.Interrupted = true
				return result, nil
			}

			if err := r.queue.MarkProcessing(markCtx, op.ID); err != nil {
				if errors.Is(err, offline.ErrNotClaimable) || errors.Is(err, offline.ErrOperationNotFound) {
					result.Skipped++
					continue
				}
				return result, fmt.Errorf("claim %s: %w", op.ID, err)
			}

			stop, err := r.dispatchOne(markCtx, op, &result)
			if err != nil {
				return result, err
			}
			if stop {
				result.Interrupted = true
				return result, nil
			}
		}
	}
}

// dispatchOne sends a claimed operation and records the outcome. It reports
// stop when the link looks down.
func (r *Replayer) dispatchOne(ctx context.Context, op *offline.Operation, result *ReplayResult) (bool, error) {
	log := r.logger.With(
		zap.String("operation_id", op.ID.String()),
		zap.String("operation_type", op.OperationType),
	)

	start := time.Now()
	dispatchErr := r.dispatcher.Dispatch(ctx, op)
	outcome := Classify(dispatchErr)
	r.observer.ObserveDispatch(op.OperationType, outcome, time.Since(start))

	switch outcome {
	case OutcomeCompleted:
		if err := r.queue.MarkCompleted(ctx, op.ID); err != nil {
			return false, fmt.Errorf("complete %s: %w", op.ID, err)
		}
		result.Completed++
		log.Info("operation replayed")
		return false, nil

	case OutcomePermanent:
		if err := r.queue.MarkFailed(ctx, op.ID, dispatchErr.Error()); err != nil {
			return false, fmt.Errorf("fail %s: %w", op.ID, err)
		}
		result.Failed++
		log.Warn("operation rejected by server", zap.Error(dispatchErr))
		return false, nil

	default:
		// the claim counted this attempt
		if op.Attempts+1 >= r.cfg.MaxAttempts {
			reason := fmt.Sprintf("giving up after %d attempts: %v", op.Attempts+1, dispatchErr)
			if err := r.queue.MarkFailed(ctx, op.ID, reason); err != nil {
				return false, fmt.Errorf("fail %s: %w", op.ID, err)
			}
			result.Failed++
			log.Warn("operation exhausted its attempts", zap.Error(dispatchErr))
			return true, nil
		}
		if err := r.queue.Release(ctx, op.ID, dispatchErr.Error()); err != nil {
			return false, fmt.Errorf("release %s: %w", op.ID, err)
		}
		result.Released++
		log.Info("transient dispatch failure, pass stopped", zap.Error(dispatchErr))
		return true, nil
	}
}
