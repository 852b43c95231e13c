// Package mirror runs the synchronization engine: on a fixed interval it
// discovers newly submitted runs, posts a notification per run, and walks every
// non-terminal tracked run to reconcile its displayed status with speedrun.com.
package mirror

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/onnwee/src-herald/srcapi"
	"github.com/onnwee/src-herald/store"
	"github.com/onnwee/src-herald/telemetry"
)

// RunSource reads the remote queue. GetRun returns (nil, nil) when the run was
// deleted upstream; any error is treated as transient.
type RunSource interface {
	ListPendingRuns(ctx context.Context) ([]srcapi.Run, error)
	GetRun(ctx context.Context, id string) (*srcapi.Run, error)
}

// Sink posts and edits the per-run notifications.
type Sink interface {
	PostNew(ctx context.Context, run srcapi.Run) (string, error)
	UpdateStatus(ctx context.Context, messageID string, status store.Status) error
}

// Engine owns the tracked-run state. All store mutations happen on its single
// worker goroutine; cycles never overlap because the next tick is consumed only
// after the previous cycle returns.
type Engine struct {
	Source RunSource
	Sink   Sink
	Store  *store.Store

	// Interval between cycles (default 5m). Pacing is the delay between runs
	// processed within a cycle; it exists to stay under Discord's send-rate
	// ceiling, not for correctness.
	Interval time.Duration
	Pacing   time.Duration

	lastCycle atomic.Int64 // unix seconds of last completed cycle
}

// Start runs cycles until ctx is cancelled. The first cycle fires immediately
// so a restart doesn't wait a full interval.
func (e *Engine) Start(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	slog.Info("run sync job starting", slog.Duration("interval", interval))
	e.RunCycle(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("run sync job stopped")
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full discovery+refresh pass. The refresh pass works off
// a snapshot of ids taken before discovery, so runs posted this cycle are not
// immediately re-fetched.
func (e *Engine) RunCycle(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, "mirror", "sync-cycle")
	defer span.End()
	telemetry.IncSyncCycle()
	d := telemetry.TimeFunc(telemetry.CycleDuration, func() {
		known := e.Store.ActiveIDs()
		e.discover(ctx)
		e.refresh(ctx, known)
	})
	e.lastCycle.Store(time.Now().Unix())
	telemetry.SetTrackedRuns(e.Store.Len())
	slog.Debug("sync cycle complete", slog.Duration("took", d), slog.String("component", "run_sync"))
}

// LastCycle returns when the most recent cycle completed (zero before the first).
func (e *Engine) LastCycle() time.Time {
	v := e.lastCycle.Load()
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}

// discover posts a notification for every pending run not yet tracked.
func (e *Engine) discover(ctx context.Context) {
	pending, err := e.Source.ListPendingRuns(ctx)
	if err != nil {
		telemetry.IncAPIError()
		slog.Warn("pending run fetch failed; treating as empty", slog.Any("err", err), slog.String("component", "run_sync"))
		return
	}
	telemetry.SetPendingRuns(len(pending))
	for _, run := range pending {
		if ctx.Err() != nil {
			return
		}
		if _, tracked := e.Store.Get(run.ID); tracked {
			continue
		}
		logger := slog.Default().With(slog.String("run_id", run.ID), slog.String("component", "run_sync"))
		handle, err := e.Sink.PostNew(ctx, run)
		if err != nil {
			telemetry.IncNotifyFailure()
			logger.Error("post notification failed", slog.Any("err", err))
			continue
		}
		if err := e.Store.Put(run.ID, store.Record{MessageID: handle, Status: store.StatusNew}); err != nil {
			logger.Error("persist tracked run failed", slog.Any("err", err))
		}
		telemetry.IncDiscovered()
		logger.Info("new run posted",
			slog.String("player", run.Player), slog.String("category", run.Category))
		e.pause(ctx)
	}
}

// refresh re-fetches each snapshot id that is still non-terminal and applies
// status transitions. Each run is processed independently: one run's failure
// never aborts the sweep.
func (e *Engine) refresh(ctx context.Context, ids []string) {
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		rec, ok := e.Store.Get(id)
		if !ok || rec.Status.Terminal() {
			continue
		}
		logger := slog.Default().With(slog.String("run_id", id), slog.String("component", "run_sync"))
		run, err := e.Source.GetRun(ctx, id)
		if err != nil {
			telemetry.IncAPIError()
			logger.Debug("run detail fetch failed; retrying next cycle", slog.Any("err", err))
			e.pause(ctx)
			continue
		}
		if run == nil {
			// Not-found is the deletion signal, never an error.
			e.transition(ctx, logger, id, rec, store.StatusDeleted)
		} else {
			switch next := store.ParseStatus(run.Status); next {
			case store.StatusVerified, store.StatusRejected:
				e.transition(ctx, logger, id, rec, next)
			default:
				// still pending, or a status word we don't know; nothing to render
			}
		}
		e.pause(ctx)
	}
}

// transition edits the notification and, once the edit is confirmed (a
// destination-side not-found counts as confirmed), persists the new status.
func (e *Engine) transition(ctx context.Context, logger *slog.Logger, id string, rec store.Record, next store.Status) {
	if err := e.Sink.UpdateStatus(ctx, rec.MessageID, next); err != nil {
		telemetry.IncNotifyFailure()
		logger.Error("status edit failed", slog.String("status", string(next)), slog.Any("err", err))
		return
	}
	rec.Status = next
	if err := e.Store.Put(id, rec); err != nil {
		logger.Error("persist status failed", slog.Any("err", err))
		return
	}
	telemetry.IncTransition(string(next))
	logger.Info("run status changed", slog.String("status", string(next)))
}

func (e *Engine) pause(ctx context.Context) {
	if e.Pacing <= 0 {
		return
	}
	t := time.NewTimer(e.Pacing)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
