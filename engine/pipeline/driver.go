package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/lustra-ai/lustra/engine/core"
	"github.com/lustra-ai/lustra/engine/workflow"
	"github.com/lustra-ai/lustra/pkg/logger"
)

var (
	// ErrWorkflowFailed marks an explicit failure reported by the engine.
	ErrWorkflowFailed = errors.New("workflow failed")
	// ErrPollTimeout marks an attempt that outlived its polling budget.
	// The remote workflow is left running; no cancellation is issued.
	ErrPollTimeout = errors.New("workflow polling timed out")
	// ErrAttemptConsumed is returned when a driver is reused. One driver
	// drives exactly one attempt.
	ErrAttemptConsumed = errors.New("attempt already started")
)

// EngineAPI is the slice of the engine client the driver needs.
type EngineAPI interface {
	Status(ctx context.Context, handle Handle) (*Snapshot, error)
	Result(ctx context.Context, handle Handle) (map[string][]json.RawMessage, error)
}

// ProgressFunc receives progress updates derived from the last visited node.
type ProgressFunc func(progress int, label string)

// Options tunes one polling attempt.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

const (
	defaultInterval = 2 * time.Second
	defaultTimeout  = 5 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// Driver drives one workflow attempt from start to a terminal state.
// Status transitions PENDING -> RUNNING -> {SUCCESS, FAILED, TIMED_OUT,
// CANCELED}; terminal states are absorbing.
type Driver struct {
	id     core.ID
	engine EngineAPI
	opts   Options

	mu     sync.Mutex
	status core.StatusType
}

// NewDriver creates a driver for a single attempt.
func NewDriver(engine EngineAPI, opts Options) *Driver {
	return &Driver{
		id:     core.NewID(),
		engine: engine,
		opts:   opts.withDefaults(),
		status: core.StatusPending,
	}
}

// ID identifies this attempt in logs, distinct from the engine's handle.
func (d *Driver) ID() core.ID {
	return d.id
}

// Status returns the attempt's current lifecycle status.
func (d *Driver) Status() core.StatusType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *Driver) transition(next core.StatusType) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.status.CanTransitionTo(next) {
		return false
	}
	d.status = next
	return true
}

// PollUntilComplete polls the engine until the attempt reaches a terminal
// state and returns the merged result payload.
//
// Per-poll network errors are swallowed and the loop continues; only an
// explicit failed state, an error field in the response, timeout, or
// context cancellation end the attempt with an error. The inter-poll
// sleep is the only suspension point.
func (d *Driver) PollUntilComplete(
	ctx context.Context,
	handle Handle,
	variant workflow.Variant,
	onProgress ProgressFunc,
) (map[string][]json.RawMessage, error) {
	if !d.transition(core.StatusRunning) {
		return nil, ErrAttemptConsumed
	}
	log := logger.FromContext(ctx).With(
		"attempt_id", d.id.String(),
		"workflow_id", handle.String(),
		"variant", variant.String(),
	)
	deadline := time.Now().Add(d.opts.Timeout)

	for {
		snap, err := d.engine.Status(ctx, handle)
		switch {
		case err != nil && ctx.Err() != nil:
			d.transition(core.StatusCanceled)
			return nil, ctx.Err()
		case err != nil:
			// Transient blip. Keep polling rather than failing the attempt.
			log.Debug("status poll failed, continuing", "error", err)
		default:
			if visited := snap.Progress.Visited; len(visited) > 0 && onProgress != nil {
				step := workflow.Resolve(variant, visited[len(visited)-1])
				onProgress(step.Progress, step.Label)
			}
			if snap.Error != "" || snap.Progress.State == RunStateFailed {
				d.transition(core.StatusFailed)
				msg := snap.Error
				if msg == "" {
					msg = "remote pipeline reported failure"
				}
				return nil, fmt.Errorf("%w: %s", ErrWorkflowFailed, msg)
			}
			if snap.Progress.State == RunStateCompleted {
				result, err := d.engine.Result(ctx, handle)
				if err != nil {
					d.transition(core.StatusFailed)
					return nil, fmt.Errorf("failed to fetch result for completed workflow: %w", err)
				}
				d.transition(core.StatusSuccess)
				return MergeResults(result, snap.Results), nil
			}
		}

		if !time.Now().Before(deadline) {
			d.transition(core.StatusTimedOut)
			return nil, fmt.Errorf("%w after %s", ErrPollTimeout, d.opts.Timeout)
		}
		select {
		case <-ctx.Done():
			d.transition(core.StatusCanceled)
			return nil, ctx.Err()
		case <-time.After(d.opts.Interval):
		}
	}
}

// MergeResults merges the final status snapshot's node outputs into the
// result payload. The result payload wins for keys present in both; the
// snapshot only fills keys the result payload is missing. Presence, not
// freshness, decides — kept verbatim from observed upstream behavior
// even though it can preserve a stale record (see DESIGN.md).
func MergeResults(result, snapshot map[string][]json.RawMessage) map[string][]json.RawMessage {
	merged := make(map[string][]json.RawMessage, len(result)+len(snapshot))
	maps.Copy(merged, result)
	for node, records := range snapshot {
		if _, ok := merged[node]; !ok {
			merged[node] = records
		}
	}
	return merged
}
