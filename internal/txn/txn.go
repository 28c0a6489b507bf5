// Package txn sequences dependent writes against backends that offer no
// multi-statement transaction (relational rows plus object storage) and
// approximates all-or-nothing visibility by compensating already-applied steps
// in reverse order when a later step fails.
package txn

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

// Context is the shared state a flow threads through its steps. Each step may
// read what earlier steps produced (parent id, storage key, public URL) and
// merge its own results in.
type Context struct {
	values map[string]any
}

func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

func (c *Context) Set(key string, val any) {
	c.values[key] = val
}

func (c *Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *Context) String(key string) string {
	if v, ok := c.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (c *Context) UUID(key string) uuid.UUID {
	if v, ok := c.values[key]; ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// UndoRecord describes how to undo a step if the process dies before in-memory
// compensation can run. It is journaled before the step executes, so every
// journaled delete must be idempotent.
type UndoRecord struct {
	Kind    string
	Payload map[string]any
}

// Step is one network-bound write in a creation flow.
//
// Run performs the write. Compensate undoes it and is only invoked for steps
// whose Run returned nil; it may be left nil when a later mechanism already
// covers the step (a patch on a parent row is undone by deleting the parent).
// Undo, when set, is appended to the journal before Run.
type Step struct {
	Name       string
	Run        func(ctx context.Context, tc *Context) error
	Compensate func(ctx context.Context, tc *Context) error
	Undo       *UndoRecord
}

// Journal persists undo records so a reconciliation sweep can finish the
// rollback of flows the process did not survive. All journal methods are
// best-effort from the coordinator's point of view.
type Journal interface {
	Begin(ctx context.Context, name string, ownerUserID uuid.UUID) (uuid.UUID, error)
	Append(ctx context.Context, runID uuid.UUID, step string, undo UndoRecord) error
	MarkStatus(ctx context.Context, runID uuid.UUID, status string) error
}

// Journal run statuses.
const (
	RunStatusRunning     = "running"
	RunStatusSucceeded   = "succeeded"
	RunStatusCompensated = "compensated"
)

// StepError is the single error surfaced when a step fails. Compensation
// failures never replace it; they are logged and kept as secondary detail.
type StepError struct {
	Flow string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %q failed: %v", e.Flow, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Coordinator executes steps strictly sequentially and rolls back on failure.
type Coordinator struct {
	log     *logger.Logger
	journal Journal
}

func NewCoordinator(baseLog *logger.Logger, journal Journal) *Coordinator {
	return &Coordinator{
		log:     baseLog.With("component", "txn.Coordinator"),
		journal: journal,
	}
}

// Execute runs the steps in order. On the first failure it stops, compensates
// the already-succeeded steps in strict reverse order and returns a *StepError
// naming the failed step. Compensation failures are logged, never raised: the
// backend may be left with an orphan row, which the journal sweep or manual
// cleanup handles later. On full success it returns the final shared context.
func (c *Coordinator) Execute(ctx context.Context, flow string, ownerUserID uuid.UUID, steps []Step) (*Context, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%s: no steps to execute", flow)
	}

	tc := NewContext()

	var runID uuid.UUID
	if c.journal != nil {
		id, err := c.journal.Begin(ctx, flow, ownerUserID)
		if err != nil {
			c.log.Warn("journal begin failed, continuing without journal", "flow", flow, "error", err)
		} else {
			runID = id
		}
	}

	for i, step := range steps {
		if step.Undo != nil && runID != uuid.Nil {
			if err := c.journal.Append(ctx, runID, step.Name, *step.Undo); err != nil {
				c.log.Warn("journal append failed", "flow", flow, "step", step.Name, "error", err)
			}
		}

		if err := step.Run(ctx, tc); err != nil {
			c.log.Warn("step failed, compensating", "flow", flow, "step", step.Name, "step_index", i, "error", err)
			c.compensate(ctx, flow, tc, steps[:i])
			c.markStatus(ctx, runID, RunStatusCompensated)
			return nil, &StepError{Flow: flow, Step: step.Name, Err: err}
		}
	}

	c.markStatus(ctx, runID, RunStatusSucceeded)
	return tc, nil
}

// compensate walks the succeeded steps in reverse order. Best-effort only.
func (c *Coordinator) compensate(ctx context.Context, flow string, tc *Context, succeeded []Step) {
	for i := len(succeeded) - 1; i >= 0; i-- {
		step := succeeded[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx, tc); err != nil {
			c.log.Warn("compensation failed (continuing)",
				"flow", flow,
				"step", step.Name,
				"step_index", i,
				"error", err,
			)
		}
	}
}

func (c *Coordinator) markStatus(ctx context.Context, runID uuid.UUID, status string) {
	if c.journal == nil || runID == uuid.Nil {
		return
	}
	if err := c.journal.MarkStatus(ctx, runID, status); err != nil {
		c.log.Warn("journal status update failed", "run_id", runID.String(), "status", status, "error", err)
	}
}
