package txn

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// buildSteps returns n steps that append to trace on Run ("run-i") and on
// Compensate ("comp-i"). failAt (1-based) makes that step's Run fail; 0 means
// no failure. compFailAt makes that step's Compensate fail (still traced).
func buildSteps(n, failAt, compFailAt int, trace *[]string) []Step {
	steps := make([]Step, 0, n)
	for i := 1; i <= n; i++ {
		i := i
		steps = append(steps, Step{
			Name: fmt.Sprintf("step_%d", i),
			Run: func(_ context.Context, tc *Context) error {
				if i == failAt {
					return errors.New("boom")
				}
				*trace = append(*trace, fmt.Sprintf("run-%d", i))
				tc.Set(fmt.Sprintf("result_%d", i), i)
				return nil
			},
			Compensate: func(_ context.Context, _ *Context) error {
				*trace = append(*trace, fmt.Sprintf("comp-%d", i))
				if i == compFailAt {
					return errors.New("comp boom")
				}
				return nil
			},
		})
	}
	return steps
}

func TestExecuteSuccessRunsAllStepsAndNoCompensation(t *testing.T) {
	var trace []string
	coord := NewCoordinator(testLogger(t), nil)

	tc, err := coord.Execute(context.Background(), "create_thing", uuid.New(), buildSteps(4, 0, 0, &trace))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"run-1", "run-2", "run-3", "run-4"}
	if len(trace) != len(want) {
		t.Fatalf("trace: want=%v got=%v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace[%d]: want=%q got=%q", i, want[i], trace[i])
		}
	}
	if v, ok := tc.Value("result_3"); !ok || v.(int) != 3 {
		t.Fatalf("context result_3: got=%v ok=%v", v, ok)
	}
}

func TestExecuteFailureCompensatesInReverseOrder(t *testing.T) {
	for failAt := 1; failAt <= 4; failAt++ {
		var trace []string
		coord := NewCoordinator(testLogger(t), nil)

		_, err := coord.Execute(context.Background(), "create_thing", uuid.New(), buildSteps(4, failAt, 0, &trace))
		if err == nil {
			t.Fatalf("failAt=%d: expected error", failAt)
		}

		var stepErr *StepError
		if !errors.As(err, &stepErr) {
			t.Fatalf("failAt=%d: expected *StepError, got %T", failAt, err)
		}
		if want := fmt.Sprintf("step_%d", failAt); stepErr.Step != want {
			t.Fatalf("failAt=%d: failed step: want=%q got=%q", failAt, want, stepErr.Step)
		}

		want := []string{}
		for i := 1; i < failAt; i++ {
			want = append(want, fmt.Sprintf("run-%d", i))
		}
		for i := failAt - 1; i >= 1; i-- {
			want = append(want, fmt.Sprintf("comp-%d", i))
		}
		if len(trace) != len(want) {
			t.Fatalf("failAt=%d: trace: want=%v got=%v", failAt, want, trace)
		}
		for i := range want {
			if trace[i] != want[i] {
				t.Fatalf("failAt=%d: trace[%d]: want=%q got=%q", failAt, i, want[i], trace[i])
			}
		}
	}
}

func TestExecuteFirstStepFailureCompensatesNothing(t *testing.T) {
	var trace []string
	coord := NewCoordinator(testLogger(t), nil)

	_, err := coord.Execute(context.Background(), "create_thing", uuid.New(), buildSteps(3, 1, 0, &trace))
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(trace) != 0 {
		t.Fatalf("expected empty trace, got %v", trace)
	}
}

func TestExecuteCompensationFailureDoesNotMaskStepError(t *testing.T) {
	var trace []string
	coord := NewCoordinator(testLogger(t), nil)

	// Step 3 fails; step 2's compensation fails; step 1 must still compensate.
	_, err := coord.Execute(context.Background(), "create_thing", uuid.New(), buildSteps(3, 3, 2, &trace))
	if err == nil {
		t.Fatalf("expected error")
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if stepErr.Step != "step_3" {
		t.Fatalf("failed step: want=%q got=%q", "step_3", stepErr.Step)
	}
	want := []string{"run-1", "run-2", "comp-2", "comp-1"}
	if len(trace) != len(want) {
		t.Fatalf("trace: want=%v got=%v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace[%d]: want=%q got=%q", i, want[i], trace[i])
		}
	}
}

func TestExecuteStepsWithoutCompensationAreSkipped(t *testing.T) {
	var compensated []string
	steps := []Step{
		{
			Name: "insert_parent",
			Run:  func(_ context.Context, _ *Context) error { return nil },
			Compensate: func(_ context.Context, _ *Context) error {
				compensated = append(compensated, "insert_parent")
				return nil
			},
		},
		{
			// A patch step covered by the parent delete carries no Compensate.
			Name: "patch_parent",
			Run:  func(_ context.Context, _ *Context) error { return nil },
		},
		{
			Name: "final",
			Run:  func(_ context.Context, _ *Context) error { return errors.New("boom") },
		},
	}

	coord := NewCoordinator(testLogger(t), nil)
	_, err := coord.Execute(context.Background(), "create_thing", uuid.New(), steps)
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(compensated) != 1 || compensated[0] != "insert_parent" {
		t.Fatalf("compensated: want=[insert_parent] got=%v", compensated)
	}
}

type fakeJournal struct {
	runID      uuid.UUID
	beginErr   error
	appends    []string
	statuses   []string
	appendErrs map[string]error
}

func (f *fakeJournal) Begin(_ context.Context, _ string, _ uuid.UUID) (uuid.UUID, error) {
	if f.beginErr != nil {
		return uuid.Nil, f.beginErr
	}
	if f.runID == uuid.Nil {
		f.runID = uuid.New()
	}
	return f.runID, nil
}

func (f *fakeJournal) Append(_ context.Context, _ uuid.UUID, step string, _ UndoRecord) error {
	f.appends = append(f.appends, step)
	if err := f.appendErrs[step]; err != nil {
		return err
	}
	return nil
}

func (f *fakeJournal) MarkStatus(_ context.Context, _ uuid.UUID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func TestExecuteJournalsUndoRecordsBeforeSteps(t *testing.T) {
	journal := &fakeJournal{}
	coord := NewCoordinator(testLogger(t), journal)

	steps := []Step{
		{
			Name: "insert_parent",
			Run:  func(_ context.Context, _ *Context) error { return nil },
			Undo: &UndoRecord{Kind: "db_delete_rows", Payload: map[string]any{"table": "teams"}},
		},
		{
			Name: "patch_parent",
			Run:  func(_ context.Context, _ *Context) error { return nil },
		},
	}
	if _, err := coord.Execute(context.Background(), "create_team", uuid.New(), steps); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(journal.appends) != 1 || journal.appends[0] != "insert_parent" {
		t.Fatalf("journal appends: want=[insert_parent] got=%v", journal.appends)
	}
	if len(journal.statuses) != 1 || journal.statuses[0] != RunStatusSucceeded {
		t.Fatalf("journal statuses: want=[succeeded] got=%v", journal.statuses)
	}
}

func TestExecuteJournalFailureIsNotFatal(t *testing.T) {
	journal := &fakeJournal{beginErr: errors.New("db down")}
	coord := NewCoordinator(testLogger(t), journal)

	steps := []Step{{
		Name: "insert_parent",
		Run:  func(_ context.Context, _ *Context) error { return nil },
		Undo: &UndoRecord{Kind: "db_delete_rows"},
	}}
	if _, err := coord.Execute(context.Background(), "create_team", uuid.New(), steps); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(journal.appends) != 0 {
		t.Fatalf("expected no journal appends without a run, got %v", journal.appends)
	}
}

func TestExecuteFailureMarksRunCompensated(t *testing.T) {
	journal := &fakeJournal{}
	coord := NewCoordinator(testLogger(t), journal)

	steps := []Step{{
		Name: "insert_parent",
		Run:  func(_ context.Context, _ *Context) error { return errors.New("boom") },
		Undo: &UndoRecord{Kind: "db_delete_rows"},
	}}
	if _, err := coord.Execute(context.Background(), "create_team", uuid.New(), steps); err == nil {
		t.Fatalf("expected error")
	}
	if len(journal.statuses) != 1 || journal.statuses[0] != RunStatusCompensated {
		t.Fatalf("journal statuses: want=[compensated] got=%v", journal.statuses)
	}
}
