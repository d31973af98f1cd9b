package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/gatewayscan/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	state     model.State
	doFunc    func(ctx context.Context, scan *Scan) error
	callCount int
	seenState model.State
}

func (m *mockStep) Do(ctx context.Context, scan *Scan) error {
	m.callCount++
	m.seenState = scan.Candidate.State
	if m.doFunc != nil {
		return m.doFunc(ctx, scan)
	}
	return nil
}

func (m *mockStep) Name() string       { return m.name }
func (m *mockStep) State() model.State { return m.state }

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if p.StepCount() != 0 {
		t.Errorf("expected 0 steps, got %d", p.StepCount())
	}
	if p.logger == nil {
		t.Error("expected default logger")
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order and reaches REPORTED", func(t *testing.T) {
		t.Parallel()

		var order []string
		mk := func(name string, state model.State) *mockStep {
			return &mockStep{name: name, state: state, doFunc: func(context.Context, *Scan) error {
				order = append(order, name)
				return nil
			}}
		}
		a := mk("a", model.StateValidating)
		b := mk("b", model.StateFetchingRoot)

		p := New()
		p.AddSteps(a, b)
		scan := NewScan("http://x.example")
		p.Execute(t.Context(), scan)

		if strings.Join(order, ",") != "a,b" {
			t.Errorf("order = %v", order)
		}
		if b.seenState != model.StateFetchingRoot {
			t.Errorf("step saw state %v, want FETCHING_ROOT", b.seenState)
		}
		if scan.Candidate.State != model.StateReported {
			t.Errorf("final state = %v, want REPORTED", scan.Candidate.State)
		}
		if scan.Failed() {
			t.Error("scan should not be failed")
		}
		if got := p.StepNames(); strings.Join(got, ",") != "a,b" {
			t.Errorf("StepNames = %v", got)
		}
	})

	t.Run("classified failure stops the pipeline", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "fail", state: model.StateFetchingRoot, doFunc: func(context.Context, *Scan) error {
			return &StepError{Kind: model.KindTimeout, Detail: "Timeout: root"}
		}}
		after := &mockStep{name: "after", state: model.StateExtracting}

		p := New()
		p.AddSteps(failing, after)
		scan := NewScan("http://x.example")
		p.Execute(t.Context(), scan)

		if after.callCount != 0 {
			t.Error("steps after a failure must not run")
		}
		if scan.Candidate.State != model.StateFailed {
			t.Errorf("state = %v, want FAILED", scan.Candidate.State)
		}
		res := scan.Result(4, 12)
		if res.Status != model.StatusError || res.ErrorKind != "Timeout" || res.Detail != "Timeout: root" {
			t.Errorf("unexpected result: %+v", res)
		}
		if res.Hits != 0 || res.PagesChecked != 0 || len(res.MatchedSignals) != 0 {
			t.Errorf("error result must have zero hits and pages: %+v", res)
		}
	})

	t.Run("plain error is unexpected", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "boom", doFunc: func(context.Context, *Scan) error {
			return errors.New("disk on fire")
		}})
		scan := NewScan("http://x.example")
		p.Execute(t.Context(), scan)

		res := scan.Result(4, 12)
		if res.ErrorKind != model.KindUnexpected.String() || res.Detail != "disk on fire" {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("panic is recovered as unexpected failure", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "panic", state: model.StateScoring, doFunc: func(context.Context, *Scan) error {
			panic("nil map")
		}})
		scan := NewScan("http://x.example")
		p.Execute(t.Context(), scan)

		res := scan.Result(4, 12)
		if res.Status != model.StatusError {
			t.Fatalf("status = %s, want ERROR", res.Status)
		}
		if !strings.Contains(res.Detail, "nil map") {
			t.Errorf("detail = %q", res.Detail)
		}
	})

	t.Run("cancelled context fails before the next step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		first := &mockStep{name: "first", doFunc: func(context.Context, *Scan) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(first, second)
		scan := NewScan("http://x.example")
		p.Execute(ctx, scan)

		if second.callCount != 0 {
			t.Error("second step must not run after cancellation")
		}
		if !scan.Failed() {
			t.Error("expected scan to fail")
		}
	})

	t.Run("terminal scan is not re-run", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "only"}
		p := New()
		p.AddStep(step)

		scan := NewScan("http://x.example")
		p.Execute(t.Context(), scan)
		p.Execute(t.Context(), scan)

		if step.callCount != 1 {
			t.Errorf("step ran %d times, want 1", step.callCount)
		}
		if scan.Candidate.State != model.StateReported {
			t.Errorf("state = %v", scan.Candidate.State)
		}
	})
}

func TestStepError(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := &StepError{Kind: model.KindParse, Detail: "failed to parse", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("StepError must unwrap")
	}
	if err.Error() != "failed to parse: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	same := &StepError{Detail: "boom", Err: inner}
	if same.Error() != "boom" {
		t.Errorf("Error() = %q", same.Error())
	}
}
