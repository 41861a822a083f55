package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestSagaExecutesStepsInOrder(t *testing.T) {
	var order []string

	sg := newSaga("test_op", zaptest.NewLogger(t),
		sagaStep{name: "first", run: func(context.Context) error {
			order = append(order, "first")
			return nil
		}},
		sagaStep{name: "second", run: func(context.Context) error {
			order = append(order, "second")
			return nil
		}},
	)

	if err := sg.execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected step order: %v", order)
	}
}

func TestSagaCompensatesInReverseOrder(t *testing.T) {
	cause := errors.New("boom")
	var compensated []string

	sg := newSaga("test_op", zaptest.NewLogger(t),
		sagaStep{
			name: "first",
			run:  func(context.Context) error { return nil },
			compensate: func(context.Context) error {
				compensated = append(compensated, "first")
				return nil
			},
		},
		sagaStep{
			name: "second",
			run:  func(context.Context) error { return nil },
			compensate: func(context.Context) error {
				compensated = append(compensated, "second")
				return nil
			},
		},
		sagaStep{name: "third", run: func(context.Context) error { return cause }},
	)

	err := sg.execute(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}

	var partial *PartialFailureError
	if errors.As(err, &partial) {
		t.Fatalf("full rollback must not report partial failure: %v", err)
	}

	if len(compensated) != 2 || compensated[0] != "second" || compensated[1] != "first" {
		t.Fatalf("unexpected compensation order: %v", compensated)
	}
}

func TestSagaIrreversibleStepYieldsPartialFailure(t *testing.T) {
	cause := errors.New("boom")

	sg := newSaga("test_op", zaptest.NewLogger(t),
		sagaStep{name: "irreversible", run: func(context.Context) error { return nil }},
		sagaStep{name: "failing", run: func(context.Context) error { return cause }},
	)

	err := sg.execute(context.Background())

	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialFailureError, got %v", err)
	}
	if partial.FailedStep != "failing" {
		t.Fatalf("unexpected failed step: %q", partial.FailedStep)
	}
	if len(partial.CompletedSteps) != 1 || partial.CompletedSteps[0] != "irreversible" {
		t.Fatalf("unexpected completed steps: %v", partial.CompletedSteps)
	}
	if partial.Compensated {
		t.Fatal("irreversible step must not be reported as compensated")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be unwrappable, got %v", err)
	}
}

func TestSagaCompensationFailureYieldsPartialFailure(t *testing.T) {
	cause := errors.New("boom")
	compErr := errors.New("undo failed")

	sg := newSaga("test_op", zaptest.NewLogger(t),
		sagaStep{
			name:       "first",
			run:        func(context.Context) error { return nil },
			compensate: func(context.Context) error { return compErr },
		},
		sagaStep{name: "second", run: func(context.Context) error { return cause }},
	)

	err := sg.execute(context.Background())

	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialFailureError, got %v", err)
	}
	if !errors.Is(partial.CompensationErr, compErr) {
		t.Fatalf("expected compensation error, got %v", partial.CompensationErr)
	}
}
