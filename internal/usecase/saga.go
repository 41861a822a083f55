package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// sagaStep is one write in a multi-store operation. Compensate undoes the
// step if a later step fails; a nil compensate marks the step as
// irreversible once run.
type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga executes a fixed list of steps against independent stores. There is no
// cross-store transaction: on failure the completed steps are compensated in
// reverse order. If every completed step is rolled back the original cause is
// returned; if any completed step is irreversible or its compensation fails,
// the outcome is a PartialFailureError naming the failed step and what was
// attempted.
type saga struct {
	operation string
	logger    *zap.Logger
	steps     []sagaStep
}

func newSaga(operation string, logger *zap.Logger, steps ...sagaStep) *saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saga{operation: operation, logger: logger, steps: steps}
}

func (s *saga) execute(ctx context.Context) error {
	for i, step := range s.steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}

		s.logger.Warn("saga step failed",
			zap.String("operation", s.operation),
			zap.String("step", step.name),
			zap.Error(err),
		)

		completed := s.stepNames(i)

		for j := i - 1; j >= 0; j-- {
			prev := s.steps[j]
			if prev.compensate == nil {
				return &PartialFailureError{
					Operation:      s.operation,
					FailedStep:     step.name,
					CompletedSteps: completed,
					Compensated:    false,
					Cause:          err,
				}
			}
			if cerr := prev.compensate(ctx); cerr != nil {
				s.logger.Error("saga compensation failed",
					zap.String("operation", s.operation),
					zap.String("step", prev.name),
					zap.Error(cerr),
				)
				return &PartialFailureError{
					Operation:       s.operation,
					FailedStep:      step.name,
					CompletedSteps:  completed,
					Compensated:     false,
					CompensationErr: cerr,
					Cause:           err,
				}
			}
			s.logger.Info("saga step compensated",
				zap.String("operation", s.operation),
				zap.String("step", prev.name),
			)
		}

		return fmt.Errorf("%s: step %s: %w", s.operation, step.name, err)
	}

	return nil
}

func (s *saga) stepNames(n int) []string {
	names := make([]string, 0, n)
	for _, step := range s.steps[:n] {
		names = append(names, step.name)
	}
	return names
}
