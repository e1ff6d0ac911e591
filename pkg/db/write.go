package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// WriteError reports a failed multi-step write. CompletedSteps lists the steps
// that ran before Step failed; RolledBack tells whether their effects were undone.
type WriteError struct {
	Operation      string
	Step           string
	CompletedSteps []string
	RolledBack     bool
	Err            error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s failed at %s (completed: %s, rolled_back: %t): %v",
		e.Operation, e.Step, strings.Join(e.CompletedSteps, ","), e.RolledBack, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Step is one statement group of a write operation.
type Step struct {
	Name string
	Run  func(tx *gorm.DB) error
}

// RunSteps executes steps in order inside one transaction. Any failure rolls
// back every step and is returned as a *WriteError.
func RunSteps(ctx context.Context, conn *gorm.DB, operation string, steps ...Step) error {
	completed := make([]string, 0, len(steps))
	var failed *WriteError

	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, step := range steps {
			if err := step.Run(tx); err != nil {
				failed = &WriteError{
					Operation:      operation,
					Step:           step.Name,
					CompletedSteps: append([]string(nil), completed...),
					Err:            err,
				}
				return err
			}
			completed = append(completed, step.Name)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if failed == nil {
		// commit failed after every step ran
		failed = &WriteError{
			Operation:      operation,
			Step:           "commit",
			CompletedSteps: completed,
			Err:            err,
		}
	}
	failed.RolledBack = true
	return failed
}
