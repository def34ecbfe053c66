package pipeline

import (
	"fmt"

	"sematube/internal/services"
)

// StageError reports the stage a run failed in. It unwraps to the original
// error so errors.Is classification keeps working.
type StageError struct {
	Stage Stage
	Err   error
	// FallbackMediaPath is the uncaptioned media still available to the
	// caller, when acquisition got that far.
	FallbackMediaPath string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Kind returns the error taxonomy name of the underlying failure.
func (e *StageError) Kind() string { return services.Kind(e.Err) }
