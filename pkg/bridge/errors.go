package bridge

import (
	"fmt"

	"github.com/matzehuels/npym/pkg/wheel"
)

// EmitFailure is one wheel that could not be emitted.
type EmitFailure struct {
	Node string // name@version
	Err  error
}

// EmitError reports an aborted emission phase. Committed holds the wheels
// written before the abort; they are complete and valid.
type EmitError struct {
	Committed []*wheel.Artifact
	Failed    []EmitFailure
}

func (e *EmitError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("emission aborted after %d wheel(s)", len(e.Committed))
	}
	msg := fmt.Sprintf("%s: %v", e.Failed[0].Node, e.Failed[0].Err)
	if n := len(e.Failed) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func (e *EmitError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}
