package track

import "errors"

// Sentinel errors for the fit. Callers classify failures with
// errors.Is; construction errors are fatal to the current fit while
// linearization errors are locally recoverable (the effect is
// deactivated for the remainder of the iteration).
var (
	// ErrInvalidArgument reports a basis out of range or a non-finite
	// input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDegenerateHelix reports a helix construction with a vanishing
	// radius or wavelength.
	ErrDegenerateHelix = errors.New("degenerate helix")
	// ErrPCAFailure reports a closest-approach solve that diverged or ran
	// out of iterations.
	ErrPCAFailure = errors.New("closest approach failure")
	// ErrUpdateFailed reports an effect that could not linearize against
	// the reference trajectory.
	ErrUpdateFailed = errors.New("effect update failed")
	// ErrUnconverged reports a fit that exhausted its iteration budget
	// without meeting the tolerance.
	ErrUnconverged = errors.New("fit unconverged")
)
