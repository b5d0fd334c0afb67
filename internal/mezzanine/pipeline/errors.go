package pipeline

import "errors"

// Failures reported to the operator. Abandonment is not among them: it is
// reported through Outcome.Status.
var (
	ErrProfileNotClosed         = errors.New("the sketched outline does not form a closed loop")
	ErrUnresolvedLevel          = errors.New("no level found to place the mezzanine on")
	ErrMissingConstructionTypes = errors.New("missing required construction types (a floor type and a basic wall type)")
	ErrGenerationFailure        = errors.New("mezzanine generation failed")
)
