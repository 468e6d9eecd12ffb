package variability

import "errors"

// Configuration and usage errors. All are fatal for the batch being
// evaluated; callers match them with errors.Is.
var (
	ErrUnknownModel        = errors.New("no variability model registered under this name")
	ErrMalformedBlob       = errors.New("malformed variability parameter blob")
	ErrParameter           = errors.New("invalid variability parameter")
	ErrNoDataDir           = errors.New("variability light curve data directory is not configured")
	ErrMissingData         = errors.New("variability data file is missing")
	ErrEpochBeforeStart    = errors.New("requested epoch precedes the light curve start")
	ErrEpochOrder          = errors.New("requested epoch precedes the last evaluated epoch")
	ErrNegativeFlux        = errors.New("negative flux ratio in eclipsing binary light curve")
	ErrMissingPrerequisite = errors.New("catalog is missing a prerequisite for this model")
	ErrShape               = errors.New("offset tensor shape mismatch")
)

// ModelError attributes a failure to the model that produced it.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return e.Model + ": " + e.Err.Error()
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
