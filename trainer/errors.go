package trainer

import "errors"

// Run failures. Each is joined with its cause, so both errors.Is(err, ErrFit)
// and errors.Is(err, <cause>) hold.
var (
	ErrConfigurationNotFound = errors.New("configuration not found")
	ErrDataLoad              = errors.New("data load failed")
	ErrFit                   = errors.New("fit failed")
	ErrPersist               = errors.New("persist failed")
	ErrExport                = errors.New("export failed")
)

// Process exit codes.
const (
	ExitOK                    = 0
	ExitFailure               = 1
	ExitConfigurationNotFound = 2
	ExitDataLoad              = 3
	ExitFit                   = 4
	ExitPersist               = 5
	ExitExport                = 6
)

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfigurationNotFound):
		return ExitConfigurationNotFound
	case errors.Is(err, ErrDataLoad):
		return ExitDataLoad
	case errors.Is(err, ErrFit):
		return ExitFit
	case errors.Is(err, ErrPersist):
		return ExitPersist
	case errors.Is(err, ErrExport):
		return ExitExport
	default:
		return ExitFailure
	}
}
