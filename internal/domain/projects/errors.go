package projects

import "errors"

var (
	// ErrNotFound is returned when a project does not exist.
	ErrNotFound = errors.New("project not found")
	// ErrRunInProgress is returned when another run holds the project lease.
	ErrRunInProgress = errors.New("analysis run already in progress")
	// ErrLeaseLost is returned when a newer run took the project over mid-run.
	ErrLeaseLost = errors.New("analysis run lease lost")
)

// ErrInvalidProject wraps validation failures on create.
var ErrInvalidProject = errors.New("invalid project")
