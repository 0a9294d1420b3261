package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaffNotApproved   = errors.New("staff account is not approved")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden: insufficient permissions")
	ErrSessionNotFound    = errors.New("session not found")

	// ErrExternal marks failures of the database, completion service or
	// other collaborators outside this process.
	ErrExternal = errors.New("external dependency failure")
)

// ExternalError wraps a collaborator failure with the operation that hit it.
// errors.Is(err, ErrExternal) holds for every ExternalError.
type ExternalError struct {
	Op  string
	Err error
}

func External(op string, err error) error {
	return &ExternalError{Op: op, Err: err}
}

func (e *ExternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExternalError) Unwrap() error { return e.Err }

func (e *ExternalError) Is(target error) bool { return target == ErrExternal }
