package cli

import "errors"

// reportedError marks a failure the user has already seen as a notice.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// IsReported reports whether err was already shown to the user, so main
// only needs to set the exit status.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
