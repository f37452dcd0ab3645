package supabase

import (
	stderrors "errors"
	"fmt"
)

// apiError is a non-2xx PostgREST response
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.status, e.code, e.message)
	}
	return fmt.Sprintf("status %d: %s", e.status, e.message)
}

func asAPIError(err error, target **apiError) bool {
	return stderrors.As(err, target)
}
