package review

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("review record not found")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrSelfApprovalForbidden = errors.New("cannot approve a review attributed to the acting unit")
	ErrMissingScore          = errors.New("score is required")
	ErrNotRecordOwner        = errors.New("only the record's owner may perform this step")
	ErrUnsupportedRole       = errors.New("role cannot perform review transitions")
)

// TransitionError carries the current status so a client that raced another
// approver can resync instead of guessing.
type TransitionError struct {
	Op      string
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed from status %s", e.Op, e.Current)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
