package students

import (
	"github.com/aanand-mishra/school-students/internal/types"
	"github.com/aanand-mishra/school-students/internal/utils/apperr"
)

// Existing clients match on these exact strings and on the resulting status
// codes, so every "how do we read a repository answer" rule lives here.
const (
	msgEmailExists        = "Email already exists"
	msgStudentsNotFound   = "Students not found"
	msgStudentNotFound    = "Student not found"
	msgUnableToSetStatus  = "Unable to disable student"
	msgStatusChanged      = "Student status changed successfully"
	msgAddedAndEmailSent  = "Student added and verification email sent successfully."
	msgAddedButEmailFail  = "Student added, but failed to send verification email."
	msgUnexpectedAdd      = "Unable to add student due to unexpected server error"
	msgUnexpectedUpdate   = "Unable to update student due to unexpected server error"
	msgUnexpectedList     = "Unable to get students due to unexpected server error"
	msgUnexpectedDetail   = "Unable to get student due to unexpected server error"
	msgUnexpectedSetState = "Unable to change student status due to unexpected server error"
)

// mutationKind maps a repository rejection message to an error kind.
// Exact match only.
func mutationKind(message string) apperr.Kind {
	if message == msgEmailExists {
		return apperr.KindConflict
	}
	return apperr.KindInvalid
}

// mutationError turns a rejected MutationResult into an error, or returns nil
// when the mutation succeeded.
func mutationError(result types.MutationResult) error {
	if result.Status {
		return nil
	}

	message := result.Message
	if result.Description != "" {
		message = result.Message + ". " + result.Description
	}
	return apperr.New(mutationKind(result.Message), message)
}

// listError reports an empty listing as not found.
func listError(students []types.Student) error {
	if len(students) == 0 {
		return apperr.NotFound(msgStudentsNotFound)
	}
	return nil
}

// statusChangeError reports a status change that touched no rows as an
// internal failure; the student's existence was already checked.
func statusChangeError(affected int64) error {
	if affected <= 0 {
		return apperr.Internal(msgUnableToSetStatus)
	}
	return nil
}

// unexpected keeps domain errors as they are and hides anything else behind
// a generic internal error that still carries the original as its cause.
func unexpected(err error, message string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(message).WithCause(err)
}
